package plans

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

const entityType = "PLAN"

// catalogPartition groups every plan under one secondary-index partition so
// the full catalog lists as a single ordered query.
const catalogPartition = "PLANS"

func primaryKey(id uuid.UUID) store.Key {
	pk := fmt.Sprintf("PLAN#%s", id)
	return store.Key{PK: pk, SK: pk}
}

// catalogSortKey zero-pads the display order so lexicographic index order
// matches numeric order, with the tier as a stable tiebreaker.
func catalogSortKey(displayOrder int, tier enums.PlanTier) string {
	return fmt.Sprintf("%04d#%s", displayOrder, tier)
}
