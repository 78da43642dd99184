package content

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

const entityType = "CONTENT"

// ItemKey identifies one locale row of a logical content item.
type ItemKey struct {
	ID     uuid.UUID
	Locale enums.Locale
}

func primaryKey(id uuid.UUID, locale enums.Locale) store.Key {
	return store.Key{
		PK: fmt.Sprintf("CONTENT#%s", id),
		SK: fmt.Sprintf("LOCALE#%s", locale),
	}
}

func planPartition(planID uuid.UUID) string {
	return fmt.Sprintf("PLAN#%s", planID)
}

// planSortKey orders a plan's content by type then zero-padded display
// order, so "all stotras for plan X in display order" is one prefix query.
func planSortKey(contentType enums.ContentType, displayOrder int, id uuid.UUID, locale enums.Locale) string {
	return fmt.Sprintf("CONTENT#%s#%05d#%s#%s", contentType, displayOrder, id, locale)
}

func planSortPrefix(contentType enums.ContentType) string {
	return fmt.Sprintf("CONTENT#%s#", contentType)
}

// fileKeyPartition is the reverse index from a storage key to the records
// referencing it. Orphan cleanup queries it instead of scanning the table.
func fileKeyPartition(fileKey string) string {
	return fmt.Sprintf("FILEKEY#%s", fileKey)
}

func fileKeySortKey(id uuid.UUID, locale enums.Locale) string {
	return fmt.Sprintf("CONTENT#%s#%s", id, locale)
}
