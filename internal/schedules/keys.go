package schedules

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

const entityType = "SCHEDULE"

// globalPartition collects every schedule for the admin "all schedules"
// view, ordered by month then plan.
const globalPartition = "SCHEDULES"

func primaryKey(id uuid.UUID) store.Key {
	pk := fmt.Sprintf("SCHEDULE#%s", id)
	return store.Key{PK: pk, SK: pk}
}

func planPartition(planID uuid.UUID) string {
	return fmt.Sprintf("PLAN#%s#SCHEDULES", planID)
}

// monthSortKey orders a plan's schedules chronologically and makes the
// (plan, year, month) uniqueness check a single sort-equals query.
func monthSortKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func globalSortKey(year, month int, planID uuid.UUID) string {
	return fmt.Sprintf("%s#%s", monthSortKey(year, month), planID)
}
