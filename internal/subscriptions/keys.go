package subscriptions

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

const entityType = "SUBSCRIPTION"

func primaryKey(id uuid.UUID) store.Key {
	pk := fmt.Sprintf("SUBSCRIPTION#%s", id)
	return store.Key{PK: pk, SK: pk}
}

func userPartition(userID uuid.UUID) string {
	return fmt.Sprintf("USER#%s", userID)
}

func statusPartition(status enums.SubscriptionStatus) string {
	return fmt.Sprintf("SUBSTATUS#%s", status)
}

// recencySortKeyLayout is RFC3339 with fixed-width nanoseconds. RFC3339Nano
// trims trailing zeros, which breaks lexicographic ordering for records
// created in the same second.
const recencySortKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"

// recencySortKey orders a partition by creation time, so "newest first" is
// a descending index query.
func recencySortKey(createdAt time.Time) string {
	return createdAt.UTC().Format(recencySortKeyLayout)
}
