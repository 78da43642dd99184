package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
)

// UserSubscription is one purchase (or free signup) of a plan by a user.
// Plan name, tier and price are snapshotted at creation so later catalog
// edits do not rewrite history. Records are never hard-deleted; lifecycle
// changes are status changes.
type UserSubscription struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	UserEmail string    `json:"userEmail,omitempty"`

	PlanID    uuid.UUID       `json:"planId"`
	PlanName  string          `json:"planName"`
	PlanType  enums.PlanTier  `json:"planType"`
	PricePaid decimal.Decimal `json:"pricePaid"`

	Status        enums.SubscriptionStatus `json:"status"`
	PaymentMethod enums.PaymentMethod      `json:"paymentMethod"`

	// Opaque references into the external payment gateway. Never
	// interpreted here.
	PaymentReference string `json:"paymentReference,omitempty"`
	OrderReference   string `json:"orderReference,omitempty"`

	StartDate time.Time `json:"startDate"`
	// EndDate is nil for one_time subscriptions, which never expire.
	EndDate         *time.Time `json:"endDate,omitempty"`
	NextBillingDate *time.Time `json:"nextBillingDate,omitempty"`

	AdminNotes string `json:"adminNotes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsActive reports whether the record is in the active state. Expiry by
// date is handled upstream; status is the source of truth here.
func (s *UserSubscription) IsActive() bool {
	return s.Status == enums.SubscriptionStatusActive
}
