package plans

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
)

// BundledContent declares how much content of one type a plan includes.
type BundledContent struct {
	ContentType enums.ContentType `json:"contentType"`
	Count       int               `json:"count"`
	ItemRefs    []string          `json:"itemRefs,omitempty"`
}

// Guidance describes the personal-guidance allowance bundled with a plan.
type Guidance struct {
	SessionsPerMonth int    `json:"sessionsPerMonth"`
	Source           string `json:"source,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// Plan is one subscription plan definition from the catalog.
type Plan struct {
	ID             uuid.UUID           `json:"id"`
	PlanType       enums.PlanTier      `json:"planType"`
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	Price          decimal.Decimal     `json:"price"`
	BillingCycle   enums.BillingCycle  `json:"billingCycle"`
	PaymentMethod  enums.PaymentMethod `json:"paymentMethod"`
	AutopayEnabled bool                `json:"autopayEnabled"`
	Contents       []BundledContent    `json:"contents,omitempty"`
	Guidance       *Guidance           `json:"guidance,omitempty"`
	Features       []string            `json:"features,omitempty"`
	IsActive       bool                `json:"isActive"`
	DisplayOrder   int                 `json:"displayOrder"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// IsFree reports whether the plan costs nothing and activates immediately.
func (p *Plan) IsFree() bool {
	return p.Price.IsZero()
}
