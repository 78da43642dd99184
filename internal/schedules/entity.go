package schedules

import (
	"time"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/internal/content"
	"github.com/sadhanapeeth/sadhana-backend/pkg/types"
)

// ContentRef points a schedule slot at a content item. Schedules hold
// references, never copies, so later edits to the item propagate.
type ContentRef struct {
	ContentID    uuid.UUID `json:"contentId"`
	DisplayOrder int       `json:"displayOrder"`
}

// MonthlySchedule is the admin-authored sadhana programme for one plan
// and calendar month. PlanName is snapshotted at creation for display.
type MonthlySchedule struct {
	ID           uuid.UUID       `json:"id"`
	PlanID       uuid.UUID       `json:"planId"`
	PlanName     string          `json:"planName"`
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	Title        types.Bilingual `json:"title"`
	Description  types.Bilingual `json:"description"`
	ContentItems []ContentRef    `json:"contentItems"`
	IsPublished  bool            `json:"isPublished"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ResolvedItem is one schedule slot enriched with its redacted content
// summary, keeping the slot's own display order.
type ResolvedItem struct {
	Content      content.Summary `json:"content"`
	DisplayOrder int             `json:"displayOrder"`
}

// ResolvedSchedule is a schedule with its references expanded. Slots whose
// content has been deleted are absent rather than failing the whole month.
type ResolvedSchedule struct {
	ID          uuid.UUID       `json:"id"`
	PlanID      uuid.UUID       `json:"planId"`
	PlanName    string          `json:"planName"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	Title       types.Bilingual `json:"title"`
	Description types.Bilingual `json:"description"`
	Items       []ResolvedItem  `json:"items"`
}

// Overview is the user-facing listing of every published month on the
// caller's plan. SubscriptionActive lets a lapsed subscriber browse
// read-only while the UI withholds downloads.
type Overview struct {
	PlanID             uuid.UUID          `json:"planId"`
	PlanName           string             `json:"planName"`
	SubscriptionActive bool               `json:"subscriptionActive"`
	Schedules          []ResolvedSchedule `json:"schedules"`
}
