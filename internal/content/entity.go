package content

import (
	"time"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	"github.com/sadhanapeeth/sadhana-backend/pkg/types"
)

// Item is one piece of devotional media owned by a plan. The same logical
// item can exist once per locale; (ID, Locale) is the identity.
type Item struct {
	ID          uuid.UUID         `json:"id"`
	PlanID      uuid.UUID         `json:"planId"`
	ContentType enums.ContentType `json:"contentType"`

	Title       types.Bilingual `json:"title"`
	Description types.Bilingual `json:"description"`

	FileKey      string `json:"fileKey"`
	FileURL      string `json:"fileUrl,omitempty"`
	ThumbnailKey string `json:"thumbnailKey,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`

	DurationSeconds int          `json:"durationSeconds,omitempty"`
	DisplayOrder    int          `json:"displayOrder"`
	Locale          enums.Locale `json:"locale"`
	IsActive        bool         `json:"isActive"`

	// DownloadCount is maintained by the store's atomic counter, not by
	// read-modify-write, and is best-effort under concurrency.
	DownloadCount int64 `json:"downloadCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the redacted view handed to callers who passed the access
// gate. Storage keys never leave this package through a summary.
type Summary struct {
	ID              uuid.UUID         `json:"id"`
	PlanID          uuid.UUID         `json:"planId"`
	ContentType     enums.ContentType `json:"contentType"`
	Title           types.Bilingual   `json:"title"`
	Description     types.Bilingual   `json:"description"`
	ThumbnailURL    string            `json:"thumbnailUrl,omitempty"`
	DurationSeconds int               `json:"durationSeconds,omitempty"`
	DisplayOrder    int               `json:"displayOrder"`
	Locale          enums.Locale      `json:"locale"`
}

// Summarize redacts an item for external callers.
func (i *Item) Summarize() Summary {
	return Summary{
		ID:              i.ID,
		PlanID:          i.PlanID,
		ContentType:     i.ContentType,
		Title:           i.Title,
		Description:     i.Description,
		ThumbnailURL:    i.ThumbnailURL,
		DurationSeconds: i.DurationSeconds,
		DisplayOrder:    i.DisplayOrder,
		Locale:          i.Locale,
	}
}
