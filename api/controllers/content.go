package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/api/responses"
	"github.com/sadhanapeeth/sadhana-backend/api/validators"
	contentsvc "github.com/sadhanapeeth/sadhana-backend/internal/content"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/storage/s3"
	"github.com/sadhanapeeth/sadhana-backend/pkg/types"
)

// ContentService is the slice of the content library the HTTP layer consumes.
type ContentService interface {
	Create(ctx context.Context, input contentsvc.CreateInput) (*contentsvc.Item, error)
	Get(ctx context.Context, id uuid.UUID, locale enums.Locale) (*contentsvc.Item, error)
	ListByPlan(ctx context.Context, planID uuid.UUID, contentType *enums.ContentType, activeOnly bool) ([]contentsvc.Item, error)
	Update(ctx context.Context, id uuid.UUID, locale enums.Locale, patch contentsvc.Patch) (*contentsvc.Item, error)
	UpdateFile(ctx context.Context, id uuid.UUID, locale enums.Locale, newKey string) (*contentsvc.ReplaceResult, error)
	UpdateThumbnail(ctx context.Context, id uuid.UUID, locale enums.Locale, newKey string) (*contentsvc.ReplaceResult, error)
	Delete(ctx context.Context, id uuid.UUID, locale enums.Locale) error
	BulkCreate(ctx context.Context, planID uuid.UUID, inputs []contentsvc.CreateInput) (*contentsvc.BulkResult, error)
	PresignUpload(ctx context.Context, fileName, contentType string) (*s3.PresignedUpload, error)
}

type createContentRequest struct {
	PlanID          string          `json:"planId" validate:"required"`
	ContentType     string          `json:"contentType" validate:"required"`
	Title           types.Bilingual `json:"title"`
	Description     types.Bilingual `json:"description,omitempty"`
	FileKey         string          `json:"fileKey" validate:"required"`
	ThumbnailKey    string          `json:"thumbnailKey,omitempty"`
	DurationSeconds int             `json:"durationSeconds,omitempty" validate:"min=0"`
	DisplayOrder    int             `json:"displayOrder" validate:"min=0"`
	Locale          string          `json:"locale,omitempty"`
	IsActive        *bool           `json:"isActive,omitempty"`
}

func (r createContentRequest) toCreateInput() (contentsvc.CreateInput, error) {
	planID, err := uuid.Parse(strings.TrimSpace(r.PlanID))
	if err != nil {
		return contentsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan id")
	}
	contentType, err := enums.ParseContentType(strings.TrimSpace(r.ContentType))
	if err != nil {
		return contentsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content type")
	}
	locale, err := enums.ParseLocale(strings.TrimSpace(r.Locale))
	if err != nil {
		return contentsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid locale")
	}

	isActive := true
	if r.IsActive != nil {
		isActive = *r.IsActive
	}

	return contentsvc.CreateInput{
		PlanID:          planID,
		ContentType:     contentType,
		Title:           r.Title,
		Description:     r.Description,
		FileKey:         r.FileKey,
		ThumbnailKey:    r.ThumbnailKey,
		DurationSeconds: r.DurationSeconds,
		DisplayOrder:    r.DisplayOrder,
		Locale:          locale,
		IsActive:        isActive,
	}, nil
}

func ContentCreate(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createContentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func ContentGet(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "contentId"), "contentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locale, err := validators.ParseQueryLocale(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), id, locale)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ContentListByPlan serves the admin view of a plan's items, optionally
// filtered by content type.
func ContentListByPlan(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		planID, err := validators.ParsePathUUID(chi.URLParam(r, "planId"), "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var contentType *enums.ContentType
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			parsed, err := enums.ParseContentType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content type"))
				return
			}
			contentType = &parsed
		}

		activeOnly, err := validators.ParseQueryBool(r, "activeOnly", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByPlan(r.Context(), planID, contentType, activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

type updateContentRequest struct {
	Title           *types.Bilingual `json:"title,omitempty"`
	Description     *types.Bilingual `json:"description,omitempty"`
	ContentType     *string          `json:"contentType,omitempty"`
	DurationSeconds *int             `json:"durationSeconds,omitempty" validate:"omitempty,min=0"`
	DisplayOrder    *int             `json:"displayOrder,omitempty" validate:"omitempty,min=0"`
	IsActive        *bool            `json:"isActive,omitempty"`
}

func (r updateContentRequest) toPatch() (contentsvc.Patch, error) {
	patch := contentsvc.Patch{
		Title:           r.Title,
		Description:     r.Description,
		DurationSeconds: r.DurationSeconds,
		DisplayOrder:    r.DisplayOrder,
		IsActive:        r.IsActive,
	}
	if r.ContentType != nil {
		contentType, err := enums.ParseContentType(strings.TrimSpace(*r.ContentType))
		if err != nil {
			return contentsvc.Patch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content type")
		}
		patch.ContentType = &contentType
	}
	return patch, nil
}

func ContentUpdate(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "contentId"), "contentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locale, err := validators.ParseQueryLocale(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateContentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		patch, err := payload.toPatch()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), id, locale, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

type replaceObjectRequest struct {
	FileKey string `json:"fileKey" validate:"required"`
}

// ContentReplaceFile swaps the item's backing object for an already
// uploaded one. The superseded object is deleted best-effort.
func ContentReplaceFile(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return replaceObjectHandler(svc.UpdateFile, logg)
}

func ContentReplaceThumbnail(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return replaceObjectHandler(svc.UpdateThumbnail, logg)
}

func replaceObjectHandler(replace func(context.Context, uuid.UUID, enums.Locale, string) (*contentsvc.ReplaceResult, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "contentId"), "contentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locale, err := validators.ParseQueryLocale(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload replaceObjectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := replace(r.Context(), id, locale, payload.FileKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ContentDelete(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "contentId"), "contentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locale, err := validators.ParseQueryLocale(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id, locale); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type bulkCreateContentRequest struct {
	PlanID string                 `json:"planId" validate:"required"`
	Items  []createContentRequest `json:"items" validate:"required,min=1,dive"`
}

// ContentBulkCreate uploads a batch of items into one plan with
// partial-failure semantics; the response lists succeeded ids and
// per-item errors.
func ContentBulkCreate(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload bulkCreateContentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		planID, err := uuid.Parse(strings.TrimSpace(payload.PlanID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan id"))
			return
		}

		inputs := make([]contentsvc.CreateInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			item.PlanID = planID.String()
			input, err := item.toCreateInput()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			inputs = append(inputs, input)
		}

		result, err := svc.BulkCreate(r.Context(), planID, inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type presignUploadRequest struct {
	FileName    string `json:"fileName" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
}

// ContentPresignUpload issues a time-limited URL for uploading a new
// object before it is registered as content.
func ContentPresignUpload(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload presignUploadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		upload, err := svc.PresignUpload(r.Context(), payload.FileName, payload.ContentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, upload)
	}
}
