package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/api/responses"
	"github.com/sadhanapeeth/sadhana-backend/api/validators"
	deliverysvc "github.com/sadhanapeeth/sadhana-backend/internal/delivery"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
)

// DeliveryService is the slice of the delivery gateway the HTTP layer
// consumes.
type DeliveryService interface {
	IssueDownload(ctx context.Context, userID, contentID uuid.UUID, locale enums.Locale, wantThumbnail bool) (*deliverysvc.Grant, error)
	CleanupOrphanedFiles(ctx context.Context, folder string) (*deliverysvc.CleanupReport, error)
}

// DownloadIssue hands the caller a short-lived URL for a content item
// they are entitled to.
func DownloadIssue(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contentID, err := validators.ParsePathUUID(chi.URLParam(r, "contentId"), "contentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locale, err := validators.ParseQueryLocale(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wantThumbnail, err := validators.ParseQueryBool(r, "thumbnail", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grant, err := svc.IssueDownload(r.Context(), userID, contentID, locale, wantThumbnail)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, grant)
	}
}

// StorageCleanup runs the offline orphan sweep over one storage folder.
// Advisory and slow; admin-only by routing.
func StorageCleanup(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		folder := strings.TrimSpace(r.URL.Query().Get("folder"))
		if folder == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "folder is required"))
			return
		}

		report, err := svc.CleanupOrphanedFiles(r.Context(), folder)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
