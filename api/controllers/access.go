package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/api/responses"
	"github.com/sadhanapeeth/sadhana-backend/api/validators"
	accesssvc "github.com/sadhanapeeth/sadhana-backend/internal/access"
	contentsvc "github.com/sadhanapeeth/sadhana-backend/internal/content"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
)

// AccessService is the slice of the access gate the HTTP layer consumes.
type AccessService interface {
	CheckContentAccess(ctx context.Context, userID, contentID uuid.UUID, locale enums.Locale) (*accesssvc.Decision, error)
	AccessibleContent(ctx context.Context, userID uuid.UUID) ([]contentsvc.Item, error)
}

// AccessCheck reports whether the caller may open one content item,
// including the plan name to pitch on denial.
func AccessCheck(svc AccessService, logg *logger.Logger) http.HandlerFunc {
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

		decision, err := svc.CheckContentAccess(r.Context(), userID, contentID, locale)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decision)
	}
}

// AccessibleContent lists the content the caller's entitlement reaches,
// falling back to the free tier, redacted of storage keys.
func AccessibleContent(svc AccessService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.AccessibleContent(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summaries := make([]contentsvc.Summary, 0, len(items))
		for i := range items {
			summaries = append(summaries, items[i].Summarize())
		}
		responses.WriteSuccess(w, summaries)
	}
}
