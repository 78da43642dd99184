package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/api/responses"
	"github.com/sadhanapeeth/sadhana-backend/api/validators"
	schedulesvc "github.com/sadhanapeeth/sadhana-backend/internal/schedules"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/types"
)

// ScheduleService is the slice of the schedule resolver the HTTP layer
// consumes.
type ScheduleService interface {
	Create(ctx context.Context, input schedulesvc.CreateInput) (*schedulesvc.MonthlySchedule, error)
	GetByID(ctx context.Context, id uuid.UUID) (*schedulesvc.MonthlySchedule, error)
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]schedulesvc.MonthlySchedule, error)
	ListAll(ctx context.Context, limit int) ([]schedulesvc.MonthlySchedule, error)
	Update(ctx context.Context, id uuid.UUID, patch schedulesvc.Patch) (*schedulesvc.MonthlySchedule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MonthContent(ctx context.Context, userID, planID uuid.UUID, year, month int, locale enums.Locale) (*schedulesvc.ResolvedSchedule, error)
	MonthlyOverview(ctx context.Context, userID uuid.UUID, locale enums.Locale) (*schedulesvc.Overview, error)
}

type contentRefRequest struct {
	ContentID    string `json:"contentId" validate:"required"`
	DisplayOrder int    `json:"displayOrder" validate:"min=0"`
}

func toContentRefs(refs []contentRefRequest) ([]schedulesvc.ContentRef, error) {
	if refs == nil {
		return nil, nil
	}
	out := make([]schedulesvc.ContentRef, 0, len(refs))
	for _, ref := range refs {
		id, err := uuid.Parse(strings.TrimSpace(ref.ContentID))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content id")
		}
		out = append(out, schedulesvc.ContentRef{ContentID: id, DisplayOrder: ref.DisplayOrder})
	}
	return out, nil
}

type createScheduleRequest struct {
	PlanID       string              `json:"planId" validate:"required"`
	Year         int                 `json:"year" validate:"required"`
	Month        int                 `json:"month" validate:"required,min=1,max=12"`
	Title        types.Bilingual     `json:"title"`
	Description  types.Bilingual     `json:"description,omitempty"`
	ContentItems []contentRefRequest `json:"contentItems,omitempty" validate:"omitempty,dive"`
	IsPublished  bool                `json:"isPublished,omitempty"`
}

func ScheduleCreate(svc ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createScheduleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		planID, err := uuid.Parse(strings.TrimSpace(payload.PlanID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan id"))
			return
		}
		refs, err := toContentRefs(payload.ContentItems)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedule, err := svc.Create(r.Context(), schedulesvc.CreateInput{
			PlanID:       planID,
			Year:         payload.Year,
			Month:        payload.Month,
			Title:        payload.Title,
			Description:  payload.Description,
			ContentItems: refs,
			IsPublished:  payload.IsPublished,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, schedule)
	}
}

func ScheduleGet(svc ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "scheduleId"), "scheduleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedule, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, schedule)
	}
}

// ScheduleList serves the admin listing: one plan's months when planId is
// supplied, otherwise every plan's schedules.
func ScheduleList(svc ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := strings.TrimSpace(r.URL.Query().Get("planId")); raw != "" {
			planID, err := validators.ParsePathUUID(raw, "planId")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			schedules, err := svc.ListByPlan(r.Context(), planID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, schedules)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 1000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		schedules, err := svc.ListAll(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, schedules)
	}
}

type updateScheduleRequest struct {
	Title        *types.Bilingual     `json:"title,omitempty"`
	Description  *types.Bilingual     `json:"description,omitempty"`
	ContentItems *[]contentRefRequest `json:"contentItems,omitempty" validate:"omitempty,dive"`
	IsPublished  *bool                `json:"isPublished,omitempty"`
}

func ScheduleUpdate(svc ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "scheduleId"), "scheduleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateScheduleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		patch := schedulesvc.Patch{
			Title:       payload.Title,
			Description: payload.Description,
			IsPublished: payload.IsPublished,
		}
		if payload.ContentItems != nil {
			refs, err := toContentRefs(*payload.ContentItems)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			patch.ContentItems = &refs
		}

		schedule, err := svc.Update(r.Context(), id, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, schedule)
	}
}

func ScheduleDelete(svc ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "scheduleId"), "scheduleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ScheduleMonthContent resolves one published month for the caller's
// plan, or null when the caller is not entitled.
func ScheduleMonthContent(svc ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		planID, err := validators.ParsePathUUID(chi.URLParam(r, "planId"), "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		year, err := validators.ParseQueryInt(r, "year", 0, 2000, 9999)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if year == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "year is required"))
			return
		}
		month, err := validators.ParseQueryInt(r, "month", 0, 1, 12)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if month == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "month is required"))
			return
		}
		locale, err := validators.ParseQueryLocale(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolved, err := svc.MonthContent(r.Context(), userID, planID, year, month, locale)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolved)
	}
}

// ScheduleOverview lists every published month on the caller's plan.
func ScheduleOverview(svc ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locale, err := validators.ParseQueryLocale(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		overview, err := svc.MonthlyOverview(r.Context(), userID, locale)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}
