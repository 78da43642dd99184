package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/api/middleware"
	"github.com/sadhanapeeth/sadhana-backend/api/responses"
	"github.com/sadhanapeeth/sadhana-backend/api/validators"
	subsvc "github.com/sadhanapeeth/sadhana-backend/internal/subscriptions"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
)

// SubscriptionService is the slice of the entitlement service the HTTP
// layer consumes.
type SubscriptionService interface {
	Create(ctx context.Context, input subsvc.CreateInput) (*subsvc.UserSubscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (*subsvc.UserSubscription, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]subsvc.UserSubscription, error)
	ListByStatus(ctx context.Context, status enums.SubscriptionStatus, limit int) ([]subsvc.UserSubscription, error)
	ActiveForUser(ctx context.Context, userID uuid.UUID) (*subsvc.UserSubscription, error)
	Activate(ctx context.Context, id uuid.UUID, paymentReference string) (*subsvc.UserSubscription, error)
	Cancel(ctx context.Context, id uuid.UUID, adminNote string) (*subsvc.UserSubscription, error)
}

// callerID pulls the authenticated user out of the request context.
func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

type createSubscriptionRequest struct {
	PlanID         string `json:"planId" validate:"required"`
	UserEmail      string `json:"userEmail,omitempty" validate:"omitempty,email"`
	OrderReference string `json:"orderReference,omitempty"`
}

// SubscriptionCreate opens a subscription for the caller.
func SubscriptionCreate(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		planID, err := uuid.Parse(strings.TrimSpace(payload.PlanID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan id"))
			return
		}

		sub, err := svc.Create(r.Context(), subsvc.CreateInput{
			UserID:         userID,
			UserEmail:      payload.UserEmail,
			PlanID:         planID,
			OrderReference: payload.OrderReference,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sub)
	}
}

// SubscriptionHistory lists the caller's subscriptions, newest first.
func SubscriptionHistory(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subs, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subs)
	}
}

// SubscriptionCurrent returns the caller's active subscription, or null.
func SubscriptionCurrent(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.ActiveForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

func SubscriptionGet(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "subscriptionId"), "subscriptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

// SubscriptionListByStatus serves the admin status-queue view.
func SubscriptionListByStatus(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := enums.ParseSubscriptionStatus(strings.TrimSpace(r.URL.Query().Get("status")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subs, err := svc.ListByStatus(r.Context(), status, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subs)
	}
}

type activateSubscriptionRequest struct {
	PaymentReference string `json:"paymentReference,omitempty"`
}

// SubscriptionActivate confirms payment on a pending subscription.
func SubscriptionActivate(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "subscriptionId"), "subscriptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload activateSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Activate(r.Context(), id, validators.SanitizeText(payload.PaymentReference, 128))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

type cancelSubscriptionRequest struct {
	AdminNote string `json:"adminNote,omitempty"`
}

// SubscriptionCancel ends a subscription; history is retained.
func SubscriptionCancel(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "subscriptionId"), "subscriptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Cancel(r.Context(), id, validators.SanitizeText(payload.AdminNote, 512))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}
