package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sadhanapeeth/sadhana-backend/api/responses"
	"github.com/sadhanapeeth/sadhana-backend/api/validators"
	plansvc "github.com/sadhanapeeth/sadhana-backend/internal/plans"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
)

// PlanService is the slice of the plan catalog the HTTP layer consumes.
type PlanService interface {
	Create(ctx context.Context, input plansvc.CreateInput) (*plansvc.Plan, error)
	List(ctx context.Context, activeOnly bool) ([]plansvc.Plan, error)
	GetByID(ctx context.Context, id uuid.UUID) (*plansvc.Plan, error)
	Update(ctx context.Context, id uuid.UUID, patch plansvc.Patch) (*plansvc.Plan, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PlanList serves the public catalog. Admins pass all=true to include
// inactive plans.
func PlanList(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeAll, err := validators.ParseQueryBool(r, "all", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plans, err := svc.List(r.Context(), !includeAll)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plans)
	}
}

func PlanGet(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "planId"), "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plan)
	}
}

func PlanCreate(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, plan)
	}
}

func PlanUpdate(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "planId"), "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		patch, err := payload.toPatch()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.Update(r.Context(), id, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plan)
	}
}

func PlanDelete(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "planId"), "planId")
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

type bundledContentRequest struct {
	ContentType string   `json:"contentType" validate:"required"`
	Count       int      `json:"count" validate:"min=0"`
	ItemRefs    []string `json:"itemRefs,omitempty"`
}

type guidanceRequest struct {
	SessionsPerMonth int    `json:"sessionsPerMonth" validate:"min=0"`
	Source           string `json:"source,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

type createPlanRequest struct {
	PlanType       string                  `json:"planType" validate:"required"`
	Name           string                  `json:"name" validate:"required"`
	Description    string                  `json:"description,omitempty"`
	Price          string                  `json:"price" validate:"required"`
	BillingCycle   string                  `json:"billingCycle" validate:"required"`
	PaymentMethod  string                  `json:"paymentMethod" validate:"required"`
	AutopayEnabled bool                    `json:"autopayEnabled,omitempty"`
	Contents       []bundledContentRequest `json:"contents,omitempty"`
	Guidance       *guidanceRequest        `json:"guidance,omitempty"`
	Features       []string                `json:"features,omitempty"`
	IsActive       *bool                   `json:"isActive,omitempty"`
	DisplayOrder   int                     `json:"displayOrder" validate:"min=0"`
}

func (r createPlanRequest) toCreateInput() (plansvc.CreateInput, error) {
	tier, err := enums.ParsePlanTier(strings.TrimSpace(r.PlanType))
	if err != nil {
		return plansvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan type")
	}
	cycle, err := enums.ParseBillingCycle(strings.TrimSpace(r.BillingCycle))
	if err != nil {
		return plansvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing cycle")
	}
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(r.PaymentMethod))
	if err != nil {
		return plansvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return plansvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}

	contents, err := toBundledContents(r.Contents)
	if err != nil {
		return plansvc.CreateInput{}, err
	}

	isActive := true
	if r.IsActive != nil {
		isActive = *r.IsActive
	}

	return plansvc.CreateInput{
		PlanType:       tier,
		Name:           r.Name,
		Description:    validators.SanitizeText(r.Description, 2000),
		Price:          price,
		BillingCycle:   cycle,
		PaymentMethod:  method,
		AutopayEnabled: r.AutopayEnabled,
		Contents:       contents,
		Guidance:       toGuidance(r.Guidance),
		Features:       r.Features,
		IsActive:       isActive,
		DisplayOrder:   r.DisplayOrder,
	}, nil
}

type updatePlanRequest struct {
	PlanType       *string                  `json:"planType,omitempty"`
	Name           *string                  `json:"name,omitempty"`
	Description    *string                  `json:"description,omitempty"`
	Price          *string                  `json:"price,omitempty"`
	BillingCycle   *string                  `json:"billingCycle,omitempty"`
	PaymentMethod  *string                  `json:"paymentMethod,omitempty"`
	AutopayEnabled *bool                    `json:"autopayEnabled,omitempty"`
	Contents       *[]bundledContentRequest `json:"contents,omitempty"`
	Guidance       *guidanceRequest         `json:"guidance,omitempty"`
	ClearGuidance  bool                     `json:"clearGuidance,omitempty"`
	Features       *[]string                `json:"features,omitempty"`
	IsActive       *bool                    `json:"isActive,omitempty"`
	DisplayOrder   *int                     `json:"displayOrder,omitempty"`
}

func (r updatePlanRequest) toPatch() (plansvc.Patch, error) {
	var patch plansvc.Patch

	if r.PlanType != nil {
		tier, err := enums.ParsePlanTier(strings.TrimSpace(*r.PlanType))
		if err != nil {
			return plansvc.Patch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan type")
		}
		patch.PlanType = &tier
	}
	patch.Name = r.Name
	patch.Description = r.Description
	if r.Price != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*r.Price))
		if err != nil {
			return plansvc.Patch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
		}
		patch.Price = &price
	}
	if r.BillingCycle != nil {
		cycle, err := enums.ParseBillingCycle(strings.TrimSpace(*r.BillingCycle))
		if err != nil {
			return plansvc.Patch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing cycle")
		}
		patch.BillingCycle = &cycle
	}
	if r.PaymentMethod != nil {
		method, err := enums.ParsePaymentMethod(strings.TrimSpace(*r.PaymentMethod))
		if err != nil {
			return plansvc.Patch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		patch.PaymentMethod = &method
	}
	patch.AutopayEnabled = r.AutopayEnabled
	if r.Contents != nil {
		contents, err := toBundledContents(*r.Contents)
		if err != nil {
			return plansvc.Patch{}, err
		}
		patch.Contents = &contents
	}
	if r.ClearGuidance {
		var cleared *plansvc.Guidance
		patch.Guidance = &cleared
	} else if r.Guidance != nil {
		guidance := toGuidance(r.Guidance)
		patch.Guidance = &guidance
	}
	patch.Features = r.Features
	patch.IsActive = r.IsActive
	patch.DisplayOrder = r.DisplayOrder

	return patch, nil
}

func toBundledContents(items []bundledContentRequest) ([]plansvc.BundledContent, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]plansvc.BundledContent, 0, len(items))
	for _, item := range items {
		contentType, err := enums.ParseContentType(strings.TrimSpace(item.ContentType))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bundled content type")
		}
		out = append(out, plansvc.BundledContent{
			ContentType: contentType,
			Count:       item.Count,
			ItemRefs:    item.ItemRefs,
		})
	}
	return out, nil
}

func toGuidance(req *guidanceRequest) *plansvc.Guidance {
	if req == nil {
		return nil
	}
	return &plansvc.Guidance{
		SessionsPerMonth: req.SessionsPerMonth,
		Source:           req.Source,
		Notes:            req.Notes,
	}
}
