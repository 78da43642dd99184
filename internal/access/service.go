package access

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/internal/content"
	"github.com/sadhanapeeth/sadhana-backend/internal/plans"
	"github.com/sadhanapeeth/sadhana-backend/internal/subscriptions"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
)

// Denial and grant reasons carried on access decisions. These are part of
// the caller-facing contract, not free-form log text.
const (
	ReasonGranted              = "granted"
	ReasonNoActiveSubscription = "no_active_subscription"
	ReasonPlanMismatch         = "plan_mismatch"
)

// entitlements is the slice of the subscription service this package
// consumes.
type entitlements interface {
	ActiveForUser(ctx context.Context, userID uuid.UUID) (*subscriptions.UserSubscription, error)
}

// contentLibrary is the slice of the content service this package consumes.
type contentLibrary interface {
	Get(ctx context.Context, id uuid.UUID, locale enums.Locale) (*content.Item, error)
	ListByPlan(ctx context.Context, planID uuid.UUID, contentType *enums.ContentType, activeOnly bool) ([]content.Item, error)
}

// planCatalog is the slice of the plan service this package consumes.
type planCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*plans.Plan, error)
	GetByType(ctx context.Context, tier enums.PlanTier) (*plans.Plan, error)
}

// ServiceParams groups dependencies for the access gate.
type ServiceParams struct {
	Subscriptions entitlements
	Content       contentLibrary
	Plans         planCatalog
	Logger        *logger.Logger
}

// Service decides whether a user may reach a plan or a content item.
type Service struct {
	subscriptions entitlements
	content       contentLibrary
	plans         planCatalog
	logger        *logger.Logger
}

// NewService builds an access gate.
func NewService(params ServiceParams) (*Service, error) {
	if params.Subscriptions == nil {
		return nil, errors.New("subscriptions are required")
	}
	if params.Content == nil {
		return nil, errors.New("content library is required")
	}
	if params.Plans == nil {
		return nil, errors.New("plan catalog is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscriptions: params.Subscriptions,
		content:       params.Content,
		plans:         params.Plans,
		logger:        params.Logger,
	}, nil
}

// CanAccess reports whether the user's current entitlement covers the
// plan. There is no tier hierarchy: a higher tier does not implicitly
// grant a lower tier's content.
func (s *Service) CanAccess(ctx context.Context, userID, planID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || planID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id and plan id are required")
	}
	sub, err := s.subscriptions.ActiveForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return sub != nil && sub.PlanID == planID, nil
}

// Decision is the outcome of a content access check. On denial it carries
// the display name of the plan the user would need; on grant it carries a
// redacted content summary.
type Decision struct {
	Granted          bool             `json:"granted"`
	Reason           string           `json:"reason"`
	RequiredPlanName string           `json:"requiredPlanName,omitempty"`
	Content          *content.Summary `json:"content,omitempty"`
}

// CheckContentAccess resolves a content item and gates it on the user's
// entitlement to its owning plan.
func (s *Service) CheckContentAccess(ctx context.Context, userID, contentID uuid.UUID, locale enums.Locale) (*Decision, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	item, err := s.content.Get(ctx, contentID, locale)
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriptions.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if sub != nil && sub.PlanID == item.PlanID {
		summary := item.Summarize()
		return &Decision{
			Granted: true,
			Reason:  ReasonGranted,
			Content: &summary,
		}, nil
	}

	reason := ReasonNoActiveSubscription
	if sub != nil {
		reason = ReasonPlanMismatch
	}
	decision := &Decision{Granted: false, Reason: reason}

	// Resolve the owning plan's display name for the upgrade prompt.
	// A missing plan row degrades to an unnamed denial.
	plan, err := s.plans.GetByID(ctx, item.PlanID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logger.Warn(s.logger.WithPlanID(ctx, item.PlanID.String()), "denied content references a missing plan")
			return decision, nil
		}
		return nil, err
	}
	decision.RequiredPlanName = plan.Name
	return decision, nil
}

// AccessibleContent returns the content the user may browse: their active
// plan's items, or the implicit free tier when they hold no active
// subscription. No free plan in the catalog means an empty list.
func (s *Service) AccessibleContent(ctx context.Context, userID uuid.UUID) ([]content.Item, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	sub, err := s.subscriptions.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	planID := uuid.Nil
	if sub != nil {
		planID = sub.PlanID
	} else {
		freePlan, err := s.plans.GetByType(ctx, enums.PlanTierFree)
		if err != nil {
			return nil, err
		}
		if freePlan == nil {
			return []content.Item{}, nil
		}
		planID = freePlan.ID
	}

	return s.content.ListByPlan(ctx, planID, nil, true)
}
