package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/internal/plans"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

// planCatalog is the slice of the plan service this package consumes.
type planCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*plans.Plan, error)
}

// ServiceParams groups dependencies for the entitlement service.
type ServiceParams struct {
	Repo   Repository
	Plans  planCatalog
	Logger *logger.Logger
}

// Service owns the subscription lifecycle.
type Service struct {
	repo   Repository
	plans  planCatalog
	logger *logger.Logger
	now    func() time.Time
}

// NewService builds an entitlement service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Plans == nil {
		return nil, errors.New("plan catalog is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		repo:   params.Repo,
		plans:  params.Plans,
		logger: params.Logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateInput carries the fields accepted when opening a subscription.
type CreateInput struct {
	UserID         uuid.UUID
	UserEmail      string
	PlanID         uuid.UUID
	OrderReference string
	AdminNotes     string
}

// Create opens a subscription against a catalog plan. Free plans activate
// immediately; paid plans wait in payment_pending until Activate.
func (s *Service) Create(ctx context.Context, input CreateInput) (*UserSubscription, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}

	plan, err := s.plans.GetByID(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := enums.SubscriptionStatusPaymentPending
	if plan.IsFree() {
		status = enums.SubscriptionStatusActive
	}

	sub := &UserSubscription{
		ID:             uuid.New(),
		UserID:         input.UserID,
		UserEmail:      strings.TrimSpace(input.UserEmail),
		PlanID:         plan.ID,
		PlanName:       plan.Name,
		PlanType:       plan.PlanType,
		PricePaid:      plan.Price,
		Status:         status,
		PaymentMethod:  plan.PaymentMethod,
		OrderReference: strings.TrimSpace(input.OrderReference),
		StartDate:      now,
		AdminNotes:     strings.TrimSpace(input.AdminNotes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if end, ok := CycleEnd(now, plan.BillingCycle); ok {
		sub.EndDate = &end
		if plan.AutopayEnabled {
			next := end
			sub.NextBillingDate = &next
		}
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
	}
	return sub, nil
}

// GetByID fetches one subscription or fails NotFound.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*UserSubscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("subscription %s not found", id))
	}
	return sub, nil
}

// ListForUser returns the user's full subscription history, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]UserSubscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return subs, nil
}

// ListByStatus returns subscriptions in a given status, newest first.
func (s *Service) ListByStatus(ctx context.Context, status enums.SubscriptionStatus, limit int) ([]UserSubscription, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription status")
	}
	subs, err := s.repo.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions by status")
	}
	return subs, nil
}

// ActiveForUser resolves the user's current entitlement: the most recent
// record in the active state, or nil when there is none. Concurrent
// purchases can leave more than one active row; the newest wins.
func (s *Service) ActiveForUser(ctx context.Context, userID uuid.UUID) (*UserSubscription, error) {
	subs, err := s.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].IsActive() {
			return &subs[i], nil
		}
	}
	return nil, nil
}

// Activate moves a pending or payment-failed subscription into active,
// optionally recording the gateway payment reference.
func (s *Service) Activate(ctx context.Context, id uuid.UUID, paymentReference string) (*UserSubscription, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch existing.Status {
	case enums.SubscriptionStatusPaymentPending, enums.SubscriptionStatusPaymentFailed:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("subscription %s cannot activate from status %s", id, existing.Status))
	}

	patch := Patch{Status: statusPtr(enums.SubscriptionStatusActive)}
	if ref := strings.TrimSpace(paymentReference); ref != "" {
		patch.PaymentReference = &ref
	}
	return s.Update(ctx, id, patch)
}

// Cancel ends a subscription, optionally recording an admin note. History
// is retained; this is a status change, never a delete.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, adminNote string) (*UserSubscription, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch existing.Status {
	case enums.SubscriptionStatusCancelled, enums.SubscriptionStatusExpired:
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("subscription %s already ended with status %s", id, existing.Status))
	}

	patch := Patch{Status: statusPtr(enums.SubscriptionStatusCancelled)}
	if note := strings.TrimSpace(adminNote); note != "" {
		patch.AdminNotes = &note
	}
	return s.Update(ctx, id, patch)
}

// Patch carries a partial subscription update; nil fields stay untouched.
type Patch struct {
	Status           *enums.SubscriptionStatus
	PaymentReference *string
	OrderReference   *string
	EndDate          **time.Time
	NextBillingDate  **time.Time
	AdminNotes       *string
	UserEmail        *string
}

// Update applies a partial update. An empty patch returns the stored
// record unchanged without writing. Status changes also move the record
// to the new status index partition.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*UserSubscription, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	update, merged, err := s.compilePatch(existing, patch)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return existing, nil
	}

	if err := s.repo.Apply(ctx, id, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("subscription %s not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
	}
	return merged, nil
}

func (s *Service) compilePatch(existing *UserSubscription, patch Patch) (store.Update, *UserSubscription, error) {
	merged := *existing
	update := store.Update{SetData: map[string]any{}}

	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription status")
		}
		merged.Status = *patch.Status
		update.SetData["status"] = patch.Status.String()
	}
	if patch.PaymentReference != nil {
		merged.PaymentReference = *patch.PaymentReference
		update.SetData["paymentReference"] = *patch.PaymentReference
	}
	if patch.OrderReference != nil {
		merged.OrderReference = *patch.OrderReference
		update.SetData["orderReference"] = *patch.OrderReference
	}
	if patch.EndDate != nil {
		merged.EndDate = *patch.EndDate
		update.SetData["endDate"] = formatOptionalTime(*patch.EndDate)
	}
	if patch.NextBillingDate != nil {
		merged.NextBillingDate = *patch.NextBillingDate
		update.SetData["nextBillingDate"] = formatOptionalTime(*patch.NextBillingDate)
	}
	if patch.AdminNotes != nil {
		merged.AdminNotes = *patch.AdminNotes
		update.SetData["adminNotes"] = *patch.AdminNotes
	}
	if patch.UserEmail != nil {
		merged.UserEmail = strings.TrimSpace(*patch.UserEmail)
		update.SetData["userEmail"] = merged.UserEmail
	}

	if len(update.SetData) == 0 {
		return store.Update{}, existing, nil
	}

	merged.UpdatedAt = s.now()
	update.SetData["updatedAt"] = merged.UpdatedAt.Format(time.RFC3339Nano)

	if patch.Status != nil && merged.Status != existing.Status {
		pk := statusPartition(merged.Status)
		sk := recencySortKey(existing.CreatedAt)
		update.SetIndex = map[store.Index]store.IndexKey{
			store.IndexGSI2: {PK: &pk, SK: &sk},
		}
	}

	return update, &merged, nil
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func statusPtr(status enums.SubscriptionStatus) *enums.SubscriptionStatus {
	return &status
}
