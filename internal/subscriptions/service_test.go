package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanapeeth/sadhana-backend/internal/plans"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

type stubRepo struct {
	createFn       func(ctx context.Context, sub *UserSubscription) error
	getFn          func(ctx context.Context, id uuid.UUID) (*UserSubscription, error)
	listByUserFn   func(ctx context.Context, userID uuid.UUID) ([]UserSubscription, error)
	listByStatusFn func(ctx context.Context, status enums.SubscriptionStatus, limit int) ([]UserSubscription, error)
	applyFn        func(ctx context.Context, id uuid.UUID, update store.Update) error
}

func (s *stubRepo) Create(ctx context.Context, sub *UserSubscription) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, sub)
}

func (s *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (*UserSubscription, error) {
	if s.getFn == nil {
		return nil, nil
	}
	return s.getFn(ctx, id)
}

func (s *stubRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]UserSubscription, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

func (s *stubRepo) ListByStatus(ctx context.Context, status enums.SubscriptionStatus, limit int) ([]UserSubscription, error) {
	if s.listByStatusFn == nil {
		return nil, nil
	}
	return s.listByStatusFn(ctx, status, limit)
}

func (s *stubRepo) Apply(ctx context.Context, id uuid.UUID, update store.Update) error {
	if s.applyFn == nil {
		return nil
	}
	return s.applyFn(ctx, id, update)
}

type stubPlans struct {
	plan *plans.Plan
	err  error
}

func (s *stubPlans) GetByID(context.Context, uuid.UUID) (*plans.Plan, error) {
	return s.plan, s.err
}

func paidPlan() *plans.Plan {
	return &plans.Plan{
		ID:            uuid.New(),
		PlanType:      enums.PlanTierPremium,
		Name:          "Premium Sadhana",
		Price:         decimal.NewFromInt(999),
		BillingCycle:  enums.BillingCycleMonthly,
		PaymentMethod: enums.PaymentMethodManual,
		IsActive:      true,
	}
}

func newTestService(t *testing.T, repo Repository, catalog planCatalog) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Plans:  catalog,
		Logger: logger.New(logger.Options{ServiceName: "subscriptions-test"}),
	})
	require.NoError(t, err)
	return svc
}

func TestCreatePaidPlanStartsPaymentPending(t *testing.T) {
	t.Parallel()

	plan := paidPlan()
	var created *UserSubscription
	svc := newTestService(t, &stubRepo{
		createFn: func(_ context.Context, sub *UserSubscription) error {
			created = sub
			return nil
		},
	}, &stubPlans{plan: plan})

	sub, err := svc.Create(context.Background(), CreateInput{
		UserID:    uuid.New(),
		UserEmail: "devotee@example.com",
		PlanID:    plan.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, enums.SubscriptionStatusPaymentPending, sub.Status)
	assert.Equal(t, plan.Name, sub.PlanName)
	assert.True(t, plan.Price.Equal(sub.PricePaid))
	require.NotNil(t, sub.EndDate)
	assert.Nil(t, sub.NextBillingDate, "autopay disabled leaves next billing unset")
}

func TestCreateFreePlanActivatesImmediately(t *testing.T) {
	t.Parallel()

	plan := paidPlan()
	plan.Price = decimal.Zero
	plan.BillingCycle = enums.BillingCycleOneTime
	svc := newTestService(t, &stubRepo{}, &stubPlans{plan: plan})

	sub, err := svc.Create(context.Background(), CreateInput{UserID: uuid.New(), PlanID: plan.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusActive, sub.Status)
	assert.Nil(t, sub.EndDate, "one_time subscriptions never expire")
}

func TestCreateAutopayPlanSetsNextBilling(t *testing.T) {
	t.Parallel()

	plan := paidPlan()
	plan.AutopayEnabled = true
	plan.PaymentMethod = enums.PaymentMethodAutopay
	svc := newTestService(t, &stubRepo{}, &stubPlans{plan: plan})

	sub, err := svc.Create(context.Background(), CreateInput{UserID: uuid.New(), PlanID: plan.ID})
	require.NoError(t, err)
	require.NotNil(t, sub.EndDate)
	require.NotNil(t, sub.NextBillingDate)
	assert.True(t, sub.NextBillingDate.Equal(*sub.EndDate))
}

func TestCreateUnknownPlanPropagatesNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubRepo{}, &stubPlans{
		err: pkgerrors.New(pkgerrors.CodeNotFound, "plan not found"),
	})

	_, err := svc.Create(context.Background(), CreateInput{UserID: uuid.New(), PlanID: uuid.New()})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestActivateOnlyFromPendingOrFailed(t *testing.T) {
	t.Parallel()

	pending := &UserSubscription{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Status:    enums.SubscriptionStatusPaymentPending,
		CreatedAt: time.Now().UTC(),
	}
	var captured store.Update
	svc := newTestService(t, &stubRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*UserSubscription, error) {
			sub := *pending
			return &sub, nil
		},
		applyFn: func(_ context.Context, _ uuid.UUID, update store.Update) error {
			captured = update
			return nil
		},
	}, &stubPlans{})

	sub, err := svc.Activate(context.Background(), pending.ID, "pay_ref_77")
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "pay_ref_77", sub.PaymentReference)
	assert.Equal(t, "active", captured.SetData["status"])

	key, ok := captured.SetIndex[store.IndexGSI2]
	require.True(t, ok, "status change moves the status index partition")
	require.NotNil(t, key.PK)
	assert.Equal(t, "SUBSTATUS#active", *key.PK)
}

func TestActivateFromActiveConflicts(t *testing.T) {
	t.Parallel()

	active := &UserSubscription{ID: uuid.New(), Status: enums.SubscriptionStatusActive}
	svc := newTestService(t, &stubRepo{
		getFn: func(context.Context, uuid.UUID) (*UserSubscription, error) {
			sub := *active
			return &sub, nil
		},
	}, &stubPlans{})

	_, err := svc.Activate(context.Background(), active.ID, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCancelEndedSubscriptionConflicts(t *testing.T) {
	t.Parallel()

	cancelled := &UserSubscription{ID: uuid.New(), Status: enums.SubscriptionStatusCancelled}
	svc := newTestService(t, &stubRepo{
		getFn: func(context.Context, uuid.UUID) (*UserSubscription, error) {
			sub := *cancelled
			return &sub, nil
		},
	}, &stubPlans{})

	_, err := svc.Cancel(context.Background(), cancelled.ID, "duplicate purchase")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestActiveForUserLatestWins(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	newerActive := UserSubscription{ID: uuid.New(), UserID: userID, Status: enums.SubscriptionStatusActive}
	olderActive := UserSubscription{ID: uuid.New(), UserID: userID, Status: enums.SubscriptionStatusActive}
	svc := newTestService(t, &stubRepo{
		listByUserFn: func(context.Context, uuid.UUID) ([]UserSubscription, error) {
			// repo returns newest first
			return []UserSubscription{
				{ID: uuid.New(), UserID: userID, Status: enums.SubscriptionStatusPaymentPending},
				newerActive,
				olderActive,
			}, nil
		},
	}, &stubPlans{})

	got, err := svc.ActiveForUser(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newerActive.ID, got.ID)
}

func TestActiveForUserNoneReturnsNil(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubRepo{
		listByUserFn: func(context.Context, uuid.UUID) ([]UserSubscription, error) {
			return []UserSubscription{
				{ID: uuid.New(), Status: enums.SubscriptionStatusExpired},
			}, nil
		},
	}, &stubPlans{})

	got, err := svc.ActiveForUser(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateEmptyPatchIsNoOp(t *testing.T) {
	t.Parallel()

	existing := &UserSubscription{ID: uuid.New(), Status: enums.SubscriptionStatusActive, AdminNotes: "keep"}
	applied := false
	svc := newTestService(t, &stubRepo{
		getFn: func(context.Context, uuid.UUID) (*UserSubscription, error) {
			sub := *existing
			return &sub, nil
		},
		applyFn: func(context.Context, uuid.UUID, store.Update) error {
			applied = true
			return nil
		},
	}, &stubPlans{})

	got, err := svc.Update(context.Background(), existing.ID, Patch{})
	require.NoError(t, err)
	assert.Equal(t, "keep", got.AdminNotes)
	assert.False(t, applied, "empty patch must not write")
}
