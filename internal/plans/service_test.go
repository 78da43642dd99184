package plans

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

type stubRepo struct {
	createFn func(ctx context.Context, plan *Plan) error
	getFn    func(ctx context.Context, id uuid.UUID) (*Plan, error)
	listFn   func(ctx context.Context) ([]Plan, error)
	applyFn  func(ctx context.Context, id uuid.UUID, update store.Update) error
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (s *stubRepo) Create(ctx context.Context, plan *Plan) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, plan)
}

func (s *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	if s.getFn == nil {
		return nil, nil
	}
	return s.getFn(ctx, id)
}

func (s *stubRepo) List(ctx context.Context) ([]Plan, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func (s *stubRepo) Apply(ctx context.Context, id uuid.UUID, update store.Update) error {
	if s.applyFn == nil {
		return nil
	}
	return s.applyFn(ctx, id, update)
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "plans-test"}),
	})
	require.NoError(t, err)
	return svc
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, &stubRepo{})

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"invalid tier", CreateInput{PlanType: "platinum", Name: "x", BillingCycle: enums.BillingCycleMonthly, PaymentMethod: enums.PaymentMethodManual}},
		{"missing name", CreateInput{PlanType: enums.PlanTierBasic, BillingCycle: enums.BillingCycleMonthly, PaymentMethod: enums.PaymentMethodManual}},
		{"negative price", CreateInput{PlanType: enums.PlanTierBasic, Name: "x", Price: decimal.NewFromInt(-1), BillingCycle: enums.BillingCycleMonthly, PaymentMethod: enums.PaymentMethodManual}},
		{"invalid cycle", CreateInput{PlanType: enums.PlanTierBasic, Name: "x", BillingCycle: "fortnightly", PaymentMethod: enums.PaymentMethodManual}},
		{"negative display order", CreateInput{PlanType: enums.PlanTierBasic, Name: "x", BillingCycle: enums.BillingCycleMonthly, PaymentMethod: enums.PaymentMethodManual, DisplayOrder: -2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestCreatePersistsPlan(t *testing.T) {
	t.Parallel()

	var created *Plan
	svc := newTestService(t, &stubRepo{
		createFn: func(_ context.Context, plan *Plan) error {
			created = plan
			return nil
		},
	})

	plan, err := svc.Create(context.Background(), CreateInput{
		PlanType:      enums.PlanTierPremium,
		Name:          "  Premium Sadhana  ",
		Price:         decimal.NewFromInt(999),
		BillingCycle:  enums.BillingCycleMonthly,
		PaymentMethod: enums.PaymentMethodAutopay,
		IsActive:      true,
		DisplayOrder:  4,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "Premium Sadhana", plan.Name)
	assert.NotEqual(t, uuid.Nil, plan.ID)
	assert.False(t, plan.CreatedAt.IsZero())
}

func TestListActiveOnlyFilters(t *testing.T) {
	t.Parallel()

	active := Plan{ID: uuid.New(), PlanType: enums.PlanTierBasic, IsActive: true, DisplayOrder: 1}
	retired := Plan{ID: uuid.New(), PlanType: enums.PlanTierElite, IsActive: false, DisplayOrder: 2}
	svc := newTestService(t, &stubRepo{
		listFn: func(context.Context) ([]Plan, error) {
			return []Plan{active, retired}, nil
		},
	})

	all, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyActive, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, active.ID, onlyActive[0].ID)
}

func TestGetByIDNotFound(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, &stubRepo{})

	_, err := svc.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetByTypeReturnsFirstMatchOrNil(t *testing.T) {
	t.Parallel()

	free := Plan{ID: uuid.New(), PlanType: enums.PlanTierFree, DisplayOrder: 0}
	svc := newTestService(t, &stubRepo{
		listFn: func(context.Context) ([]Plan, error) {
			return []Plan{free, {ID: uuid.New(), PlanType: enums.PlanTierBasic, DisplayOrder: 1}}, nil
		},
	})

	got, err := svc.GetByType(context.Background(), enums.PlanTierFree)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, free.ID, got.ID)

	none, err := svc.GetByType(context.Background(), enums.PlanTierDivine)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpdateEmptyPatchIsNoOp(t *testing.T) {
	t.Parallel()

	existing := Plan{ID: uuid.New(), PlanType: enums.PlanTierBasic, Name: "Basic"}
	applied := false
	svc := newTestService(t, &stubRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*Plan, error) {
			plan := existing
			return &plan, nil
		},
		applyFn: func(context.Context, uuid.UUID, store.Update) error {
			applied = true
			return nil
		},
	})

	got, err := svc.Update(context.Background(), existing.ID, Patch{})
	require.NoError(t, err)
	assert.Equal(t, existing.Name, got.Name)
	assert.False(t, applied, "empty patch must not write")
}

func TestUpdateCompilesOnlySuppliedFields(t *testing.T) {
	t.Parallel()

	existing := Plan{
		ID:           uuid.New(),
		PlanType:     enums.PlanTierBasic,
		Name:         "Basic",
		DisplayOrder: 2,
		IsActive:     true,
	}
	var captured store.Update
	svc := newTestService(t, &stubRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*Plan, error) {
			plan := existing
			return &plan, nil
		},
		applyFn: func(_ context.Context, _ uuid.UUID, update store.Update) error {
			captured = update
			return nil
		},
	})

	inactive := false
	got, err := svc.Update(context.Background(), existing.ID, Patch{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "Basic", got.Name)

	assert.Contains(t, captured.SetData, "isActive")
	assert.Contains(t, captured.SetData, "updatedAt")
	assert.NotContains(t, captured.SetData, "name")
	assert.Empty(t, captured.SetIndex, "index untouched unless order or tier changes")
}

func TestUpdateRejectsNegativeDisplayOrder(t *testing.T) {
	t.Parallel()

	existing := Plan{ID: uuid.New(), PlanType: enums.PlanTierBasic, Name: "Basic", DisplayOrder: 2}
	applied := false
	svc := newTestService(t, &stubRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*Plan, error) {
			plan := existing
			return &plan, nil
		},
		applyFn: func(context.Context, uuid.UUID, store.Update) error {
			applied = true
			return nil
		},
	})

	order := -2
	_, err := svc.Update(context.Background(), existing.ID, Patch{DisplayOrder: &order})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.False(t, applied, "rejected patch must not write")
}

func TestUpdateDisplayOrderRewritesIndex(t *testing.T) {
	t.Parallel()

	existing := Plan{ID: uuid.New(), PlanType: enums.PlanTierBasic, Name: "Basic", DisplayOrder: 2}
	var captured store.Update
	svc := newTestService(t, &stubRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*Plan, error) {
			plan := existing
			return &plan, nil
		},
		applyFn: func(_ context.Context, _ uuid.UUID, update store.Update) error {
			captured = update
			return nil
		},
	})

	order := 7
	_, err := svc.Update(context.Background(), existing.ID, Patch{DisplayOrder: &order})
	require.NoError(t, err)

	key, ok := captured.SetIndex[store.IndexGSI1]
	require.True(t, ok)
	require.NotNil(t, key.SK)
	assert.Equal(t, "0007#basic", *key.SK)
}
