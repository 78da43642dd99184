package access

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanapeeth/sadhana-backend/internal/content"
	"github.com/sadhanapeeth/sadhana-backend/internal/plans"
	"github.com/sadhanapeeth/sadhana-backend/internal/subscriptions"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/types"
)

type stubSubs struct {
	active *subscriptions.UserSubscription
	err    error
}

func (s *stubSubs) ActiveForUser(context.Context, uuid.UUID) (*subscriptions.UserSubscription, error) {
	return s.active, s.err
}

type stubContent struct {
	item    *content.Item
	getErr  error
	byPlan  map[uuid.UUID][]content.Item
	listErr error
}

func (s *stubContent) Get(context.Context, uuid.UUID, enums.Locale) (*content.Item, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.item, nil
}

func (s *stubContent) ListByPlan(_ context.Context, planID uuid.UUID, _ *enums.ContentType, _ bool) ([]content.Item, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.byPlan[planID], nil
}

type stubPlans struct {
	byID   *plans.Plan
	idErr  error
	byType *plans.Plan
}

func (s *stubPlans) GetByID(context.Context, uuid.UUID) (*plans.Plan, error) {
	return s.byID, s.idErr
}

func (s *stubPlans) GetByType(context.Context, enums.PlanTier) (*plans.Plan, error) {
	return s.byType, nil
}

func newTestService(t *testing.T, subs entitlements, library contentLibrary, catalog planCatalog) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Subscriptions: subs,
		Content:       library,
		Plans:         catalog,
		Logger:        logger.New(logger.Options{ServiceName: "access-test"}),
	})
	require.NoError(t, err)
	return svc
}

func activeSub(planID uuid.UUID) *subscriptions.UserSubscription {
	return &subscriptions.UserSubscription{
		ID:     uuid.New(),
		UserID: uuid.New(),
		PlanID: planID,
		Status: enums.SubscriptionStatusActive,
	}
}

func TestCanAccessMatchingPlan(t *testing.T) {
	t.Parallel()

	planID := uuid.New()
	svc := newTestService(t, &stubSubs{active: activeSub(planID)}, &stubContent{}, &stubPlans{})

	ok, err := svc.CanAccess(context.Background(), uuid.New(), planID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanAccessDeniesOtherPlanAndNoSubscription(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubSubs{active: activeSub(uuid.New())}, &stubContent{}, &stubPlans{})
	ok, err := svc.CanAccess(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok, "a different plan's subscription grants nothing")

	svc = newTestService(t, &stubSubs{}, &stubContent{}, &stubPlans{})
	ok, err = svc.CanAccess(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok, "no active subscription denies")
}

func TestCheckContentAccessGrantedReturnsRedactedSummary(t *testing.T) {
	t.Parallel()

	planID := uuid.New()
	item := &content.Item{
		ID:      uuid.New(),
		PlanID:  planID,
		FileKey: "content/secret.mp3",
		Title:   types.Bilingual{En: "Stotra"},
		Locale:  enums.LocaleEnglish,
	}
	svc := newTestService(t, &stubSubs{active: activeSub(planID)}, &stubContent{item: item}, &stubPlans{})

	decision, err := svc.CheckContentAccess(context.Background(), uuid.New(), item.ID, enums.LocaleEnglish)
	require.NoError(t, err)
	assert.True(t, decision.Granted)
	assert.Equal(t, ReasonGranted, decision.Reason)
	require.NotNil(t, decision.Content)
	assert.Equal(t, item.ID, decision.Content.ID)
	assert.Empty(t, decision.RequiredPlanName)
}

func TestCheckContentAccessDenialNamesRequiredPlan(t *testing.T) {
	t.Parallel()

	planID := uuid.New()
	item := &content.Item{ID: uuid.New(), PlanID: planID, Locale: enums.LocaleEnglish}
	svc := newTestService(t,
		&stubSubs{active: activeSub(uuid.New())},
		&stubContent{item: item},
		&stubPlans{byID: &plans.Plan{ID: planID, Name: "Divine Sadhana"}},
	)

	decision, err := svc.CheckContentAccess(context.Background(), uuid.New(), item.ID, enums.LocaleEnglish)
	require.NoError(t, err)
	assert.False(t, decision.Granted)
	assert.Equal(t, ReasonPlanMismatch, decision.Reason)
	assert.Equal(t, "Divine Sadhana", decision.RequiredPlanName)
	assert.Nil(t, decision.Content)
}

func TestCheckContentAccessNoSubscriptionReason(t *testing.T) {
	t.Parallel()

	item := &content.Item{ID: uuid.New(), PlanID: uuid.New(), Locale: enums.LocaleEnglish}
	svc := newTestService(t, &stubSubs{}, &stubContent{item: item},
		&stubPlans{byID: &plans.Plan{ID: item.PlanID, Name: "Basic"}})

	decision, err := svc.CheckContentAccess(context.Background(), uuid.New(), item.ID, enums.LocaleEnglish)
	require.NoError(t, err)
	assert.False(t, decision.Granted)
	assert.Equal(t, ReasonNoActiveSubscription, decision.Reason)
}

func TestCheckContentAccessMissingContentPropagates(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubSubs{}, &stubContent{
		getErr: pkgerrors.New(pkgerrors.CodeNotFound, "content not found"),
	}, &stubPlans{})

	_, err := svc.CheckContentAccess(context.Background(), uuid.New(), uuid.New(), enums.LocaleEnglish)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAccessibleContentUsesActivePlan(t *testing.T) {
	t.Parallel()

	planID := uuid.New()
	items := []content.Item{{ID: uuid.New(), PlanID: planID}}
	svc := newTestService(t, &stubSubs{active: activeSub(planID)},
		&stubContent{byPlan: map[uuid.UUID][]content.Item{planID: items}}, &stubPlans{})

	got, err := svc.AccessibleContent(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestAccessibleContentFallsBackToFreeTier(t *testing.T) {
	t.Parallel()

	freePlan := &plans.Plan{ID: uuid.New(), PlanType: enums.PlanTierFree, Name: "Free"}
	freeItems := []content.Item{{ID: uuid.New(), PlanID: freePlan.ID}}
	svc := newTestService(t, &stubSubs{},
		&stubContent{byPlan: map[uuid.UUID][]content.Item{freePlan.ID: freeItems}},
		&stubPlans{byType: freePlan},
	)

	got, err := svc.AccessibleContent(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, freeItems, got)
}

func TestAccessibleContentNoFreePlanIsEmpty(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubSubs{}, &stubContent{}, &stubPlans{})

	got, err := svc.AccessibleContent(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, got)
}
