package schedules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/internal/content"
	"github.com/sadhanapeeth/sadhana-backend/internal/plans"
	"github.com/sadhanapeeth/sadhana-backend/internal/subscriptions"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
	"github.com/sadhanapeeth/sadhana-backend/pkg/types"
)

// planCatalog is the slice of the plan service this package consumes.
type planCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*plans.Plan, error)
}

// entitlements is the slice of the subscription service this package consumes.
type entitlements interface {
	ActiveForUser(ctx context.Context, userID uuid.UUID) (*subscriptions.UserSubscription, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]subscriptions.UserSubscription, error)
}

// contentLibrary is the slice of the content service this package consumes.
type contentLibrary interface {
	BatchGet(ctx context.Context, keys []content.ItemKey) ([]content.Item, error)
}

// ServiceParams groups dependencies for the schedule service.
type ServiceParams struct {
	Repo    Repository
	Plans   planCatalog
	Subs    entitlements
	Content contentLibrary
	Logger  *logger.Logger
}

// Service owns monthly schedule authoring and the user-facing resolved views.
type Service struct {
	repo    Repository
	plans   planCatalog
	subs    entitlements
	content contentLibrary
	logger  *logger.Logger
	now     func() time.Time
}

// NewService builds a schedule service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Plans == nil {
		return nil, errors.New("plan catalog is required")
	}
	if params.Subs == nil {
		return nil, errors.New("entitlement service is required")
	}
	if params.Content == nil {
		return nil, errors.New("content library is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		repo:    params.Repo,
		plans:   params.Plans,
		subs:    params.Subs,
		content: params.Content,
		logger:  params.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateInput carries the fields accepted when authoring a schedule.
type CreateInput struct {
	PlanID       uuid.UUID
	Year         int
	Month        int
	Title        types.Bilingual
	Description  types.Bilingual
	ContentItems []ContentRef
	IsPublished  bool
}

// Create authors a schedule for one plan and calendar month. A month that
// already has a schedule for the plan is rejected with a conflict naming
// the existing one.
func (s *Service) Create(ctx context.Context, input CreateInput) (*MonthlySchedule, error) {
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	plan, err := s.plans.GetByID(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByPlanMonth(ctx, input.PlanID, input.Year, input.Month)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check month schedule")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("plan %s already has schedule %s for %04d-%02d", input.PlanID, existing.ID, input.Year, input.Month))
	}

	now := s.now()
	schedule := &MonthlySchedule{
		ID:           uuid.New(),
		PlanID:       plan.ID,
		PlanName:     plan.Name,
		Year:         input.Year,
		Month:        input.Month,
		Title:        input.Title,
		Description:  input.Description,
		ContentItems: input.ContentItems,
		IsPublished:  input.IsPublished,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if schedule.ContentItems == nil {
		schedule.ContentItems = []ContentRef{}
	}

	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create schedule")
	}
	return schedule, nil
}

func validateCreate(input *CreateInput) error {
	if input.PlanID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	if input.Year < 2000 || input.Year > 9999 {
		return pkgerrors.New(pkgerrors.CodeValidation, "year is out of range")
	}
	if input.Month < 1 || input.Month > 12 {
		return pkgerrors.New(pkgerrors.CodeValidation, "month must be between 1 and 12")
	}
	if input.Title.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	for _, ref := range input.ContentItems {
		if ref.ContentID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "content reference is missing its content id")
		}
	}
	return nil
}

// GetByID fetches one schedule or fails NotFound.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*MonthlySchedule, error) {
	schedule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get schedule")
	}
	if schedule == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("schedule %s not found", id))
	}
	return schedule, nil
}

// ListByPlan returns a plan's schedules in chronological order.
func (s *Service) ListByPlan(ctx context.Context, planID uuid.UUID) ([]MonthlySchedule, error) {
	if planID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	out, err := s.repo.ListByPlan(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plan schedules")
	}
	return out, nil
}

// ListAll returns schedules across every plan, chronological, for admin use.
func (s *Service) ListAll(ctx context.Context, limit int) ([]MonthlySchedule, error) {
	out, err := s.repo.ListAll(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list schedules")
	}
	return out, nil
}

// Patch carries a partial schedule update; nil fields stay untouched. The
// (plan, year, month) coordinates are immutable after creation, which keeps
// the one-schedule-per-month invariant a creation-time check.
type Patch struct {
	Title        *types.Bilingual
	Description  *types.Bilingual
	ContentItems *[]ContentRef
	IsPublished  *bool
}

// Update applies a partial update. An empty patch returns the stored
// record unchanged without writing.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*MonthlySchedule, error) {
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
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("schedule %s not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update schedule")
	}
	return merged, nil
}

func (s *Service) compilePatch(existing *MonthlySchedule, patch Patch) (store.Update, *MonthlySchedule, error) {
	merged := *existing
	update := store.Update{SetData: map[string]any{}}

	if patch.Title != nil {
		if patch.Title.IsZero() {
			return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		merged.Title = *patch.Title
		update.SetData["title"] = *patch.Title
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
		update.SetData["description"] = *patch.Description
	}
	if patch.ContentItems != nil {
		for _, ref := range *patch.ContentItems {
			if ref.ContentID == uuid.Nil {
				return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "content reference is missing its content id")
			}
		}
		merged.ContentItems = *patch.ContentItems
		update.SetData["contentItems"] = *patch.ContentItems
	}
	if patch.IsPublished != nil {
		merged.IsPublished = *patch.IsPublished
		update.SetData["isPublished"] = *patch.IsPublished
	}

	if len(update.SetData) == 0 {
		return store.Update{}, existing, nil
	}

	merged.UpdatedAt = s.now()
	update.SetData["updatedAt"] = merged.UpdatedAt.Format(time.RFC3339Nano)
	return update, &merged, nil
}

// Delete removes a schedule. Content items are untouched; they are only
// referenced, never owned, by schedules.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("schedule %s not found", id))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete schedule")
	}
	return nil
}

// resolveContentItems expands schedule slots into redacted content
// summaries with one batched fetch. Slots whose content no longer exists
// are logged and dropped, preserving the order of the rest.
func (s *Service) resolveContentItems(ctx context.Context, scheduleID uuid.UUID, refs []ContentRef, locale enums.Locale) ([]ResolvedItem, error) {
	if len(refs) == 0 {
		return []ResolvedItem{}, nil
	}

	keys := make([]content.ItemKey, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, content.ItemKey{ID: ref.ContentID, Locale: locale})
	}
	items, err := s.content.BatchGet(ctx, keys)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve schedule content")
	}

	byID := make(map[uuid.UUID]*content.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	resolved := make([]ResolvedItem, 0, len(refs))
	for _, ref := range refs {
		item, ok := byID[ref.ContentID]
		if !ok {
			lctx := s.logger.WithContentID(ctx, ref.ContentID.String())
			lctx = s.logger.WithField(lctx, "schedule_id", scheduleID.String())
			s.logger.Warn(lctx, "schedule references missing content, dropping slot")
			continue
		}
		resolved = append(resolved, ResolvedItem{
			Content:      item.Summarize(),
			DisplayOrder: ref.DisplayOrder,
		})
	}
	return resolved, nil
}

func (s *Service) resolve(ctx context.Context, schedule *MonthlySchedule, locale enums.Locale) (*ResolvedSchedule, error) {
	items, err := s.resolveContentItems(ctx, schedule.ID, schedule.ContentItems, locale)
	if err != nil {
		return nil, err
	}
	return &ResolvedSchedule{
		ID:          schedule.ID,
		PlanID:      schedule.PlanID,
		PlanName:    schedule.PlanName,
		Year:        schedule.Year,
		Month:       schedule.Month,
		Title:       schedule.Title,
		Description: schedule.Description,
		Items:       items,
	}, nil
}

// MonthContent returns the resolved schedule for one plan and month, or
// nil when the caller holds no active subscription to the plan or the
// month is unpublished or unscheduled.
func (s *Service) MonthContent(ctx context.Context, userID, planID uuid.UUID, year, month int, locale enums.Locale) (*ResolvedSchedule, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if planID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}

	sub, err := s.subs.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.PlanID != planID {
		return nil, nil
	}

	schedule, err := s.repo.FindByPlanMonth(ctx, planID, year, month)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find month schedule")
	}
	if schedule == nil || !schedule.IsPublished {
		return nil, nil
	}
	return s.resolve(ctx, schedule, locale)
}

// MonthlyOverview resolves every published month on the caller's current
// plan. The caller's newest subscription picks the plan even when it has
// lapsed, so the overview stays browsable read-only; SubscriptionActive
// tells the UI whether downloads would be admitted. Nil when the user has
// never subscribed.
func (s *Service) MonthlyOverview(ctx context.Context, userID uuid.UUID, locale enums.Locale) (*Overview, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	subs, err := s.subs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}

	current := subs[0]
	for i := range subs {
		if subs[i].IsActive() {
			current = subs[i]
			break
		}
	}

	all, err := s.repo.ListByPlan(ctx, current.PlanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plan schedules")
	}

	overview := &Overview{
		PlanID:             current.PlanID,
		PlanName:           current.PlanName,
		SubscriptionActive: current.IsActive(),
		Schedules:          []ResolvedSchedule{},
	}
	for i := range all {
		if !all[i].IsPublished {
			continue
		}
		resolved, err := s.resolve(ctx, &all[i], locale)
		if err != nil {
			return nil, err
		}
		overview.Schedules = append(overview.Schedules, *resolved)
	}
	return overview, nil
}
