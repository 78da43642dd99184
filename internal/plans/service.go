package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

const catalogCacheTTL = 5 * time.Minute

// catalogCache is the read-through cache over the full plan list. Satisfied
// by pkg/redis.Client; nil disables caching.
type catalogCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// ServiceParams groups dependencies for the plan catalog service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
	Cache  catalogCache
}

// Service exposes plan catalog operations.
type Service struct {
	repo   Repository
	logger *logger.Logger
	cache  catalogCache
}

// NewService builds a plan catalog service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		repo:   params.Repo,
		logger: params.Logger,
		cache:  params.Cache,
	}, nil
}

// CreateInput carries the fields accepted when authoring a plan.
type CreateInput struct {
	PlanType       enums.PlanTier
	Name           string
	Description    string
	Price          decimal.Decimal
	BillingCycle   enums.BillingCycle
	PaymentMethod  enums.PaymentMethod
	AutopayEnabled bool
	Contents       []BundledContent
	Guidance       *Guidance
	Features       []string
	IsActive       bool
	DisplayOrder   int
}

// Create validates and persists a new plan.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Plan, error) {
	if !input.PlanType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan type")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if !input.BillingCycle.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing cycle")
	}
	if input.DisplayOrder < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display order must be non-negative")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	for _, bundled := range input.Contents {
		if !bundled.ContentType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid bundled content type %q", bundled.ContentType))
		}
		if bundled.Count < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bundled content count must be non-negative")
		}
	}

	now := time.Now().UTC()
	plan := &Plan{
		ID:             uuid.New(),
		PlanType:       input.PlanType,
		Name:           strings.TrimSpace(input.Name),
		Description:    strings.TrimSpace(input.Description),
		Price:          input.Price,
		BillingCycle:   input.BillingCycle,
		PaymentMethod:  input.PaymentMethod,
		AutopayEnabled: input.AutopayEnabled,
		Contents:       input.Contents,
		Guidance:       input.Guidance,
		Features:       input.Features,
		IsActive:       input.IsActive,
		DisplayOrder:   input.DisplayOrder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plan")
	}
	s.invalidateCatalog(ctx)
	return plan, nil
}

// List returns the catalog ordered by display order then tier.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Plan, error) {
	all, err := s.listCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return all, nil
	}
	out := make([]Plan, 0, len(all))
	for _, plan := range all {
		if plan.IsActive {
			out = append(out, plan)
		}
	}
	return out, nil
}

// GetByID fetches one plan or fails NotFound.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("plan %s not found", id))
	}
	return plan, nil
}

// GetByType returns the first catalog plan with the given tier, or nil when
// no such plan exists. The free tier is resolved through this lookup.
func (s *Service) GetByType(ctx context.Context, tier enums.PlanTier) (*Plan, error) {
	if !tier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan type")
	}
	all, err := s.listCatalog(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].PlanType == tier {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Patch carries a partial plan update; nil fields are left untouched.
type Patch struct {
	Name           *string
	Description    *string
	Price          *decimal.Decimal
	BillingCycle   *enums.BillingCycle
	PaymentMethod  *enums.PaymentMethod
	AutopayEnabled *bool
	Contents       *[]BundledContent
	Guidance       **Guidance
	Features       *[]string
	IsActive       *bool
	DisplayOrder   *int
	PlanType       *enums.PlanTier
}

// Update applies a partial update. An empty patch returns the stored plan
// unchanged without writing.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Plan, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	update, merged, err := compilePatch(existing, patch)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return existing, nil
	}

	if err := s.repo.Apply(ctx, id, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("plan %s not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update plan")
	}
	s.invalidateCatalog(ctx)
	return merged, nil
}

// Delete removes a plan from the catalog.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("plan %s not found", id))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete plan")
	}
	s.invalidateCatalog(ctx)
	return nil
}

// compilePatch turns a patch into a single store update plus the merged
// in-memory plan. Moving the tier or display order also rewrites the
// catalog index key.
func compilePatch(existing *Plan, patch Patch) (store.Update, *Plan, error) {
	merged := *existing
	update := store.Update{SetData: map[string]any{}}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		merged.Name = name
		update.SetData["name"] = name
	}
	if patch.Description != nil {
		merged.Description = strings.TrimSpace(*patch.Description)
		update.SetData["description"] = merged.Description
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}
		merged.Price = *patch.Price
		update.SetData["price"] = patch.Price.String()
	}
	if patch.BillingCycle != nil {
		if !patch.BillingCycle.IsValid() {
			return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing cycle")
		}
		merged.BillingCycle = *patch.BillingCycle
		update.SetData["billingCycle"] = patch.BillingCycle.String()
	}
	if patch.PaymentMethod != nil {
		if !patch.PaymentMethod.IsValid() {
			return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
		}
		merged.PaymentMethod = *patch.PaymentMethod
		update.SetData["paymentMethod"] = patch.PaymentMethod.String()
	}
	if patch.AutopayEnabled != nil {
		merged.AutopayEnabled = *patch.AutopayEnabled
		update.SetData["autopayEnabled"] = *patch.AutopayEnabled
	}
	if patch.Contents != nil {
		for _, bundled := range *patch.Contents {
			if !bundled.ContentType.IsValid() {
				return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid bundled content type %q", bundled.ContentType))
			}
		}
		merged.Contents = *patch.Contents
		update.SetData["contents"] = *patch.Contents
	}
	if patch.Guidance != nil {
		merged.Guidance = *patch.Guidance
		update.SetData["guidance"] = *patch.Guidance
	}
	if patch.Features != nil {
		merged.Features = *patch.Features
		update.SetData["features"] = *patch.Features
	}
	if patch.IsActive != nil {
		merged.IsActive = *patch.IsActive
		update.SetData["isActive"] = *patch.IsActive
	}
	if patch.DisplayOrder != nil {
		if *patch.DisplayOrder < 0 {
			return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "display order must be non-negative")
		}
		merged.DisplayOrder = *patch.DisplayOrder
		update.SetData["displayOrder"] = *patch.DisplayOrder
	}
	if patch.PlanType != nil {
		if !patch.PlanType.IsValid() {
			return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan type")
		}
		merged.PlanType = *patch.PlanType
		update.SetData["planType"] = patch.PlanType.String()
	}

	if len(update.SetData) == 0 {
		return store.Update{}, existing, nil
	}

	merged.UpdatedAt = time.Now().UTC()
	update.SetData["updatedAt"] = merged.UpdatedAt.Format(time.RFC3339Nano)

	if patch.DisplayOrder != nil || patch.PlanType != nil {
		sk := catalogSortKey(merged.DisplayOrder, merged.PlanType)
		pk := catalogPartition
		update.SetIndex = map[store.Index]store.IndexKey{
			store.IndexGSI1: {PK: &pk, SK: &sk},
		}
	}

	return update, &merged, nil
}

func (s *Service) listCatalog(ctx context.Context) ([]Plan, error) {
	if cached, ok := s.cachedCatalog(ctx); ok {
		return cached, nil
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	// Index order already matches; re-sort defensively in case index keys
	// lag a display-order update.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].DisplayOrder != all[j].DisplayOrder {
			return all[i].DisplayOrder < all[j].DisplayOrder
		}
		return all[i].PlanType < all[j].PlanType
	})

	s.storeCatalog(ctx, all)
	return all, nil
}

func (s *Service) cachedCatalog(ctx context.Context) ([]Plan, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.CacheKey("plans", "catalog"))
	if err != nil {
		return nil, false
	}
	var all []Plan
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		s.logger.Warn(ctx, "discarding undecodable plan catalog cache entry")
		return nil, false
	}
	return all, true
}

func (s *Service) storeCatalog(ctx context.Context, all []Plan) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(all)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.CacheKey("plans", "catalog"), string(raw), catalogCacheTTL); err != nil {
		s.logger.Warn(ctx, "caching plan catalog failed")
	}
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.CacheKey("plans", "catalog")); err != nil {
		s.logger.Warn(ctx, "invalidating plan catalog cache failed")
	}
}
