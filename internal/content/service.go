package content

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
	"github.com/sadhanapeeth/sadhana-backend/pkg/storage/s3"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
	"github.com/sadhanapeeth/sadhana-backend/pkg/types"
)

// uploadFolder is where presigned uploads for content objects land.
const uploadFolder = "content"

// objectStorage is the slice of the S3 client this package consumes.
type objectStorage interface {
	PresignedUploadURL(ctx context.Context, folder, fileName, contentType string, expires time.Duration) (*s3.PresignedUpload, error)
	FileExists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
	DeleteFile(ctx context.Context, key string) error
}

// planCatalog is the slice of the plan service this package consumes.
type planCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*plans.Plan, error)
}

// ServiceParams groups dependencies for the content library service.
type ServiceParams struct {
	Repo      Repository
	Plans     planCatalog
	Storage   objectStorage
	Logger    *logger.Logger
	UploadTTL time.Duration
}

// Service owns the content library.
type Service struct {
	repo      Repository
	plans     planCatalog
	storage   objectStorage
	logger    *logger.Logger
	uploadTTL time.Duration
	now       func() time.Time
}

// NewService builds a content library service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Plans == nil {
		return nil, errors.New("plan catalog is required")
	}
	if params.Storage == nil {
		return nil, errors.New("object storage is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.UploadTTL <= 0 {
		return nil, errors.New("upload ttl must be positive")
	}
	return &Service{
		repo:      params.Repo,
		plans:     params.Plans,
		storage:   params.Storage,
		logger:    params.Logger,
		uploadTTL: params.UploadTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateInput carries the fields accepted when authoring a content item.
type CreateInput struct {
	PlanID          uuid.UUID
	ContentType     enums.ContentType
	Title           types.Bilingual
	Description     types.Bilingual
	FileKey         string
	ThumbnailKey    string
	DurationSeconds int
	DisplayOrder    int
	Locale          enums.Locale
	IsActive        bool
}

// Create validates and persists a new content item. The backing object
// must already be uploaded; a missing object is a validation failure, not
// a dependency failure.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Item, error) {
	if err := s.validateCreate(ctx, &input); err != nil {
		return nil, err
	}

	now := s.now()
	item := &Item{
		ID:              uuid.New(),
		PlanID:          input.PlanID,
		ContentType:     input.ContentType,
		Title:           input.Title,
		Description:     input.Description,
		FileKey:         input.FileKey,
		FileURL:         s.storage.PublicURL(input.FileKey),
		ThumbnailKey:    input.ThumbnailKey,
		DurationSeconds: input.DurationSeconds,
		DisplayOrder:    input.DisplayOrder,
		Locale:          input.Locale,
		IsActive:        input.IsActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if item.ThumbnailKey != "" {
		item.ThumbnailURL = s.storage.PublicURL(item.ThumbnailKey)
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create content item")
	}
	return item, nil
}

func (s *Service) validateCreate(ctx context.Context, input *CreateInput) error {
	if input.PlanID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	if !input.ContentType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid content type")
	}
	if input.Title.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.DisplayOrder < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "display order must be non-negative")
	}
	locale, err := enums.ParseLocale(string(input.Locale))
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	input.Locale = locale
	input.FileKey = strings.TrimSpace(input.FileKey)
	if input.FileKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "file key is required")
	}
	input.ThumbnailKey = strings.TrimSpace(input.ThumbnailKey)

	if _, err := s.plans.GetByID(ctx, input.PlanID); err != nil {
		return err
	}

	exists, err := s.storage.FileExists(ctx, input.FileKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check uploaded file")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file %s has not been uploaded", input.FileKey))
	}
	return nil
}

// Get fetches one locale row or fails NotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID, locale enums.Locale) (*Item, error) {
	locale, parseErr := enums.ParseLocale(string(locale))
	if parseErr != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, parseErr.Error())
	}
	item, err := s.repo.Get(ctx, id, locale)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get content item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("content %s (%s) not found", id, locale))
	}
	return item, nil
}

// ListByPlan returns a plan's content in display order, optionally
// narrowed to one type and to active items only.
func (s *Service) ListByPlan(ctx context.Context, planID uuid.UUID, contentType *enums.ContentType, activeOnly bool) ([]Item, error) {
	if planID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	if contentType != nil && !contentType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid content type")
	}
	items, err := s.repo.ListByPlan(ctx, planID, contentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list content")
	}
	if !activeOnly {
		return items, nil
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.IsActive {
			out = append(out, item)
		}
	}
	return out, nil
}

// Patch carries a partial content update; nil fields stay untouched. File
// and thumbnail references move through UpdateFile / UpdateThumbnail so
// object lifecycle stays in one place.
type Patch struct {
	Title           *types.Bilingual
	Description     *types.Bilingual
	ContentType     *enums.ContentType
	DurationSeconds *int
	DisplayOrder    *int
	IsActive        *bool
}

// Update applies a partial update. An empty patch returns the stored item
// unchanged without writing.
func (s *Service) Update(ctx context.Context, id uuid.UUID, locale enums.Locale, patch Patch) (*Item, error) {
	existing, err := s.Get(ctx, id, locale)
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

	if err := s.repo.Apply(ctx, id, existing.Locale, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("content %s (%s) not found", id, locale))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update content item")
	}
	return merged, nil
}

func (s *Service) compilePatch(existing *Item, patch Patch) (store.Update, *Item, error) {
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
	if patch.ContentType != nil {
		if !patch.ContentType.IsValid() {
			return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid content type")
		}
		merged.ContentType = *patch.ContentType
		update.SetData["contentType"] = patch.ContentType.String()
	}
	if patch.DurationSeconds != nil {
		if *patch.DurationSeconds < 0 {
			return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be non-negative")
		}
		merged.DurationSeconds = *patch.DurationSeconds
		update.SetData["durationSeconds"] = *patch.DurationSeconds
	}
	if patch.DisplayOrder != nil {
		if *patch.DisplayOrder < 0 {
			return store.Update{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "display order must be non-negative")
		}
		merged.DisplayOrder = *patch.DisplayOrder
		update.SetData["displayOrder"] = *patch.DisplayOrder
	}
	if patch.IsActive != nil {
		merged.IsActive = *patch.IsActive
		update.SetData["isActive"] = *patch.IsActive
	}

	if len(update.SetData) == 0 {
		return store.Update{}, existing, nil
	}

	merged.UpdatedAt = s.now()
	update.SetData["updatedAt"] = merged.UpdatedAt.Format(time.RFC3339Nano)

	if patch.ContentType != nil || patch.DisplayOrder != nil {
		pk := planPartition(merged.PlanID)
		sk := planSortKey(merged.ContentType, merged.DisplayOrder, merged.ID, merged.Locale)
		update.SetIndex = map[store.Index]store.IndexKey{
			store.IndexGSI1: {PK: &pk, SK: &sk},
		}
	}

	return update, &merged, nil
}

// ReplaceResult reports a file or thumbnail replacement. The swap itself
// either fully succeeds or fails; deleting the superseded object is
// best-effort and its outcome is reported, never raised.
type ReplaceResult struct {
	Item               *Item
	StaleObjectDeleted bool
}

// UpdateFile swaps the item's backing object for an already-uploaded one.
func (s *Service) UpdateFile(ctx context.Context, id uuid.UUID, locale enums.Locale, newKey string) (*ReplaceResult, error) {
	newKey = strings.TrimSpace(newKey)
	if newKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file key is required")
	}

	existing, err := s.Get(ctx, id, locale)
	if err != nil {
		return nil, err
	}

	exists, err := s.storage.FileExists(ctx, newKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check uploaded file")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file %s has not been uploaded", newKey))
	}

	merged := *existing
	merged.FileKey = newKey
	merged.FileURL = s.storage.PublicURL(newKey)
	merged.UpdatedAt = s.now()

	gsi2pk := fileKeyPartition(newKey)
	gsi2sk := fileKeySortKey(merged.ID, merged.Locale)
	update := store.Update{
		SetData: map[string]any{
			"fileKey":   merged.FileKey,
			"fileUrl":   merged.FileURL,
			"updatedAt": merged.UpdatedAt.Format(time.RFC3339Nano),
		},
		SetIndex: map[store.Index]store.IndexKey{
			store.IndexGSI2: {PK: &gsi2pk, SK: &gsi2sk},
		},
	}
	if err := s.repo.Apply(ctx, id, existing.Locale, update); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update content file")
	}

	result := &ReplaceResult{Item: &merged}
	if existing.FileKey != "" && existing.FileKey != newKey {
		result.StaleObjectDeleted = s.deleteObjectBestEffort(ctx, existing.FileKey)
	}
	return result, nil
}

// UpdateThumbnail swaps the item's thumbnail for an already-uploaded one.
func (s *Service) UpdateThumbnail(ctx context.Context, id uuid.UUID, locale enums.Locale, newKey string) (*ReplaceResult, error) {
	newKey = strings.TrimSpace(newKey)
	if newKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "thumbnail key is required")
	}

	existing, err := s.Get(ctx, id, locale)
	if err != nil {
		return nil, err
	}

	exists, err := s.storage.FileExists(ctx, newKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check uploaded thumbnail")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file %s has not been uploaded", newKey))
	}

	merged := *existing
	merged.ThumbnailKey = newKey
	merged.ThumbnailURL = s.storage.PublicURL(newKey)
	merged.UpdatedAt = s.now()

	update := store.Update{
		SetData: map[string]any{
			"thumbnailKey": merged.ThumbnailKey,
			"thumbnailUrl": merged.ThumbnailURL,
			"updatedAt":    merged.UpdatedAt.Format(time.RFC3339Nano),
		},
	}
	if err := s.repo.Apply(ctx, id, existing.Locale, update); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update content thumbnail")
	}

	result := &ReplaceResult{Item: &merged}
	if existing.ThumbnailKey != "" && existing.ThumbnailKey != newKey {
		result.StaleObjectDeleted = s.deleteObjectBestEffort(ctx, existing.ThumbnailKey)
	}
	return result, nil
}

// Delete removes a locale row and best-effort releases its backing
// objects. Object deletion failures are logged, never propagated.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, locale enums.Locale) error {
	existing, err := s.Get(ctx, id, locale)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, existing.Locale); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("content %s (%s) not found", id, locale))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete content item")
	}

	if existing.FileKey != "" {
		s.deleteObjectBestEffort(ctx, existing.FileKey)
	}
	if existing.ThumbnailKey != "" {
		s.deleteObjectBestEffort(ctx, existing.ThumbnailKey)
	}
	return nil
}

func (s *Service) deleteObjectBestEffort(ctx context.Context, key string) bool {
	if err := s.storage.DeleteFile(ctx, key); err != nil {
		s.logger.Error(s.logger.WithField(ctx, "object_key", key), "releasing stale object failed", err)
		return false
	}
	return true
}

// BulkResult aggregates a bulk create: every item is attempted
// independently and failures never abort the batch.
type BulkResult struct {
	SucceededIDs []uuid.UUID `json:"succeededIds"`
	Errors       []string    `json:"errors"`
	SuccessCount int         `json:"successCount"`
	FailedCount  int         `json:"failedCount"`
}

// BulkCreate authors many items against one plan with partial-failure
// semantics.
func (s *Service) BulkCreate(ctx context.Context, planID uuid.UUID, inputs []CreateInput) (*BulkResult, error) {
	if planID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one content item is required")
	}
	if _, err := s.plans.GetByID(ctx, planID); err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for i := range inputs {
		inputs[i].PlanID = planID
		item, err := s.Create(ctx, inputs[i])
		if err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: %v", bulkItemLabel(&inputs[i], i), err))
			continue
		}
		result.SuccessCount++
		result.SucceededIDs = append(result.SucceededIDs, item.ID)
	}
	return result, nil
}

func bulkItemLabel(input *CreateInput, index int) string {
	if title := input.Title.In(enums.LocaleEnglish); title != "" {
		return title
	}
	return fmt.Sprintf("item %d", index+1)
}

// RecordDownload bumps the item's download counter through the store's
// atomic increment. Callers treat failure as a degraded side effect.
func (s *Service) RecordDownload(ctx context.Context, id uuid.UUID, locale enums.Locale) error {
	if locale == "" {
		locale = enums.LocaleEnglish
	}
	return s.repo.IncrementDownloadCount(ctx, id, locale)
}

// BatchGet fetches several locale rows in one round trip. Keys with no
// matching row are silently absent from the result.
func (s *Service) BatchGet(ctx context.Context, keys []ItemKey) ([]Item, error) {
	if len(keys) == 0 {
		return []Item{}, nil
	}
	return s.repo.BatchGet(ctx, keys)
}

// ReferencesObject reports whether any content row references a storage key.
func (s *Service) ReferencesObject(ctx context.Context, key string) (bool, error) {
	return s.repo.ReferencesObject(ctx, key)
}

// PresignUpload issues a time-limited upload URL for a new content object.
func (s *Service) PresignUpload(ctx context.Context, fileName, contentType string) (*s3.PresignedUpload, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	if strings.TrimSpace(contentType) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content type is required")
	}

	upload, err := s.storage.PresignedUploadURL(ctx, uploadFolder, fileName, contentType, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign upload")
	}
	return upload, nil
}
