package content

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanapeeth/sadhana-backend/internal/plans"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/storage/s3"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
	"github.com/sadhanapeeth/sadhana-backend/pkg/types"
)

type stubRepo struct {
	createFn  func(ctx context.Context, item *Item) error
	getFn     func(ctx context.Context, id uuid.UUID, locale enums.Locale) (*Item, error)
	listFn    func(ctx context.Context, planID uuid.UUID, contentType *enums.ContentType) ([]Item, error)
	applyFn   func(ctx context.Context, id uuid.UUID, locale enums.Locale, update store.Update) error
	deleteFn  func(ctx context.Context, id uuid.UUID, locale enums.Locale) error
	incrFn    func(ctx context.Context, id uuid.UUID, locale enums.Locale) error
	batchFn   func(ctx context.Context, keys []ItemKey) ([]Item, error)
	byFileKey func(ctx context.Context, fileKey string) ([]Item, error)
}

func (s *stubRepo) Create(ctx context.Context, item *Item) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, item)
}

func (s *stubRepo) Get(ctx context.Context, id uuid.UUID, locale enums.Locale) (*Item, error) {
	if s.getFn == nil {
		return nil, nil
	}
	return s.getFn(ctx, id, locale)
}

func (s *stubRepo) ListByPlan(ctx context.Context, planID uuid.UUID, contentType *enums.ContentType) ([]Item, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, planID, contentType)
}

func (s *stubRepo) Apply(ctx context.Context, id uuid.UUID, locale enums.Locale, update store.Update) error {
	if s.applyFn == nil {
		return nil
	}
	return s.applyFn(ctx, id, locale, update)
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID, locale enums.Locale) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id, locale)
}

func (s *stubRepo) IncrementDownloadCount(ctx context.Context, id uuid.UUID, locale enums.Locale) error {
	if s.incrFn == nil {
		return nil
	}
	return s.incrFn(ctx, id, locale)
}

func (s *stubRepo) BatchGet(ctx context.Context, keys []ItemKey) ([]Item, error) {
	if s.batchFn == nil {
		return nil, nil
	}
	return s.batchFn(ctx, keys)
}

func (s *stubRepo) FindByFileKey(ctx context.Context, fileKey string) ([]Item, error) {
	if s.byFileKey == nil {
		return nil, nil
	}
	return s.byFileKey(ctx, fileKey)
}

func (s *stubRepo) ReferencesObject(ctx context.Context, key string) (bool, error) {
	refs, err := s.FindByFileKey(ctx, key)
	if err != nil {
		return false, err
	}
	return len(refs) > 0, nil
}

type stubStorage struct {
	existing map[string]bool
	deleted  []string
	delErr   error
}

func (s *stubStorage) PresignedUploadURL(_ context.Context, folder, fileName, _ string, expires time.Duration) (*s3.PresignedUpload, error) {
	key := fmt.Sprintf("%s/%s", folder, fileName)
	return &s3.PresignedUpload{
		UploadURL:   "https://upload.example/" + key,
		DownloadURL: "https://cdn.example/" + key,
		Key:         key,
		ExpiresIn:   int64(expires.Seconds()),
	}, nil
}

func (s *stubStorage) FileExists(_ context.Context, key string) (bool, error) {
	return s.existing[key], nil
}

func (s *stubStorage) PublicURL(key string) string {
	return "https://cdn.example/" + key
}

func (s *stubStorage) DeleteFile(_ context.Context, key string) error {
	if s.delErr != nil {
		return s.delErr
	}
	s.deleted = append(s.deleted, key)
	return nil
}

type stubPlans struct {
	plan *plans.Plan
	err  error
}

func (s *stubPlans) GetByID(context.Context, uuid.UUID) (*plans.Plan, error) {
	return s.plan, s.err
}

func newTestService(t *testing.T, repo Repository, storage objectStorage, catalog planCatalog) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Plans:     catalog,
		Storage:   storage,
		Logger:    logger.New(logger.Options{ServiceName: "content-test"}),
		UploadTTL: 15 * time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func validInput(fileKey string) CreateInput {
	return CreateInput{
		PlanID:      uuid.New(),
		ContentType: enums.ContentTypeStotra,
		Title:       types.Bilingual{En: "Morning Stotra"},
		FileKey:     fileKey,
		Locale:      enums.LocaleEnglish,
		IsActive:    true,
	}
}

func TestCreateRequiresUploadedFile(t *testing.T) {
	t.Parallel()

	storage := &stubStorage{existing: map[string]bool{}}
	svc := newTestService(t, &stubRepo{}, storage, &stubPlans{plan: &plans.Plan{ID: uuid.New()}})

	_, err := svc.Create(context.Background(), validInput("content/missing.mp3"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "content/missing.mp3")
}

func TestCreateDerivesURLsAndDefaultsLocale(t *testing.T) {
	t.Parallel()

	storage := &stubStorage{existing: map[string]bool{"content/a.mp3": true}}
	var created *Item
	svc := newTestService(t, &stubRepo{
		createFn: func(_ context.Context, item *Item) error {
			created = item
			return nil
		},
	}, storage, &stubPlans{plan: &plans.Plan{ID: uuid.New()}})

	input := validInput("content/a.mp3")
	input.Locale = ""
	item, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "https://cdn.example/content/a.mp3", item.FileURL)
	assert.Equal(t, enums.LocaleEnglish, item.Locale, "empty locale defaults to en")
}

func TestUpdateFileReplacesAndDeletesStaleObject(t *testing.T) {
	t.Parallel()

	existing := &Item{
		ID:      uuid.New(),
		PlanID:  uuid.New(),
		FileKey: "content/old.mp3",
		Locale:  enums.LocaleEnglish,
	}
	storage := &stubStorage{existing: map[string]bool{"content/new.mp3": true}}
	var captured store.Update
	svc := newTestService(t, &stubRepo{
		getFn: func(context.Context, uuid.UUID, enums.Locale) (*Item, error) {
			item := *existing
			return &item, nil
		},
		applyFn: func(_ context.Context, _ uuid.UUID, _ enums.Locale, update store.Update) error {
			captured = update
			return nil
		},
	}, storage, &stubPlans{})

	result, err := svc.UpdateFile(context.Background(), existing.ID, existing.Locale, "content/new.mp3")
	require.NoError(t, err)
	assert.Equal(t, "content/new.mp3", result.Item.FileKey)
	assert.True(t, result.StaleObjectDeleted)
	assert.Equal(t, []string{"content/old.mp3"}, storage.deleted)

	key, ok := captured.SetIndex[store.IndexGSI2]
	require.True(t, ok, "file swap rewrites the reverse index")
	require.NotNil(t, key.PK)
	assert.Equal(t, "FILEKEY#content/new.mp3", *key.PK)
}

func TestUpdateFileSurvivesStaleDeleteFailure(t *testing.T) {
	t.Parallel()

	existing := &Item{ID: uuid.New(), FileKey: "content/old.mp3", Locale: enums.LocaleEnglish}
	storage := &stubStorage{
		existing: map[string]bool{"content/new.mp3": true},
		delErr:   errors.New("storage unavailable"),
	}
	svc := newTestService(t, &stubRepo{
		getFn: func(context.Context, uuid.UUID, enums.Locale) (*Item, error) {
			item := *existing
			return &item, nil
		},
	}, storage, &stubPlans{})

	result, err := svc.UpdateFile(context.Background(), existing.ID, existing.Locale, "content/new.mp3")
	require.NoError(t, err, "stale delete failure never fails the swap")
	assert.False(t, result.StaleObjectDeleted)
}

func TestUpdateFileRejectsUnuploadedKey(t *testing.T) {
	t.Parallel()

	existing := &Item{ID: uuid.New(), FileKey: "content/old.mp3", Locale: enums.LocaleEnglish}
	svc := newTestService(t, &stubRepo{
		getFn: func(context.Context, uuid.UUID, enums.Locale) (*Item, error) {
			item := *existing
			return &item, nil
		},
	}, &stubStorage{existing: map[string]bool{}}, &stubPlans{})

	_, err := svc.UpdateFile(context.Background(), existing.ID, existing.Locale, "content/never-uploaded.mp3")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteReleasesBackingObjects(t *testing.T) {
	t.Parallel()

	existing := &Item{
		ID:           uuid.New(),
		FileKey:      "content/a.mp3",
		ThumbnailKey: "content/a-thumb.jpg",
		Locale:       enums.LocaleEnglish,
	}
	storage := &stubStorage{existing: map[string]bool{}}
	svc := newTestService(t, &stubRepo{
		getFn: func(context.Context, uuid.UUID, enums.Locale) (*Item, error) {
			item := *existing
			return &item, nil
		},
	}, storage, &stubPlans{})

	require.NoError(t, svc.Delete(context.Background(), existing.ID, existing.Locale))
	assert.ElementsMatch(t, []string{"content/a.mp3", "content/a-thumb.jpg"}, storage.deleted)
}

func TestBulkCreatePartialFailure(t *testing.T) {
	t.Parallel()

	planID := uuid.New()
	storage := &stubStorage{existing: map[string]bool{
		"content/1.mp3": true,
		"content/2.mp3": true,
		"content/3.mp3": true,
		// content/4.mp3 never uploaded
	}}
	svc := newTestService(t, &stubRepo{}, storage, &stubPlans{plan: &plans.Plan{ID: planID}})

	inputs := []CreateInput{}
	for i := 1; i <= 3; i++ {
		input := validInput(fmt.Sprintf("content/%d.mp3", i))
		input.Title = types.Bilingual{En: fmt.Sprintf("Stotra %d", i)}
		inputs = append(inputs, input)
	}
	bad := validInput("content/4.mp3")
	bad.Title = types.Bilingual{En: "Broken Kavach"}
	inputs = append(inputs, bad)

	result, err := svc.BulkCreate(context.Background(), planID, inputs)
	require.NoError(t, err)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Len(t, result.SucceededIDs, 3)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Broken Kavach")
}

func TestUpdateEmptyPatchIsNoOp(t *testing.T) {
	t.Parallel()

	existing := &Item{ID: uuid.New(), Locale: enums.LocaleEnglish, Title: types.Bilingual{En: "Keep"}}
	applied := false
	svc := newTestService(t, &stubRepo{
		getFn: func(context.Context, uuid.UUID, enums.Locale) (*Item, error) {
			item := *existing
			return &item, nil
		},
		applyFn: func(context.Context, uuid.UUID, enums.Locale, store.Update) error {
			applied = true
			return nil
		},
	}, &stubStorage{}, &stubPlans{})

	got, err := svc.Update(context.Background(), existing.ID, existing.Locale, Patch{})
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.Title.En)
	assert.False(t, applied)
}

func TestCreateRejectsNegativeDisplayOrder(t *testing.T) {
	t.Parallel()

	storage := &stubStorage{existing: map[string]bool{"content/a.mp3": true}}
	svc := newTestService(t, &stubRepo{}, storage, &stubPlans{plan: &plans.Plan{ID: uuid.New()}})

	input := validInput("content/a.mp3")
	input.DisplayOrder = -2
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateRejectsNegativeDisplayOrder(t *testing.T) {
	t.Parallel()

	existing := &Item{ID: uuid.New(), Locale: enums.LocaleEnglish, Title: types.Bilingual{En: "Keep"}}
	applied := false
	svc := newTestService(t, &stubRepo{
		getFn: func(context.Context, uuid.UUID, enums.Locale) (*Item, error) {
			item := *existing
			return &item, nil
		},
		applyFn: func(context.Context, uuid.UUID, enums.Locale, store.Update) error {
			applied = true
			return nil
		},
	}, &stubStorage{}, &stubPlans{})

	order := -2
	_, err := svc.Update(context.Background(), existing.ID, existing.Locale, Patch{DisplayOrder: &order})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.False(t, applied, "rejected patch must not write")
}

func TestPresignUploadUsesConfiguredTTL(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubRepo{}, &stubStorage{}, &stubPlans{})

	upload, err := svc.PresignUpload(context.Background(), "bhajan.mp3", "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "content/bhajan.mp3", upload.Key)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), upload.ExpiresIn)
}

func TestSummarizeRedactsStorageKeys(t *testing.T) {
	t.Parallel()

	item := Item{
		ID:           uuid.New(),
		FileKey:      "content/secret.mp3",
		FileURL:      "https://cdn.example/content/secret.mp3",
		ThumbnailURL: "https://cdn.example/content/thumb.jpg",
		Title:        types.Bilingual{En: "Stotra"},
	}
	summary := item.Summarize()
	assert.Equal(t, item.ID, summary.ID)
	assert.Equal(t, item.ThumbnailURL, summary.ThumbnailURL)
}
