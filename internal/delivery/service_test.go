package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanapeeth/sadhana-backend/internal/content"
	"github.com/sadhanapeeth/sadhana-backend/internal/plans"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/storage/s3"
	"github.com/sadhanapeeth/sadhana-backend/pkg/types"
)

type stubGate struct {
	allowed bool
	err     error
}

func (s *stubGate) CanAccess(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return s.allowed, s.err
}

type stubContent struct {
	item       *content.Item
	getErr     error
	counterErr error
	counted    int
	referenced map[string]bool
}

func (s *stubContent) Get(context.Context, uuid.UUID, enums.Locale) (*content.Item, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.item, nil
}

func (s *stubContent) RecordDownload(context.Context, uuid.UUID, enums.Locale) error {
	if s.counterErr != nil {
		return s.counterErr
	}
	s.counted++
	return nil
}

func (s *stubContent) ReferencesObject(_ context.Context, key string) (bool, error) {
	return s.referenced[key], nil
}

type stubPlans struct {
	plan *plans.Plan
	err  error
}

func (s *stubPlans) GetByID(context.Context, uuid.UUID) (*plans.Plan, error) {
	return s.plan, s.err
}

type stubStorage struct {
	presignErr error
	objects    []s3.ObjectInfo
	deleted    []string
	deleteErr  error
}

func (s *stubStorage) PresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return "https://signed.example/" + key, nil
}

func (s *stubStorage) ListFiles(context.Context, string) ([]s3.ObjectInfo, error) {
	return s.objects, nil
}

func (s *stubStorage) DeleteFiles(_ context.Context, keys []string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, keys...)
	return nil
}

func sampleItem() *content.Item {
	return &content.Item{
		ID:           uuid.New(),
		PlanID:       uuid.New(),
		ContentType:  enums.ContentTypeStotra,
		Title:        types.Bilingual{En: "Morning Stotra"},
		FileKey:      "content/stotra.mp3",
		ThumbnailKey: "content/stotra-thumb.jpg",
		Locale:       enums.LocaleEnglish,
	}
}

func newTestService(t *testing.T, gate accessGate, library contentLibrary, catalog planCatalog, storage objectStorage) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Access:      gate,
		Content:     library,
		Plans:       catalog,
		Storage:     storage,
		Logger:      logger.New(logger.Options{ServiceName: "delivery-test"}),
		DownloadTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestIssueDownloadHappyPath(t *testing.T) {
	t.Parallel()

	library := &stubContent{item: sampleItem()}
	svc := newTestService(t, &stubGate{allowed: true}, library, &stubPlans{}, &stubStorage{})

	grant, err := svc.IssueDownload(context.Background(), uuid.New(), library.item.ID, enums.LocaleEnglish, false)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/content/stotra.mp3", grant.URL)
	assert.Equal(t, int64(3600), grant.ExpiresIn)
	assert.Equal(t, library.item.ID, grant.ContentID)
	assert.Equal(t, enums.ContentTypeStotra, grant.ContentType)
	assert.True(t, grant.CounterRecorded)
	assert.Equal(t, 1, library.counted)
}

func TestIssueDownloadThumbnailVariant(t *testing.T) {
	t.Parallel()

	library := &stubContent{item: sampleItem()}
	svc := newTestService(t, &stubGate{allowed: true}, library, &stubPlans{}, &stubStorage{})

	grant, err := svc.IssueDownload(context.Background(), uuid.New(), library.item.ID, enums.LocaleEnglish, true)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/content/stotra-thumb.jpg", grant.URL)
}

func TestIssueDownloadMissingThumbnailIsNotFound(t *testing.T) {
	t.Parallel()

	item := sampleItem()
	item.ThumbnailKey = ""
	library := &stubContent{item: item}
	svc := newTestService(t, &stubGate{allowed: true}, library, &stubPlans{}, &stubStorage{})

	_, err := svc.IssueDownload(context.Background(), uuid.New(), item.ID, enums.LocaleEnglish, true)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, 0, library.counted)
}

func TestIssueDownloadForbiddenSkipsCounter(t *testing.T) {
	t.Parallel()

	library := &stubContent{item: sampleItem()}
	svc := newTestService(t, &stubGate{allowed: false}, library,
		&stubPlans{plan: &plans.Plan{ID: library.item.PlanID, Name: "Divine Sadhana"}}, &stubStorage{})

	_, err := svc.IssueDownload(context.Background(), uuid.New(), library.item.ID, enums.LocaleEnglish, false)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.Equal(t, 0, library.counted, "denied requests never touch the counter")

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Divine Sadhana", details["requiredPlanName"])
}

func TestIssueDownloadCounterFailureDegrades(t *testing.T) {
	t.Parallel()

	library := &stubContent{item: sampleItem(), counterErr: errors.New("store unavailable")}
	svc := newTestService(t, &stubGate{allowed: true}, library, &stubPlans{}, &stubStorage{})

	grant, err := svc.IssueDownload(context.Background(), uuid.New(), library.item.ID, enums.LocaleEnglish, false)
	require.NoError(t, err, "a counter failure never fails the download")
	assert.False(t, grant.CounterRecorded)
	assert.NotEmpty(t, grant.URL)
}

func TestIssueDownloadPresignFailurePropagates(t *testing.T) {
	t.Parallel()

	library := &stubContent{item: sampleItem()}
	svc := newTestService(t, &stubGate{allowed: true}, library, &stubPlans{},
		&stubStorage{presignErr: errors.New("s3 down")})

	_, err := svc.IssueDownload(context.Background(), uuid.New(), library.item.ID, enums.LocaleEnglish, false)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestCleanupOrphanedFilesDeletesUnreferenced(t *testing.T) {
	t.Parallel()

	storage := &stubStorage{objects: []s3.ObjectInfo{
		{Key: "content/kept.mp3"},
		{Key: "content/orphan-1.mp3"},
		{Key: "content/orphan-2.jpg"},
	}}
	library := &stubContent{referenced: map[string]bool{"content/kept.mp3": true}}
	svc := newTestService(t, &stubGate{}, library, &stubPlans{}, storage)

	report, err := svc.CleanupOrphanedFiles(context.Background(), "content")
	require.NoError(t, err)
	assert.Equal(t, 3, report.ScannedCount)
	assert.ElementsMatch(t, []string{"content/orphan-1.mp3", "content/orphan-2.jpg"}, report.OrphanKeys)
	assert.Equal(t, 2, report.DeletedCount)
	assert.ElementsMatch(t, report.OrphanKeys, storage.deleted)
}

func TestCleanupOrphanedFilesNothingToDo(t *testing.T) {
	t.Parallel()

	storage := &stubStorage{objects: []s3.ObjectInfo{{Key: "content/kept.mp3"}}}
	library := &stubContent{referenced: map[string]bool{"content/kept.mp3": true}}
	svc := newTestService(t, &stubGate{}, library, &stubPlans{}, storage)

	report, err := svc.CleanupOrphanedFiles(context.Background(), "content")
	require.NoError(t, err)
	assert.Empty(t, report.OrphanKeys)
	assert.Zero(t, report.DeletedCount)
	assert.Empty(t, storage.deleted)
}
