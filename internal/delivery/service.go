package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/internal/content"
	"github.com/sadhanapeeth/sadhana-backend/internal/plans"
	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/metrics"
	"github.com/sadhanapeeth/sadhana-backend/pkg/storage/s3"
	"github.com/sadhanapeeth/sadhana-backend/pkg/types"
)

// accessGate is the slice of the access service this package consumes.
type accessGate interface {
	CanAccess(ctx context.Context, userID, planID uuid.UUID) (bool, error)
}

// contentLibrary is the slice of the content service this package consumes.
type contentLibrary interface {
	Get(ctx context.Context, id uuid.UUID, locale enums.Locale) (*content.Item, error)
	RecordDownload(ctx context.Context, id uuid.UUID, locale enums.Locale) error
	ReferencesObject(ctx context.Context, key string) (bool, error)
}

// planCatalog is the slice of the plan service this package consumes.
type planCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*plans.Plan, error)
}

// objectStorage is the slice of the S3 client this package consumes.
type objectStorage interface {
	PresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error)
	ListFiles(ctx context.Context, folder string) ([]s3.ObjectInfo, error)
	DeleteFiles(ctx context.Context, keys []string) error
}

// ServiceParams groups dependencies for the delivery gateway.
type ServiceParams struct {
	Access      accessGate
	Content     contentLibrary
	Plans       planCatalog
	Storage     objectStorage
	Logger      *logger.Logger
	Metrics     *metrics.DeliveryMetrics
	DownloadTTL time.Duration
}

// Service issues short-lived download links after admission and owns the
// offline orphan-file sweep.
type Service struct {
	access      accessGate
	content     contentLibrary
	plans       planCatalog
	storage     objectStorage
	logger      *logger.Logger
	metrics     *metrics.DeliveryMetrics
	downloadTTL time.Duration
}

// NewService builds a delivery gateway.
func NewService(params ServiceParams) (*Service, error) {
	if params.Access == nil {
		return nil, errors.New("access gate is required")
	}
	if params.Content == nil {
		return nil, errors.New("content library is required")
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
	if params.DownloadTTL <= 0 {
		params.DownloadTTL = time.Hour
	}
	return &Service{
		access:      params.Access,
		content:     params.Content,
		plans:       params.Plans,
		storage:     params.Storage,
		logger:      params.Logger,
		metrics:     params.Metrics,
		downloadTTL: params.DownloadTTL,
	}, nil
}

// Grant is an issued download. CounterRecorded distinguishes "download
// issued, usage counter degraded" from full success; the download itself
// never fails on a counter failure.
type Grant struct {
	URL             string            `json:"url"`
	ExpiresIn       int64             `json:"expiresIn"`
	ContentID       uuid.UUID         `json:"contentId"`
	Title           types.Bilingual   `json:"title"`
	ContentType     enums.ContentType `json:"contentType"`
	CounterRecorded bool              `json:"-"`
}

// IssueDownload admits the user through the access gate and returns a
// time-limited URL for the item's file, or its thumbnail when
// wantThumbnail is set. Denied requests never touch the usage counter.
func (s *Service) IssueDownload(ctx context.Context, userID, contentID uuid.UUID, locale enums.Locale, wantThumbnail bool) (*Grant, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	item, err := s.content.Get(ctx, contentID, locale)
	if err != nil {
		return nil, err
	}

	allowed, err := s.access.CanAccess(ctx, userID, item.PlanID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.metrics.IncAccessDenied("entitlement")
		return nil, s.forbiddenError(ctx, item)
	}

	key := item.FileKey
	if wantThumbnail {
		key = item.ThumbnailKey
	}
	if key == "" {
		variant := "file"
		if wantThumbnail {
			variant = "thumbnail"
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("content %s has no %s", contentID, variant))
	}

	start := time.Now()
	url, err := s.storage.PresignedDownloadURL(ctx, key, s.downloadTTL)
	s.metrics.ObservePresign(time.Since(start))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign download")
	}

	grant := &Grant{
		URL:             url,
		ExpiresIn:       int64(s.downloadTTL.Seconds()),
		ContentID:       item.ID,
		Title:           item.Title,
		ContentType:     item.ContentType,
		CounterRecorded: true,
	}
	if err := s.content.RecordDownload(ctx, item.ID, item.Locale); err != nil {
		grant.CounterRecorded = false
		s.metrics.IncCounterDegraded()
		s.logger.Error(s.logger.WithContentID(ctx, item.ID.String()), "download counter increment failed", err)
	}
	s.metrics.IncDownloadIssued(item.ContentType.String())
	return grant, nil
}

// forbiddenError names the plan the user would need, when resolvable.
func (s *Service) forbiddenError(ctx context.Context, item *content.Item) error {
	denied := pkgerrors.New(pkgerrors.CodeForbidden, "content requires an active subscription")
	plan, err := s.plans.GetByID(ctx, item.PlanID)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logger.Error(s.logger.WithPlanID(ctx, item.PlanID.String()), "resolving required plan failed", err)
		}
		return denied
	}
	return denied.WithDetails(map[string]any{"requiredPlanName": plan.Name})
}

// CleanupReport summarizes one orphan sweep.
type CleanupReport struct {
	ScannedCount int      `json:"scannedCount"`
	OrphanKeys   []string `json:"orphanKeys"`
	DeletedCount int      `json:"deletedCount"`
}

// CleanupOrphanedFiles removes folder objects no content row references.
// Each object costs one reverse-index lookup (plus a data scan for keys
// only held as thumbnails), so this stays an offline, advisory operation
// and must never run in the request path.
func (s *Service) CleanupOrphanedFiles(ctx context.Context, folder string) (*CleanupReport, error) {
	objects, err := s.storage.ListFiles(ctx, folder)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list folder objects")
	}

	report := &CleanupReport{ScannedCount: len(objects)}
	for _, object := range objects {
		referenced, err := s.content.ReferencesObject(ctx, object.Key)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve object references")
		}
		if !referenced {
			report.OrphanKeys = append(report.OrphanKeys, object.Key)
		}
	}

	if len(report.OrphanKeys) == 0 {
		return report, nil
	}
	if err := s.storage.DeleteFiles(ctx, report.OrphanKeys); err != nil {
		s.logger.Error(s.logger.WithField(ctx, "folder", folder), "deleting orphaned objects failed", err)
		return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete orphaned objects")
	}
	report.DeletedCount = len(report.OrphanKeys)
	return report, nil
}
