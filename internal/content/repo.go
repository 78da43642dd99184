package content

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

// Repository handles content persistence over the keyed record store.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	Get(ctx context.Context, id uuid.UUID, locale enums.Locale) (*Item, error)
	ListByPlan(ctx context.Context, planID uuid.UUID, contentType *enums.ContentType) ([]Item, error)
	Apply(ctx context.Context, id uuid.UUID, locale enums.Locale, update store.Update) error
	Delete(ctx context.Context, id uuid.UUID, locale enums.Locale) error
	IncrementDownloadCount(ctx context.Context, id uuid.UUID, locale enums.Locale) error
	BatchGet(ctx context.Context, keys []ItemKey) ([]Item, error)
	FindByFileKey(ctx context.Context, fileKey string) ([]Item, error)
	ReferencesObject(ctx context.Context, key string) (bool, error)
}

type repository struct {
	store store.Store
}

// NewRepository returns a content repository bound to the record store.
func NewRepository(st store.Store) Repository {
	return &repository{store: st}
}

func (r *repository) Create(ctx context.Context, item *Item) error {
	record, err := toRecord(item)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, record)
}

func (r *repository) Get(ctx context.Context, id uuid.UUID, locale enums.Locale) (*Item, error) {
	record, err := r.store.Get(ctx, primaryKey(id, locale))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return fromRecord(record)
}

// ListByPlan returns a plan's content in display order, optionally
// narrowed to one content type via an index prefix.
func (r *repository) ListByPlan(ctx context.Context, planID uuid.UUID, contentType *enums.ContentType) ([]Item, error) {
	query := store.Query{
		Index:     store.IndexGSI1,
		Partition: planPartition(planID),
	}
	if contentType != nil {
		query.SortPrefix = planSortPrefix(*contentType)
	}
	records, err := r.store.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

func (r *repository) Apply(ctx context.Context, id uuid.UUID, locale enums.Locale, update store.Update) error {
	return r.store.Update(ctx, primaryKey(id, locale), update)
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID, locale enums.Locale) error {
	return r.store.Delete(ctx, primaryKey(id, locale))
}

// IncrementDownloadCount bumps the store-side atomic counter. Lost updates
// under concurrency are acceptable; stale reads are not corrected.
func (r *repository) IncrementDownloadCount(ctx context.Context, id uuid.UUID, locale enums.Locale) error {
	return r.store.Update(ctx, primaryKey(id, locale), store.Update{AddCounter: 1})
}

// BatchGet fetches many (id, locale) rows in one round trip. Missing keys
// are simply absent from the result.
func (r *repository) BatchGet(ctx context.Context, keys []ItemKey) ([]Item, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	storeKeys := make([]store.Key, 0, len(keys))
	for _, key := range keys {
		storeKeys = append(storeKeys, primaryKey(key.ID, key.Locale))
	}
	records, err := r.store.BatchGet(ctx, storeKeys)
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

// ReferencesObject reports whether any content row references a storage
// key. The reverse index covers file keys; thumbnails are only reachable
// through a data scan, so the index miss falls back to one.
func (r *repository) ReferencesObject(ctx context.Context, key string) (bool, error) {
	refs, err := r.FindByFileKey(ctx, key)
	if err != nil {
		return false, err
	}
	if len(refs) > 0 {
		return true, nil
	}
	records, err := r.store.Scan(ctx, entityType, key)
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// FindByFileKey resolves which content rows reference a storage key, via
// the maintained reverse index.
func (r *repository) FindByFileKey(ctx context.Context, fileKey string) ([]Item, error) {
	records, err := r.store.Query(ctx, store.Query{
		Index:     store.IndexGSI2,
		Partition: fileKeyPartition(fileKey),
	})
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

func toRecord(item *Item) (*store.Record, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal content item %s: %w", item.ID, err)
	}
	key := primaryKey(item.ID, item.Locale)
	gsi1pk := planPartition(item.PlanID)
	gsi1sk := planSortKey(item.ContentType, item.DisplayOrder, item.ID, item.Locale)
	record := &store.Record{
		PK:         key.PK,
		SK:         key.SK,
		GSI1PK:     &gsi1pk,
		GSI1SK:     &gsi1sk,
		EntityType: entityType,
		Data:       data,
		Counter:    item.DownloadCount,
	}
	if item.FileKey != "" {
		gsi2pk := fileKeyPartition(item.FileKey)
		gsi2sk := fileKeySortKey(item.ID, item.Locale)
		record.GSI2PK = &gsi2pk
		record.GSI2SK = &gsi2sk
	}
	return record, nil
}

func fromRecord(record *store.Record) (*Item, error) {
	var item Item
	if err := json.Unmarshal(record.Data, &item); err != nil {
		return nil, fmt.Errorf("unmarshal content record %s/%s: %w", record.PK, record.SK, err)
	}
	item.DownloadCount = record.Counter
	return &item, nil
}

func fromRecords(records []store.Record) ([]Item, error) {
	out := make([]Item, 0, len(records))
	for i := range records {
		item, err := fromRecord(&records[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, nil
}
