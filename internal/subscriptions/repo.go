package subscriptions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

// Repository handles subscription persistence over the keyed record store.
type Repository interface {
	Create(ctx context.Context, sub *UserSubscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*UserSubscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]UserSubscription, error)
	ListByStatus(ctx context.Context, status enums.SubscriptionStatus, limit int) ([]UserSubscription, error)
	Apply(ctx context.Context, id uuid.UUID, update store.Update) error
}

type repository struct {
	store store.Store
}

// NewRepository returns a subscription repository bound to the record store.
func NewRepository(st store.Store) Repository {
	return &repository{store: st}
}

func (r *repository) Create(ctx context.Context, sub *UserSubscription) error {
	record, err := toRecord(sub)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, record)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*UserSubscription, error) {
	record, err := r.store.Get(ctx, primaryKey(id))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return fromRecord(record)
}

// ListByUser returns the user's subscription history, newest first.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]UserSubscription, error) {
	records, err := r.store.Query(ctx, store.Query{
		Index:      store.IndexGSI1,
		Partition:  userPartition(userID),
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

// ListByStatus returns subscriptions in one status, newest first.
func (r *repository) ListByStatus(ctx context.Context, status enums.SubscriptionStatus, limit int) ([]UserSubscription, error) {
	records, err := r.store.Query(ctx, store.Query{
		Index:      store.IndexGSI2,
		Partition:  statusPartition(status),
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

func (r *repository) Apply(ctx context.Context, id uuid.UUID, update store.Update) error {
	return r.store.Update(ctx, primaryKey(id), update)
}

func toRecord(sub *UserSubscription) (*store.Record, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("marshal subscription %s: %w", sub.ID, err)
	}
	key := primaryKey(sub.ID)
	gsi1pk := userPartition(sub.UserID)
	gsi1sk := recencySortKey(sub.CreatedAt)
	gsi2pk := statusPartition(sub.Status)
	gsi2sk := gsi1sk
	return &store.Record{
		PK:         key.PK,
		SK:         key.SK,
		GSI1PK:     &gsi1pk,
		GSI1SK:     &gsi1sk,
		GSI2PK:     &gsi2pk,
		GSI2SK:     &gsi2sk,
		EntityType: entityType,
		Data:       data,
	}, nil
}

func fromRecord(record *store.Record) (*UserSubscription, error) {
	var sub UserSubscription
	if err := json.Unmarshal(record.Data, &sub); err != nil {
		return nil, fmt.Errorf("unmarshal subscription record %s: %w", record.PK, err)
	}
	return &sub, nil
}

func fromRecords(records []store.Record) ([]UserSubscription, error) {
	out := make([]UserSubscription, 0, len(records))
	for i := range records {
		sub, err := fromRecord(&records[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, nil
}
