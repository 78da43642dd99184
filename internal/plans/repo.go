package plans

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

// Repository handles plan persistence over the keyed record store.
type Repository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
	Apply(ctx context.Context, id uuid.UUID, update store.Update) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	store store.Store
}

// NewRepository returns a plan repository bound to the provided record store.
func NewRepository(st store.Store) Repository {
	return &repository{store: st}
}

func (r *repository) Create(ctx context.Context, plan *Plan) error {
	record, err := toRecord(plan)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, record)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	record, err := r.store.Get(ctx, primaryKey(id))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return fromRecord(record)
}

func (r *repository) List(ctx context.Context) ([]Plan, error) {
	records, err := r.store.Query(ctx, store.Query{
		Index:     store.IndexGSI1,
		Partition: catalogPartition,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Plan, 0, len(records))
	for i := range records {
		plan, err := fromRecord(&records[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *plan)
	}
	return out, nil
}

func (r *repository) Apply(ctx context.Context, id uuid.UUID, update store.Update) error {
	return r.store.Update(ctx, primaryKey(id), update)
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.Delete(ctx, primaryKey(id))
}

func toRecord(plan *Plan) (*store.Record, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("marshal plan %s: %w", plan.ID, err)
	}
	key := primaryKey(plan.ID)
	gsi1pk := catalogPartition
	gsi1sk := catalogSortKey(plan.DisplayOrder, plan.PlanType)
	return &store.Record{
		PK:         key.PK,
		SK:         key.SK,
		GSI1PK:     &gsi1pk,
		GSI1SK:     &gsi1sk,
		EntityType: entityType,
		Data:       data,
	}, nil
}

func fromRecord(record *store.Record) (*Plan, error) {
	var plan Plan
	if err := json.Unmarshal(record.Data, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan record %s: %w", record.PK, err)
	}
	return &plan, nil
}
