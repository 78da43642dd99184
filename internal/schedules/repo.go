package schedules

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sadhanapeeth/sadhana-backend/pkg/store"
)

// Repository handles schedule persistence over the keyed record store.
type Repository interface {
	Create(ctx context.Context, schedule *MonthlySchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*MonthlySchedule, error)
	FindByPlanMonth(ctx context.Context, planID uuid.UUID, year, month int) (*MonthlySchedule, error)
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]MonthlySchedule, error)
	ListAll(ctx context.Context, limit int) ([]MonthlySchedule, error)
	Apply(ctx context.Context, id uuid.UUID, update store.Update) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	store store.Store
}

// NewRepository returns a schedule repository bound to the record store.
func NewRepository(st store.Store) Repository {
	return &repository{store: st}
}

func (r *repository) Create(ctx context.Context, schedule *MonthlySchedule) error {
	record, err := toRecord(schedule)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, record)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*MonthlySchedule, error) {
	record, err := r.store.Get(ctx, primaryKey(id))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return fromRecord(record)
}

// FindByPlanMonth returns the plan's schedule for one calendar month, or
// nil when the month is unscheduled.
func (r *repository) FindByPlanMonth(ctx context.Context, planID uuid.UUID, year, month int) (*MonthlySchedule, error) {
	records, err := r.store.Query(ctx, store.Query{
		Index:      store.IndexGSI1,
		Partition:  planPartition(planID),
		SortEquals: monthSortKey(year, month),
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return fromRecord(&records[0])
}

// ListByPlan returns the plan's schedules in chronological order.
func (r *repository) ListByPlan(ctx context.Context, planID uuid.UUID) ([]MonthlySchedule, error) {
	records, err := r.store.Query(ctx, store.Query{
		Index:     store.IndexGSI1,
		Partition: planPartition(planID),
	})
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

// ListAll returns schedules across every plan in chronological order.
func (r *repository) ListAll(ctx context.Context, limit int) ([]MonthlySchedule, error) {
	records, err := r.store.Query(ctx, store.Query{
		Index:     store.IndexGSI2,
		Partition: globalPartition,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

func (r *repository) Apply(ctx context.Context, id uuid.UUID, update store.Update) error {
	return r.store.Update(ctx, primaryKey(id), update)
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.Delete(ctx, primaryKey(id))
}

func toRecord(schedule *MonthlySchedule) (*store.Record, error) {
	data, err := json.Marshal(schedule)
	if err != nil {
		return nil, fmt.Errorf("marshal schedule %s: %w", schedule.ID, err)
	}
	key := primaryKey(schedule.ID)
	gsi1pk := planPartition(schedule.PlanID)
	gsi1sk := monthSortKey(schedule.Year, schedule.Month)
	gsi2pk := globalPartition
	gsi2sk := globalSortKey(schedule.Year, schedule.Month, schedule.PlanID)
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

func fromRecord(record *store.Record) (*MonthlySchedule, error) {
	var schedule MonthlySchedule
	if err := json.Unmarshal(record.Data, &schedule); err != nil {
		return nil, fmt.Errorf("unmarshal schedule record %s: %w", record.PK, err)
	}
	return &schedule, nil
}

func fromRecords(records []store.Record) ([]MonthlySchedule, error) {
	out := make([]MonthlySchedule, 0, len(records))
	for i := range records {
		schedule, err := fromRecord(&records[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *schedule)
	}
	return out, nil
}
