package store

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// Index selects which key pair a query runs against.
type Index string

const (
	IndexPrimary Index = "primary"
	IndexGSI1    Index = "gsi1"
	IndexGSI2    Index = "gsi2"
)

// Record is one row of the single logical record table. Every entity type
// shares this shape; the domain repositories own key construction and the
// JSON document layout.
type Record struct {
	PK string `gorm:"column:pk;primaryKey"`
	SK string `gorm:"column:sk;primaryKey"`

	GSI1PK *string `gorm:"column:gsi1pk;index:idx_records_gsi1,priority:1"`
	GSI1SK *string `gorm:"column:gsi1sk;index:idx_records_gsi1,priority:2"`
	GSI2PK *string `gorm:"column:gsi2pk;index:idx_records_gsi2,priority:1"`
	GSI2SK *string `gorm:"column:gsi2sk;index:idx_records_gsi2,priority:2"`

	EntityType string         `gorm:"column:entity_type;not null;index"`
	Data       datatypes.JSON `gorm:"column:data;not null"`

	// Counter backs the store's atomic-increment primitive. Only content
	// rows use it today (download counts), but it is entity-agnostic.
	Counter int64 `gorm:"column:counter;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the shared table name.
func (Record) TableName() string {
	return "records"
}

// Key addresses a single record.
type Key struct {
	PK string
	SK string
}

// Update is a compiled partial write. SetData patches individual fields of
// the JSON document, SetIndex rewrites secondary-index columns, AddCounter
// applies an atomic relative increment. Fields absent from the maps are left
// untouched, so concurrent updates to disjoint fields do not clobber each
// other.
type Update struct {
	SetData    map[string]any
	SetIndex   map[Index]IndexKey
	AddCounter int64
}

// IndexKey is a secondary-index key pair; nil values clear the column.
type IndexKey struct {
	PK *string
	SK *string
}

// IsEmpty reports whether the update would write nothing.
func (u Update) IsEmpty() bool {
	return len(u.SetData) == 0 && len(u.SetIndex) == 0 && u.AddCounter == 0
}

// Query describes one indexed lookup. Partition is always an exact match;
// at most one of SortEquals/SortPrefix may be set. Results come back ordered
// by the chosen index's sort key.
type Query struct {
	Index      Index
	Partition  string
	SortEquals string
	SortPrefix string
	Descending bool
	Limit      int
}

// Store is the record-store contract the domain repositories consume. Get
// returns nil with no error when the record is absent.
type Store interface {
	Get(ctx context.Context, key Key) (*Record, error)
	Put(ctx context.Context, record *Record) error
	Update(ctx context.Context, key Key, update Update) error
	Delete(ctx context.Context, key Key) error
	Query(ctx context.Context, query Query) ([]Record, error)
	Scan(ctx context.Context, entityType, dataContains string) ([]Record, error)
	BatchGet(ctx context.Context, keys []Key) ([]Record, error)
}
