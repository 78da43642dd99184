package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by Update/Delete when the addressed record is absent.
var ErrNotFound = errors.New("store: record not found")

// GormStore implements Store on top of a shared GORM connection.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by the provided database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, key Key) (*Record, error) {
	var record Record
	err := s.db.WithContext(ctx).
		Where("pk = ? AND sk = ?", key.PK, key.SK).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *GormStore) Put(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("store: nil record")
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pk"}, {Name: "sk"}},
			UpdateAll: true,
		}).
		Create(record).Error
}

func (s *GormStore) Update(ctx context.Context, key Key, update Update) error {
	if update.IsEmpty() {
		return nil
	}

	columns := map[string]any{"updated_at": time.Now().UTC()}

	if len(update.SetData) > 0 {
		expr := datatypes.JSONSet("data")
		for field, value := range update.SetData {
			expr = expr.Set(field, value)
		}
		columns["data"] = expr
	}

	for index, pair := range update.SetIndex {
		pkCol, skCol, err := indexColumns(index)
		if err != nil {
			return err
		}
		columns[pkCol] = pair.PK
		columns[skCol] = pair.SK
	}

	if update.AddCounter != 0 {
		columns["counter"] = gorm.Expr("counter + ?", update.AddCounter)
	}

	result := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("pk = ? AND sk = ?", key.PK, key.SK).
		UpdateColumns(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key Key) error {
	result := s.db.WithContext(ctx).
		Where("pk = ? AND sk = ?", key.PK, key.SK).
		Delete(&Record{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Query(ctx context.Context, query Query) ([]Record, error) {
	pkCol, skCol, err := indexColumns(query.Index)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).
		Model(&Record{}).
		Where(pkCol+" = ?", query.Partition)

	switch {
	case query.SortEquals != "":
		tx = tx.Where(skCol+" = ?", query.SortEquals)
	case query.SortPrefix != "":
		tx = tx.Where(skCol+` LIKE ? ESCAPE '\'`, escapeLike(query.SortPrefix)+"%")
	}

	direction := "ASC"
	if query.Descending {
		direction = "DESC"
	}
	tx = tx.Order(skCol + " " + direction)

	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}

	var records []Record
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) Scan(ctx context.Context, entityType, dataContains string) ([]Record, error) {
	tx := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("entity_type = ?", entityType)
	if dataContains != "" {
		tx = tx.Where(`data LIKE ? ESCAPE '\'`, "%"+escapeLike(dataContains)+"%")
	}

	var records []Record
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) BatchGet(ctx context.Context, keys []Key) ([]Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pairs := make([][]any, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, []any{key.PK, key.SK})
	}

	var records []Record
	err := s.db.WithContext(ctx).
		Where("(pk, sk) IN ?", pairs).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func indexColumns(index Index) (pkCol, skCol string, err error) {
	switch index {
	case IndexPrimary, "":
		return "pk", "sk", nil
	case IndexGSI1:
		return "gsi1pk", "gsi1sk", nil
	case IndexGSI2:
		return "gsi2pk", "gsi2sk", nil
	default:
		return "", "", fmt.Errorf("store: unknown index %q", index)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
