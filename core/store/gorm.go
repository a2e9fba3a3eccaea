package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// fetchChunkSize bounds the number of UIDs per IN clause.
// SQLite caps bound parameters at 999 on older builds.
const fetchChunkSize = 500

// ObjectRow is the GORM model for the "objects" table.
type ObjectRow struct {
	ID        string         `gorm:"column:id;primaryKey;size:36"`
	Entity    string         `gorm:"column:entity;size:64;index:idx_objects_entity_uid"`
	UID       string         `gorm:"column:uid;size:191;index:idx_objects_entity_uid"`
	Fields    map[string]any `gorm:"column:fields;serializer:json"`
	Version   int64          `gorm:"column:version"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

// TableName overrides the table name.
func (ObjectRow) TableName() string {
	return "objects"
}

// ExpectedColumns lists the columns the objects table must expose.
var ExpectedColumns = []string{"id", "entity", "uid", "fields", "version", "created_at", "updated_at"}

func rowFromRecord(rec Record) ObjectRow {
	return ObjectRow{
		ID:      rec.ID,
		Entity:  rec.Entity,
		UID:     rec.UID,
		Fields:  CopyFields(rec.Fields),
		Version: rec.Version,
	}
}

func (r ObjectRow) toRecord() Record {
	return Record{
		ID:        r.ID,
		Entity:    r.Entity,
		UID:       r.UID,
		Fields:    CopyFields(r.Fields),
		Version:   r.Version,
		UpdatedAt: r.UpdatedAt,
	}
}

// Gorm is a Backend persisting records in a single table through GORM.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps a GORM connection. Call Migrate before first use.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// Migrate creates or updates the objects table.
func (g *Gorm) Migrate(ctx context.Context) error {
	if err := g.db.WithContext(ctx).AutoMigrate(&ObjectRow{}); err != nil {
		return fmt.Errorf("failed to migrate objects table: %w", err)
	}
	return nil
}

// Fetch returns the records matching the query, ordered by UID then ID.
// Large UID sets are split into several IN queries.
func (g *Gorm) Fetch(ctx context.Context, q Query) ([]Record, error) {
	var rows []ObjectRow

	if q.All {
		err := g.db.WithContext(ctx).
			Where("entity = ?", q.Entity).
			Order("uid, id").
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", q.Entity, err)
		}
	} else {
		for start := 0; start < len(q.UIDs); start += fetchChunkSize {
			end := start + fetchChunkSize
			if end > len(q.UIDs) {
				end = len(q.UIDs)
			}

			var chunk []ObjectRow
			err := g.db.WithContext(ctx).
				Where("entity = ? AND uid IN ?", q.Entity, q.UIDs[start:end]).
				Order("uid, id").
				Find(&chunk).Error
			if err != nil {
				return nil, fmt.Errorf("failed to fetch %s: %w", q.Entity, err)
			}
			rows = append(rows, chunk...)
		}
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	if len(q.UIDs) > fetchChunkSize {
		SortRecords(records)
	}
	return records, nil
}

// Get returns the record with the given ID.
func (g *Gorm) Get(ctx context.Context, id string) (Record, error) {
	var row ObjectRow
	err := g.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get %s: %w", id, err)
	}
	return row.toRecord(), nil
}

// Commit applies the change set in one transaction.
func (g *Gorm) Commit(ctx context.Context, cs ChangeSet) error {
	if cs.Empty() {
		return nil
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(cs.Inserts) > 0 {
			rows := make([]ObjectRow, 0, len(cs.Inserts))
			for _, rec := range cs.Inserts {
				row := rowFromRecord(rec)
				row.Version = 1
				rows = append(rows, row)
			}
			if err := tx.CreateInBatches(rows, 100).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("insert: %w", ErrConflict)
				}
				return fmt.Errorf("failed to insert objects: %w", err)
			}
		}

		for _, rec := range cs.Updates {
			result := tx.Model(&ObjectRow{}).
				Where("id = ? AND version = ?", rec.ID, rec.Version).
				Select("uid", "fields", "version", "updated_at").
				Updates(ObjectRow{
					UID:       rec.UID,
					Fields:    CopyFields(rec.Fields),
					Version:   rec.Version + 1,
					UpdatedAt: time.Now(),
				})
			if result.Error != nil {
				return fmt.Errorf("failed to update %s: %w", rec.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("update %s at version %d: %w", rec.ID, rec.Version, ErrConflict)
			}
		}

		if len(cs.Deletes) > 0 {
			ids := make([]string, 0, len(cs.Deletes))
			for _, rec := range cs.Deletes {
				ids = append(ids, rec.ID)
			}
			// Delete using IN clause for batch efficiency
			if err := tx.Where("id IN ?", ids).Delete(&ObjectRow{}).Error; err != nil {
				return fmt.Errorf("failed to delete objects: %w", err)
			}
		}

		return nil
	})
}

// FindDuplicates reports UIDs held by more than one row of the entity.
func (g *Gorm) FindDuplicates(ctx context.Context, entity string) ([]DuplicateGroup, error) {
	var uids []string
	err := g.db.WithContext(ctx).
		Model(&ObjectRow{}).
		Where("entity = ?", entity).
		Group("uid").
		Having("COUNT(*) > 1").
		Order("uid").
		Pluck("uid", &uids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicates for %s: %w", entity, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	records, err := g.Fetch(ctx, Query{Entity: entity, UIDs: uids})
	if err != nil {
		return nil, err
	}
	SortRecords(records)
	return groupDuplicates(records), nil
}

// Close closes the underlying connection pool.
func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ Backend         = (*Gorm)(nil)
	_ DuplicateFinder = (*Gorm)(nil)
)
