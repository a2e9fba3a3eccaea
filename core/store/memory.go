package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory Backend.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	nowFn   func() time.Time
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]Record),
		nowFn:   time.Now,
	}
}

// Fetch returns the records matching the query, ordered by UID then ID.
func (m *Memory) Fetch(ctx context.Context, q Query) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var wanted map[string]struct{}
	if !q.All {
		if len(q.UIDs) == 0 {
			return []Record{}, nil
		}
		wanted = make(map[string]struct{}, len(q.UIDs))
		for _, uid := range q.UIDs {
			wanted[uid] = struct{}{}
		}
	}

	out := make([]Record, 0)
	for _, rec := range m.records {
		if rec.Entity != q.Entity {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[rec.UID]; !ok {
				continue
			}
		}
		out = append(out, rec.Clone())
	}
	SortRecords(out)
	return out, nil
}

// Get returns the record with the given ID.
func (m *Memory) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return rec.Clone(), nil
}

// Commit validates the whole change set first and only then applies it.
func (m *Memory) Commit(ctx context.Context, cs ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range cs.Inserts {
		if _, exists := m.records[rec.ID]; exists {
			return fmt.Errorf("insert %s: %w", rec.ID, ErrConflict)
		}
	}
	for _, rec := range cs.Updates {
		stored, exists := m.records[rec.ID]
		if !exists {
			return fmt.Errorf("update %s: %w", rec.ID, ErrNotFound)
		}
		if stored.Version != rec.Version {
			return fmt.Errorf("update %s: stored version %d, got %d: %w", rec.ID, stored.Version, rec.Version, ErrConflict)
		}
	}

	now := m.nowFn()
	for _, rec := range cs.Inserts {
		rec = rec.Clone()
		rec.Version = 1
		rec.UpdatedAt = now
		m.records[rec.ID] = rec
	}
	for _, rec := range cs.Updates {
		rec = rec.Clone()
		rec.Version++
		rec.UpdatedAt = now
		m.records[rec.ID] = rec
	}
	for _, rec := range cs.Deletes {
		delete(m.records, rec.ID)
	}
	return nil
}

// FindDuplicates reports UIDs held by more than one record of the entity.
func (m *Memory) FindDuplicates(ctx context.Context, entity string) ([]DuplicateGroup, error) {
	records, err := m.Fetch(ctx, Query{Entity: entity, All: true})
	if err != nil {
		return nil, err
	}
	return groupDuplicates(records), nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close is a no-op for the memory backend.
func (m *Memory) Close() error {
	return nil
}

// SortRecords orders records by UID, then ID.
func SortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].UID != records[j].UID {
			return records[i].UID < records[j].UID
		}
		return records[i].ID < records[j].ID
	})
}

// groupDuplicates expects records sorted by UID.
func groupDuplicates(records []Record) []DuplicateGroup {
	var groups []DuplicateGroup
	for i := 0; i < len(records); {
		j := i + 1
		for j < len(records) && records[j].UID == records[i].UID {
			j++
		}
		if j-i > 1 {
			group := DuplicateGroup{UID: records[i].UID}
			for _, rec := range records[i:j] {
				group.IDs = append(group.IDs, rec.ID)
			}
			groups = append(groups, group)
		}
		i = j
	}
	return groups
}

var (
	_ Backend         = (*Memory)(nil)
	_ DuplicateFinder = (*Memory)(nil)
)
