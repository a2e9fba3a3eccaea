package checks

import (
	"context"
	"errors"
	"fmt"

	"graph-store/core/store"
)

// ErrDuplicatesUnsupported is returned for backends that cannot report duplicates.
var ErrDuplicatesUnsupported = errors.New("backend does not support duplicate detection")

// DuplicateReport lists, per entity, the identifiers held by more than one row.
type DuplicateReport struct {
	Clean    bool                              `json:"clean"`
	Entities map[string][]store.DuplicateGroup `json:"entities"`
}

// CheckDuplicates scans the given entities for identifiers stored more than once.
func CheckDuplicates(ctx context.Context, backend store.Backend, entities []string) (*DuplicateReport, error) {
	finder, ok := backend.(store.DuplicateFinder)
	if !ok {
		return nil, ErrDuplicatesUnsupported
	}

	report := &DuplicateReport{
		Clean:    true,
		Entities: make(map[string][]store.DuplicateGroup, len(entities)),
	}
	for _, entity := range entities {
		groups, err := finder.FindDuplicates(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s for duplicates: %w", entity, err)
		}
		if len(groups) == 0 {
			groups = []store.DuplicateGroup{}
		} else {
			report.Clean = false
		}
		report.Entities[entity] = groups
	}
	return report, nil
}
