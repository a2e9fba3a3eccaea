// Package bench compares the simple and batch reconciliation paths on
// generated records.
package bench

import (
	"context"
	"fmt"
	"time"

	"graph-store/core/codec"
	"graph-store/core/graph"
	"graph-store/core/logger"
	"graph-store/core/reconcile"
	"graph-store/core/store"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
)

// Entity is the entity name of generated records.
const Entity = "person"

// Measurement is the timing of one path at one input size.
type Measurement struct {
	Records int            `json:"records"`
	Path    reconcile.Path `json:"path"`
	Created int            `json:"created"`
	Updated int            `json:"updated"`
	Queries int            `json:"queries"`
	Elapsed time.Duration  `json:"elapsed"`
	Save    time.Duration  `json:"save"`
}

// Options configures a run.
type Options struct {
	// Sizes lists the input sizes to measure.
	Sizes []int
	// Seed seeds the record generator; 0 picks a random seed.
	Seed uint64
	// Existing is the share of each input already stored before the
	// measurement, between 0 and 1.
	Existing float64
	// NewBackend creates a fresh backend per measurement. Defaults to memory.
	NewBackend func() (store.Backend, error)
	// Recorder receives every reconciliation.
	Recorder reconcile.Recorder
	Logger   *zap.Logger
}

// Generate returns n fake person records with identifiers bench-000000 onwards.
func Generate(f *gofakeit.Faker, n int) []codec.Intermediate {
	records := make([]codec.Intermediate, n)
	for i := range records {
		records[i] = codec.Intermediate{
			ID: fmt.Sprintf("bench-%06d", i),
			Fields: map[string]any{
				"name":  f.Name(),
				"email": f.Email(),
				"city":  f.City(),
				"age":   f.IntRange(18, 90),
			},
		}
	}
	return records
}

// Run measures both paths at every size, each on its own backend.
func Run(ctx context.Context, opts Options) ([]Measurement, error) {
	if opts.NewBackend == nil {
		opts.NewBackend = func() (store.Backend, error) { return store.NewMemory(), nil }
	}
	opts.Logger = logger.OrNop(opts.Logger)

	var results []Measurement
	for _, size := range opts.Sizes {
		records := Generate(gofakeit.New(opts.Seed), size)
		for _, path := range []reconcile.Path{reconcile.PathSimple, reconcile.PathBatch} {
			m, err := measure(ctx, opts, records, path)
			if err != nil {
				return nil, fmt.Errorf("%s path with %d records: %w", path, size, err)
			}
			opts.Logger.Info("Measured reconciliation",
				zap.String("path", string(path)),
				zap.Int("records", size),
				zap.Duration("elapsed", m.Elapsed),
			)
			results = append(results, m)
		}
	}
	return results, nil
}

func measure(ctx context.Context, opts Options, records []codec.Intermediate, path reconcile.Path) (Measurement, error) {
	backend, err := opts.NewBackend()
	if err != nil {
		return Measurement{}, err
	}
	stack := graph.NewStack(backend, graph.WithLogger(opts.Logger))
	defer func() {
		stack.Close()
		_ = backend.Close()
	}()

	ropts := []reconcile.Option{reconcile.WithLogger(opts.Logger)}
	if opts.Recorder != nil {
		ropts = append(ropts, reconcile.WithRecorder(opts.Recorder))
	}
	r := reconcile.New(Entity, ropts...)

	existing := int(float64(len(records)) * opts.Existing)
	if existing > 0 {
		if _, _, err := reconcileAndSave(ctx, stack, r, records[:existing], reconcile.PathBatch); err != nil {
			return Measurement{}, fmt.Errorf("failed to seed: %w", err)
		}
	}

	res, save, err := reconcileAndSave(ctx, stack, r, records, path)
	if err != nil {
		return Measurement{}, err
	}
	return Measurement{
		Records: res.Records,
		Path:    path,
		Created: res.Created,
		Updated: res.Updated,
		Queries: res.Queries,
		Elapsed: res.Elapsed,
		Save:    save,
	}, nil
}

func reconcileAndSave(ctx context.Context, stack *graph.Stack, r *reconcile.Reconciler, records []codec.Intermediate, path reconcile.Path) (reconcile.Result, time.Duration, error) {
	c, err := stack.NewBackgroundContext()
	if err != nil {
		return reconcile.Result{}, 0, err
	}
	defer c.Dispose()

	var cache *reconcile.IdentityCache
	if path == reconcile.PathBatch {
		cache = reconcile.NewIdentityCache()
	}

	var (
		res  reconcile.Result
		save time.Duration
	)
	err = c.Perform(ctx, func(c *graph.Context) error {
		var err error
		res, err = reconcile.Reconcile(ctx, r, c, records, cache, codec.Apply)
		if err != nil {
			return err
		}
		start := time.Now()
		err = c.Save(ctx)
		save = time.Since(start)
		return err
	})
	return res, save, err
}
