package reconcile

import (
	"context"
	"fmt"
	"time"

	"graph-store/core/graph"
	"graph-store/core/store"

	"go.uber.org/zap"
)

// inflightKey is the context user-info key holding the identifiers of the
// batch calls in flight on that context.
const inflightKey = "reconcile.inflight"

// Reconciler holds the per-entity settings of a reconciliation.
type Reconciler struct {
	entity   string
	logger   *zap.Logger
	recorder Recorder
	strict   bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorder reports every call to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Reconciler) {
		r.recorder = rec
	}
}

// WithStrict rejects calls that overlap an in-flight batch call on the same
// context with ErrReentrantReconcile.
func WithStrict() Option {
	return func(r *Reconciler) {
		r.strict = true
	}
}

// New creates a reconciler for the entity.
func New(entity string, opts ...Option) *Reconciler {
	r := &Reconciler{
		entity: entity,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("entity", entity))
	return r
}

// Entity returns the entity the reconciler writes.
func (r *Reconciler) Entity() string {
	return r.entity
}

// Strict reports whether reentrant calls are rejected.
func (r *Reconciler) Strict() bool {
	return r.strict
}

// Reconcile inserts or updates one object per record identifier in c and
// calls apply for every record. A nil cache selects the simple path, any
// other cache the batch path. Must be called on c's queue.
func Reconcile[R Record](ctx context.Context, r *Reconciler, c *graph.Context, records []R, cache *IdentityCache, apply ApplyFunc[R]) (Result, error) {
	start := time.Now()
	res := Result{Path: PathSimple}
	if cache != nil {
		res.Path = PathBatch
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.RecordID()
		if ids[i] == "" {
			err := fmt.Errorf("record %d of %s: %w", i, r.entity, graph.ErrMissingIdentifier)
			r.finish(&res, start, err)
			return res, err
		}
	}

	inflight := inflightFor(c, r.entity)
	if r.strict && overlaps(inflight, ids) {
		err := fmt.Errorf("%s: %w", r.entity, ErrReentrantReconcile)
		r.finish(&res, start, err)
		return res, err
	}

	var err error
	if cache == nil {
		err = reconcileSimple(ctx, r, c, records, ids, apply, &res)
	} else if err = cache.bind(c); err == nil {
		err = reconcileTracked(inflight, ids, func() error {
			return reconcileBatch(ctx, r, c, records, ids, cache, apply, &res)
		})
	}

	r.finish(&res, start, err)
	return res, err
}

func reconcileSimple[R Record](ctx context.Context, r *Reconciler, c *graph.Context, records []R, ids []string, apply ApplyFunc[R], res *Result) error {
	for i, rec := range records {
		obj, err := c.FetchOne(ctx, r.entity, ids[i])
		res.Queries++
		if err != nil {
			return fmt.Errorf("failed to look up %s %q: %w", r.entity, ids[i], err)
		}

		if obj == nil {
			obj = c.Insert(r.entity)
			obj.SetUID(ids[i])
			res.Created++
		} else {
			res.Updated++
		}

		if err := apply(rec, obj); err != nil {
			return fmt.Errorf("failed to apply %s %q: %w", r.entity, ids[i], err)
		}
		res.Records++
	}
	return nil
}

func reconcileBatch[R Record](ctx context.Context, r *Reconciler, c *graph.Context, records []R, ids []string, cache *IdentityCache, apply ApplyFunc[R], res *Result) error {
	seen := make(map[string]struct{}, len(ids))
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if cache.live(r.entity, id) == nil {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		objects, err := c.Fetch(ctx, store.Query{Entity: r.entity, UIDs: missing})
		res.Queries++
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", r.entity, err)
		}
		for _, obj := range objects {
			cache.add(obj)
		}
	}

	for i, rec := range records {
		obj := cache.live(r.entity, ids[i])
		if obj == nil {
			obj = c.Insert(r.entity)
			obj.SetUID(ids[i])
			cache.add(obj)
			res.Created++
		} else {
			res.Updated++
		}

		if err := apply(rec, obj); err != nil {
			return fmt.Errorf("failed to apply %s %q: %w", r.entity, ids[i], err)
		}
		res.Records++
	}
	return nil
}

func (r *Reconciler) finish(res *Result, start time.Time, err error) {
	res.Elapsed = time.Since(start)

	if r.recorder != nil {
		r.recorder.RecordReconcile(r.entity, string(res.Path), res.Records, res.Created, res.Queries, res.Elapsed, err)
	}

	fields := []zap.Field{
		zap.String("path", string(res.Path)),
		zap.Int("records", res.Records),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("queries", res.Queries),
		zap.Duration("elapsed", res.Elapsed),
	}
	if err != nil {
		r.logger.Warn("Reconciliation aborted", append(fields, zap.Error(err))...)
		return
	}
	r.logger.Debug("Reconciled records", fields...)
}

// reconcileTracked marks ids as in flight for the duration of fn.
func reconcileTracked(inflight map[string]int, ids []string, fn func() error) error {
	track(inflight, ids, 1)
	defer track(inflight, ids, -1)
	return fn()
}

// inflightFor returns the per-entity counts of identifiers held by batch
// calls in flight on c.
func inflightFor(c *graph.Context, entity string) map[string]int {
	info := c.UserInfo()
	all, ok := info[inflightKey].(map[string]map[string]int)
	if !ok {
		all = make(map[string]map[string]int)
		info[inflightKey] = all
	}
	counts, ok := all[entity]
	if !ok {
		counts = make(map[string]int)
		all[entity] = counts
	}
	return counts
}

func overlaps(inflight map[string]int, ids []string) bool {
	if len(inflight) == 0 {
		return false
	}
	for _, id := range ids {
		if inflight[id] > 0 {
			return true
		}
	}
	return false
}

// track adds delta to the count of every distinct identifier.
func track(inflight map[string]int, ids []string, delta int) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if inflight[id] += delta; inflight[id] <= 0 {
			delete(inflight, id)
		}
	}
}
