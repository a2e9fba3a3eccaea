package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"graph-store/core/codec"
	"graph-store/core/graph"
	"graph-store/core/logger"
	"graph-store/core/model"
	"graph-store/core/reconcile"
	"graph-store/core/storage"

	"go.uber.org/zap"
)

// Mode selects the reconciliation path of an import.
type Mode string

const (
	// ModeAuto picks the batch path from the threshold upwards.
	ModeAuto   Mode = "auto"
	ModeSimple Mode = "simple"
	ModeBatch  Mode = "batch"
)

// ErrInvalidMode is returned for unknown modes.
var ErrInvalidMode = errors.New("invalid import mode")

// ParseMode parses a mode name. The empty string is ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeSimple:
		return ModeSimple, nil
	case ModeBatch:
		return ModeBatch, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// SaveRecorder receives the outcome of every import save.
type SaveRecorder interface {
	RecordSave(err error)
}

// Report summarizes one import.
type Report struct {
	Entity string           `json:"entity"`
	Mode   Mode             `json:"mode"`
	Result reconcile.Result `json:"result"`
	// Elapsed covers decoding, reconciliation and the save.
	Elapsed time.Duration `json:"elapsed"`
}

// Service imports records into the context stack.
type Service struct {
	stack     *graph.Stack
	model     *model.Model
	client    storage.Client
	bucket    string
	logger    *zap.Logger
	threshold int
	strict    bool
	recorder  reconcile.Recorder
	saves     SaveRecorder
}

// Option configures a Service.
type Option func(*Service)

// WithThreshold sets the record count from which ModeAuto uses the batch path.
func WithThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithStrict rejects reentrant reconciliations.
func WithStrict() Option {
	return func(s *Service) {
		s.strict = true
	}
}

// WithRecorder reports every reconciliation to rec.
func WithRecorder(rec reconcile.Recorder) Option {
	return func(s *Service) {
		s.recorder = rec
	}
}

// WithSaveRecorder reports every save to rec.
func WithSaveRecorder(rec SaveRecorder) Option {
	return func(s *Service) {
		s.saves = rec
	}
}

// NewService creates a new import service. client may be nil when imports
// from the bucket are not needed.
func NewService(stack *graph.Stack, m *model.Model, client storage.Client, bucket string, l *zap.Logger, opts ...Option) *Service {
	s := &Service{
		stack:     stack,
		model:     m,
		client:    client,
		bucket:    bucket,
		logger:    logger.OrNop(l),
		threshold: 10000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns the batch threshold of ModeAuto.
func (s *Service) Threshold() int {
	return s.threshold
}

// Import decodes a JSON array of records of the entity, reconciles them in a
// background context and saves that context down to the backend.
func (s *Service) Import(ctx context.Context, entity string, data []byte, mode Mode) (*Report, error) {
	start := time.Now()

	e, err := s.model.Entity(entity)
	if err != nil {
		return nil, err
	}
	records, err := codec.DecodeRecords(data, e)
	if err != nil {
		return nil, err
	}

	if mode == ModeAuto {
		mode = ModeSimple
		if len(records) >= s.threshold {
			mode = ModeBatch
		}
	}
	var cache *reconcile.IdentityCache
	if mode == ModeBatch {
		cache = reconcile.NewIdentityCache()
	}

	c, err := s.stack.NewBackgroundContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create import context: %w", err)
	}
	defer c.Dispose()

	r := reconcile.New(e.Name, s.reconcilerOptions()...)
	report := &Report{Entity: e.Name, Mode: mode}

	err = c.Perform(ctx, func(c *graph.Context) error {
		res, err := reconcile.Reconcile(ctx, r, c, records, cache, codec.Apply)
		report.Result = res
		if err != nil {
			return err
		}

		err = c.Save(ctx)
		if s.saves != nil {
			s.saves.RecordSave(err)
		}
		if err != nil {
			return fmt.Errorf("failed to save %s import: %w", e.Name, err)
		}
		return nil
	})
	report.Elapsed = time.Since(start)
	if err != nil {
		return report, err
	}

	s.logger.Info("Import completed",
		zap.String("entity", e.Name),
		zap.String("mode", string(mode)),
		zap.Int("records", report.Result.Records),
		zap.Int("created", report.Result.Created),
		zap.Int("updated", report.Result.Updated),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// ImportObject imports the records stored in the bucket under name. Names
// without a folder are looked up in imports/.
func (s *Service) ImportObject(ctx context.Context, entity, name string, mode Mode) (*Report, error) {
	if s.client == nil {
		return nil, errors.New("storage is not configured")
	}
	if !strings.Contains(name, "/") {
		name = storage.ImportPrefix + name
	}

	data, err := storage.ReadObject(ctx, s.client, s.bucket, name)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, entity, data, mode)
}

// Lookup returns the flat representation of the object holding uid, as seen
// by the main context. It fails with graph.ErrObjectNotFound when there is none.
func (s *Service) Lookup(ctx context.Context, entity, uid string) (map[string]any, error) {
	e, err := s.model.Entity(entity)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	err = s.stack.Main().Perform(ctx, func(c *graph.Context) error {
		obj, err := c.FetchOne(ctx, e.Name, uid)
		if err != nil {
			return err
		}
		if obj == nil {
			return fmt.Errorf("%s %q: %w", e.Name, uid, graph.ErrObjectNotFound)
		}
		out = codec.Project(obj, e)
		out["_ref"] = obj.ID().URI()
		return nil
	})
	return out, err
}

func (s *Service) reconcilerOptions() []reconcile.Option {
	opts := []reconcile.Option{reconcile.WithLogger(s.logger)}
	if s.recorder != nil {
		opts = append(opts, reconcile.WithRecorder(s.recorder))
	}
	if s.strict {
		opts = append(opts, reconcile.WithStrict())
	}
	return opts
}
