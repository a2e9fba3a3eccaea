package integrity

import (
	"context"
	"errors"
	"time"

	"graph-store/core/model"
	"graph-store/core/storage"
	"graph-store/core/store"
	"graph-store/feature/integrity/checks"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// errStorageDisabled is reported when no object storage is configured.
var errStorageDisabled = errors.New("storage is not configured")

// CheckResult is the outcome of one check within a Report.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// Report combines every check.
type Report struct {
	Structure  CheckResult   `json:"structure"`
	Duplicates CheckResult   `json:"duplicates"`
	Schema     CheckResult   `json:"schema"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Service handles integrity checks.
type Service struct {
	client  storage.Client
	bucket  string
	logger  *zap.Logger
	backend store.Backend
	db      *gorm.DB
	model   *model.Model

	group singleflight.Group
}

// NewService creates a new integrity service. client and db may be nil;
// the checks needing them then report an error.
func NewService(client storage.Client, bucket string, logger *zap.Logger, backend store.Backend, db *gorm.DB, m *model.Model) *Service {
	return &Service{
		client:  client,
		bucket:  bucket,
		logger:  logger,
		backend: backend,
		db:      db,
		model:   m,
	}
}

// CheckStructure returns the required bucket folders that are missing.
func (s *Service) CheckStructure(ctx context.Context) ([]string, error) {
	if s.client == nil {
		return nil, errStorageDisabled
	}
	return checks.CheckStructure(ctx, s.client, s.bucket)
}

// FixStructure creates the missing folders.
func (s *Service) FixStructure(ctx context.Context, missing []string) error {
	if s.client == nil {
		return errStorageDisabled
	}
	return checks.FixStructure(ctx, s.client, s.bucket, s.logger, missing)
}

// CheckDuplicates scans the given entities, or every entity of the model,
// for identifiers stored more than once.
func (s *Service) CheckDuplicates(ctx context.Context, entities ...string) (*checks.DuplicateReport, error) {
	if len(entities) == 0 {
		entities = s.model.Names()
	}
	for _, name := range entities {
		if _, err := s.model.Entity(name); err != nil {
			return nil, err
		}
	}
	return checks.CheckDuplicates(ctx, s.backend, entities)
}

// CheckSchema verifies the objects table of the database backend.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db)
}

// Run performs every check. Concurrent callers share one run.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	v, err, shared := s.group.Do("all", func() (any, error) {
		return s.run(ctx), nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Joined running integrity check")
	}
	return v.(*Report), nil
}

func (s *Service) run(ctx context.Context) *Report {
	start := time.Now()
	report := &Report{}

	if missing, err := s.CheckStructure(ctx); err != nil {
		report.Structure = failed(err)
	} else {
		report.Structure = passed(len(missing) == 0, missing)
	}

	if dup, err := s.CheckDuplicates(ctx); err != nil {
		report.Duplicates = failed(err)
	} else {
		report.Duplicates = passed(dup.Clean, dup)
	}

	if schema, err := s.CheckSchema(); err != nil {
		report.Schema = failed(err)
	} else {
		report.Schema = passed(schema.Matched, schema)
	}

	report.Elapsed = time.Since(start)
	s.logger.Info("Integrity check completed",
		zap.String("structure", report.Structure.Status),
		zap.String("duplicates", report.Duplicates.Status),
		zap.String("schema", report.Schema.Status),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report
}

func passed(ok bool, data any) CheckResult {
	if ok {
		return CheckResult{Status: "ok", Data: data}
	}
	return CheckResult{Status: "issues", Data: data}
}

func failed(err error) CheckResult {
	return CheckResult{Status: "error", Error: err.Error()}
}
