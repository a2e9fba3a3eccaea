package cmd

import (
	"context"
	"fmt"

	"graph-store/core/config"
	"graph-store/core/database"
	"graph-store/core/graph"
	"graph-store/core/logger"
	"graph-store/core/metrics"
	"graph-store/core/model"
	"graph-store/core/storage"
	"graph-store/core/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// environment bundles the components every command builds from the configuration.
type environment struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	backend store.Backend
	model   *model.Model
	stack   *graph.Stack
	storage storage.Client
	metrics *metrics.Metrics
}

// bootstrap loads the configuration and wires logger, backend, model, context
// stack and storage. Storage is optional: on failure it is left nil.
func bootstrap(ctx context.Context) (*environment, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Store.IsValidBackend() {
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	env := &environment{cfg: cfg, logger: logg, metrics: metrics.New()}

	env.model, err = model.Load(cfg.Store.ModelPath)
	if err != nil {
		return nil, err
	}

	switch cfg.Store.Backend {
	case store.BackendMemory:
		env.backend = store.NewMemory()
	case store.BackendDatabase:
		env.db, err = database.Connect(cfg.Database, logg)
		if err != nil {
			return nil, err
		}
		g := store.NewGorm(env.db)
		if err := g.Migrate(ctx); err != nil {
			_ = g.Close()
			return nil, err
		}
		env.backend = g
		logg = logg.With(zap.String("driver", cfg.Database.Driver))
		env.logger = logg
	}

	env.stack = graph.NewStack(env.backend,
		graph.WithLogger(logg),
		graph.WithValidator(env.model),
		graph.WithQueueBuffer(cfg.Store.QueueBuffer),
	)

	if client, err := storage.NewClient(cfg.Storage); err != nil {
		logg.Warn("Object storage unavailable", zap.Error(err))
	} else {
		env.storage = client
	}

	logg.Info("Runtime ready",
		zap.String("backend", cfg.Store.Backend),
		zap.Strings("entities", env.model.Names()),
	)
	return env, nil
}

// requireStorage fails when no storage client could be created.
func (env *environment) requireStorage() error {
	if env.storage == nil {
		return fmt.Errorf("object storage is not configured")
	}
	return nil
}

// Close stops the context stack and releases the backend.
func (env *environment) Close() {
	env.stack.Close()
	if err := env.backend.Close(); err != nil {
		env.logger.Warn("Failed to close backend", zap.Error(err))
	}
	_ = env.logger.Sync()
}
