package export

import (
	"context"
	"fmt"
	"sort"

	"graph-store/core/codec"
	"graph-store/core/graph"
	"graph-store/core/logger"
	"graph-store/core/model"
	"graph-store/core/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultParallelism bounds the entities exported at once.
const defaultParallelism = 4

// Snapshot describes one exported entity.
type Snapshot struct {
	Entity string `json:"entity"`
	Object string `json:"object"`
	Count  int    `json:"count"`
	Size   int    `json:"size"`
}

// Service writes entity snapshots to the bucket.
type Service struct {
	stack       *graph.Stack
	model       *model.Model
	client      storage.Client
	bucket      string
	logger      *zap.Logger
	parallelism int
}

// NewService creates a new export service.
func NewService(stack *graph.Stack, m *model.Model, client storage.Client, bucket string, l *zap.Logger) *Service {
	return &Service{
		stack:       stack,
		model:       m,
		client:      client,
		bucket:      bucket,
		logger:      logger.OrNop(l),
		parallelism: defaultParallelism,
	}
}

// Encode returns every object of the entity as a JSON array, read through a
// dedicated background context, along with the object count.
func (s *Service) Encode(ctx context.Context, entity string) ([]byte, int, error) {
	e, err := s.model.Entity(entity)
	if err != nil {
		return nil, 0, err
	}

	c, err := s.stack.NewBackgroundContext()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create export context: %w", err)
	}
	defer c.Dispose()

	var (
		data  []byte
		count int
	)
	err = c.Perform(ctx, func(c *graph.Context) error {
		objects, err := c.FetchAll(ctx, e.Name)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", e.Name, err)
		}
		count = len(objects)
		data, err = codec.EncodeObjects(objects, e)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return data, count, nil
}

// Export snapshots the given entities, or every entity of the model when none
// is given, to exports/<entity>.json. The bucket is created when missing.
// Entities are exported concurrently; the first failure cancels the others.
func (s *Service) Export(ctx context.Context, entities ...string) ([]Snapshot, error) {
	if len(entities) == 0 {
		entities = s.model.Names()
	}
	for _, name := range entities {
		if _, err := s.model.Entity(name); err != nil {
			return nil, err
		}
	}

	if err := storage.EnsureBucket(ctx, s.client, s.bucket, ""); err != nil {
		return nil, err
	}

	snapshots := make([]Snapshot, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, name := range entities {
		g.Go(func() error {
			data, count, err := s.Encode(gctx, name)
			if err != nil {
				return err
			}

			object := storage.ExportPrefix + name + ".json"
			if err := storage.WriteObject(gctx, s.client, s.bucket, object, "application/json", data); err != nil {
				return err
			}

			snapshots[i] = Snapshot{Entity: name, Object: object, Count: count, Size: len(data)}
			s.logger.Info("Entity exported",
				zap.String("entity", name),
				zap.String("object", object),
				zap.Int("count", count),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Entity < snapshots[j].Entity })
	return snapshots, nil
}
