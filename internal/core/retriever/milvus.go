package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"school-api/config"
	"school-api/pkg/logger"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	fieldID        = "id"
	fieldEmbedding = "embedding"

	searchTimeout = 2 * time.Second
)

// Store keeps one embedding per teacher profile in a Milvus collection.
type Store struct {
	cli        milvusclient.Client
	collection string
	dim        int
	hnsw       config.IndexHNSWConfig
}

func NewStore(ctx context.Context, cfg config.MilvusConfig) (*Store, error) {
	cli, err := milvusclient.NewClient(ctx, milvusclient.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("%v: connect %s: %w", config.ModuleMilvus, cfg.Address, err)
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "teacher_profiles"
	}
	return &Store{cli: cli, collection: collection, dim: cfg.Dim, hnsw: cfg.IndexHNSWConfig}, nil
}

// ConnectWithRetry retries NewStore; Milvus can take tens of seconds to boot.
func ConnectWithRetry(ctx context.Context, cfg config.MilvusConfig, attempts int, perAttemptTimeout, delay time.Duration) (*Store, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, perAttemptTimeout)
		store, err := NewStore(attemptCtx, cfg)
		cancel()
		if err == nil {
			return store, nil
		}
		lastErr = err
		logger.Warn("%v: connect attempt %d/%d failed: %v", config.ModuleMilvus, i+1, attempts, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func (s *Store) Close() error {
	return s.cli.Close()
}

// Ping checks that Milvus answers a metadata call.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.cli.HasCollection(ctx, s.collection)
	return err
}

// EnsureCollection creates the collection and its HNSW index when missing, then loads it.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.cli.HasCollection(ctx, s.collection)
	if err != nil {
		return err
	}
	if !exists {
		schema := milvusentity.NewSchema().WithName(s.collection).WithDescription("teacher profile embeddings")
		schema.WithField(milvusentity.NewField().WithName(fieldID).WithDataType(milvusentity.FieldTypeInt64).WithIsPrimaryKey(true))
		schema.WithField(milvusentity.NewField().WithName(fieldEmbedding).WithDataType(milvusentity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.cli.CreateCollection(ctx, schema, 2); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}

		idx, err := milvusentity.NewIndexHNSW(s.metricType(), s.hnsw.M, s.hnsw.EfConstruction)
		if err != nil {
			return err
		}
		if err := s.cli.CreateIndex(ctx, s.collection, fieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
		logger.Info("%v: created collection %s (dim %d)", config.ModuleMilvus, s.collection, s.dim)
	}
	return s.cli.LoadCollection(ctx, s.collection, false)
}

// Upsert writes vectors keyed by profile id.
func (s *Store) Upsert(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("upsert: %d ids for %d vectors", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v) != s.dim {
			return fmt.Errorf("upsert: vector dim %d, collection dim %d", len(v), s.dim)
		}
	}
	colID := milvusentity.NewColumnInt64(fieldID, ids)
	colVec := milvusentity.NewColumnFloatVector(fieldEmbedding, s.dim, vectors)
	_, err := s.cli.Upsert(ctx, s.collection, "", colID, colVec)
	return err
}

func (s *Store) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.cli.Delete(ctx, s.collection, "", idExpr(ids))
}

// Search returns up to topK profile ids closest to query.
func (s *Store) Search(ctx context.Context, query []float32, topK int) ([]Hit, error) {
	if len(query) == 0 {
		return []Hit{}, nil
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, searchTimeout)
		defer cancel()
	}

	ef := max(s.hnsw.Ef, topK)
	searchParam, err := milvusentity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := s.cli.Search(
		ctx,
		s.collection,
		nil,
		"",
		[]string{fieldID},
		[]milvusentity.Vector{milvusentity.FloatVector(query)},
		fieldEmbedding,
		s.metricType(),
		topK,
		searchParam,
	)
	if err != nil {
		logger.Error(err, "%v: milvus search failed", config.ModuleRetriever)
		return nil, err
	}
	logger.Debug("%v: milvus search done in %dms", config.ModuleRetriever, time.Since(start).Milliseconds())

	if len(results) == 0 {
		return []Hit{}, nil
	}
	res := results[0]
	ids, ok := res.IDs.(*milvusentity.ColumnInt64)
	if !ok {
		return nil, fmt.Errorf("unexpected id column type %T", res.IDs)
	}

	hits := make([]Hit, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		hits = append(hits, Hit{ProfileID: ids.Data()[i], Score: res.Scores[i]})
	}
	return hits, nil
}

func (s *Store) metricType() milvusentity.MetricType {
	if s.hnsw.MetricType == "" {
		return milvusentity.COSINE
	}
	return milvusentity.MetricType(s.hnsw.MetricType)
}

func idExpr(ids []int64) string {
	var b strings.Builder
	b.WriteString(fieldID)
	b.WriteString(" in [")
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", id)
	}
	b.WriteByte(']')
	return b.String()
}
