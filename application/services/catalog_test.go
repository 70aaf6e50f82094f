package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"s3vectors/domain/core/entities"
	"s3vectors/domain/core/validators"
	"s3vectors/domain/core/valueobjects"
	"s3vectors/infrastructure/config"
	"s3vectors/infrastructure/persistence/memory"
	"s3vectors/infrastructure/persistence/s3"
	"s3vectors/pkg/cache"
	apperrors "s3vectors/pkg/errors"
)

// testStack wires the services over the in-memory store
type testStack struct {
	store   *memory.Store
	catalog *CatalogService
	builder *BuilderService
	ingest  *IngestService
	query   *QueryService
	cfg     *config.Config
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	return newTestStackWithConfig(t, &config.Config{
		SliceFormat:           config.SliceFormatParquet,
		HybridThreshold:       100000,
		IVFPQNList:            64,
		IVFPQM:                4,
		IVFPQNBits:            8,
		HNSWM:                 8,
		HNSWEfConstruction:    64,
		BuilderLockTTLSeconds: 60,
	})
}

func newTestStackWithConfig(t *testing.T, cfg *config.Config) *testStack {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	backends, err := cache.NewBackendCache(8)
	require.NoError(t, err)

	limits := validators.DefaultLimits()
	catalog := NewCatalogService(store, backends, limits, logger)
	builder := NewBuilderService(store, s3.NewLeaseManager(store, logger), cfg, logger)
	ingest := NewIngestService(store, builder, catalog, cfg, limits, logger)
	query := NewQueryService(store, catalog, backends, limits, logger)

	return &testStack{store: store, catalog: catalog, builder: builder, ingest: ingest, query: query, cfg: cfg}
}

func (ts *testStack) createIndex(t *testing.T, bucket, index string, dim int, metric valueobjects.DistanceMetric) {
	t.Helper()
	ctx := context.Background()
	_, err := ts.catalog.CreateBucket(ctx, bucket)
	require.NoError(t, err)
	_, err = ts.catalog.CreateIndex(ctx, bucket, entities.IndexConfig{
		IndexName:      index,
		Dimension:      dim,
		DistanceMetric: metric,
	})
	require.NoError(t, err)
}

func TestCreateBucketIsIdempotent(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	first, err := ts.catalog.CreateBucket(ctx, "music")
	require.NoError(t, err)
	assert.Equal(t, "music", first.Name)
	assert.NotEmpty(t, first.Created)

	second, err := ts.catalog.CreateBucket(ctx, "music")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCreateBucketRejectsInvalidName(t *testing.T) {
	ts := newTestStack(t)
	_, err := ts.catalog.CreateBucket(context.Background(), "Bad_Name")
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetBucketNotFound(t *testing.T) {
	ts := newTestStack(t)
	_, err := ts.catalog.GetBucket(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListBucketsPrefixAndPagination(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()
	for _, name := range []string{"music-a", "music-b", "music-c", "photos"} {
		_, err := ts.catalog.CreateBucket(ctx, name)
		require.NoError(t, err)
	}

	names, token, err := ts.catalog.ListBuckets(ctx, "music-", 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"music-a", "music-b"}, names)
	assert.Equal(t, "music-b", token)

	names, token, err = ts.catalog.ListBuckets(ctx, "music-", 2, token)
	require.NoError(t, err)
	assert.Equal(t, []string{"music-c"}, names)
	assert.Equal(t, "", token)
}

func TestDeleteBucketSweepsContentsAndListing(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()
	ts.createIndex(t, "music", "songs", 2, valueobjects.MetricCosine)

	require.NoError(t, ts.catalog.DeleteBucket(ctx, "music"))

	_, err := ts.catalog.GetBucket(ctx, "music")
	assert.True(t, apperrors.IsNotFound(err))

	names, _, err := ts.catalog.ListBuckets(ctx, "", 0, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	// Deleting again reports the absence.
	err = ts.catalog.DeleteBucket(ctx, "music")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateIndexDefaultsAndIdempotency(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()
	_, err := ts.catalog.CreateBucket(ctx, "music")
	require.NoError(t, err)

	cfg, err := ts.catalog.CreateIndex(ctx, "music", entities.IndexConfig{
		IndexName:      "songs",
		Dimension:      128,
		DistanceMetric: valueobjects.MetricCosine,
	})
	require.NoError(t, err)
	assert.Equal(t, valueobjects.DataTypeFloat32, cfg.DataType)
	assert.Equal(t, valueobjects.AlgorithmHybrid, cfg.Algorithm)
	assert.NotEmpty(t, cfg.Created)

	// Same parameters: idempotent, original creation time preserved.
	again, err := ts.catalog.CreateIndex(ctx, "music", entities.IndexConfig{
		IndexName:      "songs",
		Dimension:      128,
		DistanceMetric: valueobjects.MetricCosine,
	})
	require.NoError(t, err)
	assert.Equal(t, cfg.Created, again.Created)

	// Different dimension: conflict.
	_, err = ts.catalog.CreateIndex(ctx, "music", entities.IndexConfig{
		IndexName:      "songs",
		Dimension:      64,
		DistanceMetric: valueobjects.MetricCosine,
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateIndexValidation(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()
	_, err := ts.catalog.CreateBucket(ctx, "music")
	require.NoError(t, err)

	_, err = ts.catalog.CreateIndex(ctx, "music", entities.IndexConfig{
		IndexName: "songs", Dimension: 0, DistanceMetric: valueobjects.MetricCosine,
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = ts.catalog.CreateIndex(ctx, "music", entities.IndexConfig{
		IndexName: "songs", Dimension: 8, DistanceMetric: "manhattan",
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = ts.catalog.CreateIndex(ctx, "nope", entities.IndexConfig{
		IndexName: "songs", Dimension: 8, DistanceMetric: valueobjects.MetricCosine,
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListIndexesPagination(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()
	_, err := ts.catalog.CreateBucket(ctx, "music")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = ts.catalog.CreateIndex(ctx, "music", entities.IndexConfig{
			IndexName:      fmt.Sprintf("idx-%d", i),
			Dimension:      4,
			DistanceMetric: valueobjects.MetricEuclidean,
		})
		require.NoError(t, err)
	}

	names, token, err := ts.catalog.ListIndexes(ctx, "music", "", 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"idx-0", "idx-1"}, names)
	assert.Equal(t, "idx-1", token)

	names, token, err = ts.catalog.ListIndexes(ctx, "music", "", 2, token)
	require.NoError(t, err)
	assert.Equal(t, []string{"idx-2"}, names)
	assert.Equal(t, "", token)
}

func TestDeleteIndexSweepsDurableStateAndStaged(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()
	ts.createIndex(t, "music", "songs", 2, valueobjects.MetricCosine)

	err := ts.ingest.PutVectors(ctx, "music", "songs", []entities.PutVector{
		{Key: "a", Data: entities.VectorData{Float32: []float32{1, 0}}},
	})
	require.NoError(t, err)

	require.NoError(t, ts.catalog.DeleteIndex(ctx, "music", "songs"))

	_, err = ts.catalog.GetIndex(ctx, "music", "songs")
	assert.True(t, apperrors.IsNotFound(err))

	keys, err := ts.store.ListPrefix(ctx, "music", valueobjects.IndexPrefix("songs"))
	require.NoError(t, err)
	assert.Empty(t, keys)
	keys, err = ts.store.ListPrefix(ctx, "music", valueobjects.StagedPrefix("songs"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}
