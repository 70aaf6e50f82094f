package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"s3vectors/application/commands"
	"s3vectors/application/commands/bus"
	commandhandlers "s3vectors/application/commands/handlers"
	"s3vectors/application/queries"
	querybus "s3vectors/application/queries/bus"
	queryhandlers "s3vectors/application/queries/handlers"
	"s3vectors/application/services"
	"s3vectors/domain/core/validators"
	"s3vectors/infrastructure/config"
	"s3vectors/infrastructure/persistence/memory"
	"s3vectors/infrastructure/persistence/s3"
	"s3vectors/pkg/cache"
	"s3vectors/pkg/common"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	cfg := &config.Config{
		SliceFormat:           config.SliceFormatParquet,
		HybridThreshold:       100000,
		IVFPQNList:            64,
		IVFPQM:                4,
		IVFPQNBits:            8,
		HNSWM:                 8,
		HNSWEfConstruction:    64,
		BuilderLockTTLSeconds: 60,
	}
	store := memory.NewStore()
	backends, err := cache.NewBackendCache(8)
	require.NoError(t, err)

	limits := validators.DefaultLimits()
	catalog := services.NewCatalogService(store, backends, limits, logger)
	builder := services.NewBuilderService(store, s3.NewLeaseManager(store, logger), cfg, logger)
	ingest := services.NewIngestService(store, builder, catalog, cfg, limits, logger)
	query := services.NewQueryService(store, catalog, backends, limits, logger)

	commandBus := bus.NewCommandBus()
	require.NoError(t, commandBus.Register(commands.CreateVectorBucketCommand{}, commandhandlers.NewCreateVectorBucketHandler(catalog)))
	require.NoError(t, commandBus.Register(commands.DeleteVectorBucketCommand{}, commandhandlers.NewDeleteVectorBucketHandler(catalog)))
	require.NoError(t, commandBus.Register(commands.CreateIndexCommand{}, commandhandlers.NewCreateIndexHandler(catalog)))
	require.NoError(t, commandBus.Register(commands.DeleteIndexCommand{}, commandhandlers.NewDeleteIndexHandler(catalog)))
	require.NoError(t, commandBus.Register(commands.PutVectorsCommand{}, commandhandlers.NewPutVectorsHandler(ingest)))
	require.NoError(t, commandBus.Register(commands.DeleteVectorsCommand{}, commandhandlers.NewDeleteVectorsHandler(ingest)))
	require.NoError(t, commandBus.Register(commands.BuildIndexCommand{}, commandhandlers.NewBuildIndexHandler(builder)))

	queryBus := querybus.NewQueryBus()
	require.NoError(t, queryBus.Register(queries.GetVectorBucketQuery{}, queryhandlers.NewGetVectorBucketHandler(catalog)))
	require.NoError(t, queryBus.Register(queries.ListVectorBucketsQuery{}, queryhandlers.NewListVectorBucketsHandler(catalog)))
	require.NoError(t, queryBus.Register(queries.GetIndexQuery{}, queryhandlers.NewGetIndexHandler(catalog)))
	require.NoError(t, queryBus.Register(queries.ListIndexesQuery{}, queryhandlers.NewListIndexesHandler(catalog)))
	require.NoError(t, queryBus.Register(queries.GetVectorsQuery{}, queryhandlers.NewGetVectorsHandler(query)))
	require.NoError(t, queryBus.Register(queries.ListVectorsQuery{}, queryhandlers.NewListVectorsHandler(query)))
	require.NoError(t, queryBus.Register(queries.QueryVectorsQuery{}, queryhandlers.NewQueryVectorsHandler(query)))

	return NewRouter(commandBus, queryBus, logger).Setup()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestBucketLifecycleNativeSurface(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPut, "/buckets/music", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/buckets/music", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got queries.GetVectorBucketResult
	decodeInto(t, rec, &got)
	assert.Equal(t, "music", got.VectorBucket.VectorBucketName)
	assert.Equal(t, "arn:aws:s3vectors:::bucket/music", got.VectorBucket.VectorBucketArn)
	assert.NotEmpty(t, got.VectorBucket.CreationTime)

	rec = do(t, h, http.MethodGet, "/buckets/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed queries.ListVectorBucketsResult
	decodeInto(t, rec, &listed)
	require.Len(t, listed.VectorBuckets, 1)

	rec = do(t, h, http.MethodDelete, "/buckets/music", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/buckets/music", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorEnvelope(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/buckets/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var envelope common.AWSErrorEnvelope
	decodeInto(t, rec, &envelope)
	assert.Equal(t, "NotFoundException", envelope.Error.Code)
	assert.Contains(t, envelope.Error.Message, "missing")
}

func TestIndexLifecycleNativeSurface(t *testing.T) {
	h := newTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/buckets/music", nil).Code)

	rec := do(t, h, http.MethodPost, "/buckets/music/indexes/songs", map[string]interface{}{
		"dimension":      2,
		"distanceMetric": "cosine",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/buckets/music/indexes/songs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got queries.GetIndexResult
	decodeInto(t, rec, &got)
	assert.Equal(t, "songs", got.Index.IndexName)
	assert.Equal(t, "arn:aws:s3vectors:::index/music/songs", got.Index.IndexArn)
	assert.Equal(t, 2, got.Index.Dimension)

	rec = do(t, h, http.MethodGet, "/buckets/music/indexes/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed queries.ListIndexesResult
	decodeInto(t, rec, &listed)
	require.Len(t, listed.Indexes, 1)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/buckets/music/indexes/songs", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/buckets/music/indexes/songs", nil).Code)
}

func TestVectorDataPlaneNativeSurface(t *testing.T) {
	h := newTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/buckets/music", nil).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/buckets/music/indexes/songs", map[string]interface{}{
		"dimension": 2, "distanceMetric": "cosine",
	}).Code)

	rec := do(t, h, http.MethodPost, "/buckets/music/indexes/songs/vectors", map[string]interface{}{
		"vectors": []map[string]interface{}{
			{"key": "east", "data": map[string]interface{}{"float32": []float32{1, 0}}, "metadata": map[string]interface{}{"genre": "jazz"}},
			{"key": "north", "data": map[string]interface{}{"float32": []float32{0, 1}}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/buckets/music/indexes/songs/query", map[string]interface{}{
		"queryVector":    map[string]interface{}{"float32": []float32{1, 0}},
		"topK":           1,
		"returnDistance": true,
		"returnMetadata": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var queried queries.QueryVectorsResult
	decodeInto(t, rec, &queried)
	require.Len(t, queried.Vectors, 1)
	assert.Equal(t, "east", queried.Vectors[0].Key)
	require.NotNil(t, queried.Vectors[0].Distance)
	assert.InDelta(t, 0.0, float64(*queried.Vectors[0].Distance), 1e-5)
	assert.Equal(t, "jazz", queried.Vectors[0].Metadata["genre"])

	rec = do(t, h, http.MethodPost, "/buckets/music/indexes/songs/vectors:get", map[string]interface{}{
		"keys": []string{"north"}, "returnData": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var got queries.GetVectorsResult
	decodeInto(t, rec, &got)
	require.Len(t, got.Vectors, 1)
	assert.Equal(t, []float32{0, 1}, got.Vectors[0].Data.Float32)

	rec = do(t, h, http.MethodPost, "/buckets/music/indexes/songs/vectors:list", map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code)
	var listed queries.ListVectorsResult
	decodeInto(t, rec, &listed)
	assert.Len(t, listed.Vectors, 2)

	rec = do(t, h, http.MethodPost, "/buckets/music/indexes/songs/vectors:delete", map[string]interface{}{
		"keys": []string{"east"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/buckets/music/indexes/songs/vectors:list", map[string]interface{}{})
	decodeInto(t, rec, &listed)
	assert.Len(t, listed.Vectors, 1)
}

func TestActionSurface(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/CreateVectorBucket", map[string]interface{}{
		"vectorBucketName": "music",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{}`, rec.Body.String())

	// Pascal-cased coordinates bind through the case-insensitive decoder.
	rec = do(t, h, http.MethodPost, "/GetVectorBucket", map[string]interface{}{
		"VectorBucketName": "music",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got queries.GetVectorBucketResult
	decodeInto(t, rec, &got)
	assert.Equal(t, "music", got.VectorBucket.VectorBucketName)

	rec = do(t, h, http.MethodPost, "/CreateIndex", map[string]interface{}{
		"vectorBucketArn": "arn:aws:s3vectors:::bucket/music",
		"indexName":       "songs",
		"dimension":       2,
		"distanceMetric":  "euclidean",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/PutVectors", map[string]interface{}{
		"indexArn": "arn:aws:s3vectors:::index/music/songs",
		"vectors": []map[string]interface{}{
			{"key": "a", "data": map[string]interface{}{"float32": []float32{3, 4}}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/QueryVectors", map[string]interface{}{
		"indexArn":       "arn:aws:s3vectors:::index/music/songs",
		"queryVector":    map[string]interface{}{"float32": []float32{3, 4}},
		"topK":           1,
		"returnDistance": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var queried queries.QueryVectorsResult
	decodeInto(t, rec, &queried)
	require.Len(t, queried.Vectors, 1)
	assert.Equal(t, "a", queried.Vectors[0].Key)

	rec = do(t, h, http.MethodPost, "/ListIndexes", map[string]interface{}{
		"vectorBucketName": "music",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var indexes queries.ListIndexesResult
	decodeInto(t, rec, &indexes)
	require.Len(t, indexes.Indexes, 1)
	assert.Equal(t, "songs", indexes.Indexes[0].IndexName)
}

func TestActionSurfaceErrors(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/FlyToTheMoon", map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope common.AWSErrorEnvelope
	decodeInto(t, rec, &envelope)
	assert.Equal(t, "UnknownOperationException", envelope.Error.Code)

	// Structural validation happens before any handler runs.
	rec = do(t, h, http.MethodPost, "/CreateIndex", map[string]interface{}{
		"vectorBucketName": "music",
		"indexName":        "songs",
		"distanceMetric":   "cosine",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decodeInto(t, rec, &envelope)
	assert.Equal(t, "ValidationException", envelope.Error.Code)
	assert.Contains(t, envelope.Error.Message, "dimension")

	rec = do(t, h, http.MethodPost, "/GetVectorBucket", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActionSurfaceBatchLimit(t *testing.T) {
	h := newTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/CreateVectorBucket", map[string]interface{}{
		"vectorBucketName": "music",
	}).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/CreateIndex", map[string]interface{}{
		"vectorBucketName": "music", "indexName": "songs", "dimension": 2, "distanceMetric": "cosine",
	}).Code)

	batch := make([]map[string]interface{}, 501)
	for i := range batch {
		batch[i] = map[string]interface{}{
			"key":  fmt.Sprintf("k%d", i),
			"data": map[string]interface{}{"float32": []float32{1, 0}},
		}
	}
	rec := do(t, h, http.MethodPost, "/PutVectors", map[string]interface{}{
		"vectorBucketName": "music", "indexName": "songs", "vectors": batch,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope common.AWSErrorEnvelope
	decodeInto(t, rec, &envelope)
	assert.Equal(t, "ValidationException", envelope.Error.Code)
}
