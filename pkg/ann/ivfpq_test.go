package ann

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusteredVectors(rng *rand.Rand, clusters, perCluster, dim int) ([][]float32, []int64) {
	vectors := make([][]float32, 0, clusters*perCluster)
	ids := make([]int64, 0, clusters*perCluster)
	for c := 0; c < clusters; c++ {
		center := make([]float32, dim)
		for d := range center {
			center[d] = float32(c*10) + rng.Float32()
		}
		for i := 0; i < perCluster; i++ {
			v := make([]float32, dim)
			for d := range v {
				v[d] = center[d] + rng.Float32()*0.1
			}
			vectors = append(vectors, v)
			ids = append(ids, int64(len(ids)))
		}
	}
	return vectors, ids
}

func TestSubspaceCount(t *testing.T) {
	assert.Equal(t, 16, subspaceCount(64, 16))
	assert.Equal(t, 15, subspaceCount(60, 16)) // largest divisor of 60 at or below 16
	assert.Equal(t, 7, subspaceCount(7, 16))   // m capped at dim
	assert.Equal(t, 1, subspaceCount(13, 8))   // prime dim falls back to 1
	assert.Equal(t, 1, subspaceCount(64, 0))
}

func TestBuildIVFPQCapsNList(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	vectors, ids := clusteredVectors(rng, 4, 50, 8)

	x := BuildIVFPQ(vectors, ids, 8, MetricEuclidean, IVFPQParams{NList: 1024, M: 4, NBits: 8})
	// 200 vectors give at most 200/39 = 5 coarse clusters.
	assert.LessOrEqual(t, x.NList(), 5)
	assert.GreaterOrEqual(t, x.NList(), 1)
	assert.Equal(t, 200, x.Len())
}

func TestIVFPQFindsNearCluster(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	vectors, ids := clusteredVectors(rng, 3, 60, 8)
	x := BuildIVFPQ(vectors, ids, 8, MetricEuclidean, IVFPQParams{NList: 16, M: 4, NBits: 8})

	// Query at a cluster center: every returned hit should come from that
	// cluster (ids 60..119 belong to cluster 1).
	query := make([]float32, 8)
	for d := range query {
		query[d] = 10
	}
	got := x.Search(query, 10, x.NList())
	require.Len(t, got, 10)
	for _, r := range got {
		require.GreaterOrEqual(t, r.ID, int64(60))
		require.Less(t, r.ID, int64(120))
	}
}

func TestIVFPQDefaultNProbe(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	vectors, ids := clusteredVectors(rng, 4, 50, 8)
	x := BuildIVFPQ(vectors, ids, 8, MetricEuclidean, IVFPQParams{NList: 16, M: 4, NBits: 8})

	// nprobe <= 0 falls back to the default instead of probing nothing.
	got := x.Search(vectors[0], 5, 0)
	require.Len(t, got, 5)
	assert.NotEqual(t, int64(-1), got[0].ID)
}

func TestIVFPQEmptyIndex(t *testing.T) {
	x := BuildIVFPQ(nil, nil, 8, MetricEuclidean, IVFPQParams{NList: 16, M: 4, NBits: 8})
	assert.Equal(t, 0, x.Len())

	got := x.Search(make([]float32, 8), 3, 0)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.Equal(t, int64(-1), r.ID)
	}
}

func TestIVFPQCosineAgreesWithHNSW(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	vectors, ids := clusteredVectors(rng, 3, 60, 8)

	x := BuildIVFPQ(vectors, ids, 8, MetricCosine, IVFPQParams{NList: 4, M: 4, NBits: 8})
	h := BuildHNSW(vectors, ids, 8, MetricCosine, 16, 100)

	// Both backends report 1 - dot on normalized vectors, so their distances
	// for the same row must agree up to quantization error.
	query := vectors[10]
	pq := x.Search(query, 1, x.NList())
	graph := h.Search(query, 1, 0)
	require.NotEqual(t, int64(-1), pq[0].ID)
	require.NotEqual(t, int64(-1), graph[0].ID)
	assert.InDelta(t, float64(graph[0].Distance), float64(pq[0].Distance), 0.05)
}

func TestIVFPQSaveLoadRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	vectors, ids := clusteredVectors(rng, 3, 60, 8)
	x := BuildIVFPQ(vectors, ids, 8, MetricEuclidean, IVFPQParams{NList: 8, M: 4, NBits: 8})

	var buf bytes.Buffer
	require.NoError(t, x.Save(&buf))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, KindIVFPQ, loaded.Kind())
	require.Equal(t, x.Len(), loaded.Len())

	query := vectors[42]
	assert.Equal(t, x.Search(query, 8, 4), loaded.Search(query, 8, 4))
}

func TestIVFPQSaveLoadEmpty(t *testing.T) {
	x := BuildIVFPQ(nil, nil, 8, MetricCosine, IVFPQParams{NList: 8, M: 4, NBits: 8})

	var buf bytes.Buffer
	require.NoError(t, x.Save(&buf))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())

	got := loaded.Search(make([]float32, 8), 2, 0)
	require.Len(t, got, 2)
	assert.Equal(t, int64(-1), got[0].ID)
}
