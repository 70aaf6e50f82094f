// Package ann provides the approximate-nearest-neighbor backends: an HNSW
// graph for small and mid-size indexes and an IVF-PQ inverted file for large
// ones. Both speak the same contract so callers never branch on the kind:
// squared L2 internally, cosine reported as 1 - dot over normalized vectors,
// ties broken by ascending id, short result sets padded with id -1.
package ann

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/klauspost/compress/zstd"
)

// Metric selects the distance function
type Metric int

const (
	MetricCosine Metric = iota
	MetricEuclidean
)

// Kind identifies a concrete backend implementation
type Kind string

const (
	KindHNSW  Kind = "hnsw"
	KindIVFPQ Kind = "ivfpq"
)

// Result is one search hit. A padded slot has ID -1 and zero distance.
type Result struct {
	ID       int64
	Distance float32
}

// Backend is the uniform search contract both implementations satisfy
type Backend interface {
	Kind() Kind
	Len() int
	// Search returns exactly topK results ordered by ascending
	// (distance, id), padded with id -1 when fewer exist. nprobe is only
	// meaningful for IVF-PQ; the graph backend ignores it.
	Search(query []float32, topK, nprobe int) []Result
	// Save writes the zstd-framed binary serialization
	Save(w io.Writer) error
}

const (
	hnswMagic  uint32 = 0x48_4E_53_57 // "HNSW"
	ivfpqMagic uint32 = 0x49_56_50_51 // "IVPQ"
	formatV1   uint32 = 1
)

// ChooseKind resolves the hybrid policy for a build of n vectors. Low
// dimensionality quarters the threshold because the graph stays cheap far
// longer there.
func ChooseKind(n, dim, threshold int) Kind {
	t := threshold
	if dim < 32 {
		t = t / 4
		if t < 1 {
			t = 1
		}
	}
	if n >= t {
		return KindIVFPQ
	}
	return KindHNSW
}

// Load reads a serialized backend, dispatching on the embedded magic
func Load(r io.Reader) (Backend, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open index frame: %w", err)
	}
	defer dec.Close()

	br := newBinReader(bufio.NewReader(dec))
	magic := br.u32()
	version := br.u32()
	if br.err != nil {
		return nil, fmt.Errorf("read index header: %w", br.err)
	}
	if version != formatV1 {
		return nil, fmt.Errorf("unsupported index format version %d", version)
	}
	switch magic {
	case hnswMagic:
		return loadHNSW(br)
	case ivfpqMagic:
		return loadIVFPQ(br)
	}
	return nil, fmt.Errorf("unknown index magic %08x", magic)
}

// saveFramed runs body inside a zstd frame with the common header
func saveFramed(w io.Writer, magic uint32, body func(*binWriter)) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("open index frame: %w", err)
	}
	bw := newBinWriter(enc)
	bw.u32(magic)
	bw.u32(formatV1)
	body(bw)
	if bw.err != nil {
		enc.Close()
		return fmt.Errorf("write index: %w", bw.err)
	}
	if err := bw.flush(); err != nil {
		enc.Close()
		return fmt.Errorf("flush index: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close index frame: %w", err)
	}
	return nil
}

// normalize returns a unit-length copy. Zero vectors come back unchanged so
// they remain searchable rather than NaN-poisoned.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func sqL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// finalize sorts hits by (distance, id), converts the internal squared L2
// to the reported metric, and pads to topK. On normalized vectors
// sqL2/2 == 1 - dot, which is the cosine distance both backends report.
func finalize(hits []Result, topK int, metric Metric) []Result {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	if metric == MetricCosine {
		for i := range hits {
			hits[i].Distance /= 2
		}
	}
	for len(hits) < topK {
		hits = append(hits, Result{ID: -1})
	}
	return hits
}

func searchEf(topK int) int {
	ef := 2 * topK
	if ef < 32 {
		ef = 32
	}
	return ef
}
