package ann

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
)

// DefaultNProbe is the probe count used when a query does not override it
const DefaultNProbe = 8

const kmeansIters = 25

// IVFPQParams are the training parameters of an IVF-PQ build
type IVFPQParams struct {
	NList int // coarse cluster count before the n/39 cap
	M     int // product quantizer subspaces before divisor adjustment
	NBits int // bits per subspace code
}

type listEntry struct {
	id   int64
	code []byte
}

// IVFPQ is an inverted-file index with product quantization. Vectors are
// assigned to a coarse centroid and their residual is encoded as msub
// one-byte codes; search probes the nprobe closest lists with asymmetric
// distance tables.
type IVFPQ struct {
	metric    Metric
	dim       int
	nlist     int
	msub      int
	ksub      int
	nbits     int
	dsub      int
	count     int
	centroids [][]float32
	codebooks [][][]float32 // [msub][ksub][dsub]
	lists     [][]listEntry
}

// BuildIVFPQ trains a quantizer over the vectors and encodes every row.
// The coarse cluster count is capped at n/39 so each list trains on enough
// points, and the subspace count is lowered to the nearest divisor of the
// dimension.
func BuildIVFPQ(vectors [][]float32, ids []int64, dim int, metric Metric, params IVFPQParams) *IVFPQ {
	n := len(vectors)
	data := make([][]float32, n)
	for i, v := range vectors {
		if metric == MetricCosine {
			data[i] = normalize(v)
		} else {
			data[i] = append([]float32(nil), v...)
		}
	}

	nlist := params.NList
	if limit := n / 39; nlist > limit {
		nlist = limit
	}
	if nlist < 1 {
		nlist = 1
	}

	msub := subspaceCount(dim, params.M)
	nbits := params.NBits
	if nbits < 1 || nbits > 8 {
		nbits = 8
	}
	ksub := 1 << nbits
	if ksub > n && n > 0 {
		ksub = n
	}

	idx := &IVFPQ{
		metric: metric,
		dim:    dim,
		nlist:  nlist,
		msub:   msub,
		ksub:   ksub,
		nbits:  nbits,
		dsub:   dim / msub,
		count:  n,
		lists:  make([][]listEntry, nlist),
	}
	if n == 0 {
		return idx
	}

	rng := rand.New(rand.NewSource(42))
	idx.centroids = kmeans(data, nlist, kmeansIters, rng)
	idx.nlist = len(idx.centroids)
	idx.lists = make([][]listEntry, idx.nlist)

	assign := make([]int, n)
	residuals := make([][]float32, n)
	for i, v := range data {
		c := nearestCentroid(v, idx.centroids)
		assign[i] = c
		r := make([]float32, dim)
		for d := range v {
			r[d] = v[d] - idx.centroids[c][d]
		}
		residuals[i] = r
	}

	idx.codebooks = make([][][]float32, msub)
	sub := make([][]float32, n)
	for s := 0; s < msub; s++ {
		lo := s * idx.dsub
		hi := lo + idx.dsub
		for i, r := range residuals {
			sub[i] = r[lo:hi]
		}
		idx.codebooks[s] = kmeans(sub, idx.ksub, kmeansIters, rng)
	}

	for i := range data {
		code := make([]byte, msub)
		for s := 0; s < msub; s++ {
			lo := s * idx.dsub
			code[s] = byte(nearestCentroid(residuals[i][lo:lo+idx.dsub], idx.codebooks[s]))
		}
		idx.lists[assign[i]] = append(idx.lists[assign[i]], listEntry{id: ids[i], code: code})
	}
	return idx
}

// subspaceCount lowers m to the largest divisor of dim not above it
func subspaceCount(dim, m int) int {
	if m < 1 {
		m = 1
	}
	if m > dim {
		m = dim
	}
	for ; m > 1; m-- {
		if dim%m == 0 {
			return m
		}
	}
	return 1
}

func (x *IVFPQ) Kind() Kind { return KindIVFPQ }

func (x *IVFPQ) Len() int { return x.count }

// NList returns the trained coarse cluster count
func (x *IVFPQ) NList() int { return x.nlist }

// Search probes the nprobe nearest lists and ranks entries by asymmetric
// distance. nprobe at or below zero falls back to the default.
func (x *IVFPQ) Search(query []float32, topK, nprobe int) []Result {
	if topK <= 0 {
		return nil
	}
	if x.count == 0 {
		return finalize(nil, topK, x.metric)
	}
	if x.metric == MetricCosine {
		query = normalize(query)
	}
	if nprobe <= 0 {
		nprobe = DefaultNProbe
	}
	if nprobe > x.nlist {
		nprobe = x.nlist
	}

	order := make([]int, x.nlist)
	dists := make([]float32, x.nlist)
	for c := range x.centroids {
		order[c] = c
		dists[c] = sqL2(query, x.centroids[c])
	}
	sort.Slice(order, func(i, j int) bool { return dists[order[i]] < dists[order[j]] })

	hits := x.rankProbed(query, order[:nprobe], topK)
	return finalize(hits, topK, x.metric)
}

// rankProbed scores every entry in the probed lists and keeps the best
// searchEf(topK) by (distance, id)
func (x *IVFPQ) rankProbed(query []float32, probed []int, topK int) []Result {
	keep := searchEf(topK)
	table := make([]float32, x.msub*x.ksub)
	residual := make([]float32, x.dim)

	var hits []Result
	for _, c := range probed {
		if len(x.lists[c]) == 0 {
			continue
		}
		for d := range query {
			residual[d] = query[d] - x.centroids[c][d]
		}
		x.fillADCTable(residual, table)
		for _, e := range x.lists[c] {
			var dist float32
			for s, code := range e.code {
				dist += table[s*x.ksub+int(code)]
			}
			hits = append(hits, Result{ID: e.id, Distance: dist})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > keep {
		hits = hits[:keep]
	}
	return hits
}

// fillADCTable writes the per-subspace squared distances between the query
// residual and every codebook centroid
func (x *IVFPQ) fillADCTable(residual []float32, table []float32) {
	for s := 0; s < x.msub; s++ {
		lo := s * x.dsub
		sub := residual[lo : lo+x.dsub]
		for j, centroid := range x.codebooks[s] {
			table[s*x.ksub+j] = sqL2(sub, centroid)
		}
	}
}

// Save writes the trained quantizer and the inverted lists
func (x *IVFPQ) Save(w io.Writer) error {
	return saveFramed(w, ivfpqMagic, func(bw *binWriter) {
		bw.u32(uint32(x.metric))
		bw.u32(uint32(x.dim))
		bw.u32(uint32(x.nlist))
		bw.u32(uint32(x.msub))
		bw.u32(uint32(x.ksub))
		bw.u32(uint32(x.nbits))
		bw.u32(uint32(x.count))
		for _, c := range x.centroids {
			bw.f32s(c)
		}
		for s := 0; s < x.msub; s++ {
			bw.u32(uint32(len(x.codebooks[s])))
			for _, centroid := range x.codebooks[s] {
				bw.f32s(centroid)
			}
		}
		for _, list := range x.lists {
			bw.u32(uint32(len(list)))
			for _, e := range list {
				bw.i64(e.id)
				bw.bytes(e.code)
			}
		}
	})
}

func loadIVFPQ(br *binReader) (*IVFPQ, error) {
	x := &IVFPQ{
		metric: Metric(br.u32()),
		dim:    int(br.u32()),
		nlist:  int(br.u32()),
		msub:   int(br.u32()),
		ksub:   int(br.u32()),
		nbits:  int(br.u32()),
		count:  int(br.u32()),
	}
	if br.err != nil {
		return nil, fmt.Errorf("read ivfpq header: %w", br.err)
	}
	if x.msub < 1 || x.dim < 1 || x.dim%x.msub != 0 {
		return nil, fmt.Errorf("corrupt ivfpq header: dim=%d msub=%d", x.dim, x.msub)
	}
	x.dsub = x.dim / x.msub

	if x.count == 0 {
		x.lists = make([][]listEntry, x.nlist)
		return x, nil
	}

	x.centroids = make([][]float32, x.nlist)
	for c := range x.centroids {
		x.centroids[c] = br.f32s(x.dim)
	}
	x.codebooks = make([][][]float32, x.msub)
	for s := range x.codebooks {
		k := int(br.u32())
		if br.err != nil {
			return nil, fmt.Errorf("read ivfpq codebook %d: %w", s, br.err)
		}
		x.codebooks[s] = make([][]float32, k)
		for j := range x.codebooks[s] {
			x.codebooks[s][j] = br.f32s(x.dsub)
		}
	}
	x.lists = make([][]listEntry, x.nlist)
	for c := range x.lists {
		n := int(br.u32())
		if br.err != nil {
			return nil, fmt.Errorf("read ivfpq list %d: %w", c, br.err)
		}
		x.lists[c] = make([]listEntry, n)
		for i := range x.lists[c] {
			x.lists[c][i] = listEntry{id: br.i64(), code: br.bytes()}
		}
	}
	if br.err != nil {
		return nil, fmt.Errorf("read ivfpq lists: %w", br.err)
	}
	return x, nil
}
