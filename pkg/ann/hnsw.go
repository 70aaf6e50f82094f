package ann

import (
	"container/heap"
	"fmt"
	"io"
	"math"
	"math/rand"
)

// hnswNode is one element of the graph. links[l] holds the neighbor node
// indexes at layer l, for l in 0..level.
type hnswNode struct {
	id     int64
	vector []float32
	level  int
	links  [][]int32
}

// HNSW is a hierarchical navigable small world graph. Construction and
// search follow the reference algorithm: greedy descent through the upper
// layers, beam search with ef candidates at the target layer.
type HNSW struct {
	metric         Metric
	dim            int
	m              int
	maxM0          int
	efConstruction int
	ml             float64
	entry          int32
	maxLevel       int
	nodes          []hnswNode
	rng            *rand.Rand
}

// NewHNSW creates an empty graph. The level seed is fixed so rebuilds of the
// same data produce the same structure.
func NewHNSW(dim int, metric Metric, m, efConstruction int) *HNSW {
	if m < 2 {
		m = 2
	}
	if efConstruction < m {
		efConstruction = m
	}
	return &HNSW{
		metric:         metric,
		dim:            dim,
		m:              m,
		maxM0:          2 * m,
		efConstruction: efConstruction,
		ml:             1 / math.Log(float64(m)),
		entry:          -1,
		rng:            rand.New(rand.NewSource(42)),
	}
}

// BuildHNSW constructs a graph over the given vectors and ids
func BuildHNSW(vectors [][]float32, ids []int64, dim int, metric Metric, m, efConstruction int) *HNSW {
	h := NewHNSW(dim, metric, m, efConstruction)
	for i, v := range vectors {
		h.Add(v, ids[i])
	}
	return h
}

func (h *HNSW) Kind() Kind { return KindHNSW }

func (h *HNSW) Len() int { return len(h.nodes) }

// Add inserts one vector. Cosine indexes store normalized copies so the
// graph distance is exactly twice the cosine distance everywhere.
func (h *HNSW) Add(vector []float32, id int64) {
	if h.metric == MetricCosine {
		vector = normalize(vector)
	} else {
		vector = append([]float32(nil), vector...)
	}

	level := int(math.Floor(-math.Log(h.rng.Float64()+1e-12) * h.ml))
	node := hnswNode{id: id, vector: vector, level: level, links: make([][]int32, level+1)}
	idx := int32(len(h.nodes))
	h.nodes = append(h.nodes, node)

	if h.entry < 0 {
		h.entry = idx
		h.maxLevel = level
		return
	}

	curr := h.entry
	for l := h.maxLevel; l > level; l-- {
		curr = h.greedyDescend(vector, curr, l)
	}

	top := level
	if top > h.maxLevel {
		top = h.maxLevel
	}
	for l := top; l >= 0; l-- {
		candidates := h.searchLayer(vector, curr, h.efConstruction, l)
		neighbors := candidates
		if len(neighbors) > h.m {
			neighbors = neighbors[:h.m]
		}
		maxM := h.m
		if l == 0 {
			maxM = h.maxM0
		}
		for _, c := range neighbors {
			h.nodes[idx].links[l] = append(h.nodes[idx].links[l], c.node)
			h.linkBack(c.node, idx, l, maxM)
		}
		if len(candidates) > 0 {
			curr = candidates[0].node
		}
	}

	if level > h.maxLevel {
		h.maxLevel = level
		h.entry = idx
	}
}

// linkBack adds a reverse edge and prunes the neighbor list to maxM by
// keeping the closest
func (h *HNSW) linkBack(from, to int32, level, maxM int) {
	links := append(h.nodes[from].links[level], to)
	if len(links) > maxM {
		base := h.nodes[from].vector
		worst := 0
		worstDist := sqL2(base, h.nodes[links[0]].vector)
		for i := 1; i < len(links); i++ {
			d := sqL2(base, h.nodes[links[i]].vector)
			if d > worstDist {
				worstDist = d
				worst = i
			}
		}
		links[worst] = links[len(links)-1]
		links = links[:len(links)-1]
	}
	h.nodes[from].links[level] = links
}

// greedyDescend moves to the closest neighbor at a layer until no neighbor
// improves on the current node
func (h *HNSW) greedyDescend(query []float32, start int32, level int) int32 {
	curr := start
	currDist := sqL2(query, h.nodes[curr].vector)
	for {
		improved := false
		for _, n := range h.nodes[curr].links[level] {
			if d := sqL2(query, h.nodes[n].vector); d < currDist {
				curr, currDist = n, d
				improved = true
			}
		}
		if !improved {
			return curr
		}
	}
}

type layerCandidate struct {
	node int32
	dist float32
}

// candidateHeap is a min-heap on distance
type candidateHeap []layerCandidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(layerCandidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// resultHeap is a max-heap on distance, bounded to ef
type resultHeap []layerCandidate

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x interface{}) { *h = append(*h, x.(layerCandidate)) }
func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// searchLayer is the beam search at one layer, returning up to ef
// candidates sorted by ascending distance
func (h *HNSW) searchLayer(query []float32, start int32, ef, level int) []layerCandidate {
	visited := map[int32]bool{start: true}
	startDist := sqL2(query, h.nodes[start].vector)

	candidates := candidateHeap{{node: start, dist: startDist}}
	results := resultHeap{{node: start, dist: startDist}}

	for len(candidates) > 0 {
		c := heap.Pop(&candidates).(layerCandidate)
		if c.dist > results[0].dist && len(results) >= ef {
			break
		}
		for _, n := range h.nodes[c.node].links[level] {
			if visited[n] {
				continue
			}
			visited[n] = true
			d := sqL2(query, h.nodes[n].vector)
			if len(results) < ef || d < results[0].dist {
				heap.Push(&candidates, layerCandidate{node: n, dist: d})
				heap.Push(&results, layerCandidate{node: n, dist: d})
				if len(results) > ef {
					heap.Pop(&results)
				}
			}
		}
	}

	out := make([]layerCandidate, len(results))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&results).(layerCandidate)
	}
	return out
}

// Search runs a query with ef = max(2*topK, 32). nprobe is ignored.
func (h *HNSW) Search(query []float32, topK, _ int) []Result {
	if topK <= 0 {
		return nil
	}
	if len(h.nodes) == 0 {
		return finalize(nil, topK, h.metric)
	}
	if h.metric == MetricCosine {
		query = normalize(query)
	}

	curr := h.entry
	for l := h.maxLevel; l > 0; l-- {
		curr = h.greedyDescend(query, curr, l)
	}
	candidates := h.searchLayer(query, curr, searchEf(topK), 0)

	hits := make([]Result, len(candidates))
	for i, c := range candidates {
		hits[i] = Result{ID: h.nodes[c.node].id, Distance: c.dist}
	}
	return finalize(hits, topK, h.metric)
}

// Save writes the graph: header, then per node its id, level, vector and
// adjacency lists
func (h *HNSW) Save(w io.Writer) error {
	return saveFramed(w, hnswMagic, func(bw *binWriter) {
		bw.u32(uint32(h.metric))
		bw.u32(uint32(h.dim))
		bw.u32(uint32(h.m))
		bw.u32(uint32(h.efConstruction))
		bw.i32(h.entry)
		bw.i32(int32(h.maxLevel))
		bw.u32(uint32(len(h.nodes)))
		for _, n := range h.nodes {
			bw.i64(n.id)
			bw.u32(uint32(n.level))
			bw.f32s(n.vector)
			for l := 0; l <= n.level; l++ {
				bw.u32(uint32(len(n.links[l])))
				for _, link := range n.links[l] {
					bw.i32(link)
				}
			}
		}
	})
}

func loadHNSW(br *binReader) (*HNSW, error) {
	metric := Metric(br.u32())
	dim := int(br.u32())
	m := int(br.u32())
	efc := int(br.u32())
	entry := br.i32()
	maxLevel := int(br.i32())
	count := int(br.u32())
	if br.err != nil {
		return nil, fmt.Errorf("read graph header: %w", br.err)
	}

	h := NewHNSW(dim, metric, m, efc)
	h.entry = entry
	h.maxLevel = maxLevel
	h.nodes = make([]hnswNode, count)
	for i := 0; i < count; i++ {
		id := br.i64()
		level := int(br.u32())
		vector := br.f32s(dim)
		links := make([][]int32, level+1)
		for l := 0; l <= level; l++ {
			nlinks := int(br.u32())
			if br.err != nil {
				return nil, fmt.Errorf("read graph node %d: %w", i, br.err)
			}
			links[l] = make([]int32, nlinks)
			for j := range links[l] {
				links[l][j] = br.i32()
			}
		}
		h.nodes[i] = hnswNode{id: id, vector: vector, level: level, links: links}
	}
	if br.err != nil {
		return nil, fmt.Errorf("read graph nodes: %w", br.err)
	}
	return h, nil
}
