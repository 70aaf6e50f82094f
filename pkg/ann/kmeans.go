package ann

import "math/rand"

// kmeans runs Lloyd's algorithm with a fixed iteration budget. When k is at
// least the sample count every point becomes its own centroid. Empty
// clusters are reseeded from the point farthest from its centroid.
func kmeans(data [][]float32, k, iters int, rng *rand.Rand) [][]float32 {
	n := len(data)
	if n == 0 || k < 1 {
		return nil
	}
	dim := len(data[0])
	if k >= n {
		out := make([][]float32, n)
		for i, v := range data {
			out[i] = append([]float32(nil), v...)
		}
		return out
	}

	centroids := make([][]float32, k)
	for i, p := range rng.Perm(n)[:k] {
		centroids[i] = append([]float32(nil), data[p]...)
	}

	assign := make([]int, n)
	for iter := 0; iter < iters; iter++ {
		moved := false
		for i, v := range data {
			best := nearestCentroid(v, centroids)
			if assign[i] != best {
				assign[i] = best
				moved = true
			}
		}
		if iter > 0 && !moved {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range data {
			c := assign[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += float64(x)
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				centroids[c] = append([]float32(nil), data[farthestPoint(data, assign, centroids)]...)
				continue
			}
			for d := 0; d < dim; d++ {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
	}
	return centroids
}

func nearestCentroid(v []float32, centroids [][]float32) int {
	best := 0
	bestDist := sqL2(v, centroids[0])
	for c := 1; c < len(centroids); c++ {
		if d := sqL2(v, centroids[c]); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func farthestPoint(data [][]float32, assign []int, centroids [][]float32) int {
	worst := 0
	var worstDist float32 = -1
	for i, v := range data {
		if d := sqL2(v, centroids[assign[i]]); d > worstDist {
			worst, worstDist = i, d
		}
	}
	return worst
}
