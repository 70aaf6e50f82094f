package valueobjects

// DistanceMetric identifies how vector distances are computed
type DistanceMetric string

const (
	MetricCosine    DistanceMetric = "cosine"
	MetricEuclidean DistanceMetric = "euclidean"
)

// IsValid reports whether the metric is one of the supported values
func (m DistanceMetric) IsValid() bool {
	return m == MetricCosine || m == MetricEuclidean
}

// Algorithm identifies the ANN structure backing an index
type Algorithm string

const (
	AlgorithmGraph  Algorithm = "graph"
	AlgorithmIVFPQ  Algorithm = "ivfpq"
	AlgorithmHybrid Algorithm = "hybrid"
)

// IsValid reports whether the algorithm is one of the supported values
func (a Algorithm) IsValid() bool {
	return a == AlgorithmGraph || a == AlgorithmIVFPQ || a == AlgorithmHybrid
}

// BlobExt returns the object-key extension for a concrete algorithm.
// Hybrid is a policy, not a serialized format, and has no extension.
func (a Algorithm) BlobExt() string {
	switch a {
	case AlgorithmGraph:
		return "hnsw"
	case AlgorithmIVFPQ:
		return "ivfpq"
	}
	return ""
}

// DataType identifies the element type of stored vectors
type DataType string

const DataTypeFloat32 DataType = "float32"
