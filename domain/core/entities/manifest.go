package entities

import (
	"s3vectors/domain/core/valueobjects"
)

// Manifest describes the currently-live ANN artifact of an index. It is
// written last in a build; its replacement is the externally visible commit
// point, so readers always see a consistent (manifest, blob) pair.
type Manifest struct {
	Algo      valueobjects.Algorithm      `json:"algo"`
	Dimension int                         `json:"dimension"`
	Metric    valueobjects.DistanceMetric `json:"metric"`
	Vectors   int                         `json:"vectors"`
	Params    map[string]interface{}      `json:"params,omitempty"`
}
