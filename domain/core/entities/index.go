package entities

import (
	"s3vectors/domain/core/valueobjects"
)

// IndexConfig is the immutable-after-create configuration of an index,
// stored as indexes/<name>/_index_config.json.
type IndexConfig struct {
	IndexName                 string                      `json:"indexName"`
	Dimension                 int                         `json:"dimension"`
	DataType                  valueobjects.DataType       `json:"dataType"`
	DistanceMetric            valueobjects.DistanceMetric `json:"distanceMetric"`
	Algorithm                 valueobjects.Algorithm      `json:"algorithm"`
	NonFilterableMetadataKeys []string                    `json:"nonFilterableMetadataKeys,omitempty"`
	Created                   string                      `json:"created"`
}

// Equivalent reports whether two configurations describe the same index.
// Create is idempotent under equivalent parameters and a conflict otherwise;
// creation time is excluded from the comparison.
func (c IndexConfig) Equivalent(o IndexConfig) bool {
	if c.IndexName != o.IndexName ||
		c.Dimension != o.Dimension ||
		c.DataType != o.DataType ||
		c.DistanceMetric != o.DistanceMetric ||
		c.Algorithm != o.Algorithm ||
		len(c.NonFilterableMetadataKeys) != len(o.NonFilterableMetadataKeys) {
		return false
	}
	seen := make(map[string]bool, len(c.NonFilterableMetadataKeys))
	for _, k := range c.NonFilterableMetadataKeys {
		seen[k] = true
	}
	for _, k := range o.NonFilterableMetadataKeys {
		if !seen[k] {
			return false
		}
	}
	return true
}

// IsNonFilterable reports whether a metadata key was declared non-filterable
func (c IndexConfig) IsNonFilterable(key string) bool {
	for _, k := range c.NonFilterableMetadataKeys {
		if k == key {
			return true
		}
	}
	return false
}
