package queries

import (
	"s3vectors/domain/core/valueobjects"
)

// IndexView is the wire shape of an index in query results
type IndexView struct {
	VectorBucketName          string                      `json:"vectorBucketName"`
	IndexName                 string                      `json:"indexName"`
	IndexArn                  string                      `json:"indexArn"`
	Dimension                 int                         `json:"dimension,omitempty"`
	DataType                  valueobjects.DataType       `json:"dataType,omitempty"`
	DistanceMetric            valueobjects.DistanceMetric `json:"distanceMetric,omitempty"`
	Algorithm                 valueobjects.Algorithm      `json:"algorithm,omitempty"`
	NonFilterableMetadataKeys []string                    `json:"nonFilterableMetadataKeys,omitempty"`
	CreationTime              string                      `json:"creationTime,omitempty"`
}

// GetIndexQuery fetches one index configuration
type GetIndexQuery struct {
	VectorBucketName string `json:"vectorBucketName" validate:"required"`
	IndexName        string `json:"indexName" validate:"required"`
}

// Validate validates the query
func (q GetIndexQuery) Validate() error {
	return validateStruct(q)
}

// GetIndexResult is the GetIndex response
type GetIndexResult struct {
	Index IndexView `json:"index"`
}

// ListIndexesQuery lists indexes in a bucket
type ListIndexesQuery struct {
	VectorBucketName string `json:"vectorBucketName" validate:"required"`
	Prefix           string `json:"prefix,omitempty"`
	MaxResults       int    `json:"maxResults,omitempty" validate:"gte=0"`
	NextToken        string `json:"nextToken,omitempty"`
}

// Validate validates the query
func (q ListIndexesQuery) Validate() error {
	return validateStruct(q)
}

// ListIndexesResult is the ListIndexes response
type ListIndexesResult struct {
	Indexes   []IndexView `json:"indexes"`
	NextToken string      `json:"nextToken,omitempty"`
}
