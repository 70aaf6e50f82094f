package commands

import (
	"s3vectors/domain/core/valueobjects"
)

// CreateIndexCommand creates an index inside a bucket. Algorithm defaults
// to hybrid and dataType to float32 when omitted.
type CreateIndexCommand struct {
	VectorBucketName          string                      `json:"vectorBucketName" validate:"required"`
	IndexName                 string                      `json:"indexName" validate:"required"`
	Dimension                 int                         `json:"dimension" validate:"required"`
	DataType                  valueobjects.DataType       `json:"dataType,omitempty"`
	DistanceMetric            valueobjects.DistanceMetric `json:"distanceMetric" validate:"required"`
	Algorithm                 valueobjects.Algorithm      `json:"algorithm,omitempty"`
	NonFilterableMetadataKeys []string                    `json:"nonFilterableMetadataKeys,omitempty"`
}

// Validate validates the command
func (c CreateIndexCommand) Validate() error {
	return validateStruct(c)
}

// DeleteIndexCommand deletes an index and its staged slices
type DeleteIndexCommand struct {
	VectorBucketName string `json:"vectorBucketName" validate:"required"`
	IndexName        string `json:"indexName" validate:"required"`
}

// Validate validates the command
func (c DeleteIndexCommand) Validate() error {
	return validateStruct(c)
}
