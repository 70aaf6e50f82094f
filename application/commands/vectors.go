package commands

import (
	"s3vectors/domain/core/entities"
)

// PutVectorsCommand stages a write batch and triggers consolidation
type PutVectorsCommand struct {
	VectorBucketName string               `json:"vectorBucketName" validate:"required"`
	IndexName        string               `json:"indexName" validate:"required"`
	Vectors          []entities.PutVector `json:"vectors"`
}

// Validate validates the command
func (c PutVectorsCommand) Validate() error {
	return validateStruct(c)
}

// DeleteVectorsCommand tombstones vectors by key
type DeleteVectorsCommand struct {
	VectorBucketName string   `json:"vectorBucketName" validate:"required"`
	IndexName        string   `json:"indexName" validate:"required"`
	Keys             []string `json:"keys"`
}

// Validate validates the command
func (c DeleteVectorsCommand) Validate() error {
	return validateStruct(c)
}

// BuildIndexCommand forces a consolidation pass, for external schedulers
type BuildIndexCommand struct {
	VectorBucketName string `json:"vectorBucketName" validate:"required"`
	IndexName        string `json:"indexName" validate:"required"`
}

// Validate validates the command
func (c BuildIndexCommand) Validate() error {
	return validateStruct(c)
}
