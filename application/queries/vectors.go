package queries

import (
	"encoding/json"

	"s3vectors/domain/core/entities"
	apperrors "s3vectors/pkg/errors"
)

// GetVectorsQuery fetches vectors by key
type GetVectorsQuery struct {
	VectorBucketName string   `json:"vectorBucketName" validate:"required"`
	IndexName        string   `json:"indexName" validate:"required"`
	Keys             []string `json:"keys" validate:"required,min=1"`
	ReturnData       bool     `json:"returnData,omitempty"`
	ReturnMetadata   bool     `json:"returnMetadata,omitempty"`
}

// Validate validates the query
func (q GetVectorsQuery) Validate() error {
	return validateStruct(q)
}

// GetVectorsResult is the GetVectors response
type GetVectorsResult struct {
	Vectors []entities.OutputVector `json:"vectors"`
}

// ListVectorsQuery pages live vectors in key order
type ListVectorsQuery struct {
	VectorBucketName string `json:"vectorBucketName" validate:"required"`
	IndexName        string `json:"indexName" validate:"required"`
	MaxResults       int    `json:"maxResults,omitempty" validate:"gte=0"`
	NextToken        string `json:"nextToken,omitempty"`
	ReturnData       bool   `json:"returnData,omitempty"`
	ReturnMetadata   bool   `json:"returnMetadata,omitempty"`
}

// Validate validates the query
func (q ListVectorsQuery) Validate() error {
	return validateStruct(q)
}

// ListVectorsResult is the ListVectors response
type ListVectorsResult struct {
	Vectors   []entities.OutputVector `json:"vectors"`
	NextToken string                  `json:"nextToken,omitempty"`
}

// QueryVectorsQuery runs an ANN search
type QueryVectorsQuery struct {
	VectorBucketName string              `json:"vectorBucketName" validate:"required"`
	IndexName        string              `json:"indexName" validate:"required"`
	QueryVector      entities.VectorData `json:"queryVector"`
	TopK             int                 `json:"topK" validate:"required"`
	Filter           json.RawMessage     `json:"filter,omitempty"`
	NProbe           int                 `json:"nprobe,omitempty"`
	ReturnDistance   bool                `json:"returnDistance,omitempty"`
	ReturnData       bool                `json:"returnData,omitempty"`
	ReturnMetadata   bool                `json:"returnMetadata,omitempty"`
}

// Validate validates the query
func (q QueryVectorsQuery) Validate() error {
	if err := validateStruct(q); err != nil {
		return err
	}
	if len(q.QueryVector.Float32) == 0 {
		return apperrors.NewValidationError("queryVector is required")
	}
	return nil
}

// QueryVectorsResult is the QueryVectors response
type QueryVectorsResult struct {
	Vectors []entities.QueryResultVector `json:"vectors"`
}
