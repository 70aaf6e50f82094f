// Package queries defines the read-only operations and their result shapes
package queries

import (
	apperrors "s3vectors/pkg/errors"
	"s3vectors/pkg/utils"
)

func validateStruct(s interface{}) error {
	if err := utils.ValidateStruct(s); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

// BucketView is the wire shape of a bucket in query results
type BucketView struct {
	VectorBucketName string `json:"vectorBucketName"`
	VectorBucketArn  string `json:"vectorBucketArn"`
	CreationTime     string `json:"creationTime"`
}

// GetVectorBucketQuery fetches one bucket
type GetVectorBucketQuery struct {
	VectorBucketName string `json:"vectorBucketName" validate:"required"`
}

// Validate validates the query
func (q GetVectorBucketQuery) Validate() error {
	return validateStruct(q)
}

// GetVectorBucketResult is the GetVectorBucket response
type GetVectorBucketResult struct {
	VectorBucket BucketView `json:"vectorBucket"`
}

// ListVectorBucketsQuery lists buckets with optional name-prefix matching
type ListVectorBucketsQuery struct {
	Prefix     string `json:"prefix,omitempty"`
	MaxResults int    `json:"maxResults,omitempty" validate:"gte=0"`
	NextToken  string `json:"nextToken,omitempty"`
}

// Validate validates the query
func (q ListVectorBucketsQuery) Validate() error {
	return validateStruct(q)
}

// ListVectorBucketsResult is the ListVectorBuckets response
type ListVectorBucketsResult struct {
	VectorBuckets []BucketView `json:"vectorBuckets"`
	NextToken     string       `json:"nextToken,omitempty"`
}
