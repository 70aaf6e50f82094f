// Package handlers adapts the application services to the query bus
package handlers

import (
	"context"
	"fmt"

	"s3vectors/application/queries"
	"s3vectors/application/queries/bus"
	"s3vectors/application/services"
	"s3vectors/domain/core/valueobjects"
	apperrors "s3vectors/pkg/errors"
)

func unexpectedQuery(query bus.Query) error {
	return apperrors.NewInternalError(fmt.Sprintf("unexpected query type %T", query))
}

// GetVectorBucketHandler handles GetVectorBucketQuery
type GetVectorBucketHandler struct {
	catalog *services.CatalogService
}

// NewGetVectorBucketHandler creates the handler
func NewGetVectorBucketHandler(catalog *services.CatalogService) *GetVectorBucketHandler {
	return &GetVectorBucketHandler{catalog: catalog}
}

// Handle executes the query
func (h *GetVectorBucketHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetVectorBucketQuery)
	if !ok {
		return nil, unexpectedQuery(query)
	}
	meta, err := h.catalog.GetBucket(ctx, q.VectorBucketName)
	if err != nil {
		return nil, err
	}
	return queries.GetVectorBucketResult{
		VectorBucket: queries.BucketView{
			VectorBucketName: meta.Name,
			VectorBucketArn:  valueobjects.BucketARN(meta.Name),
			CreationTime:     meta.Created,
		},
	}, nil
}

// ListVectorBucketsHandler handles ListVectorBucketsQuery
type ListVectorBucketsHandler struct {
	catalog *services.CatalogService
}

// NewListVectorBucketsHandler creates the handler
func NewListVectorBucketsHandler(catalog *services.CatalogService) *ListVectorBucketsHandler {
	return &ListVectorBucketsHandler{catalog: catalog}
}

// Handle executes the query
func (h *ListVectorBucketsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListVectorBucketsQuery)
	if !ok {
		return nil, unexpectedQuery(query)
	}
	names, nextToken, err := h.catalog.ListBuckets(ctx, q.Prefix, q.MaxResults, q.NextToken)
	if err != nil {
		return nil, err
	}

	views := make([]queries.BucketView, 0, len(names))
	for _, name := range names {
		meta, err := h.catalog.GetBucket(ctx, name)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue // deleted between list and get
			}
			return nil, err
		}
		views = append(views, queries.BucketView{
			VectorBucketName: meta.Name,
			VectorBucketArn:  valueobjects.BucketARN(meta.Name),
			CreationTime:     meta.Created,
		})
	}
	return queries.ListVectorBucketsResult{VectorBuckets: views, NextToken: nextToken}, nil
}
