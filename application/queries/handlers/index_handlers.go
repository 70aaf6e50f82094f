package handlers

import (
	"context"

	"s3vectors/application/queries"
	"s3vectors/application/queries/bus"
	"s3vectors/application/services"
	"s3vectors/domain/core/entities"
	"s3vectors/domain/core/valueobjects"
	apperrors "s3vectors/pkg/errors"
)

func indexView(bucket string, cfg entities.IndexConfig) queries.IndexView {
	return queries.IndexView{
		VectorBucketName:          bucket,
		IndexName:                 cfg.IndexName,
		IndexArn:                  valueobjects.IndexARN(bucket, cfg.IndexName),
		Dimension:                 cfg.Dimension,
		DataType:                  cfg.DataType,
		DistanceMetric:            cfg.DistanceMetric,
		Algorithm:                 cfg.Algorithm,
		NonFilterableMetadataKeys: cfg.NonFilterableMetadataKeys,
		CreationTime:              cfg.Created,
	}
}

// GetIndexHandler handles GetIndexQuery
type GetIndexHandler struct {
	catalog *services.CatalogService
}

// NewGetIndexHandler creates the handler
func NewGetIndexHandler(catalog *services.CatalogService) *GetIndexHandler {
	return &GetIndexHandler{catalog: catalog}
}

// Handle executes the query
func (h *GetIndexHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetIndexQuery)
	if !ok {
		return nil, unexpectedQuery(query)
	}
	cfg, err := h.catalog.GetIndex(ctx, q.VectorBucketName, q.IndexName)
	if err != nil {
		return nil, err
	}
	return queries.GetIndexResult{Index: indexView(q.VectorBucketName, cfg)}, nil
}

// ListIndexesHandler handles ListIndexesQuery
type ListIndexesHandler struct {
	catalog *services.CatalogService
}

// NewListIndexesHandler creates the handler
func NewListIndexesHandler(catalog *services.CatalogService) *ListIndexesHandler {
	return &ListIndexesHandler{catalog: catalog}
}

// Handle executes the query
func (h *ListIndexesHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListIndexesQuery)
	if !ok {
		return nil, unexpectedQuery(query)
	}
	names, nextToken, err := h.catalog.ListIndexes(ctx, q.VectorBucketName, q.Prefix, q.MaxResults, q.NextToken)
	if err != nil {
		return nil, err
	}

	views := make([]queries.IndexView, 0, len(names))
	for _, name := range names {
		cfg, err := h.catalog.GetIndex(ctx, q.VectorBucketName, name)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		views = append(views, indexView(q.VectorBucketName, cfg))
	}
	return queries.ListIndexesResult{Indexes: views, NextToken: nextToken}, nil
}
