package handlers

import (
	"context"

	"s3vectors/application/queries"
	"s3vectors/application/queries/bus"
	"s3vectors/application/services"
)

// GetVectorsHandler handles GetVectorsQuery
type GetVectorsHandler struct {
	query *services.QueryService
}

// NewGetVectorsHandler creates the handler
func NewGetVectorsHandler(query *services.QueryService) *GetVectorsHandler {
	return &GetVectorsHandler{query: query}
}

// Handle executes the query
func (h *GetVectorsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetVectorsQuery)
	if !ok {
		return nil, unexpectedQuery(query)
	}
	vectors, err := h.query.GetVectors(ctx, q.VectorBucketName, q.IndexName, q.Keys, services.Projection{
		ReturnData:     q.ReturnData,
		ReturnMetadata: q.ReturnMetadata,
	})
	if err != nil {
		return nil, err
	}
	return queries.GetVectorsResult{Vectors: vectors}, nil
}

// ListVectorsHandler handles ListVectorsQuery
type ListVectorsHandler struct {
	query *services.QueryService
}

// NewListVectorsHandler creates the handler
func NewListVectorsHandler(query *services.QueryService) *ListVectorsHandler {
	return &ListVectorsHandler{query: query}
}

// Handle executes the query
func (h *ListVectorsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListVectorsQuery)
	if !ok {
		return nil, unexpectedQuery(query)
	}
	vectors, nextToken, err := h.query.ListVectors(ctx, q.VectorBucketName, q.IndexName, q.MaxResults, q.NextToken, services.Projection{
		ReturnData:     q.ReturnData,
		ReturnMetadata: q.ReturnMetadata,
	})
	if err != nil {
		return nil, err
	}
	return queries.ListVectorsResult{Vectors: vectors, NextToken: nextToken}, nil
}

// QueryVectorsHandler handles QueryVectorsQuery
type QueryVectorsHandler struct {
	query *services.QueryService
}

// NewQueryVectorsHandler creates the handler
func NewQueryVectorsHandler(query *services.QueryService) *QueryVectorsHandler {
	return &QueryVectorsHandler{query: query}
}

// Handle executes the query
func (h *QueryVectorsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.QueryVectorsQuery)
	if !ok {
		return nil, unexpectedQuery(query)
	}
	results, err := h.query.Query(ctx, q.VectorBucketName, q.IndexName, services.QueryRequest{
		QueryVector:    q.QueryVector.Float32,
		TopK:           q.TopK,
		Filter:         q.Filter,
		NProbe:         q.NProbe,
		ReturnDistance: q.ReturnDistance,
		ReturnData:     q.ReturnData,
		ReturnMetadata: q.ReturnMetadata,
	})
	if err != nil {
		return nil, err
	}
	return queries.QueryVectorsResult{Vectors: results}, nil
}
