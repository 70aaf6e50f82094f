package handlers

import (
	"context"

	"s3vectors/application/commands"
	"s3vectors/application/commands/bus"
	"s3vectors/application/services"
	"s3vectors/domain/core/entities"
)

// CreateIndexHandler handles CreateIndexCommand
type CreateIndexHandler struct {
	catalog *services.CatalogService
}

// NewCreateIndexHandler creates the handler
func NewCreateIndexHandler(catalog *services.CatalogService) *CreateIndexHandler {
	return &CreateIndexHandler{catalog: catalog}
}

// Handle executes the command
func (h *CreateIndexHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.CreateIndexCommand)
	if !ok {
		return unexpectedCommand(cmd)
	}
	_, err := h.catalog.CreateIndex(ctx, c.VectorBucketName, entities.IndexConfig{
		IndexName:                 c.IndexName,
		Dimension:                 c.Dimension,
		DataType:                  c.DataType,
		DistanceMetric:            c.DistanceMetric,
		Algorithm:                 c.Algorithm,
		NonFilterableMetadataKeys: c.NonFilterableMetadataKeys,
	})
	return err
}

// DeleteIndexHandler handles DeleteIndexCommand
type DeleteIndexHandler struct {
	catalog *services.CatalogService
}

// NewDeleteIndexHandler creates the handler
func NewDeleteIndexHandler(catalog *services.CatalogService) *DeleteIndexHandler {
	return &DeleteIndexHandler{catalog: catalog}
}

// Handle executes the command
func (h *DeleteIndexHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.DeleteIndexCommand)
	if !ok {
		return unexpectedCommand(cmd)
	}
	return h.catalog.DeleteIndex(ctx, c.VectorBucketName, c.IndexName)
}
