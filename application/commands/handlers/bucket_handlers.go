// Package handlers adapts the application services to the command bus
package handlers

import (
	"context"
	"fmt"

	"s3vectors/application/commands"
	"s3vectors/application/commands/bus"
	"s3vectors/application/services"
	apperrors "s3vectors/pkg/errors"
)

func unexpectedCommand(cmd bus.Command) error {
	return apperrors.NewInternalError(fmt.Sprintf("unexpected command type %T", cmd))
}

// CreateVectorBucketHandler handles CreateVectorBucketCommand
type CreateVectorBucketHandler struct {
	catalog *services.CatalogService
}

// NewCreateVectorBucketHandler creates the handler
func NewCreateVectorBucketHandler(catalog *services.CatalogService) *CreateVectorBucketHandler {
	return &CreateVectorBucketHandler{catalog: catalog}
}

// Handle executes the command
func (h *CreateVectorBucketHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.CreateVectorBucketCommand)
	if !ok {
		return unexpectedCommand(cmd)
	}
	_, err := h.catalog.CreateBucket(ctx, c.VectorBucketName)
	return err
}

// DeleteVectorBucketHandler handles DeleteVectorBucketCommand
type DeleteVectorBucketHandler struct {
	catalog *services.CatalogService
}

// NewDeleteVectorBucketHandler creates the handler
func NewDeleteVectorBucketHandler(catalog *services.CatalogService) *DeleteVectorBucketHandler {
	return &DeleteVectorBucketHandler{catalog: catalog}
}

// Handle executes the command
func (h *DeleteVectorBucketHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.DeleteVectorBucketCommand)
	if !ok {
		return unexpectedCommand(cmd)
	}
	return h.catalog.DeleteBucket(ctx, c.VectorBucketName)
}
