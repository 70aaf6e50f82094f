package handlers

import (
	"context"

	"s3vectors/application/commands"
	"s3vectors/application/commands/bus"
	"s3vectors/application/services"
)

// PutVectorsHandler handles PutVectorsCommand
type PutVectorsHandler struct {
	ingest *services.IngestService
}

// NewPutVectorsHandler creates the handler
func NewPutVectorsHandler(ingest *services.IngestService) *PutVectorsHandler {
	return &PutVectorsHandler{ingest: ingest}
}

// Handle executes the command
func (h *PutVectorsHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.PutVectorsCommand)
	if !ok {
		return unexpectedCommand(cmd)
	}
	return h.ingest.PutVectors(ctx, c.VectorBucketName, c.IndexName, c.Vectors)
}

// DeleteVectorsHandler handles DeleteVectorsCommand
type DeleteVectorsHandler struct {
	ingest *services.IngestService
}

// NewDeleteVectorsHandler creates the handler
func NewDeleteVectorsHandler(ingest *services.IngestService) *DeleteVectorsHandler {
	return &DeleteVectorsHandler{ingest: ingest}
}

// Handle executes the command
func (h *DeleteVectorsHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.DeleteVectorsCommand)
	if !ok {
		return unexpectedCommand(cmd)
	}
	return h.ingest.DeleteVectors(ctx, c.VectorBucketName, c.IndexName, c.Keys)
}

// BuildIndexHandler handles BuildIndexCommand
type BuildIndexHandler struct {
	builder *services.BuilderService
}

// NewBuildIndexHandler creates the handler
func NewBuildIndexHandler(builder *services.BuilderService) *BuildIndexHandler {
	return &BuildIndexHandler{builder: builder}
}

// Handle executes the command
func (h *BuildIndexHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.BuildIndexCommand)
	if !ok {
		return unexpectedCommand(cmd)
	}
	return h.builder.Build(ctx, c.VectorBucketName, c.IndexName)
}
