package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"s3vectors/application/commands"
	"s3vectors/application/commands/bus"
	"s3vectors/application/queries"
	querybus "s3vectors/application/queries/bus"
	"s3vectors/pkg/common"
)

// IndexHandler handles index lifecycle requests
type IndexHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *IndexHandler {
	return &IndexHandler{commandBus: commandBus, queryBus: queryBus, logger: logger}
}

// Create handles POST /buckets/{bucket}/indexes/{index}
func (h *IndexHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateIndexCommand
	if err := decodeBody(r, &cmd); err != nil {
		common.RespondError(w, err)
		return
	}
	cmd.VectorBucketName = chi.URLParam(r, "bucket")
	cmd.IndexName = chi.URLParam(r, "index")
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, struct{}{})
}

// Get handles GET /buckets/{bucket}/indexes/{index}
func (h *IndexHandler) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetIndexQuery{
		VectorBucketName: chi.URLParam(r, "bucket"),
		IndexName:        chi.URLParam(r, "index"),
	})
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// List handles GET /buckets/{bucket}/indexes
func (h *IndexHandler) List(w http.ResponseWriter, r *http.Request) {
	q := queries.ListIndexesQuery{
		VectorBucketName: chi.URLParam(r, "bucket"),
		Prefix:           r.URL.Query().Get("prefix"),
		NextToken:        r.URL.Query().Get("nextToken"),
	}
	n, err := parseIntParam(r, "maxResults")
	if err != nil {
		common.RespondError(w, err)
		return
	}
	q.MaxResults = n

	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /buckets/{bucket}/indexes/{index}
func (h *IndexHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cmd := commands.DeleteIndexCommand{
		VectorBucketName: chi.URLParam(r, "bucket"),
		IndexName:        chi.URLParam(r, "index"),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, struct{}{})
}
