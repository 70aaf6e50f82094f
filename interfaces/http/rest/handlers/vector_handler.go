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

// VectorHandler handles the vector data-plane requests
type VectorHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewVectorHandler creates a new vector handler
func NewVectorHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *VectorHandler {
	return &VectorHandler{commandBus: commandBus, queryBus: queryBus, logger: logger}
}

// Put handles POST /buckets/{bucket}/indexes/{index}/vectors
func (h *VectorHandler) Put(w http.ResponseWriter, r *http.Request) {
	var cmd commands.PutVectorsCommand
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

// Query handles POST /buckets/{bucket}/indexes/{index}/query
func (h *VectorHandler) Query(w http.ResponseWriter, r *http.Request) {
	var q queries.QueryVectorsQuery
	if err := decodeBody(r, &q); err != nil {
		common.RespondError(w, err)
		return
	}
	q.VectorBucketName = chi.URLParam(r, "bucket")
	q.IndexName = chi.URLParam(r, "index")

	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Get handles POST /buckets/{bucket}/indexes/{index}/vectors:get
func (h *VectorHandler) Get(w http.ResponseWriter, r *http.Request) {
	var q queries.GetVectorsQuery
	if err := decodeBody(r, &q); err != nil {
		common.RespondError(w, err)
		return
	}
	q.VectorBucketName = chi.URLParam(r, "bucket")
	q.IndexName = chi.URLParam(r, "index")

	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// List handles POST /buckets/{bucket}/indexes/{index}/vectors:list
func (h *VectorHandler) List(w http.ResponseWriter, r *http.Request) {
	var q queries.ListVectorsQuery
	if err := decodeBody(r, &q); err != nil {
		common.RespondError(w, err)
		return
	}
	q.VectorBucketName = chi.URLParam(r, "bucket")
	q.IndexName = chi.URLParam(r, "index")

	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Delete handles POST /buckets/{bucket}/indexes/{index}/vectors:delete
func (h *VectorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var cmd commands.DeleteVectorsCommand
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
