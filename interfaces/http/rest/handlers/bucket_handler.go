// Package handlers implements the HTTP handlers of the REST surface. Every
// handler decodes the request, sends a command or query on the bus, and
// writes either the result or the AWS-style error envelope.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"s3vectors/application/commands"
	"s3vectors/application/commands/bus"
	"s3vectors/application/queries"
	querybus "s3vectors/application/queries/bus"
	"s3vectors/pkg/common"
	apperrors "s3vectors/pkg/errors"
)

// decodeBody decodes a JSON request body into v. An empty body decodes to
// the zero value so bodyless DELETEs and GETs work.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return apperrors.NewValidationError("invalid request body: " + err.Error())
	}
	return nil
}

// BucketHandler handles vector bucket lifecycle requests
type BucketHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewBucketHandler creates a new bucket handler
func NewBucketHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *BucketHandler {
	return &BucketHandler{commandBus: commandBus, queryBus: queryBus, logger: logger}
}

// Create handles PUT /buckets/{bucket}
func (h *BucketHandler) Create(w http.ResponseWriter, r *http.Request) {
	cmd := commands.CreateVectorBucketCommand{VectorBucketName: chi.URLParam(r, "bucket")}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, struct{}{})
}

// Get handles GET /buckets/{bucket}
func (h *BucketHandler) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetVectorBucketQuery{
		VectorBucketName: chi.URLParam(r, "bucket"),
	})
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// List handles GET /buckets
func (h *BucketHandler) List(w http.ResponseWriter, r *http.Request) {
	q := queries.ListVectorBucketsQuery{
		Prefix:    r.URL.Query().Get("prefix"),
		NextToken: r.URL.Query().Get("nextToken"),
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

// Delete handles DELETE /buckets/{bucket}
func (h *BucketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cmd := commands.DeleteVectorBucketCommand{VectorBucketName: chi.URLParam(r, "bucket")}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, struct{}{})
}
