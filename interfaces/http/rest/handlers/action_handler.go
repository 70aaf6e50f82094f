package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"s3vectors/application/commands"
	"s3vectors/application/commands/bus"
	"s3vectors/application/queries"
	querybus "s3vectors/application/queries/bus"
	"s3vectors/domain/core/valueobjects"
	"s3vectors/pkg/common"
	apperrors "s3vectors/pkg/errors"
)

// coordinates are the index coordinates accepted by the action surface.
// Three equivalent forms are allowed: plain names, ARNs, and Pascal-cased
// field names (which the case-insensitive JSON decoder binds for free). All
// canonicalize to the same (bucket, index) pair.
type coordinates struct {
	VectorBucketName string `json:"vectorBucketName"`
	VectorBucketArn  string `json:"vectorBucketArn"`
	IndexName        string `json:"indexName"`
	IndexArn         string `json:"indexArn"`
}

func (c coordinates) resolve() (string, string) {
	bucket := c.VectorBucketName
	index := c.IndexName
	if index == "" && c.IndexArn != "" {
		arnBucket, arnIndex := valueobjects.BucketAndIndexFromARN(c.IndexArn)
		index = arnIndex
		if bucket == "" {
			bucket = arnBucket
		}
	}
	if bucket == "" && c.VectorBucketArn != "" {
		bucket = valueobjects.NameFromARN(c.VectorBucketArn)
	}
	return bucket, index
}

// ActionHandler serves the action surface: POST /{Action} with coordinates
// in the body
type ActionHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewActionHandler creates a new action handler
func NewActionHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *ActionHandler {
	return &ActionHandler{commandBus: commandBus, queryBus: queryBus, logger: logger}
}

func decodeAction(body []byte, v interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.NewValidationError("invalid request body: " + err.Error())
	}
	return nil
}

// Dispatch handles POST /{action}
func (h *ActionHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.RespondError(w, apperrors.NewValidationError("unreadable request body"))
		return
	}
	var coords coordinates
	if err := decodeAction(body, &coords); err != nil {
		common.RespondError(w, err)
		return
	}
	bucket, index := coords.resolve()

	switch action {
	case "CreateVectorBucket":
		var cmd commands.CreateVectorBucketCommand
		if err := decodeAction(body, &cmd); err != nil {
			common.RespondError(w, err)
			return
		}
		cmd.VectorBucketName = bucket
		h.send(w, r, cmd)

	case "DeleteVectorBucket":
		h.send(w, r, commands.DeleteVectorBucketCommand{VectorBucketName: bucket})

	case "GetVectorBucket":
		h.ask(w, r, queries.GetVectorBucketQuery{VectorBucketName: bucket})

	case "ListVectorBuckets":
		var q queries.ListVectorBucketsQuery
		if err := decodeAction(body, &q); err != nil {
			common.RespondError(w, err)
			return
		}
		h.ask(w, r, q)

	case "CreateIndex":
		var cmd commands.CreateIndexCommand
		if err := decodeAction(body, &cmd); err != nil {
			common.RespondError(w, err)
			return
		}
		cmd.VectorBucketName = bucket
		cmd.IndexName = index
		h.send(w, r, cmd)

	case "DeleteIndex":
		h.send(w, r, commands.DeleteIndexCommand{VectorBucketName: bucket, IndexName: index})

	case "GetIndex":
		h.ask(w, r, queries.GetIndexQuery{VectorBucketName: bucket, IndexName: index})

	case "ListIndexes":
		var q queries.ListIndexesQuery
		if err := decodeAction(body, &q); err != nil {
			common.RespondError(w, err)
			return
		}
		q.VectorBucketName = bucket
		h.ask(w, r, q)

	case "PutVectors":
		var cmd commands.PutVectorsCommand
		if err := decodeAction(body, &cmd); err != nil {
			common.RespondError(w, err)
			return
		}
		cmd.VectorBucketName = bucket
		cmd.IndexName = index
		h.send(w, r, cmd)

	case "DeleteVectors":
		var cmd commands.DeleteVectorsCommand
		if err := decodeAction(body, &cmd); err != nil {
			common.RespondError(w, err)
			return
		}
		cmd.VectorBucketName = bucket
		cmd.IndexName = index
		h.send(w, r, cmd)

	case "GetVectors":
		var q queries.GetVectorsQuery
		if err := decodeAction(body, &q); err != nil {
			common.RespondError(w, err)
			return
		}
		q.VectorBucketName = bucket
		q.IndexName = index
		h.ask(w, r, q)

	case "ListVectors":
		var q queries.ListVectorsQuery
		if err := decodeAction(body, &q); err != nil {
			common.RespondError(w, err)
			return
		}
		q.VectorBucketName = bucket
		q.IndexName = index
		h.ask(w, r, q)

	case "QueryVectors":
		var q queries.QueryVectorsQuery
		if err := decodeAction(body, &q); err != nil {
			common.RespondError(w, err)
			return
		}
		q.VectorBucketName = bucket
		q.IndexName = index
		h.ask(w, r, q)

	case "BuildIndex":
		h.send(w, r, commands.BuildIndexCommand{VectorBucketName: bucket, IndexName: index})

	default:
		common.RespondError(w, apperrors.NewValidationError("unknown action "+action).WithCode("UnknownOperationException"))
	}
}

func (h *ActionHandler) send(w http.ResponseWriter, r *http.Request, cmd bus.Command) {
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, struct{}{})
}

func (h *ActionHandler) ask(w http.ResponseWriter, r *http.Request, q querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
