package common

import (
	"encoding/json"
	"net/http"

	apperrors "s3vectors/pkg/errors"
)

// AWSError is the error payload carried inside the envelope
type AWSError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

// AWSErrorEnvelope is the wire format for all error responses
type AWSErrorEnvelope struct {
	Error AWSError `json:"Error"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondError maps any error to the AWS-style error envelope.
// Validation, NotFound and Conflict surface verbatim; everything else is
// reported with its taxonomy code and the underlying message.
func RespondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "InternalServiceException"
	message := "internal service error"

	if appErr := apperrors.GetAppError(err); appErr != nil {
		status = appErr.HTTPStatus
		code = appErr.Code
		message = appErr.Message
	} else if err != nil {
		message = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(AWSErrorEnvelope{Error: AWSError{Code: code, Message: message}})
}

// RespondValidationError is a shortcut for request decode failures
func RespondValidationError(w http.ResponseWriter, message string) {
	RespondError(w, apperrors.NewValidationError(message))
}

// ExtractRequestID extracts the request ID from the request headers
func ExtractRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	if id := r.Header.Get("X-Amzn-Trace-Id"); id != "" {
		return id
	}
	return ""
}
