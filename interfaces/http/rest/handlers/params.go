package handlers

import (
	"net/http"
	"strconv"

	apperrors "s3vectors/pkg/errors"
)

// parseIntParam reads a non-negative integer query parameter, 0 when absent
func parseIntParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationErrorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

// parseBoolParam reads a boolean query parameter, false when absent
func parseBoolParam(r *http.Request, name string) bool {
	return r.URL.Query().Get(name) == "true"
}
