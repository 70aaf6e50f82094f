package validators

import (
	"encoding/json"
	"regexp"
	"strings"

	apperrors "s3vectors/pkg/errors"
)

// Limits are the enforced request limits. Defaults follow the service
// contract; deployments may tighten or relax them through configuration.
type Limits struct {
	MaxBatch         int
	MaxTopK          int
	MaxDim           int
	MaxMetadataBytes int
}

// DefaultLimits returns the stock limit set
func DefaultLimits() Limits {
	return Limits{
		MaxBatch:         500,
		MaxTopK:          30,
		MaxDim:           4096,
		MaxMetadataBytes: 40960,
	}
}

const maxKeyBytes = 512

var (
	bucketNamePattern = regexp.MustCompile(`^[a-z0-9.-]+$`)
	indexNamePattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ValidateBucketName enforces S3-style bucket naming rules
func ValidateBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return apperrors.NewValidationError("bucket name must be between 3 and 63 characters")
	}
	if !bucketNamePattern.MatchString(name) {
		return apperrors.NewValidationError("bucket name must contain only lowercase letters, numbers, dots, and hyphens")
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") ||
		strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return apperrors.NewValidationError("bucket name cannot start or end with a dot or hyphen")
	}
	return nil
}

// ValidateIndexName enforces index naming rules
func ValidateIndexName(name string) error {
	if name == "" {
		return apperrors.NewValidationError("index name cannot be empty")
	}
	if len(name) > 255 {
		return apperrors.NewValidationError("index name exceeds 255 character limit")
	}
	if !indexNamePattern.MatchString(name) {
		return apperrors.NewValidationError("index name must contain only alphanumeric characters, hyphens, and underscores")
	}
	return nil
}

// ValidateDimension checks the declared dimension of an index
func (l Limits) ValidateDimension(dim int) error {
	if dim < 1 || dim > l.MaxDim {
		return apperrors.NewValidationErrorf("vector dimension must be between 1 and %d, got %d", l.MaxDim, dim)
	}
	return nil
}

// ValidateBatchSize checks a write batch against the batch limit
func (l Limits) ValidateBatchSize(n int) error {
	if n > l.MaxBatch {
		return apperrors.NewValidationErrorf("batch size exceeds %d limit, got %d vectors", l.MaxBatch, n)
	}
	return nil
}

// ValidateTopK checks the query fan-out
func (l Limits) ValidateTopK(topK int) error {
	if topK < 1 || topK > l.MaxTopK {
		return apperrors.NewValidationErrorf("topK must be between 1 and %d, got %d", l.MaxTopK, topK)
	}
	return nil
}

// ValidateKey checks a single vector key
func ValidateKey(key string) error {
	if key == "" {
		return apperrors.NewValidationError("vector key cannot be empty")
	}
	if len(key) > maxKeyBytes {
		return apperrors.NewValidationErrorf("vector key exceeds %d byte limit", maxKeyBytes)
	}
	return nil
}

// ValidateMetadataSize checks the serialized size of per-row metadata
func (l Limits) ValidateMetadataSize(metadata map[string]interface{}) error {
	if len(metadata) == 0 {
		return nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return apperrors.NewValidationError("metadata is not serializable")
	}
	if len(raw) > l.MaxMetadataBytes {
		return apperrors.NewValidationErrorf("metadata size exceeds %d byte limit, got %d bytes", l.MaxMetadataBytes, len(raw))
	}
	return nil
}
