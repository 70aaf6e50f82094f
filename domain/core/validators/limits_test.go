package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "s3vectors/pkg/errors"
)

func TestValidateBucketName(t *testing.T) {
	assert.NoError(t, ValidateBucketName("my-vectors"))
	assert.NoError(t, ValidateBucketName("a1.b2.c3"))

	assert.Error(t, ValidateBucketName("ab"))
	assert.Error(t, ValidateBucketName(strings.Repeat("a", 64)))
	assert.Error(t, ValidateBucketName("Has-Capitals"))
	assert.Error(t, ValidateBucketName("under_score"))
	assert.Error(t, ValidateBucketName("-leading"))
	assert.Error(t, ValidateBucketName("trailing."))
}

func TestValidateIndexName(t *testing.T) {
	assert.NoError(t, ValidateIndexName("songs_v2"))
	assert.NoError(t, ValidateIndexName("Songs-2024"))

	assert.Error(t, ValidateIndexName(""))
	assert.Error(t, ValidateIndexName(strings.Repeat("x", 256)))
	assert.Error(t, ValidateIndexName("has space"))
	assert.Error(t, ValidateIndexName("has/slash"))
}

func TestValidateDimension(t *testing.T) {
	l := DefaultLimits()
	assert.NoError(t, l.ValidateDimension(1))
	assert.NoError(t, l.ValidateDimension(4096))

	assert.Error(t, l.ValidateDimension(0))
	assert.Error(t, l.ValidateDimension(-3))
	assert.Error(t, l.ValidateDimension(4097))
}

func TestValidateBatchSize(t *testing.T) {
	l := DefaultLimits()
	assert.NoError(t, l.ValidateBatchSize(0))
	assert.NoError(t, l.ValidateBatchSize(500))

	err := l.ValidateBatchSize(501)
	assert.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestValidateTopK(t *testing.T) {
	l := DefaultLimits()
	assert.NoError(t, l.ValidateTopK(1))
	assert.NoError(t, l.ValidateTopK(30))

	assert.Error(t, l.ValidateTopK(0))
	assert.Error(t, l.ValidateTopK(31))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("track-001"))
	assert.NoError(t, ValidateKey(strings.Repeat("k", 512)))

	assert.Error(t, ValidateKey(""))
	assert.Error(t, ValidateKey(strings.Repeat("k", 513)))
}

func TestValidateMetadataSize(t *testing.T) {
	l := DefaultLimits()
	assert.NoError(t, l.ValidateMetadataSize(nil))
	assert.NoError(t, l.ValidateMetadataSize(map[string]interface{}{"genre": "jazz"}))

	big := map[string]interface{}{"blob": strings.Repeat("x", 41*1024)}
	err := l.ValidateMetadataSize(big)
	assert.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
