package services

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"s3vectors/application/ports"
	"s3vectors/domain/core/entities"
	"s3vectors/domain/core/validators"
	"s3vectors/domain/core/valueobjects"
	"s3vectors/infrastructure/config"
	"s3vectors/infrastructure/persistence/slice"
	apperrors "s3vectors/pkg/errors"
)

// IngestService validates write batches, stages them as slices, and drives
// consolidation. A batch is staged whole or not at all; validation failures
// leave no partial write behind.
type IngestService struct {
	store   ports.ObjectStore
	builder *BuilderService
	catalog *CatalogService
	cfg     *config.Config
	limits  validators.Limits
	logger  *zap.Logger

	// lastSliceMillis forces distinct slice keys for back-to-back batches
	// within one millisecond
	mu              sync.Mutex
	lastSliceMillis int64
}

// NewIngestService creates the write-path service
func NewIngestService(store ports.ObjectStore, builder *BuilderService, catalog *CatalogService, cfg *config.Config, limits validators.Limits, logger *zap.Logger) *IngestService {
	return &IngestService{store: store, builder: builder, catalog: catalog, cfg: cfg, limits: limits, logger: logger}
}

// PutVectors stages one write batch and synchronously consolidates it. The
// write is queryable once this returns, because the build commits the
// manifest before the response goes out.
func (s *IngestService) PutVectors(ctx context.Context, bucket, index string, vectors []entities.PutVector) error {
	cfg, err := s.catalog.GetIndex(ctx, bucket, index)
	if err != nil {
		return err
	}
	if err := s.limits.ValidateBatchSize(len(vectors)); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil // empty batch: no slice, no build
	}

	rows := make([]slice.Row, len(vectors))
	for i, v := range vectors {
		if err := validators.ValidateKey(v.Key); err != nil {
			return err
		}
		if len(v.Data.Float32) != cfg.Dimension {
			return apperrors.NewValidationErrorf("vector %q has dimension %d, index %q wants %d",
				v.Key, len(v.Data.Float32), index, cfg.Dimension)
		}
		for _, x := range v.Data.Float32 {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return apperrors.NewValidationErrorf("vector %q contains a non-finite value", v.Key)
			}
		}
		if err := s.limits.ValidateMetadataSize(v.Metadata); err != nil {
			return err
		}
		metadataJSON, err := encodeMetadata(v.Metadata)
		if err != nil {
			return err
		}
		rows[i] = slice.Row{Key: v.Key, Vector: v.Data.Float32, MetadataJSON: metadataJSON}
	}

	body, err := slice.Encode(s.cfg.SliceFormat, rows)
	if err != nil {
		return err
	}
	key := valueobjects.SliceKey(index, s.nextSliceMillis(), slice.Ext(s.cfg.SliceFormat))
	if _, err := s.store.PutBytes(ctx, bucket, key, body, slice.ContentType(s.cfg.SliceFormat)); err != nil {
		return err
	}
	s.logger.Debug("slice staged",
		zap.String("bucket", bucket),
		zap.String("index", index),
		zap.String("key", key),
		zap.Int("rows", len(rows)),
	)

	return s.builder.Build(ctx, bucket, index)
}

// DeleteVectors tombstones the given keys. Unknown keys are ignored; the
// internal ids of deleted keys stay reserved forever.
func (s *IngestService) DeleteVectors(ctx context.Context, bucket, index string, keys []string) error {
	if _, err := s.catalog.GetIndex(ctx, bucket, index); err != nil {
		return err
	}
	if err := s.limits.ValidateBatchSize(len(keys)); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	for _, key := range keys {
		if err := validators.ValidateKey(key); err != nil {
			return err
		}
	}
	return s.builder.Tombstone(ctx, bucket, index, keys)
}

// nextSliceMillis returns a strictly increasing millisecond timestamp
func (s *IngestService) nextSliceMillis() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= s.lastSliceMillis {
		now = s.lastSliceMillis + 1
	}
	s.lastSliceMillis = now
	return now
}

func encodeMetadata(metadata map[string]interface{}) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", apperrors.NewValidationError("metadata is not serializable")
	}
	return string(raw), nil
}
