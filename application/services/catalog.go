// Package services holds the application services behind the command and
// query handlers: bucket/index lifecycle, write staging, index builds, and
// the query engine.
package services

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"s3vectors/application/ports"
	"s3vectors/domain/core/entities"
	"s3vectors/domain/core/validators"
	"s3vectors/domain/core/valueobjects"
	persistschema "s3vectors/infrastructure/persistence/schema"
	"s3vectors/pkg/cache"
	apperrors "s3vectors/pkg/errors"
	"s3vectors/pkg/utils"
)

// DefaultListLimit bounds list operations when the caller does not set one
const DefaultListLimit = 500

// CatalogService owns the bucket and index lifecycle. Create is idempotent
// under equivalent parameters and a conflict otherwise; delete is a prefix
// sweep over the object store.
type CatalogService struct {
	store    ports.ObjectStore
	backends *cache.BackendCache
	limits   validators.Limits
	logger   *zap.Logger
}

// NewCatalogService creates the control-plane service
func NewCatalogService(store ports.ObjectStore, backends *cache.BackendCache, limits validators.Limits, logger *zap.Logger) *CatalogService {
	return &CatalogService{store: store, backends: backends, limits: limits, logger: logger}
}

// CreateBucket creates a vector bucket. Re-creating an existing bucket
// returns the original metadata unchanged.
func (s *CatalogService) CreateBucket(ctx context.Context, name string) (entities.BucketMeta, error) {
	if err := validators.ValidateBucketName(name); err != nil {
		return entities.BucketMeta{}, err
	}
	if err := s.store.EnsureBucket(ctx, name); err != nil {
		return entities.BucketMeta{}, err
	}

	var existing entities.BucketMeta
	if _, err := s.store.GetJSON(ctx, name, valueobjects.BucketMetaKey(), &existing); err == nil {
		return existing, nil
	} else if !apperrors.IsNotFound(err) {
		return entities.BucketMeta{}, err
	}

	meta := entities.NewBucketMeta(name, utils.NowRFC3339())
	if _, err := s.store.PutJSON(ctx, name, valueobjects.BucketMetaKey(), meta); err != nil {
		return entities.BucketMeta{}, err
	}
	s.logger.Info("vector bucket created", zap.String("bucket", name))
	return meta, nil
}

// GetBucket loads bucket metadata, reporting NotFound for unknown buckets
func (s *CatalogService) GetBucket(ctx context.Context, name string) (entities.BucketMeta, error) {
	if err := validators.ValidateBucketName(name); err != nil {
		return entities.BucketMeta{}, err
	}
	var meta entities.BucketMeta
	if _, err := s.store.GetJSON(ctx, name, valueobjects.BucketMetaKey(), &meta); err != nil {
		if apperrors.IsNotFound(err) {
			return entities.BucketMeta{}, apperrors.NewNotFoundError("vector bucket", name)
		}
		return entities.BucketMeta{}, err
	}
	return meta, nil
}

// ListBuckets returns bucket names matching the prefix, name-ordered, with
// last-name cursor pagination
func (s *CatalogService) ListBuckets(ctx context.Context, prefix string, maxResults int, nextToken string) ([]string, string, error) {
	names, err := s.store.ListBuckets(ctx)
	if err != nil {
		return nil, "", err
	}
	sort.Strings(names)

	var page []string
	for _, name := range names {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		if nextToken != "" && name <= nextToken {
			continue
		}
		// A swept bucket keeps its physical shell until the operator
		// removes it; only buckets with a metadata document are listed.
		var meta entities.BucketMeta
		if _, err := s.store.GetJSON(ctx, name, valueobjects.BucketMetaKey(), &meta); err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, "", err
		}
		page = append(page, name)
	}
	return paginate(page, maxResults)
}

// DeleteBucket sweeps every object in the bucket. The physical bucket is
// left in place; only its contents go.
func (s *CatalogService) DeleteBucket(ctx context.Context, name string) error {
	if _, err := s.GetBucket(ctx, name); err != nil {
		return err
	}
	if err := s.store.DeletePrefix(ctx, name, ""); err != nil {
		return err
	}
	s.logger.Info("vector bucket deleted", zap.String("bucket", name))
	return nil
}

// CreateIndex creates an index in a bucket. An existing index with an
// equivalent configuration makes the call an idempotent no-op; differing
// parameters are a conflict.
func (s *CatalogService) CreateIndex(ctx context.Context, bucket string, cfg entities.IndexConfig) (entities.IndexConfig, error) {
	if _, err := s.GetBucket(ctx, bucket); err != nil {
		return entities.IndexConfig{}, err
	}
	if err := validators.ValidateIndexName(cfg.IndexName); err != nil {
		return entities.IndexConfig{}, err
	}
	if err := s.limits.ValidateDimension(cfg.Dimension); err != nil {
		return entities.IndexConfig{}, err
	}
	if cfg.DataType == "" {
		cfg.DataType = valueobjects.DataTypeFloat32
	}
	if cfg.DataType != valueobjects.DataTypeFloat32 {
		return entities.IndexConfig{}, apperrors.NewValidationErrorf("unsupported data type %q", cfg.DataType)
	}
	if !cfg.DistanceMetric.IsValid() {
		return entities.IndexConfig{}, apperrors.NewValidationErrorf("unsupported distance metric %q", cfg.DistanceMetric)
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = valueobjects.AlgorithmHybrid
	}
	if !cfg.Algorithm.IsValid() {
		return entities.IndexConfig{}, apperrors.NewValidationErrorf("unsupported algorithm %q", cfg.Algorithm)
	}

	var existing entities.IndexConfig
	if _, err := s.store.GetJSON(ctx, bucket, valueobjects.IndexConfigKey(cfg.IndexName), &existing); err == nil {
		if existing.Equivalent(cfg) {
			return existing, nil
		}
		return entities.IndexConfig{}, apperrors.NewConflictError("index", cfg.IndexName)
	} else if !apperrors.IsNotFound(err) {
		return entities.IndexConfig{}, err
	}

	cfg.Created = utils.NowRFC3339()
	if _, err := s.store.PutJSON(ctx, bucket, valueobjects.IndexConfigKey(cfg.IndexName), cfg); err != nil {
		return entities.IndexConfig{}, err
	}
	registry := persistschema.NewRegistry(cfg.NonFilterableMetadataKeys)
	if _, err := s.store.PutJSON(ctx, bucket, valueobjects.SchemaKey(cfg.IndexName), registry); err != nil {
		return entities.IndexConfig{}, err
	}
	s.logger.Info("index created",
		zap.String("bucket", bucket),
		zap.String("index", cfg.IndexName),
		zap.Int("dimension", cfg.Dimension),
		zap.String("metric", string(cfg.DistanceMetric)),
	)
	return cfg, nil
}

// GetIndex loads an index configuration
func (s *CatalogService) GetIndex(ctx context.Context, bucket, index string) (entities.IndexConfig, error) {
	if _, err := s.GetBucket(ctx, bucket); err != nil {
		return entities.IndexConfig{}, err
	}
	if err := validators.ValidateIndexName(index); err != nil {
		return entities.IndexConfig{}, err
	}
	var cfg entities.IndexConfig
	if _, err := s.store.GetJSON(ctx, bucket, valueobjects.IndexConfigKey(index), &cfg); err != nil {
		if apperrors.IsNotFound(err) {
			return entities.IndexConfig{}, apperrors.NewNotFoundError("index", index)
		}
		return entities.IndexConfig{}, err
	}
	return cfg, nil
}

// ListIndexes returns index names in a bucket, name-ordered with last-name
// cursor pagination
func (s *CatalogService) ListIndexes(ctx context.Context, bucket, prefix string, maxResults int, nextToken string) ([]string, string, error) {
	if _, err := s.GetBucket(ctx, bucket); err != nil {
		return nil, "", err
	}
	keys, err := s.store.ListPrefix(ctx, bucket, valueobjects.IndexDir+"/")
	if err != nil {
		return nil, "", err
	}

	var names []string
	for _, key := range keys {
		name := valueobjects.IndexNameFromConfigKey(key)
		if name == "" {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		if nextToken != "" && name <= nextToken {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return paginate(names, maxResults)
}

// DeleteIndex sweeps the index's durable state and staged slices, and drops
// any cached backend for it
func (s *CatalogService) DeleteIndex(ctx context.Context, bucket, index string) error {
	if _, err := s.GetIndex(ctx, bucket, index); err != nil {
		return err
	}
	if err := s.store.DeletePrefix(ctx, bucket, valueobjects.IndexPrefix(index)); err != nil {
		return err
	}
	if err := s.store.DeletePrefix(ctx, bucket, valueobjects.StagedPrefix(index)); err != nil {
		return err
	}
	s.backends.InvalidateIndex(bucket, index)
	s.logger.Info("index deleted", zap.String("bucket", bucket), zap.String("index", index))
	return nil
}

func paginate(names []string, maxResults int) ([]string, string, error) {
	if maxResults <= 0 {
		maxResults = DefaultListLimit
	}
	if len(names) > maxResults {
		return names[:maxResults], names[maxResults-1], nil
	}
	return names, "", nil
}
