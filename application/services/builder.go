package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"s3vectors/application/ports"
	"s3vectors/domain/core/entities"
	"s3vectors/domain/core/valueobjects"
	"s3vectors/infrastructure/config"
	"s3vectors/infrastructure/persistence/idmap"
	persistschema "s3vectors/infrastructure/persistence/schema"
	"s3vectors/infrastructure/persistence/slice"
	"s3vectors/pkg/ann"
	apperrors "s3vectors/pkg/errors"
)

// BuilderService consolidates staged slices into the ID map and the ANN
// backend. It is the only writer of idmap, backend blob and manifest, and it
// runs under the per-index builder lease. The manifest write is the commit
// point: a failure before it leaves the old index fully intact, and staged
// slices are deleted only after it.
type BuilderService struct {
	store  ports.ObjectStore
	leases ports.LeaseManager
	cfg    *config.Config
	logger *zap.Logger
}

// NewBuilderService creates the builder
func NewBuilderService(store ports.ObjectStore, leases ports.LeaseManager, cfg *config.Config, logger *zap.Logger) *BuilderService {
	return &BuilderService{store: store, leases: leases, cfg: cfg, logger: logger}
}

func (b *BuilderService) lockTTL() time.Duration {
	return time.Duration(b.cfg.BuilderLockTTLSeconds) * time.Second
}

// Build consolidates all currently staged slices for an index. With nothing
// staged it is a no-op: same manifest, same blob. Lease contention surfaces
// as a Dependency error so callers may retry.
func (b *BuilderService) Build(ctx context.Context, bucket, index string) error {
	return b.withLease(ctx, bucket, index, func(cfg entities.IndexConfig) error {
		return b.buildLocked(ctx, bucket, index, cfg)
	})
}

// Tombstone flips the alive bit for the given keys and persists the ID map.
// Staged slices are consolidated first so a key written moments ago is
// deletable. The backend blob keeps the ids; queries drop dead rows after
// the backend returns them.
func (b *BuilderService) Tombstone(ctx context.Context, bucket, index string, keys []string) error {
	return b.withLease(ctx, bucket, index, func(cfg entities.IndexConfig) error {
		if err := b.buildLocked(ctx, bucket, index, cfg); err != nil {
			return err
		}
		registry, err := b.loadRegistry(ctx, bucket, index, cfg)
		if err != nil {
			return err
		}
		m, err := b.loadIDMap(ctx, bucket, index, registry)
		if err != nil {
			return err
		}
		if m.Tombstone(keys) == 0 {
			return nil
		}
		return b.persistIDMap(ctx, bucket, index, m)
	})
}

func (b *BuilderService) withLease(ctx context.Context, bucket, index string, fn func(entities.IndexConfig) error) error {
	var cfg entities.IndexConfig
	if _, err := b.store.GetJSON(ctx, bucket, valueobjects.IndexConfigKey(index), &cfg); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFoundError("index", index)
		}
		return err
	}

	lease, err := b.leases.Acquire(ctx, bucket, index, b.lockTTL())
	if err != nil {
		if err == ports.ErrLockHeld {
			return apperrors.NewDependencyError("acquire builder lease", err)
		}
		return err
	}
	defer func() {
		if rerr := lease.Release(ctx); rerr != nil {
			b.logger.Warn("builder lease release failed",
				zap.String("bucket", bucket),
				zap.String("index", index),
				zap.Error(rerr),
			)
		}
	}()
	return fn(cfg)
}

// buildLocked is the consolidation transaction. Caller holds the lease.
func (b *BuilderService) buildLocked(ctx context.Context, bucket, index string, cfg entities.IndexConfig) error {
	staged, err := b.store.ListPrefix(ctx, bucket, valueobjects.StagedPrefix(index))
	if err != nil {
		return err
	}
	if len(staged) == 0 {
		return nil
	}

	registry, err := b.loadRegistry(ctx, bucket, index, cfg)
	if err != nil {
		return err
	}
	m, err := b.loadIDMap(ctx, bucket, index, registry)
	if err != nil {
		return err
	}

	evolved := false
	appended := 0
	for _, key := range staged {
		data, _, err := b.store.GetBytes(ctx, bucket, key)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue // deleted under us, already consolidated
			}
			return err
		}
		rows, err := slice.Decode(key, data)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if len(row.Vector) != cfg.Dimension {
				return apperrors.NewDependencyError("consolidate slice",
					fmt.Errorf("%s: row %q has dimension %d, index wants %d", key, row.Key, len(row.Vector), cfg.Dimension))
			}
			metadata, err := decodeMetadata(row.MetadataJSON)
			if err != nil {
				return apperrors.NewDependencyError("consolidate slice", err)
			}
			if len(registry.Evolve(metadata)) > 0 {
				evolved = true
			}
			cells, rest, err := registry.Split(metadata)
			if err != nil {
				return err
			}
			m.Append(row.Key, row.Vector, rest, cells)
			appended++
		}
	}
	m.SetColumns(registry.Columns)

	if evolved {
		if _, err := b.store.PutJSON(ctx, bucket, valueobjects.SchemaKey(index), registry); err != nil {
			return err
		}
	}
	if err := b.persistIDMap(ctx, bucket, index, m); err != nil {
		return err
	}

	kind := b.chooseKind(cfg, m.Len())
	backend, params, err := b.buildBackend(cfg, kind, m)
	if err != nil {
		return err
	}
	var blob bytes.Buffer
	if err := backend.Save(&blob); err != nil {
		return apperrors.NewInternalError("serialize index backend").WithCause(err)
	}
	algo := kindAlgo(kind)
	if _, err := b.store.PutBytes(ctx, bucket, valueobjects.IndexBlobKey(index, algo), blob.Bytes(), "application/octet-stream"); err != nil {
		return err
	}

	manifest := entities.Manifest{
		Algo:      algo,
		Dimension: cfg.Dimension,
		Metric:    cfg.DistanceMetric,
		Vectors:   m.LiveCount(),
		Params:    params,
	}
	if _, err := b.store.PutJSON(ctx, bucket, valueobjects.ManifestKey(index), manifest); err != nil {
		return err
	}

	// Committed. Anything from here on is garbage collection.
	for _, key := range staged {
		if err := b.store.DeleteObject(ctx, bucket, key); err != nil {
			b.logger.Warn("staged slice cleanup failed, will retry next build",
				zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		}
	}
	if other := otherAlgo(algo); other != "" {
		if err := b.store.DeleteObject(ctx, bucket, valueobjects.IndexBlobKey(index, other)); err != nil {
			b.logger.Warn("stale backend blob cleanup failed",
				zap.String("bucket", bucket), zap.String("index", index), zap.Error(err))
		}
	}

	b.logger.Info("index build committed",
		zap.String("bucket", bucket),
		zap.String("index", index),
		zap.String("algo", string(algo)),
		zap.Int("slices", len(staged)),
		zap.Int("appended", appended),
		zap.Int("vectors", manifest.Vectors),
	)
	return nil
}

// chooseKind resolves the configured algorithm, applying the hybrid
// threshold to the total row count
func (b *BuilderService) chooseKind(cfg entities.IndexConfig, total int) ann.Kind {
	switch cfg.Algorithm {
	case valueobjects.AlgorithmGraph:
		return ann.KindHNSW
	case valueobjects.AlgorithmIVFPQ:
		return ann.KindIVFPQ
	default:
		return ann.ChooseKind(total, cfg.Dimension, b.cfg.HybridThreshold)
	}
}

func (b *BuilderService) buildBackend(cfg entities.IndexConfig, kind ann.Kind, m *idmap.Map) (ann.Backend, map[string]interface{}, error) {
	vectors, ids := m.VectorsAndIDs()
	metric := annMetric(cfg.DistanceMetric)

	switch kind {
	case ann.KindIVFPQ:
		backend := ann.BuildIVFPQ(vectors, ids, cfg.Dimension, metric, ann.IVFPQParams{
			NList: b.cfg.IVFPQNList,
			M:     b.cfg.IVFPQM,
			NBits: b.cfg.IVFPQNBits,
		})
		params := map[string]interface{}{
			"nlist": backend.NList(),
			"m":     b.cfg.IVFPQM,
			"nbits": b.cfg.IVFPQNBits,
		}
		return backend, params, nil
	case ann.KindHNSW:
		backend := ann.BuildHNSW(vectors, ids, cfg.Dimension, metric, b.cfg.HNSWM, b.cfg.HNSWEfConstruction)
		params := map[string]interface{}{
			"m":              b.cfg.HNSWM,
			"efConstruction": b.cfg.HNSWEfConstruction,
		}
		return backend, params, nil
	}
	return nil, nil, apperrors.NewInternalError(fmt.Sprintf("unknown backend kind %q", kind))
}

func (b *BuilderService) loadRegistry(ctx context.Context, bucket, index string, cfg entities.IndexConfig) (*persistschema.Registry, error) {
	registry := persistschema.NewRegistry(cfg.NonFilterableMetadataKeys)
	if _, err := b.store.GetJSON(ctx, bucket, valueobjects.SchemaKey(index), registry); err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	return registry, nil
}

func (b *BuilderService) loadIDMap(ctx context.Context, bucket, index string, registry *persistschema.Registry) (*idmap.Map, error) {
	data, _, err := b.store.GetBytes(ctx, bucket, valueobjects.IDMapKey(index))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return idmap.New(registry.Columns), nil
		}
		return nil, err
	}
	return idmap.Decode(data, registry.Columns)
}

func (b *BuilderService) persistIDMap(ctx context.Context, bucket, index string, m *idmap.Map) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	_, err = b.store.PutBytes(ctx, bucket, valueobjects.IDMapKey(index), data, "application/vnd.apache.parquet")
	return err
}

func annMetric(metric valueobjects.DistanceMetric) ann.Metric {
	if metric == valueobjects.MetricEuclidean {
		return ann.MetricEuclidean
	}
	return ann.MetricCosine
}

func kindAlgo(kind ann.Kind) valueobjects.Algorithm {
	if kind == ann.KindIVFPQ {
		return valueobjects.AlgorithmIVFPQ
	}
	return valueobjects.AlgorithmGraph
}

func otherAlgo(algo valueobjects.Algorithm) valueobjects.Algorithm {
	switch algo {
	case valueobjects.AlgorithmGraph:
		return valueobjects.AlgorithmIVFPQ
	case valueobjects.AlgorithmIVFPQ:
		return valueobjects.AlgorithmGraph
	}
	return ""
}

func decodeMetadata(metadataJSON string) (map[string]interface{}, error) {
	if metadataJSON == "" || metadataJSON == "{}" || metadataJSON == "null" {
		return map[string]interface{}{}, nil
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}
