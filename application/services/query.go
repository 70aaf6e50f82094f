package services

import (
	"bytes"
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"s3vectors/application/ports"
	"s3vectors/domain/core/entities"
	"s3vectors/domain/core/validators"
	"s3vectors/domain/core/valueobjects"
	"s3vectors/domain/filter"
	"s3vectors/infrastructure/persistence/idmap"
	persistschema "s3vectors/infrastructure/persistence/schema"
	"s3vectors/pkg/ann"
	"s3vectors/pkg/cache"
	apperrors "s3vectors/pkg/errors"
)

// overFetch is the candidate multiplier applied when a filter may reject
// hits. Filter rejections come out of this head-room; tombstones get exact
// head-room of their own.
const overFetch = 4

// QueryRequest carries one ANN query
type QueryRequest struct {
	QueryVector    []float32
	TopK           int
	Filter         json.RawMessage
	NProbe         int
	ReturnDistance bool
	ReturnData     bool
	ReturnMetadata bool
}

// Projection selects the fields returned by get and list operations
type Projection struct {
	ReturnData     bool
	ReturnMetadata bool
}

// QueryService is the read path: manifest to cached backend to ranked rows,
// with filtering and the typed-over-JSON metadata merge. It takes no locks
// and never writes.
type QueryService struct {
	store    ports.ObjectStore
	catalog  *CatalogService
	backends *cache.BackendCache
	limits   validators.Limits
	logger   *zap.Logger
}

// NewQueryService creates the query engine
func NewQueryService(store ports.ObjectStore, catalog *CatalogService, backends *cache.BackendCache, limits validators.Limits, logger *zap.Logger) *QueryService {
	return &QueryService{store: store, catalog: catalog, backends: backends, limits: limits, logger: logger}
}

// Query executes an ANN search. An index with no committed manifest, or a
// manifest with zero live vectors, returns the empty list without error.
func (s *QueryService) Query(ctx context.Context, bucket, index string, req QueryRequest) ([]entities.QueryResultVector, error) {
	cfg, err := s.catalog.GetIndex(ctx, bucket, index)
	if err != nil {
		return nil, err
	}
	if err := s.limits.ValidateTopK(req.TopK); err != nil {
		return nil, err
	}
	if len(req.QueryVector) != cfg.Dimension {
		return nil, apperrors.NewValidationErrorf("query vector has dimension %d, index %q wants %d",
			len(req.QueryVector), index, cfg.Dimension)
	}
	expr, err := filter.Parse(req.Filter)
	if err != nil {
		return nil, err
	}

	var manifest entities.Manifest
	manifestETag, err := s.store.GetJSON(ctx, bucket, valueobjects.ManifestKey(index), &manifest)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return []entities.QueryResultVector{}, nil
		}
		return nil, err
	}
	if manifest.Vectors == 0 {
		return []entities.QueryResultVector{}, nil
	}

	backend, err := s.loadBackend(ctx, bucket, index, manifest, manifestETag)
	if err != nil {
		return nil, err
	}
	m, err := s.loadRows(ctx, bucket, index, cfg)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return []entities.QueryResultVector{}, nil
	}
	if backend.Len() < m.Len() {
		// Rows appended after the last committed blob are listable and
		// gettable but not searchable until the next build.
		s.logger.Warn("backend behind id map, unindexed tail unsearchable",
			zap.String("bucket", bucket),
			zap.String("index", index),
			zap.Int("backend", backend.Len()),
			zap.Int("idmap", m.Len()),
		)
	}

	// The backend ranks tombstones like any other row and they are dropped
	// after the search, so every query fetches head-room for them. At most
	// dead of the candidates can be tombstoned, which keeps the topK nearest
	// live rows inside the candidate set.
	dead := m.Len() - m.LiveCount()
	fetch := req.TopK + dead
	if expr != nil {
		fetch = req.TopK*overFetch + dead
	}

	results := make([]entities.QueryResultVector, 0, req.TopK)
	for _, hit := range backend.Search(req.QueryVector, fetch, req.NProbe) {
		if hit.ID < 0 {
			continue
		}
		row, ok := m.ByID(hit.ID)
		if !ok || !row.Alive {
			continue
		}
		metadata, err := persistschema.Merge(row.Cells, row.MetadataJSON)
		if err != nil {
			return nil, err
		}
		if expr != nil && !expr.Matches(metadata) {
			continue
		}

		out := entities.QueryResultVector{Key: row.Key}
		if req.ReturnDistance {
			d := hit.Distance
			out.Distance = &d
		}
		if req.ReturnData {
			out.Data = &entities.VectorData{Float32: row.Vector}
		}
		if req.ReturnMetadata && len(metadata) > 0 {
			out.Metadata = metadata
		}
		results = append(results, out)
		if len(results) == req.TopK {
			break
		}
	}
	return results, nil
}

// GetVectors fetches rows by key. Missing and tombstoned keys are silently
// absent from the result.
func (s *QueryService) GetVectors(ctx context.Context, bucket, index string, keys []string, proj Projection) ([]entities.OutputVector, error) {
	cfg, err := s.catalog.GetIndex(ctx, bucket, index)
	if err != nil {
		return nil, err
	}
	if err := s.limits.ValidateBatchSize(len(keys)); err != nil {
		return nil, err
	}
	m, err := s.loadRows(ctx, bucket, index, cfg)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return []entities.OutputVector{}, nil
	}

	results := make([]entities.OutputVector, 0, len(keys))
	for _, key := range keys {
		row, ok := m.ByKey(key)
		if !ok {
			continue
		}
		out, err := s.project(row, proj)
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}
	return results, nil
}

// ListVectors pages live rows in key order. The returned token is the last
// key of the page, empty when the listing is exhausted.
func (s *QueryService) ListVectors(ctx context.Context, bucket, index string, maxResults int, nextToken string, proj Projection) ([]entities.OutputVector, string, error) {
	cfg, err := s.catalog.GetIndex(ctx, bucket, index)
	if err != nil {
		return nil, "", err
	}
	if maxResults <= 0 {
		maxResults = DefaultListLimit
	}
	m, err := s.loadRows(ctx, bucket, index, cfg)
	if err != nil {
		return nil, "", err
	}
	if m == nil {
		return []entities.OutputVector{}, "", nil
	}

	rows, cursor := m.Page(nextToken, maxResults)
	results := make([]entities.OutputVector, 0, len(rows))
	for _, row := range rows {
		out, err := s.project(row, proj)
		if err != nil {
			return nil, "", err
		}
		results = append(results, out)
	}
	return results, cursor, nil
}

func (s *QueryService) project(row idmap.Row, proj Projection) (entities.OutputVector, error) {
	out := entities.OutputVector{Key: row.Key}
	if proj.ReturnData {
		out.Data = &entities.VectorData{Float32: row.Vector}
	}
	if proj.ReturnMetadata {
		metadata, err := persistschema.Merge(row.Cells, row.MetadataJSON)
		if err != nil {
			return entities.OutputVector{}, err
		}
		if len(metadata) > 0 {
			out.Metadata = metadata
		}
	}
	return out, nil
}

// loadBackend returns the deserialized backend for the committed manifest,
// via the etag-keyed cache
func (s *QueryService) loadBackend(ctx context.Context, bucket, index string, manifest entities.Manifest, manifestETag string) (ann.Backend, error) {
	return s.backends.Get(cache.Key(bucket, index, manifestETag), func() (ann.Backend, error) {
		blob, _, err := s.store.GetBytes(ctx, bucket, valueobjects.IndexBlobKey(index, manifest.Algo))
		if err != nil {
			return nil, err
		}
		backend, err := ann.Load(bytes.NewReader(blob))
		if err != nil {
			return nil, apperrors.NewDependencyError("deserialize index backend", err)
		}
		return backend, nil
	})
}

// loadRows loads the ID map, with the typed column set read from the
// persisted schema registry. A missing ID map means the index has never been
// built; callers get a nil map.
func (s *QueryService) loadRows(ctx context.Context, bucket, index string, cfg entities.IndexConfig) (*idmap.Map, error) {
	registry := persistschema.NewRegistry(cfg.NonFilterableMetadataKeys)
	if _, err := s.store.GetJSON(ctx, bucket, valueobjects.SchemaKey(index), registry); err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	data, _, err := s.store.GetBytes(ctx, bucket, valueobjects.IDMapKey(index))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return idmap.Decode(data, registry.Columns)
}
