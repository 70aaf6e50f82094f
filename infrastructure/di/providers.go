// Package di wires the application together with hand-written providers
package di

import (
	"context"

	"go.uber.org/zap"

	"s3vectors/application/commands"
	"s3vectors/application/commands/bus"
	commandhandlers "s3vectors/application/commands/handlers"
	"s3vectors/application/ports"
	"s3vectors/application/queries"
	querybus "s3vectors/application/queries/bus"
	queryhandlers "s3vectors/application/queries/handlers"
	"s3vectors/application/services"
	"s3vectors/domain/core/validators"
	"s3vectors/infrastructure/config"
	"s3vectors/infrastructure/persistence/s3"
	"s3vectors/pkg/cache"
)

// Container holds the wired application
type Container struct {
	Logger     *zap.Logger
	Config     *config.Config
	Store      ports.ObjectStore
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
}

// ProvideLogger creates the process logger
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideLimits derives the enforced request limits from configuration
func ProvideLimits(cfg *config.Config) validators.Limits {
	return validators.Limits{
		MaxBatch:         cfg.MaxBatch,
		MaxTopK:          cfg.MaxTopK,
		MaxDim:           cfg.MaxDim,
		MaxMetadataBytes: cfg.MaxMetadataBytes,
	}
}

// InitializeContainer builds the full dependency graph
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	client, err := s3.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := s3.NewStore(client, cfg.S3BucketPrefix, logger)
	leases := s3.NewLeaseManager(store, logger)

	backends, err := cache.NewBackendCache(cfg.BackendCacheSize)
	if err != nil {
		return nil, err
	}

	limits := ProvideLimits(cfg)
	catalog := services.NewCatalogService(store, backends, limits, logger)
	builder := services.NewBuilderService(store, leases, cfg, logger)
	ingest := services.NewIngestService(store, builder, catalog, cfg, limits, logger)
	query := services.NewQueryService(store, catalog, backends, limits, logger)

	commandBus, err := registerCommands(catalog, ingest, builder)
	if err != nil {
		return nil, err
	}
	commandBus.Use(bus.LoggingMiddleware(logger))

	queryBus, err := registerQueries(catalog, query)
	if err != nil {
		return nil, err
	}

	return &Container{
		Logger:     logger,
		Config:     cfg,
		Store:      store,
		CommandBus: commandBus,
		QueryBus:   queryBus,
	}, nil
}

func registerCommands(catalog *services.CatalogService, ingest *services.IngestService, builder *services.BuilderService) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus()
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.CreateVectorBucketCommand{}, commandhandlers.NewCreateVectorBucketHandler(catalog)},
		{commands.DeleteVectorBucketCommand{}, commandhandlers.NewDeleteVectorBucketHandler(catalog)},
		{commands.CreateIndexCommand{}, commandhandlers.NewCreateIndexHandler(catalog)},
		{commands.DeleteIndexCommand{}, commandhandlers.NewDeleteIndexHandler(catalog)},
		{commands.PutVectorsCommand{}, commandhandlers.NewPutVectorsHandler(ingest)},
		{commands.DeleteVectorsCommand{}, commandhandlers.NewDeleteVectorsHandler(ingest)},
		{commands.BuildIndexCommand{}, commandhandlers.NewBuildIndexHandler(builder)},
	}
	for _, reg := range registrations {
		if err := commandBus.Register(reg.cmd, reg.handler); err != nil {
			return nil, err
		}
	}
	return commandBus, nil
}

func registerQueries(catalog *services.CatalogService, query *services.QueryService) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{queries.GetVectorBucketQuery{}, queryhandlers.NewGetVectorBucketHandler(catalog)},
		{queries.ListVectorBucketsQuery{}, queryhandlers.NewListVectorBucketsHandler(catalog)},
		{queries.GetIndexQuery{}, queryhandlers.NewGetIndexHandler(catalog)},
		{queries.ListIndexesQuery{}, queryhandlers.NewListIndexesHandler(catalog)},
		{queries.GetVectorsQuery{}, queryhandlers.NewGetVectorsHandler(query)},
		{queries.ListVectorsQuery{}, queryhandlers.NewListVectorsHandler(query)},
		{queries.QueryVectorsQuery{}, queryhandlers.NewQueryVectorsHandler(query)},
	}
	for _, reg := range registrations {
		if err := queryBus.Register(reg.query, reg.handler); err != nil {
			return nil, err
		}
	}
	return queryBus, nil
}
