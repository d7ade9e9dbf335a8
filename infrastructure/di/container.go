// Package di hand-wires the application dependency graph
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"recall-backend/application/ports"
	queryhandlers "recall-backend/application/queries/handlers"
	"recall-backend/application/retrievers"
	"recall-backend/application/services"
	domainservices "recall-backend/domain/services"
	"recall-backend/infrastructure/config"
	"recall-backend/infrastructure/embedding"
	"recall-backend/infrastructure/persistence/postgres"
	"recall-backend/infrastructure/visibility"
	"recall-backend/interfaces/http/rest"
	"recall-backend/interfaces/http/rest/handlers"
	"recall-backend/pkg/auth"
	"recall-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   *postgres.Store
	Metrics *observability.Metrics

	NodeRepo   ports.NodeRepository
	EdgeRepo   ports.EdgeRepository
	MemoryRepo ports.MemoryRepository
	Embedder   ports.EmbeddingProvider

	GraphService  *services.GraphService
	MemoryService *services.MemoryService
	SearchHandler *queryhandlers.SearchHandler

	Router *rest.Router
}

// NewContainer builds the full dependency graph from configuration
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	storeCfg := postgres.DefaultConfig(cfg.DatabaseURL)
	storeCfg.MaxConns = int32(cfg.DBMaxConns)
	storeCfg.MinConns = int32(cfg.DBMinConns)
	storeCfg.HealthCheckPeriod = time.Duration(cfg.DBHealthCheckSecs) * time.Second
	storeCfg.EmbeddingDims = cfg.EmbeddingDims

	store, err := postgres.NewStore(ctx, storeCfg, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx, storeCfg.EmbeddingDims); err != nil {
			store.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	nodeRepo := postgres.NewNodeRepository(store, logger)
	edgeRepo := postgres.NewEdgeRepository(store, logger)
	memoryRepo := postgres.NewMemoryRepository(store, logger)

	var embedder ports.EmbeddingProvider
	if cfg.OpenAIAPIKey != "" {
		embedder = embedding.NewCachedProvider(
			embedding.NewOpenAIProvider(embedding.Config{
				APIKey:  cfg.OpenAIAPIKey,
				BaseURL: cfg.OpenAIBaseURL,
				Model:   cfg.EmbeddingModel,
			}, logger),
			5*time.Minute,
		)
	} else {
		logger.Warn("no embedding provider configured, semantic retrieval requires caller-supplied vectors")
	}

	traverser := domainservices.NewGraphTraverser(edgeRepo)
	graphService := services.NewGraphService(nodeRepo, edgeRepo, traverser, logger)
	memoryService := services.NewMemoryService(memoryRepo, embedder, logger)

	sources := []retrievers.Retriever{
		retrievers.NewSemanticRetriever(memoryRepo, embedder, logger),
		retrievers.NewKeywordRetriever(memoryRepo, logger),
		retrievers.NewGraphRetriever(nodeRepo, traverser, memoryRepo, cfg.GraphMaxDepth, logger),
	}

	searchCfg := queryhandlers.DefaultSearchConfig()
	searchCfg.FanOutFactor = cfg.FanOutFactor
	searchCfg.MaxFanOut = cfg.MaxFanOut
	searchCfg.RetrieverTimeout = cfg.RetrieverTimeout()

	searchHandler := queryhandlers.NewSearchHandler(
		sources,
		memoryRepo,
		visibility.NewTenantColumnProvider(),
		searchCfg,
		metrics,
		logger,
	)

	validator := auth.NewJWTValidator(cfg.JWTSecret, cfg.JWTIssuer)
	router := rest.NewRouter(
		handlers.NewSearchHandler(searchHandler, logger),
		handlers.NewGraphHandler(graphService, metrics, logger),
		handlers.NewMemoryHandler(memoryService, logger),
		validator,
		store,
		rest.RouterConfig{
			EnableCORS:    cfg.EnableCORS,
			EnableMetrics: cfg.EnableMetrics,
		},
		logger,
	)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Store:         store,
		Metrics:       metrics,
		NodeRepo:      nodeRepo,
		EdgeRepo:      edgeRepo,
		MemoryRepo:    memoryRepo,
		Embedder:      embedder,
		GraphService:  graphService,
		MemoryService: memoryService,
		SearchHandler: searchHandler,
		Router:        router,
	}, nil
}

// Close releases held resources and stops background loops
func (c *Container) Close() {
	if c.Router != nil {
		c.Router.Close()
	}
	if cached, ok := c.Embedder.(*embedding.CachedProvider); ok {
		cached.Close()
	}
	if c.Store != nil {
		c.Store.Close()
	}
}
