package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/fx"
	"go.uber.org/zap"

	pkgembedding "github.com/qanoon/halp/pkg/clients/embedding"
	pkgopenai "github.com/qanoon/halp/pkg/clients/openai"
	pkgrerank "github.com/qanoon/halp/pkg/clients/rerank"
	"github.com/qanoon/halp/pkg/config"
	"github.com/qanoon/halp/pkg/ingest"
	"github.com/qanoon/halp/pkg/logger"
	"github.com/qanoon/halp/pkg/redis"
	"github.com/qanoon/halp/pkg/search"
	"github.com/qanoon/halp/pkg/storage"
	"github.com/qanoon/halp/pkg/store"
)

// Module is the top-level fx wiring: infrastructure, clients, services,
// then the HTTP server and its start/stop lifecycle hook.
var Module = fx.Options(
	InfrastructureModule,
	ClientsModule,
	ServicesModule,
	HTTPServerModule,
	fx.Invoke(StartHTTPServer),
)

// InfrastructureModule provides config, logging, the dual store, and the
// Redis client/cache.
var InfrastructureModule = fx.Module("infrastructure",
	fx.Provide(
		NewAppConfig,
		NewAppLogger,
		NewRelationalStore,
		NewVectorStore,
		NewRedisConnection,
		NewDualStore,
		NewSourceArchive,
	),
)

// ClientsModule provides the external service clients.
var ClientsModule = fx.Module("clients",
	fx.Provide(
		NewExternalClients,
	),
)

// ServicesModule provides the domain services: embedding, search, ingest.
var ServicesModule = fx.Module("services",
	fx.Provide(
		NewEmbeddingService,
		NewSearchService,
		NewIngestCoordinator,
		NewServer,
	),
)

// HTTPServerModule provides the gin engine wrapped in an *http.Server.
var HTTPServerModule = fx.Module("http_server",
	fx.Provide(
		NewHTTPHandler,
	),
)

// ================================
// Infrastructure constructors
// ================================

func NewAppConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func NewAppLogger() (*zap.Logger, error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger.Get(), nil
}

func NewRelationalStore(lc fx.Lifecycle, cfg *config.Config) (*store.RelationalStore, error) {
	ctx := context.Background()
	rel, err := store.NewRelationalStore(ctx, cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("connect relational store: %w", err)
	}
	if err := rel.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate relational store: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { rel.Close(); return nil }})
	return rel, nil
}

func NewVectorStore(cfg *config.Config) (*store.VectorStore, error) {
	ctx := context.Background()
	dim := cfg.Services.Embedding.Dim
	if dim == 0 {
		dim = pkgembedding.GetDefaultDimension(cfg.Services.Embedding.Model)
	}
	vec, err := store.NewVectorStore(ctx, cfg.DatabaseDSN(), dim)
	if err != nil {
		return nil, fmt.Errorf("connect vector store: %w", err)
	}
	if err := vec.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate vector store: %w", err)
	}
	return vec, nil
}

func NewRedisConnection(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	client, err := redis.NewClientFromConfig(*cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { client.Close(); return nil }})
	return client, nil
}

func NewDualStore(rel *store.RelationalStore, vec *store.VectorStore, redisClient *redis.Client) *store.Store {
	return store.New(rel, vec, redisClient)
}

func NewSourceArchive(cfg *config.Config) (storage.SourceArchive, error) {
	archive, err := storage.NewMinIOArchive(context.Background(), *cfg)
	if err != nil {
		return nil, fmt.Errorf("connect source archive: %w", err)
	}
	return archive, nil
}

// ================================
// Client constructors
// ================================

// ExternalClients groups the raw HTTP clients to external services.
type ExternalClients struct {
	Embedding pkgembedding.RawEmbedder
	Reranker  *pkgrerank.Client
	LLM       *pkgopenai.Client
}

func NewExternalClients(cfg *config.Config) *ExternalClients {
	return &ExternalClients{
		Embedding: pkgembedding.NewClient(cfg.Services.Embedding.ServiceConfig),
		Reranker:  pkgrerank.NewClient(cfg.Services.Reranker),
		LLM:       pkgopenai.NewClient(cfg.Services.LLM),
	}
}

// ================================
// Service constructors
// ================================

func NewEmbeddingService(clients *ExternalClients, cfg *config.Config) *pkgembedding.Service {
	return pkgembedding.NewService(clients.Embedding, cfg.Services.Embedding)
}

func NewSearchService(vec *store.VectorStore, rel *store.RelationalStore, embedder *pkgembedding.Service, clients *ExternalClients, redisClient *redis.Client, cfg *config.Config) *search.Service {
	return search.NewService(vec, rel, embedder, clients.Reranker, redisClient, cfg.Search)
}

func NewIngestCoordinator(rel *store.RelationalStore, dual *store.Store, archive storage.SourceArchive, embedder *pkgembedding.Service, redisClient *redis.Client, cfg *config.Config) *ingest.Coordinator {
	return ingest.NewCoordinator(rel, dual, archive, embedder, redisClient, *cfg)
}

// ================================
// HTTP server constructor + lifecycle
// ================================

func NewHTTPHandler(srv *Server, cfg *config.Config) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	// Request bodies with keys outside the DTOs (e.g. an unknown filter key)
	// fail binding with 400 instead of being silently dropped.
	binding.EnableDecoderDisallowUnknownFields = true
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/documents", srv.IngestDocument)
	router.POST("/search/semantic", srv.SemanticSearch)
	router.POST("/search/similar-to/:chunk_id", srv.SimilarChunks)
	router.POST("/search/hybrid", srv.HybridSearch)
	router.GET("/search/suggest", srv.Suggest)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Get().Info("http server configured", zap.String("address", addr))

	return &http.Server{Addr: addr, Handler: router}
}

// StartHTTPServer registers the OnStart/OnStop lifecycle hooks: the HTTP
// server is brought up in a goroutine, and a listen failure triggers a
// clean application shutdown rather than a silent hang.
func StartHTTPServer(httpServer *http.Server, lifecycle fx.Lifecycle, shutdowner fx.Shutdowner) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Get().Info("starting http server", zap.String("addr", httpServer.Addr))
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Get().Error("http server failed", zap.Error(err))
					if shutdownErr := shutdowner.Shutdown(); shutdownErr != nil {
						logger.Get().Error("application shutdown failed", zap.Error(shutdownErr))
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Get().Info("stopping http server")
			return httpServer.Shutdown(ctx)
		},
	})
}
