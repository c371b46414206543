package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aahadr1/AdsCreator-sub003/internal/adapter/repo"
	"github.com/aahadr1/AdsCreator-sub003/internal/assembler"
	"github.com/aahadr1/AdsCreator-sub003/internal/embeddings"
	"github.com/aahadr1/AdsCreator-sub003/internal/http/handlers"
	"github.com/aahadr1/AdsCreator-sub003/internal/http/httpapi"
	"github.com/aahadr1/AdsCreator-sub003/internal/infra"
	"github.com/aahadr1/AdsCreator-sub003/internal/jobstore"
	"github.com/aahadr1/AdsCreator-sub003/internal/pipeline"
	"github.com/aahadr1/AdsCreator-sub003/internal/poller"
	"github.com/aahadr1/AdsCreator-sub003/internal/provider"
	"github.com/aahadr1/AdsCreator-sub003/internal/ranker"
	"github.com/aahadr1/AdsCreator-sub003/internal/ratelimit"
	"github.com/aahadr1/AdsCreator-sub003/internal/retrieval"
	"github.com/aahadr1/AdsCreator-sub003/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	ctx := context.Background()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	var store storage.ObjectStore
	switch cfg.StorageBackend {
	case "s3":
		store, err = storage.NewS3Store(ctx, storage.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PathStyle:     cfg.S3PathStyle,
			PublicBaseURL: cfg.StorageBaseURL,
		})
	default:
		store, err = storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	registry := provider.NewRegistry(
		provider.NewReplicate(provider.ReplicateOptions{
			APIToken: cfg.ReplicateAPIToken,
			BaseURL:  cfg.ReplicateBaseURL,
		}),
		provider.NewFalQueue(provider.FalQueueOptions{
			APIKey:  cfg.FalAPIKey,
			BaseURL: cfg.FalBaseURL,
		}),
	)
	rehoster := provider.NewRehoster(store, logger)

	jobs := jobstore.New(rdb)
	tick := poller.New(registry, jobs, rehoster, poller.Options{
		Interval: cfg.PollInterval,
		Budget:   cfg.PollBudget,
	}, logger)

	assetRepo := repo.NewAssetRepository(dbpool)
	choiceRepo := repo.NewChoiceRepository(dbpool)

	embedder := embeddings.NewClient(embeddings.ClientOptions{
		BaseURL: cfg.EmbeddingsBaseURL,
		APIKey:  cfg.EmbeddingsAPIKey,
		Model:   cfg.EmbeddingsModel,
	})
	retriever := retrieval.New(embedder, assetRepo, assetRepo, retrieval.Options{
		TopK:      cfg.RetrievalTopK,
		PoolLimit: cfg.RetrievalPoolLimit,
	}, logger)

	chat := ranker.NewClient(ranker.ClientOptions{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
	})
	seq := pipeline.New(retriever, ranker.New(chat, logger), choiceRepo, logger)

	app := &handlers.App{
		Jobs:      jobs,
		Registry:  registry,
		Poller:    tick,
		Pipeline:  seq,
		Assembler: assembler.New(store, &assembler.FFmpeg{}, nil, logger),
		Limiter:   ratelimit.NewSubmitLimiter(rdb, cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour),
		Logger:    logger,
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
