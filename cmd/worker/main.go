package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/aahadr1/AdsCreator-sub003/internal/infra"
	"github.com/aahadr1/AdsCreator-sub003/internal/jobstore"
	"github.com/aahadr1/AdsCreator-sub003/internal/poller"
	"github.com/aahadr1/AdsCreator-sub003/internal/provider"
	"github.com/aahadr1/AdsCreator-sub003/internal/storage"
)

// The worker drives every non-terminal job to completion server-side, so
// outputs land even when no client is polling.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
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
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
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

	jobs := jobstore.New(rdb)
	p := poller.New(registry, jobs, provider.NewRehoster(store, logger), poller.Options{
		Interval: cfg.PollInterval,
		Budget:   cfg.PollBudget,
	}, logger)

	logger.Info().Strs("providers", registry.Names()).Msg("worker: started")
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
