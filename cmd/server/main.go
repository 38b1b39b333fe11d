package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/touchstone3d/semseg/internal/api"
	"github.com/touchstone3d/semseg/internal/config"
	"github.com/touchstone3d/semseg/internal/dataset"
	"github.com/touchstone3d/semseg/internal/evalstore"
	"github.com/touchstone3d/semseg/internal/evaluator"
	"github.com/touchstone3d/semseg/internal/utils/logger"
	"github.com/touchstone3d/semseg/internal/utils/redis"
)

func main() {
	// .env may set ENVIRONMENT and LOG_LEVEL, so it is read before the logger starts
	envErr := godotenv.Load()

	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()
	log.Info().Msg("starting touchstone server...")
	if envErr != nil {
		log.Debug().Msg(".env not loaded; continuing with existing environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	opts, err := evaluator.ConfigOptions(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load similarity matrix")
	}

	if cfg.StorePath != "" {
		store, err := evalstore.Open(cfg.StorePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.StorePath).Msg("failed to open run store")
		}
		defer store.Close()
		opts = append(opts, evaluator.WithStore(store))
	} else {
		log.Warn().Msg("STORE_PATH not set, evaluation runs will not be persisted")
	}

	if cfg.RedisHost != "" {
		r, err := redis.NewRedis(&cfg.RedisEnvConfig)
		if err != nil {
			log.Error().Err(err).Msg("failed to init redis client, continuing without redis")
		} else {
			defer r.Close()
			opts = append(opts, evaluator.WithRedis(r))
		}
	}

	ev, err := evaluator.New(cfg.NumClasses, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init evaluator")
	}

	serverOpts := []api.Option{api.WithNumClasses(cfg.NumClasses)}
	if ds, err := dataset.NewFromEnv(&cfg.DatasetEnvConfig); err != nil {
		log.Warn().Err(err).Str("dir", cfg.DataPath).Msg("dataset not loaded, sample routes disabled")
	} else {
		serverOpts = append(serverOpts, api.WithSamples(ds))
	}

	srv := api.NewServer(&cfg.ServerEnvConfig, ev, serverOpts...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("shutdown signal received, stopping server")
		ev.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	ev.Start()

	if err := srv.Listen(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
	ev.Stop()
	log.Info().Msg("server stopped")
}
