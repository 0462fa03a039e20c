package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"travel_market/internal/adapters/observability"
	redisad "travel_market/internal/adapters/redis"
	"travel_market/internal/app"
	"travel_market/internal/shared"
	"travel_market/internal/storage"
)

func main() { os.Exit(run()) }

// run returns the process exit code: 1 when the job aborts, 2 when some
// targets failed.
func run() int {
	cfg := shared.Load()
	workers := flag.Int("workers", cfg.RecomputeWorkers, "concurrent targets")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "recompute", cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	log.Info().
		Str("driver", cfg.StorageDriver).
		Int("workers", *workers).
		Msg("recompute starting")

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("storage init failed")
		return 1
	}
	defer closeStore()

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	rep, err := app.NewRecomputeService(store, store, cache).RecomputeAll(ctx, *workers)
	if err != nil {
		log.Error().Err(err).Msg("recompute aborted")
		return 1
	}
	log.Info().Int("targets", rep.Targets).Int("failed", rep.Failed).Msg("recompute completed")
	if rep.Failed > 0 {
		return 2
	}
	return 0
}
