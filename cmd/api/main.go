package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "travel_market/internal/adapters/http_server"
	"travel_market/internal/adapters/observability"
	redisad "travel_market/internal/adapters/redis"
	"travel_market/internal/app"
	"travel_market/internal/shared"
	"travel_market/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api", cfg.LogLevel)

	// storage
	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("storage init failed")
	}
	defer closeStore()

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		// reads fall through to storage when redis is down
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
	}

	// deps
	guard := app.NewGuard(cfg.EditWindow, cfg.AllowAdminOverride)
	handlers := &server.Handlers{
		Q:         app.NewQueryService(store, store, cache, cfg.CacheTTL, guard),
		Reviews:   app.NewReviewService(store, store, store, cache, guard),
		Targets:   app.NewTargetService(store, guard),
		Bookings:  app.NewBookingService(store, store, guard),
		Recompute: app.NewRecomputeService(store, store, cache),
	}

	// http
	srv := server.New(server.Options{
		Auth:        server.NewAuthenticator([]byte(cfg.JWTSecret)),
		Limiter:     server.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		CORSOrigins: cfg.CORSOrigins,
	})
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(handlers)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Bool("admin_override", cfg.AllowAdminOverride).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
