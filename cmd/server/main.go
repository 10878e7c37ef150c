package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/api"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/api/middleware"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/config"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/handlers"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/messaging"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/queue"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/store"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the relational store: PostgreSQL when configured, SQLite otherwise
	var ds store.DataStore
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		ds = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		ds = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite")
	}
	defer ds.Close()

	opts := []messaging.Option{messaging.WithTypingWindow(cfg.TypingWindow)}
	routerOpts := api.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		},
	}

	// Redis carries typing presence, rate limits and the repair queue
	var (
		typing      store.TypingStore
		redisPinger handlers.Pinger
		worker      *queue.AsynqServer
	)
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		redisStore.WithTypingTTL(2 * cfg.TypingWindow)
		typing = redisStore
		redisPinger = redisStore
		routerOpts.RedisClient = redisStore.Client()
		logger.Info().Msg("connected to Redis")

		tasks, err := queue.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("task queue setup failed")
		}
		defer tasks.Close()
		opts = append(opts, messaging.WithQueue(tasks))

		worker, err = queue.NewAsynqServer(cfg.RedisURL, messaging.TaskQueue, cfg.WorkerConcurrency, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("task worker setup failed")
		}
	}

	svc := messaging.NewService(ds, typing, logger, opts...)

	if worker != nil {
		svc.RegisterTasks(worker)
		go func() {
			if err := worker.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("task worker stopped")
			}
		}()
	}

	// Create router
	h := handlers.NewHandler(svc, ds, redisPinger, logger)
	router := api.NewRouter(logger, h, routerOpts)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Dur("typing_window", cfg.TypingWindow).
			Msg("starting messaging server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
