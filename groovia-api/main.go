package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/groovia/groovia/groovia-api/pkg/config"
	"github.com/groovia/groovia/groovia-api/pkg/db"
	"github.com/groovia/groovia/groovia-api/pkg/events"
	"github.com/groovia/groovia/groovia-api/pkg/handler"
	"github.com/groovia/groovia/groovia-api/pkg/proxy"
	"github.com/groovia/groovia/groovia-api/pkg/ratelimit"
	"github.com/groovia/groovia/groovia-api/pkg/service"
	"github.com/groovia/groovia/groovia-api/pkg/validation"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	statsInterval  = 5 * time.Minute
	limiterIdleTTL = 10 * time.Minute
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Loaded config", zap.String("env", cfg.AppEnv), zap.String("port", cfg.Port))

	sentryEnabled := cfg.SentryDSN != ""
	if sentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			log.Fatal("Failed to init sentry", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	database, err := db.NewDatabase(ctx, log, cfg.DatabaseURL, cfg.DatabaseName, db.Options{Transactions: cfg.MongoTransactions})
	if err != nil {
		log.Fatal("Failed to create database connection", zap.Error(err))
	}

	log.Info("Database connection established", zap.Bool("transactions", cfg.MongoTransactions))

	var (
		publisher events.Publisher = events.Nop{}
		rdb       *redis.Client
	)
	if cfg.RedisURL != "" {
		rdb, err = events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		publisher = events.NewRedisPublisher(rdb, cfg.EventsChannel, log)
		log.Info("Publishing playlist events", zap.String("channel", cfg.EventsChannel))
	}

	v := validation.New()
	playlists := service.NewPlaylistService(database, publisher, v, log)
	users := service.NewUserService(database, v, log)
	downloader := proxy.New(cfg.DownloadHeaderTimeout, log)
	limiter := ratelimit.New(cfg.DownloadRateLimit, cfg.DownloadRateBurst, limiterIdleTTL)

	h := handler.NewHandler(playlists, users, downloader, limiter, database, log)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: h.Router(handler.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Sentry:         sentryEnabled,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	go func() {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats, err := database.GetStats(ctx)
				if err != nil {
					log.Error("Failed to get stats for periodic log", zap.Error(err))
					continue
				}
				log.Info("periodic_stats",
					zap.Int64("total_users", stats.TotalUsers),
					zap.Int64("total_playlists", stats.TotalPlaylists),
					zap.Int64("public_playlists", stats.PublicPlaylists),
					zap.Int("rate_limited_clients", limiter.Len()),
				)
			case <-ctx.Done():
				return
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	cancel()
	limiter.Stop()

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("Redis close error", zap.Error(err))
		}
	}

	if err := database.Close(shutdownCtx); err != nil {
		log.Error("Database close error", zap.Error(err))
	}

	log.Info("Shutdown complete")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
