// @title InternHub API
// @version 1.0
// @description Internship marketplace backend.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

//go:generate swag init -g cmd/api/main.go -d ../../ -o ../../docs
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"InternHub-backend/internal/auth"
	"InternHub-backend/internal/config"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/events"
	"InternHub-backend/internal/maintenance"
	"InternHub-backend/internal/server"
	"InternHub-backend/internal/storage"
	"InternHub-backend/internal/telemetry"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	auth.Configure(cfg.SecretKey, cfg.JWTTTL)
	auth.EnableAuthLog(cfg.AuthLogging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx)
	if err != nil {
		log.Fatalf("Tracing failed to initialize: %s", err)
	}

	db, err := database.GetMainDB(cfg)
	if err != nil {
		log.Fatalf("Database failed to initialize: %s", err)
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Storage failed to initialize: %s", err)
	}

	var rdb redis.UniversalClient
	var blacklist auth.JwtBlacklistStore = auth.NewInMemoryBlacklistStore(ctx, auth.DefaultBlacklistCleanup)
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis is unreachable: %s", err)
		}
		blacklist = auth.NewRedisBlacklistStore(rdb)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, "")
		if err != nil {
			slog.Warn("event publishing disabled", slog.String("error", err.Error()))
		} else {
			publisher = amqpPub
		}
	}

	httpServer, err := server.NewHTTPServer(&server.Server{
		Config:    cfg,
		DB:        db,
		Store:     store,
		Redis:     rdb,
		Events:    publisher,
		Blacklist: blacklist,
	})
	if err != nil {
		log.Fatalf("Router failed to initialize: %s", err)
	}

	go maintenance.NewSweeper(db, publisher).Run(ctx, cfg.SweepInterval)

	go func() {
		slog.Info("server started", slog.String("addr", httpServer.Addr), slog.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %s", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}
	if err := publisher.Close(); err != nil {
		slog.Warn("failed to close event publisher", slog.String("error", err.Error()))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("failed to flush traces", slog.String("error", err.Error()))
	}
	if err := db.Close(); err != nil {
		slog.Warn("failed to close database", slog.String("error", err.Error()))
	}
}
