package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	apihttp "streampilot/internal/api/http"
	"streampilot/internal/app"
	"streampilot/internal/domain"
	"streampilot/internal/metrics"
	mongorepo "streampilot/internal/repository/mongo"
	"streampilot/internal/resolver"
	"streampilot/internal/session"
	"streampilot/internal/sink"
	"streampilot/internal/telemetry"

	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "streampilot")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "streampilot"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("resolutionBaseUrl", cfg.ResolutionBaseURL),
		slog.Duration("pollInterval", cfg.PollInterval),
		slog.Duration("heartbeatInterval", cfg.HeartbeatInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	mongoClient, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	progressRepo := mongorepo.NewWatchProgressRepository(mongoClient, cfg.MongoDatabase)
	errorLogRepo := mongorepo.NewErrorLogRepository(mongoClient, cfg.MongoDatabase)
	autoPlayRepo := mongorepo.NewAutoPlayRepository(mongoClient, cfg.MongoDatabase)

	if err := progressRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}
	if err := errorLogRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, caching disabled", slog.String("error", err.Error()))
			redisClient = nil
		}
	}

	service := resolver.NewClient(resolver.Config{
		BaseURL: cfg.ResolutionBaseURL,
		Client: &http.Client{
			Timeout:   cfg.ResolutionTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Redis:    redisClient,
		CacheTTL: cfg.CacheTTL,
		Logger:   logger,
	})

	hub := apihttp.NewHub(logger)
	go hub.Run()

	remote := sink.NewRemote(hub, logger)
	hub.SetEventSink(remote)

	manager := session.NewManager(session.ManagerConfig{
		Service:           service,
		Sink:              remote,
		Progress:          progressRepo,
		ErrorLog:          errorLogRepo,
		AutoPlay:          autoPlayRepo,
		Logger:            logger,
		Notify:            hub.Broadcast,
		PollInterval:      cfg.PollInterval,
		SettleDelay:       cfg.SettleDelay,
		HeartbeatInterval: cfg.HeartbeatInterval,
		MaxPollFailures:   cfg.MaxPollFailures,
	})

	handler := apihttp.NewServer(manager,
		apihttp.WithLogger(logger),
		apihttp.WithHub(hub),
		apihttp.WithWatchProgress(progressRepo),
		apihttp.WithErrorLog(errorLogRepo),
		apihttp.WithAllowedOrigins(cfg.AllowedOrigins),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := manager.Stop(shutdownCtx); err != nil && !errors.Is(err, domain.ErrNoActiveSession) {
		logger.Debug("session stop on shutdown", slog.String("error", err.Error()))
	}
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close error", slog.String("error", err.Error()))
		}
	}
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
