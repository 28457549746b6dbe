package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/config"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/dashboards"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/database"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/evalapi"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/handlers"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/mcp"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/middleware"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/repositories"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/retry"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("evaluation_service", cfg.EvaluationService.BaseURL),
		zap.String("agent_state_backend", cfg.AgentState.Backend),
		zap.String("dashboards_file", cfg.DashboardsFile))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newAgentStateStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to set up agent state store", zap.Error(err))
	}
	defer closeStore()

	catalog, err := dashboards.LoadFile(cfg.DashboardsFile)
	if err != nil {
		logger.Fatal("Failed to load dashboards", zap.Error(err))
	}

	remote := evalapi.NewClient(
		config.ResolveURLForDocker(cfg.EvaluationService.BaseURL),
		cfg.EvaluationService.Timeout(),
		logger,
	)
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.EvaluationService.MaxRetries
	remote.SetRetryConfig(retryCfg)
	registry := services.NewSessionRegistry(store, remote, logger)
	directory := dashboards.NewDirectory(catalog, remote, logger)

	mcpServer := mcp.NewServer("ekaya-dashboards", cfg.Version, logger)
	mcpServer.RegisterDashboardTools(cfg.Version, registry)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, registry, logger).RegisterRoutes(mux)
	handlers.NewDashboardSessionHandler(registry, directory, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/mcp", mcpServer.Handler())

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger.Named("http"))(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting ekaya-dashboards",
		zap.String("addr", server.Addr),
		zap.Int("dashboards", len(catalog.List())))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newAgentStateStore returns the configured store and a cleanup func.
func newAgentStateStore(ctx context.Context, cfg *config.Config) (repositories.AgentStateStore, func(), error) {
	if cfg.AgentState.Backend != config.AgentStateBackendRedis {
		return repositories.NewMemoryAgentStateStore(), func() {}, nil
	}

	client, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return nil, nil, errors.New("agent_state.backend is redis but redis.host is not set")
	}
	store := repositories.NewRedisAgentStateStore(client, cfg.AgentState.KeyPrefix, cfg.AgentState.TTL())
	return store, func() { _ = client.Close() }, nil
}
