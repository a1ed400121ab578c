// Command gatewayd is the code-execution gateway's HTTP process: it loads
// configuration, wires the leaf components (artifact store, run store, rate
// limiter, sandbox runner, stream hub) into an orchestrator, and serves the
// HTTP API until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/codeexec/gateway/internal/api"
	"github.com/codeexec/gateway/internal/artifactstore"
	"github.com/codeexec/gateway/internal/auth"
	"github.com/codeexec/gateway/internal/config"
	"github.com/codeexec/gateway/internal/metrics"
	"github.com/codeexec/gateway/internal/orchestrator"
	"github.com/codeexec/gateway/internal/podmanexec"
	"github.com/codeexec/gateway/internal/ratelimit"
	"github.com/codeexec/gateway/internal/runstore"
	"github.com/codeexec/gateway/internal/sandbox"
	"github.com/codeexec/gateway/internal/streamhub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("gatewayd: failed to load config: %v", err)
	}

	zapLogger, err := newZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("gatewayd: failed to build logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	if err := os.MkdirAll(cfg.ProfilesDir, 0700); err != nil {
		logger.Fatalw("gatewayd: failed to create seccomp profiles directory", "path", cfg.ProfilesDir, "error", err)
	}

	store, err := artifactstore.New(artifactstore.Config{
		Root:       cfg.ArtifactRoot,
		SigningKey: []byte(cfg.SignedURLSecret),
		TTL:        cfg.SignedURLTTL,
	}, logger)
	if err != nil {
		logger.Fatalw("gatewayd: failed to initialize artifact store", "error", err)
	}

	runs := runstore.New()

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatalw("gatewayd: invalid CODEEXEC_REDIS_URL", "error", err)
		}
		limiter = ratelimit.NewRedisLimiter(redis.NewClient(opts), cfg.RateLimitConfig())
		logger.Infow("gatewayd: using Redis-backed rate limiter", "url", cfg.RedisURL)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitConfig())
		logger.Info("gatewayd: using in-process rate limiter (single instance only)")
	}

	runner, err := newRunner(cfg, logger)
	if err != nil {
		logger.Fatalw("gatewayd: failed to initialize sandbox runner", "error", err)
	}

	hub, err := streamhub.New(streamhub.Config{NATSURL: cfg.NATSURL})
	if err != nil {
		logger.Fatalw("gatewayd: failed to initialize stream hub", "error", err)
	}
	if cfg.NATSURL != "" {
		logger.Infow("gatewayd: using NATS-backed stream hub", "url", cfg.NATSURL)
	} else {
		logger.Info("gatewayd: using in-process stream hub (single instance only)")
	}

	orch := orchestrator.New(orchestrator.Config{
		Limits:   cfg.LimitsPolicy(),
		Store:    store,
		Runs:     runs,
		Runner:   runner,
		WorkRoot: cfg.WorkRoot,
	}, logger)

	if cfg.JWTSecret == "" {
		logger.Warn("gatewayd: CODEEXEC_JWT_SECRET is unset; run-stream subscription tokens will be signed with an empty key")
	}

	server := api.NewServer(api.Config{
		Orchestrator: orch,
		Store:        store,
		Runs:         runs,
		Limiter:      limiter,
		Hub:          hub,
		JWTIssuer:    auth.NewJWTIssuer(cfg.JWTSecret),
		TenantKeys:   cfg.TenantKeys(),
	}, logger)

	metricsSrv := metrics.StartMetricsServer(":9090")
	defer metricsSrv.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Infow("gatewayd: starting", "addr", addr)

	go func() {
		if err := server.Start(addr); err != nil {
			logger.Infow("gatewayd: server stopped", "error", err)
		}
	}()

	<-quit
	logger.Info("gatewayd: shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorw("gatewayd: error during shutdown", "error", err)
	}
}

// newRunner builds the production PodmanRunner. Setting
// CODEEXEC_DISABLE_SANDBOX_SECURITY=true keeps podman in the loop but,
// for local development, drops the no-new-privileges and seccomp security
// options, the read-only root filesystem, and network mode "none";
// podman must be installed either way.
func newRunner(cfg *config.Config, logger *zap.SugaredLogger) (sandbox.Runner, error) {
	client, err := podmanexec.NewClient()
	if err != nil {
		return nil, fmt.Errorf("gatewayd: podman not available: %w", err)
	}

	iso := sandbox.IsolationConfig{
		DisableSecurity: os.Getenv("CODEEXEC_DISABLE_SANDBOX_SECURITY") == "true",
	}
	return sandbox.NewPodmanRunner(client, iso, cfg.ProfilesDir, logger)
}

func newZapLogger(level string) (*zap.Logger, error) {
	var zcfg zap.Config
	if level == "debug" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if l, err := zap.ParseAtomicLevel(level); err == nil {
		zcfg.Level = l
	}
	return zcfg.Build()
}
