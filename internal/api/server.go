// Package api is the thin HTTP surface over the orchestrator, artifact
// store, rate limiter, and stream hub: request parsing and response
// shaping only, no business logic. Grounded on the teacher's
// internal/api/router.go route-registration style (a single echo group
// with auth middleware applied once), rebuilt from scratch against
// spec.md §6's run/file/health surface rather than the teacher's
// sandbox/template/dashboard surface.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/codeexec/gateway/internal/artifactstore"
	"github.com/codeexec/gateway/internal/auth"
	"github.com/codeexec/gateway/internal/metrics"
	"github.com/codeexec/gateway/internal/orchestrator"
	"github.com/codeexec/gateway/internal/ratelimit"
	"github.com/codeexec/gateway/internal/runstore"
	"github.com/codeexec/gateway/internal/streamhub"
)

// Server wires the leaf HTTP handlers together behind an echo instance.
type Server struct {
	echo *echo.Echo

	orch      *orchestrator.Orchestrator
	store     *artifactstore.Store
	runs      *runstore.Store
	limiter   ratelimit.Limiter
	hub       *streamhub.Hub
	jwtIssuer *auth.JWTIssuer
	log       *zap.SugaredLogger

	subscriptionTTL time.Duration
}

// Config holds Server dependencies.
type Config struct {
	Orchestrator    *orchestrator.Orchestrator
	Store           *artifactstore.Store
	Runs            *runstore.Store
	Limiter         ratelimit.Limiter
	Hub             *streamhub.Hub
	JWTIssuer       *auth.JWTIssuer
	TenantKeys      auth.TenantKeys
	SubscriptionTTL time.Duration
}

// NewServer builds a Server with all routes registered.
func NewServer(cfg Config, log *zap.SugaredLogger) *Server {
	ttl := cfg.SubscriptionTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	s := &Server{
		echo:            echo.New(),
		orch:            cfg.Orchestrator,
		store:           cfg.Store,
		runs:            cfg.Runs,
		limiter:         cfg.Limiter,
		hub:             cfg.Hub,
		jwtIssuer:       cfg.JWTIssuer,
		log:             log,
		subscriptionTTL: ttl,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(metrics.EchoMiddleware())

	s.echo.GET("/v1/health", s.handleHealth)
	s.echo.GET("/v1/files/:id", s.handleDownloadArtifact)
	// The stream upgrade authenticates with the short-lived subscription
	// hint token minted by /v1/runs/stream, not a tenant API key.
	s.echo.GET("/v1/runs/:id/stream", s.handleStreamRun)

	authed := s.echo.Group("/v1", auth.APIKeyMiddleware(cfg.TenantKeys))
	authed.POST("/files", s.handleUploadFile)
	authed.POST("/runs", s.handleCreateRun, s.rateLimit)
	authed.GET("/runs/:id", s.handleGetRun)
	authed.POST("/runs/stream", s.handleCreateRunStream, s.rateLimit)

	return s
}

// Start begins serving on addr, blocking until the listener stops.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
