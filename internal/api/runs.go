package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/codeexec/gateway/internal/apierr"
	"github.com/codeexec/gateway/internal/auth"
	"github.com/codeexec/gateway/internal/metrics"
	"github.com/codeexec/gateway/pkg/types"
)

// handleCreateRun implements POST /v1/runs: admit, execute, and wait for
// a synchronous run, returning the completed run record.
func (s *Server) handleCreateRun(c echo.Context) error {
	var req types.RunRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierr.Validationf("body", "malformed request: %v", err))
	}

	tenantID, _ := auth.GetTenantID(c)

	start := time.Now()
	rec, err := s.orch.CreateRun(c.Request().Context(), req, tenantID)
	if err != nil {
		return writeError(c, err)
	}

	metrics.RunsTotal.WithLabelValues(string(rec.Language), string(rec.Status)).Inc()
	metrics.RunDuration.WithLabelValues(string(rec.Language)).Observe(time.Since(start).Seconds())

	return c.JSON(http.StatusOK, rec)
}

// handleGetRun implements GET /v1/runs/{id}: fetch a previously stored
// run record by id.
func (s *Server) handleGetRun(c echo.Context) error {
	rec, err := s.runs.Get(c.Param("id"))
	if err != nil {
		return writeError(c, apierr.New(apierr.KindNotFound, err))
	}
	return c.JSON(http.StatusOK, rec)
}

// handleCreateRunStream implements POST /v1/runs/stream: admits the
// request, starts the pipeline asynchronously, and returns as soon as a
// run id has been minted rather than waiting for completion. The caller
// subscribes to /v1/runs/{id}/stream using the returned hint token to
// receive live frames.
func (s *Server) handleCreateRunStream(c echo.Context) error {
	var req types.RunRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierr.Validationf("body", "malformed request: %v", err))
	}

	tenantID, _ := auth.GetTenantID(c)

	sink := newHubSink(s.hub)

	go func() {
		start := time.Now()
		rec, err := s.orch.CreateRunWithStreaming(context.Background(), req, tenantID, sink)
		if err != nil {
			sink.fail(err)
			return
		}
		metrics.RunsTotal.WithLabelValues(string(rec.Language), string(rec.Status)).Inc()
		metrics.RunDuration.WithLabelValues(string(rec.Language)).Observe(time.Since(start).Seconds())
	}()

	select {
	case runID := <-sink.idReady:
		token, err := s.jwtIssuer.IssueRunSubscriptionToken(tenantID, runID, s.subscriptionTTL)
		if err != nil {
			return writeError(c, apierr.New(apierr.KindSandboxFailure, err))
		}
		return c.JSON(http.StatusOK, map[string]string{
			"id":     runID,
			"status": "starting",
			"hint":   token,
		})
	case err := <-sink.admitErr:
		return writeError(c, err)
	case <-c.Request().Context().Done():
		return writeError(c, apierr.New(apierr.KindSandboxFailure, c.Request().Context().Err()))
	}
}
