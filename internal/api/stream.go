package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/codeexec/gateway/internal/apierr"
	"github.com/codeexec/gateway/internal/metrics"
	"github.com/codeexec/gateway/internal/streamhub"
)

var (
	errMissingSubscriptionToken = errors.New("missing subscription token")
	errTokenWrongRun            = errors.New("token not valid for this run")
)

var upgrader = websocket.Upgrader{
	// Cross-origin control lives at the reverse proxy in front of this
	// service; the gateway itself does not restrict origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStreamRun implements UPGRADE /v1/runs/{id}/stream: validates the
// run-subscription bearer token against the URL's run id, attaches as the
// sole subscriber for that run, and relays frames as JSON text messages
// until the run completes or the client disconnects. A second subscriber
// for the same run is rejected up front by the hub's one-subscriber
// invariant rather than preempting the first.
func (s *Server) handleStreamRun(c echo.Context) error {
	runID := c.Param("id")

	authHeader := c.Request().Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		token = c.QueryParam("token")
	}
	if token == "" {
		return writeError(c, apierr.New(apierr.KindUnauthorized, errMissingSubscriptionToken))
	}

	claims, err := s.jwtIssuer.ValidateRunSubscriptionToken(token)
	if err != nil {
		return writeError(c, apierr.New(apierr.KindUnauthorized, err))
	}
	if claims.RunID != runID {
		return writeError(c, apierr.New(apierr.KindForbidden, errTokenWrongRun))
	}

	ctx := c.Request().Context()
	frames, cancel, err := s.hub.Subscribe(ctx, runID)
	if err != nil {
		return writeError(c, apierr.New(apierr.KindForbidden, err))
	}
	defer cancel()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// The subscriber is now attached: emit the connected frame the
	// subscription itself observes, distinct from the orchestrator's
	// internal "connected" send used only to surface the run id to
	// hubSink before this handler exists.
	s.hub.Publish(runID, streamhub.Frame{Kind: streamhub.FrameConnected, Data: runID})
	metrics.StreamSubscribersActive.WithLabelValues().Inc()
	defer metrics.StreamSubscribersActive.WithLabelValues().Dec()

	for frame := range frames {
		payload, err := json.Marshal(frame)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return nil
		}
		if frame.Kind == streamhub.FrameComplete || frame.Kind == streamhub.FrameError {
			return nil
		}
	}
	return nil
}
