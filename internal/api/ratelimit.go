package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/codeexec/gateway/internal/apierr"
	"github.com/codeexec/gateway/internal/auth"
	"github.com/codeexec/gateway/internal/metrics"
)

// rateLimit admits or rejects a request based on the caller's tenant
// bucket. It runs after APIKeyMiddleware, which is required to have set
// the tenant ID in context.
func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := auth.GetTenantID(c)

		allowed, err := s.limiter.Allow(c.Request().Context(), tenantID)
		if err != nil {
			return writeError(c, apierr.New(apierr.KindSandboxFailure, err))
		}
		if !allowed {
			metrics.RateLimitRejectionsTotal.WithLabelValues(tenantID).Inc()
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "too-many-requests: rate limit exceeded",
			})
		}
		return next(c)
	}
}
