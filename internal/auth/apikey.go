// Package auth authenticates inbound requests against a static set of
// per-tenant API keys and issues short-lived JWTs for the run-streaming
// subscription hint URL.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/codeexec/gateway/internal/metrics"
)

// TenantKeys maps an API key to the tenant it authenticates. Keys are
// loaded once at startup from configuration; there is no live key store.
type TenantKeys map[string]string

// APIKeyMiddleware validates the request's bearer token — an
// `Authorization: Bearer <key>` header, per the API's documented auth
// scheme, with the X-API-Key header and api_key query parameter kept as
// fallbacks — against keys and sets the resolved tenant ID in context.
// An empty keys map disables authentication (development mode).
func APIKeyMiddleware(keys TenantKeys) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(keys) == 0 {
				SetTenantID(c, "dev")
				return next(c)
			}

			provided := bearerToken(c.Request().Header.Get("Authorization"))
			if provided == "" {
				provided = c.Request().Header.Get("X-API-Key")
			}
			if provided == "" {
				provided = c.QueryParam("api_key")
			}
			if provided == "" {
				metrics.AuthAttemptsTotal.WithLabelValues("missing").Inc()
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "missing bearer token",
				})
			}

			tenantID, ok := lookupKey(keys, provided)
			if !ok {
				metrics.AuthAttemptsTotal.WithLabelValues("invalid").Inc()
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "invalid bearer token",
				})
			}

			metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
			SetTenantID(c, tenantID)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value, returning "" if the header is absent or uses a different
// scheme.
func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return header[len(prefix):]
}

// lookupKey compares provided against every configured key in constant
// time, so a valid key's position in the map never leaks through timing.
func lookupKey(keys TenantKeys, provided string) (string, bool) {
	var tenantID string
	var matched int
	for key, tenant := range keys {
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
			tenantID = tenant
			matched = 1
		}
	}
	return tenantID, matched == 1
}
