package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAPIKeyMiddleware_NoKeysConfigured(t *testing.T) {
	e := echo.New()
	e.Use(APIKeyMiddleware(nil))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with no keys configured, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_ValidKeyResolvesTenant(t *testing.T) {
	e := echo.New()
	e.Use(APIKeyMiddleware(TenantKeys{"secret-key": "acme"}))
	e.GET("/test", func(c echo.Context) error {
		tenantID, ok := GetTenantID(c)
		if !ok || tenantID != "acme" {
			t.Errorf("expected tenant acme in context, got %q (ok=%v)", tenantID, ok)
		}
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid key, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_InvalidKey(t *testing.T) {
	e := echo.New()
	e.Use(APIKeyMiddleware(TenantKeys{"secret-key": "acme"}))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with invalid key, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_BearerToken(t *testing.T) {
	e := echo.New()
	e.Use(APIKeyMiddleware(TenantKeys{"secret-key": "acme"}))
	e.GET("/test", func(c echo.Context) error {
		tenantID, ok := GetTenantID(c)
		if !ok || tenantID != "acme" {
			t.Errorf("expected tenant acme in context, got %q (ok=%v)", tenantID, ok)
		}
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid bearer token, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_InvalidBearerToken(t *testing.T) {
	e := echo.New()
	e.Use(APIKeyMiddleware(TenantKeys{"secret-key": "acme"}))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with invalid bearer token, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_MissingKey(t *testing.T) {
	e := echo.New()
	e.Use(APIKeyMiddleware(TenantKeys{"secret-key": "acme"}))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with missing key, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_QueryParam(t *testing.T) {
	e := echo.New()
	e.Use(APIKeyMiddleware(TenantKeys{"secret-key": "acme"}))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test?api_key=secret-key", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with key in query param, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_TwoTenantsIsolated(t *testing.T) {
	e := echo.New()
	e.Use(APIKeyMiddleware(TenantKeys{"key-a": "tenant-a", "key-b": "tenant-b"}))
	var seen string
	e.GET("/test", func(c echo.Context) error {
		seen, _ = GetTenantID(c)
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-API-Key", "key-b")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if seen != "tenant-b" {
		t.Errorf("expected tenant-b, got %q", seen)
	}
}
