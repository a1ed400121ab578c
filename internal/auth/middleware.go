package auth

import "github.com/labstack/echo/v4"

type contextKey string

// ContextKeyTenantID is the echo context key for the authenticated tenant.
const ContextKeyTenantID contextKey = "tenant_id"

// SetTenantID stores the tenant ID in the echo context.
func SetTenantID(c echo.Context, tenantID string) {
	c.Set(string(ContextKeyTenantID), tenantID)
}

// GetTenantID retrieves the tenant ID from the echo context.
func GetTenantID(c echo.Context) (string, bool) {
	v := c.Get(string(ContextKeyTenantID))
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
