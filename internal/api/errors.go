package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/codeexec/gateway/internal/apierr"
)

// writeError translates err into the wire shape {"error": "<kind>: <detail>"}
// with the HTTP status apierr.Status maps it to. An err that isn't an
// *apierr.Error is treated as an unhandled failure (500), matching
// spec.md §7's catch-all.
func writeError(c echo.Context, err error) error {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return c.JSON(apierr.Status(apiErr.Kind), map[string]string{
			"error": apiErr.Error(),
		})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": err.Error(),
	})
}
