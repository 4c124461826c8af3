package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
	"github.com/ScepterCode/Storemaster-sub002/internal/middleware"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
)

// tenantID pulls the tenant from the auth context or writes the 400.
func tenantID(c echo.Context) (string, bool) {
	id, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant_id is required"})
		return "", false
	}
	return id, true
}

// errorJSON maps an error to its HTTP status by kind, never by message.
func errorJSON(c echo.Context, err error) error {
	if err == store.ErrNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case apperr.KindConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case apperr.KindInsufficientStock:
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
}
