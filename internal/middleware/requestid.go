package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/pkg/logger"
)

// RequestIDMiddleware tags each request with a unique id and attaches a
// request-scoped logger under logger.ContextKey for FromContext.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := uuid.New().String()

		c.Request().Header.Set(logger.HeaderRequestID, requestID)
		c.Response().Header().Set(logger.HeaderRequestID, requestID)
		c.Set(logger.RequestIDKey, requestID)

		log := logger.GetLogger().With(zap.String("request_id", requestID))
		c.Set(logger.ContextKey, log)

		return next(c)
	}
}
