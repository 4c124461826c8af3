package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Keys the request-id middleware sets on the echo context.
const (
	ContextKey   = "request_logger"
	RequestIDKey = "request_id"
)

// HeaderRequestID is the wire header the request id travels in.
const HeaderRequestID = "X-Request-ID"

// FromContext returns the request-scoped logger when middleware attached
// one. Otherwise it falls back to the global logger tagged with whatever
// request id can be recovered from the context or the request headers.
func FromContext(c echo.Context) *zap.Logger {
	if log, ok := c.Get(ContextKey).(*zap.Logger); ok {
		return log
	}

	requestID, _ := c.Get(RequestIDKey).(string)
	if requestID == "" {
		requestID = c.Request().Header.Get(HeaderRequestID)
	}
	if requestID == "" {
		requestID = "unknown"
	}
	return GetLogger().With(zap.String("request_id", requestID))
}
