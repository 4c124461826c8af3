package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	syncsvc "github.com/ScepterCode/Storemaster-sub002/internal/sync"
	"github.com/ScepterCode/Storemaster-sub002/pkg/logger"
)

// SyncHandler exposes the mutation queue and drain trigger.
type SyncHandler struct {
	executor *syncsvc.Executor
}

// NewSyncHandler creates the sync handler.
func NewSyncHandler(executor *syncsvc.Executor) *SyncHandler {
	return &SyncHandler{executor: executor}
}

// Status returns the pending depth and last drain time for the tenant
func (h *SyncHandler) Status(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	status, err := h.executor.Status(c.Request().Context(), tenant)
	if err != nil {
		log.Error("Failed to read sync status", zap.Error(err))
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// Queue returns the queued operations in insertion order
func (h *SyncHandler) Queue(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	ops, err := h.executor.Queue(c.Request().Context(), tenant)
	if err != nil {
		log.Error("Failed to read sync queue", zap.Error(err))
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, ops)
}

// Drain runs one drain cycle for the tenant and returns the report
func (h *SyncHandler) Drain(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	report, err := h.executor.SyncAll(c.Request().Context(), tenant)
	if err != nil {
		log.Error("Drain cycle failed", zap.Error(err))
		return errorJSON(c, err)
	}

	log.Info("Drain cycle triggered",
		zap.Int("total", report.TotalOperations),
		zap.Int("successful", report.Successful),
		zap.Int("failed", report.Failed))
	return c.JSON(http.StatusOK, report)
}
