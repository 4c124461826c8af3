package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
	"github.com/ScepterCode/Storemaster-sub002/pkg/logger"
)

// TransactionHandler serves the durable sale history.
type TransactionHandler struct {
	store store.Store
}

// NewTransactionHandler creates the transaction handler.
func NewTransactionHandler(s store.Store) *TransactionHandler {
	return &TransactionHandler{store: s}
}

// List retrieves the tenant's transactions
func (h *TransactionHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	records, err := h.store.GetAll(c.Request().Context(), string(model.EntityTransaction), tenant)
	if err != nil {
		log.Error("Failed to retrieve transactions", zap.Error(err))
		return errorJSON(c, err)
	}

	transactions := make([]*model.Transaction, 0, len(records))
	for _, rec := range records {
		var tx model.Transaction
		if err := json.Unmarshal(rec.Payload, &tx); err != nil {
			log.Warn("Skipping unparseable transaction record", zap.String("entity_id", rec.EntityID), zap.Error(err))
			continue
		}
		transactions = append(transactions, &tx)
	}
	return c.JSON(http.StatusOK, transactions)
}

// Get retrieves a specific transaction by ID
func (h *TransactionHandler) Get(c echo.Context) error {
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityTransaction), tenant, id)
	if err != nil {
		return errorJSON(c, err)
	}
	var tx model.Transaction
	if err := json.Unmarshal(rec.Payload, &tx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve transaction"})
	}
	return c.JSON(http.StatusOK, tx)
}
