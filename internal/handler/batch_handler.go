package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/inventory"
	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
	"github.com/ScepterCode/Storemaster-sub002/pkg/logger"
)

// BatchRequest defines the structure for batch receiving requests
type BatchRequest struct {
	QuantityReceived  int        `json:"quantity_received" validate:"required,gt=0"`
	UnitCost          float64    `json:"unit_cost"`
	ExpiryDate        *time.Time `json:"expiry_date"`
	ReceivedDate      time.Time  `json:"received_date"`
	BatchNumber       string     `json:"batch_number"`
	SupplierName      string     `json:"supplier_name"`
	SupplierReference string     `json:"supplier_reference"`
	Notes             string     `json:"notes"`
}

// BatchHandler exposes batch receiving and inspection for a product.
type BatchHandler struct {
	store  store.Store
	engine *inventory.Engine
}

// NewBatchHandler creates the batch handler.
func NewBatchHandler(s store.Store, engine *inventory.Engine) *BatchHandler {
	return &BatchHandler{store: s, engine: engine}
}

// Receive records a received lot for a product
func (h *BatchHandler) Receive(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	productID := c.Param("id")

	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	product, err := h.loadProduct(c, tenant, productID)
	if err != nil {
		log.Warn("Product not found for batch receipt", zap.String("product_id", productID))
		return errorJSON(c, err)
	}

	batch := &model.StockBatch{
		QuantityReceived:  req.QuantityReceived,
		UnitCost:          req.UnitCost,
		ExpiryDate:        req.ExpiryDate,
		ReceivedDate:      req.ReceivedDate,
		BatchNumber:       req.BatchNumber,
		SupplierName:      req.SupplierName,
		SupplierReference: req.SupplierReference,
		Notes:             req.Notes,
	}
	if err := h.engine.Receive(c.Request().Context(), tenant, product, batch); err != nil {
		log.Error("Failed to receive batch", zap.String("product_id", productID), zap.Error(err))
		return errorJSON(c, err)
	}

	log.Info("Batch received",
		zap.String("product_id", productID),
		zap.String("batch_number", batch.BatchNumber),
		zap.Int("quantity", batch.QuantityReceived))
	return c.JSON(http.StatusCreated, batch)
}

// List returns all batches of a product, open or exhausted
func (h *BatchHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	productID := c.Param("id")

	batches, err := h.engine.BatchesFor(c.Request().Context(), tenant, productID)
	if err != nil {
		log.Error("Failed to list batches", zap.String("product_id", productID), zap.Error(err))
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, batches)
}

// Availability returns the batch-level available quantity for a product
func (h *BatchHandler) Availability(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	productID := c.Param("id")

	available, err := h.engine.AvailableQuantity(c.Request().Context(), tenant, productID)
	if err != nil {
		log.Error("Failed to compute availability", zap.String("product_id", productID), zap.Error(err))
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"product_id": productID, "available": available})
}

func (h *BatchHandler) loadProduct(c echo.Context, tenant, productID string) (*model.Product, error) {
	rec, err := h.store.Get(c.Request().Context(), string(model.EntityProduct), tenant, productID)
	if err != nil {
		return nil, err
	}
	var product model.Product
	if err := json.Unmarshal(rec.Payload, &product); err != nil {
		return nil, err
	}
	return &product, nil
}
