package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
	syncsvc "github.com/ScepterCode/Storemaster-sub002/internal/sync"
	"github.com/ScepterCode/Storemaster-sub002/pkg/logger"
)

// InvoiceRequest defines the structure for invoice creation requests
type InvoiceRequest struct {
	InvoiceNumber string     `json:"invoice_number" validate:"required"`
	CustomerID    string     `json:"customer_id"`
	TransactionID string     `json:"transaction_id"`
	Amount        float64    `json:"amount" validate:"required,gt=0"`
	DueAt         *time.Time `json:"due_at"`
}

// InvoiceHandler serves invoice reads from the local store and routes
// writes through the invoice sync service.
type InvoiceHandler struct {
	store    store.Store
	invoices *syncsvc.Service
}

// NewInvoiceHandler creates the invoice handler.
func NewInvoiceHandler(s store.Store, invoices *syncsvc.Service) *InvoiceHandler {
	return &InvoiceHandler{store: s, invoices: invoices}
}

// List retrieves all invoices for the tenant
func (h *InvoiceHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	records, err := h.store.GetAll(c.Request().Context(), string(model.EntityInvoice), tenant)
	if err != nil {
		log.Error("Failed to retrieve invoices", zap.Error(err))
		return errorJSON(c, err)
	}

	invoices := make([]*model.Invoice, 0, len(records))
	for _, rec := range records {
		var invoice model.Invoice
		if err := json.Unmarshal(rec.Payload, &invoice); err != nil {
			log.Warn("Skipping unparseable invoice record", zap.String("entity_id", rec.EntityID), zap.Error(err))
			continue
		}
		invoices = append(invoices, &invoice)
	}
	return c.JSON(http.StatusOK, invoices)
}

// Get retrieves a specific invoice by ID
func (h *InvoiceHandler) Get(c echo.Context) error {
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityInvoice), tenant, id)
	if err != nil {
		return errorJSON(c, err)
	}
	var invoice model.Invoice
	if err := json.Unmarshal(rec.Payload, &invoice); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve invoice"})
	}
	return c.JSON(http.StatusOK, invoice)
}

// Create issues a new invoice in draft status
func (h *InvoiceHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	var req InvoiceRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	invoice := &model.Invoice{
		ID:            uuid.New().String(),
		TenantID:      tenant,
		InvoiceNumber: req.InvoiceNumber,
		CustomerID:    req.CustomerID,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Status:        model.InvoiceDraft,
		IssuedAt:      time.Now(),
		DueAt:         req.DueAt,
	}

	result, err := h.invoices.Sync(c.Request().Context(), invoice, tenant, model.OpCreate)
	if err != nil {
		log.Error("Failed to create invoice", zap.Error(err))
		return errorJSON(c, err)
	}

	log.Info("Invoice created",
		zap.String("invoice_id", invoice.ID),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Bool("synced", result.Synced))
	return c.JSON(http.StatusCreated, result)
}

// UpdateStatus moves an invoice through its lifecycle
func (h *InvoiceHandler) UpdateStatus(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	var req struct {
		Status model.InvoiceStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityInvoice), tenant, id)
	if err != nil {
		return errorJSON(c, err)
	}
	var invoice model.Invoice
	if err := json.Unmarshal(rec.Payload, &invoice); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update invoice"})
	}

	invoice.Status = req.Status

	result, err := h.invoices.Sync(c.Request().Context(), &invoice, tenant, model.OpUpdate)
	if err != nil {
		log.Error("Failed to update invoice", zap.String("invoice_id", id), zap.Error(err))
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
