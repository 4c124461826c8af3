package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/sale"
	"github.com/ScepterCode/Storemaster-sub002/pkg/logger"
)

// CartItemRequest defines the structure for cart line requests
type CartItemRequest struct {
	ProductID   string  `json:"product_id" validate:"required"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"required,gt=0"`
	TaxRate     float64 `json:"tax_rate"`
}

// DiscountRequest defines the structure for discount requests
type DiscountRequest struct {
	ProductID string  `json:"product_id"`
	Value     float64 `json:"value" validate:"required"`
	Kind      string  `json:"kind" validate:"required"`
}

// CheckoutRequest defines the structure for sale completion requests
type CheckoutRequest struct {
	CustomerID string          `json:"customer_id"`
	Payments   []model.Payment `json:"payments" validate:"required"`
}

type cartView struct {
	ID       string          `json:"id"`
	State    sale.State      `json:"state"`
	Customer string          `json:"customer_id,omitempty"`
	Items    []sale.LineItem `json:"items"`
	Totals   sale.Totals     `json:"totals"`
}

// SaleHandler exposes cart building and sale processing.
type SaleHandler struct {
	registry     *sale.Registry
	orchestrator *sale.Orchestrator
}

// NewSaleHandler creates the sale handler.
func NewSaleHandler(registry *sale.Registry, orchestrator *sale.Orchestrator) *SaleHandler {
	return &SaleHandler{registry: registry, orchestrator: orchestrator}
}

// Open creates a new cart for the tenant
func (h *SaleHandler) Open(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	cart := h.registry.Open(tenant)
	log.Info("Cart opened", zap.String("cart_id", cart.ID))
	return c.JSON(http.StatusCreated, viewOf(cart))
}

// Get returns the current cart contents and totals
func (h *SaleHandler) Get(c echo.Context) error {
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	cart, err := h.registry.Get(c.Param("id"), tenant)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(cart))
}

// AddItem adds or merges a product line
func (h *SaleHandler) AddItem(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	cart, err := h.registry.Get(c.Param("id"), tenant)
	if err != nil {
		return errorJSON(c, err)
	}

	var req CartItemRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if err := cart.AddItem(req.ProductID, req.ProductName, req.Quantity, req.UnitPrice, req.TaxRate); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(cart))
}

// RemoveItem removes a product line
func (h *SaleHandler) RemoveItem(c echo.Context) error {
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	cart, err := h.registry.Get(c.Param("id"), tenant)
	if err != nil {
		return errorJSON(c, err)
	}
	if err := cart.RemoveItem(c.Param("productId")); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(cart))
}

// UpdateQuantity sets a line's quantity
func (h *SaleHandler) UpdateQuantity(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	cart, err := h.registry.Get(c.Param("id"), tenant)
	if err != nil {
		return errorJSON(c, err)
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := cart.UpdateQuantity(c.Param("productId"), req.Quantity); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(cart))
}

// ApplyDiscount applies a line or sale-level discount
func (h *SaleHandler) ApplyDiscount(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	cart, err := h.registry.Get(c.Param("id"), tenant)
	if err != nil {
		return errorJSON(c, err)
	}

	var req DiscountRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := cart.ApplyDiscount(req.ProductID, req.Value, sale.DiscountKind(req.Kind)); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(cart))
}

// Checkout processes the sale
func (h *SaleHandler) Checkout(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	cart, err := h.registry.Get(c.Param("id"), tenant)
	if err != nil {
		return errorJSON(c, err)
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.CustomerID != "" {
		cart.SetCustomer(req.CustomerID)
	}

	result, err := h.orchestrator.ProcessSale(c.Request().Context(), cart, req.Payments)
	if err != nil {
		log.Warn("Sale aborted", zap.String("cart_id", cart.ID), zap.Error(err))
		return errorJSON(c, err)
	}

	log.Info("Sale processed",
		zap.String("cart_id", cart.ID),
		zap.String("transaction_id", result.Transaction.ID),
		zap.Float64("total", result.Transaction.Total),
		zap.Bool("synced", result.Synced))
	return c.JSON(http.StatusOK, result)
}

// Close discards a cart
func (h *SaleHandler) Close(c echo.Context) error {
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	if err := h.registry.Close(c.Param("id"), tenant); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Cart closed"})
}

func viewOf(cart *sale.Cart) cartView {
	return cartView{
		ID:       cart.ID,
		State:    cart.State(),
		Customer: cart.CustomerID,
		Items:    cart.Items(),
		Totals:   cart.Totals(),
	}
}
