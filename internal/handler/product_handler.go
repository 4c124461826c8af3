package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
	syncsvc "github.com/ScepterCode/Storemaster-sub002/internal/sync"
	"github.com/ScepterCode/Storemaster-sub002/pkg/logger"
)

// ProductRequest defines the structure for product creation/update requests
type ProductRequest struct {
	Name              string  `json:"name" validate:"required"`
	Description       string  `json:"description"`
	SKU               string  `json:"sku" validate:"required"`
	Price             float64 `json:"price" validate:"required,gt=0"`
	CostPrice         float64 `json:"cost_price"`
	Stock             int     `json:"stock"`
	CategoryID        string  `json:"category_id"`
	Brand             string  `json:"brand"`
	Supplier          string  `json:"supplier"`
	IsActive          bool    `json:"is_active"`
	TrackBatches      bool    `json:"track_batches"`
	MinimumStockLevel int     `json:"minimum_stock_level"`
	ReorderFrequency  int     `json:"reorder_frequency"`
}

// ProductHandler serves product reads from the local store and routes
// writes through the product sync service.
type ProductHandler struct {
	store    store.Store
	products *syncsvc.Service
}

// NewProductHandler creates the product handler.
func NewProductHandler(s store.Store, products *syncsvc.Service) *ProductHandler {
	return &ProductHandler{store: s, products: products}
}

// List handles retrieving all products with optional filtering
func (h *ProductHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	records, err := h.store.GetAll(c.Request().Context(), string(model.EntityProduct), tenant)
	if err != nil {
		log.Error("Failed to list products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve products"})
	}

	// Filter by active status if specified
	var activeFilter *bool
	if isActive := c.QueryParam("is_active"); isActive != "" {
		if active, err := strconv.ParseBool(isActive); err == nil {
			activeFilter = &active
		} else {
			log.Warn("Invalid is_active parameter", zap.String("value", isActive), zap.Error(err))
		}
	}
	categoryFilter := c.QueryParam("category_id")

	products := make([]*model.Product, 0, len(records))
	for _, rec := range records {
		var product model.Product
		if err := json.Unmarshal(rec.Payload, &product); err != nil {
			log.Warn("Skipping unparseable product record", zap.String("entity_id", rec.EntityID), zap.Error(err))
			continue
		}
		if activeFilter != nil && product.IsActive != *activeFilter {
			continue
		}
		if categoryFilter != "" && product.CategoryID != categoryFilter {
			continue
		}
		products = append(products, &product)
	}

	log.Info("Products retrieved successfully", zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}

// Get handles retrieving a single product by ID
func (h *ProductHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityProduct), tenant, id)
	if err != nil {
		log.Warn("Product not found", zap.String("product_id", id), zap.Error(err))
		return errorJSON(c, err)
	}
	var product model.Product
	if err := json.Unmarshal(rec.Payload, &product); err != nil {
		log.Error("Product record is corrupt", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve product"})
	}

	return c.JSON(http.StatusOK, product)
}

// Create handles creating a new product
func (h *ProductHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if exists, err := h.skuExists(c, tenant, req.SKU, ""); err == nil && exists {
		log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
		return c.JSON(http.StatusConflict, echo.Map{"error": "Product with this SKU already exists"})
	}

	product := &model.Product{
		ID:                uuid.New().String(),
		TenantID:          tenant,
		Name:              req.Name,
		Description:       req.Description,
		SKU:               req.SKU,
		Price:             req.Price,
		CostPrice:         req.CostPrice,
		Stock:             req.Stock,
		CategoryID:        req.CategoryID,
		Brand:             req.Brand,
		Supplier:          req.Supplier,
		IsActive:          req.IsActive,
		TrackBatches:      req.TrackBatches,
		MinimumStockLevel: req.MinimumStockLevel,
		ReorderFrequency:  req.ReorderFrequency,
		CreatedAt:         time.Now(),
	}

	result, err := h.products.Sync(c.Request().Context(), product, tenant, model.OpCreate)
	if err != nil {
		log.Error("Failed to create product", zap.String("sku", req.SKU), zap.Error(err))
		return errorJSON(c, err)
	}

	log.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("sku", product.SKU),
		zap.Bool("synced", result.Synced))
	return c.JSON(http.StatusCreated, result)
}

// Update handles updating an existing product
func (h *ProductHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityProduct), tenant, id)
	if err != nil {
		log.Warn("Product not found for update", zap.String("product_id", id), zap.Error(err))
		return errorJSON(c, err)
	}
	var product model.Product
	if err := json.Unmarshal(rec.Payload, &product); err != nil {
		log.Error("Product record is corrupt", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update product"})
	}

	if req.SKU != product.SKU {
		if exists, err := h.skuExists(c, tenant, req.SKU, id); err == nil && exists {
			log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
			return c.JSON(http.StatusConflict, echo.Map{"error": "Product with this SKU already exists"})
		}
	}

	product.Name = req.Name
	product.Description = req.Description
	product.SKU = req.SKU
	product.Price = req.Price
	product.CostPrice = req.CostPrice
	product.Stock = req.Stock
	product.CategoryID = req.CategoryID
	product.Brand = req.Brand
	product.Supplier = req.Supplier
	product.IsActive = req.IsActive
	product.TrackBatches = req.TrackBatches
	product.MinimumStockLevel = req.MinimumStockLevel
	product.ReorderFrequency = req.ReorderFrequency

	result, err := h.products.Sync(c.Request().Context(), &product, tenant, model.OpUpdate)
	if err != nil {
		log.Error("Failed to update product", zap.String("product_id", id), zap.Error(err))
		return errorJSON(c, err)
	}

	log.Info("Product updated",
		zap.String("product_id", id),
		zap.Bool("synced", result.Synced))
	return c.JSON(http.StatusOK, result)
}

// Delete handles deleting a product
func (h *ProductHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityProduct), tenant, id)
	if err != nil {
		log.Warn("Product not found for deletion", zap.String("product_id", id))
		return errorJSON(c, err)
	}
	var product model.Product
	if err := json.Unmarshal(rec.Payload, &product); err != nil {
		log.Error("Product record is corrupt", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete product"})
	}

	result, err := h.products.Sync(c.Request().Context(), &product, tenant, model.OpDelete)
	if err != nil {
		log.Error("Failed to delete product", zap.String("product_id", id), zap.Error(err))
		return errorJSON(c, err)
	}

	log.Info("Product deleted", zap.String("product_id", id), zap.Bool("synced", result.Synced))
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted successfully", "synced": result.Synced})
}

func (h *ProductHandler) skuExists(c echo.Context, tenant, sku, excludeID string) (bool, error) {
	records, err := h.store.GetAll(c.Request().Context(), string(model.EntityProduct), tenant)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.EntityID == excludeID {
			continue
		}
		var product model.Product
		if err := json.Unmarshal(rec.Payload, &product); err != nil {
			continue
		}
		if product.SKU == sku {
			return true, nil
		}
	}
	return false, nil
}
