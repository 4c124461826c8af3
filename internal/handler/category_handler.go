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

// CategoryRequest defines the structure for category creation/update requests
type CategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

// CategoryHandler serves category reads from the local store and routes
// writes through the category sync service.
type CategoryHandler struct {
	store      store.Store
	categories *syncsvc.Service
}

// NewCategoryHandler creates the category handler.
func NewCategoryHandler(s store.Store, categories *syncsvc.Service) *CategoryHandler {
	return &CategoryHandler{store: s, categories: categories}
}

// List retrieves all product categories for the tenant
func (h *CategoryHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	records, err := h.store.GetAll(c.Request().Context(), string(model.EntityCategory), tenant)
	if err != nil {
		log.Error("Failed to retrieve categories", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve categories"})
	}

	categories := make([]*model.Category, 0, len(records))
	for _, rec := range records {
		var category model.Category
		if err := json.Unmarshal(rec.Payload, &category); err != nil {
			log.Warn("Skipping unparseable category record", zap.String("entity_id", rec.EntityID), zap.Error(err))
			continue
		}
		categories = append(categories, &category)
	}

	log.Info("Categories retrieved successfully", zap.Int("count", len(categories)))
	return c.JSON(http.StatusOK, categories)
}

// Get retrieves a specific category by ID
func (h *CategoryHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityCategory), tenant, id)
	if err != nil {
		log.Warn("Category not found", zap.String("category_id", id), zap.Error(err))
		return errorJSON(c, err)
	}
	var category model.Category
	if err := json.Unmarshal(rec.Payload, &category); err != nil {
		log.Error("Category record is corrupt", zap.String("category_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve category"})
	}
	return c.JSON(http.StatusOK, category)
}

// Create adds a new product category
func (h *CategoryHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if exists, err := h.nameExists(c, tenant, req.Name, ""); err == nil && exists {
		log.Warn("Category with this name already exists for this tenant", zap.String("name", req.Name))
		return c.JSON(http.StatusConflict, echo.Map{"error": "Category with this name already exists for this tenant"})
	}

	category := &model.Category{
		ID:        uuid.New().String(),
		TenantID:  tenant,
		Name:      req.Name,
		CreatedAt: time.Now(),
	}

	result, err := h.categories.Sync(c.Request().Context(), category, tenant, model.OpCreate)
	if err != nil {
		log.Error("Failed to create category", zap.String("name", req.Name), zap.Error(err))
		return errorJSON(c, err)
	}

	log.Info("Category created",
		zap.String("category_id", category.ID),
		zap.String("name", category.Name),
		zap.Bool("synced", result.Synced))
	return c.JSON(http.StatusCreated, result)
}

// Update updates an existing product category
func (h *CategoryHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("category_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityCategory), tenant, id)
	if err != nil {
		log.Warn("Category not found for update", zap.String("category_id", id), zap.Error(err))
		return errorJSON(c, err)
	}
	var category model.Category
	if err := json.Unmarshal(rec.Payload, &category); err != nil {
		log.Error("Category record is corrupt", zap.String("category_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update category"})
	}

	if req.Name != category.Name {
		if exists, err := h.nameExists(c, tenant, req.Name, id); err == nil && exists {
			log.Warn("Category with this name already exists for this tenant", zap.String("name", req.Name))
			return c.JSON(http.StatusConflict, echo.Map{"error": "Category with this name already exists for this tenant"})
		}
	}

	category.Name = req.Name

	result, err := h.categories.Sync(c.Request().Context(), &category, tenant, model.OpUpdate)
	if err != nil {
		log.Error("Failed to update category", zap.String("category_id", id), zap.Error(err))
		return errorJSON(c, err)
	}

	log.Info("Category updated", zap.String("category_id", id), zap.Bool("synced", result.Synced))
	return c.JSON(http.StatusOK, result)
}

// Delete removes a product category
func (h *CategoryHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityCategory), tenant, id)
	if err != nil {
		log.Warn("Category not found for deletion", zap.String("category_id", id))
		return errorJSON(c, err)
	}
	var category model.Category
	if err := json.Unmarshal(rec.Payload, &category); err != nil {
		log.Error("Category record is corrupt", zap.String("category_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete category"})
	}

	if used, err := h.inUse(c, tenant, id); err == nil && used {
		log.Warn("Cannot delete category that is being used by products", zap.String("category_id", id))
		return c.JSON(http.StatusConflict, echo.Map{"error": "Cannot delete category that is being used by products"})
	}

	result, err := h.categories.Sync(c.Request().Context(), &category, tenant, model.OpDelete)
	if err != nil {
		log.Error("Failed to delete category", zap.String("category_id", id), zap.Error(err))
		return errorJSON(c, err)
	}

	log.Info("Category deleted", zap.String("category_id", id), zap.Bool("synced", result.Synced))
	return c.JSON(http.StatusOK, echo.Map{"message": "Category deleted successfully", "synced": result.Synced})
}

func (h *CategoryHandler) nameExists(c echo.Context, tenant, name, excludeID string) (bool, error) {
	records, err := h.store.GetAll(c.Request().Context(), string(model.EntityCategory), tenant)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.EntityID == excludeID {
			continue
		}
		var category model.Category
		if err := json.Unmarshal(rec.Payload, &category); err != nil {
			continue
		}
		if category.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (h *CategoryHandler) inUse(c echo.Context, tenant, categoryID string) (bool, error) {
	records, err := h.store.GetAll(c.Request().Context(), string(model.EntityProduct), tenant)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		var product model.Product
		if err := json.Unmarshal(rec.Payload, &product); err != nil {
			continue
		}
		if product.CategoryID == categoryID {
			return true, nil
		}
	}
	return false, nil
}
