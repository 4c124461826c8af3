package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/reorder"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
	"github.com/ScepterCode/Storemaster-sub002/pkg/logger"
)

// ReorderHandler exposes restock suggestions across the tenant's catalog.
type ReorderHandler struct {
	store  store.Store
	client *reorder.Client
}

// NewReorderHandler creates the reorder handler.
func NewReorderHandler(s store.Store, client *reorder.Client) *ReorderHandler {
	return &ReorderHandler{store: s, client: client}
}

// Suggestions returns restock suggestions for active products
func (h *ReorderHandler) Suggestions(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	records, err := h.store.GetAll(c.Request().Context(), string(model.EntityProduct), tenant)
	if err != nil {
		log.Error("Failed to load products for reorder", zap.Error(err))
		return errorJSON(c, err)
	}

	suggestions := make([]*reorder.Suggestion, 0)
	for _, rec := range records {
		var product model.Product
		if err := json.Unmarshal(rec.Payload, &product); err != nil {
			log.Warn("Skipping unparseable product record", zap.String("entity_id", rec.EntityID), zap.Error(err))
			continue
		}
		if !product.IsActive {
			continue
		}
		suggestion, err := h.client.Suggest(c.Request().Context(), &product)
		if err != nil {
			log.Warn("Suggestion failed", zap.String("product_id", product.ID), zap.Error(err))
			continue
		}
		if suggestion != nil {
			suggestions = append(suggestions, suggestion)
		}
	}

	log.Info("Reorder suggestions computed", zap.Int("count", len(suggestions)))
	return c.JSON(http.StatusOK, suggestions)
}
