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

// CustomerRequest defines the structure for customer creation/update requests
type CustomerRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CustomerHandler serves customer reads from the local store and routes
// writes through the customer sync service.
type CustomerHandler struct {
	store     store.Store
	customers *syncsvc.Service
}

// NewCustomerHandler creates the customer handler.
func NewCustomerHandler(s store.Store, customers *syncsvc.Service) *CustomerHandler {
	return &CustomerHandler{store: s, customers: customers}
}

// List retrieves all customers for the tenant
func (h *CustomerHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	records, err := h.store.GetAll(c.Request().Context(), string(model.EntityCustomer), tenant)
	if err != nil {
		log.Error("Failed to retrieve customers", zap.Error(err))
		return errorJSON(c, err)
	}

	customers := make([]*model.Customer, 0, len(records))
	for _, rec := range records {
		var customer model.Customer
		if err := json.Unmarshal(rec.Payload, &customer); err != nil {
			log.Warn("Skipping unparseable customer record", zap.String("entity_id", rec.EntityID), zap.Error(err))
			continue
		}
		customers = append(customers, &customer)
	}
	return c.JSON(http.StatusOK, customers)
}

// Get retrieves a specific customer by ID
func (h *CustomerHandler) Get(c echo.Context) error {
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityCustomer), tenant, id)
	if err != nil {
		return errorJSON(c, err)
	}
	var customer model.Customer
	if err := json.Unmarshal(rec.Payload, &customer); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve customer"})
	}
	return c.JSON(http.StatusOK, customer)
}

// Create adds a new customer
func (h *CustomerHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}

	var req CustomerRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	customer := &model.Customer{
		ID:        uuid.New().String(),
		TenantID:  tenant,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: time.Now(),
	}

	result, err := h.customers.Sync(c.Request().Context(), customer, tenant, model.OpCreate)
	if err != nil {
		log.Error("Failed to create customer", zap.Error(err))
		return errorJSON(c, err)
	}

	log.Info("Customer created", zap.String("customer_id", customer.ID), zap.Bool("synced", result.Synced))
	return c.JSON(http.StatusCreated, result)
}

// Update updates an existing customer
func (h *CustomerHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	var req CustomerRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityCustomer), tenant, id)
	if err != nil {
		return errorJSON(c, err)
	}
	var customer model.Customer
	if err := json.Unmarshal(rec.Payload, &customer); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update customer"})
	}

	customer.Name = req.Name
	customer.Email = req.Email
	customer.Phone = req.Phone

	result, err := h.customers.Sync(c.Request().Context(), &customer, tenant, model.OpUpdate)
	if err != nil {
		log.Error("Failed to update customer", zap.String("customer_id", id), zap.Error(err))
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Delete removes a customer
func (h *CustomerHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return nil
	}
	id := c.Param("id")

	rec, err := h.store.Get(c.Request().Context(), string(model.EntityCustomer), tenant, id)
	if err != nil {
		return errorJSON(c, err)
	}
	var customer model.Customer
	if err := json.Unmarshal(rec.Payload, &customer); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete customer"})
	}

	result, err := h.customers.Sync(c.Request().Context(), &customer, tenant, model.OpDelete)
	if err != nil {
		log.Error("Failed to delete customer", zap.String("customer_id", id), zap.Error(err))
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Customer deleted successfully", "synced": result.Synced})
}
