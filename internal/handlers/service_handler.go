package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chafukay/byootify/internal/httperr"
	"github.com/chafukay/byootify/internal/httpresp"
	"github.com/chafukay/byootify/internal/middleware"
	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/validators"
)

// ======================================================
// HANDLER
// ======================================================

type ServiceHandler struct {
	db *gorm.DB
}

func NewServiceHandler(db *gorm.DB) *ServiceHandler {
	return &ServiceHandler{db: db}
}

// ======================================================
// REQUESTS
// ======================================================

type ServiceRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"max=255"`
	DurationMin int    `json:"duration_min" binding:"required,gt=0,lte=480"`
	PriceCents  int64  `json:"price_cents" binding:"required,gt=0"`
	Currency    string `json:"currency"`
	Category    string `json:"category" binding:"max=50"`
	Active      *bool  `json:"active"`
}

// ======================================================
// CRUD
// ======================================================

func (h *ServiceHandler) List(c *gin.Context) {
	providerID := c.MustGet(middleware.ContextUserID).(string)

	var services []models.Service
	if err := h.db.
		Where("provider_id = ?", providerID).
		Order("name ASC").
		Find(&services).Error; err != nil {

		httperr.Internal(c, "service_list_failed", "Could not list services.")
		return
	}

	httpresp.List(c, services)
}

func (h *ServiceHandler) Create(c *gin.Context) {
	providerID := c.MustGet(middleware.ContextUserID).(string)

	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid service payload.")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	if !validators.IsCurrencySupported(currency) {
		httperr.BadRequest(c, "unsupported_currency", "Currency is not supported.")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	service := models.Service{
		ID:          uuid.NewString(),
		ProviderID:  providerID,
		Name:        req.Name,
		Description: req.Description,
		DurationMin: req.DurationMin,
		PriceCents:  req.PriceCents,
		Currency:    currency,
		Category:    req.Category,
		Active:      active,
	}

	if err := h.db.Create(&service).Error; err != nil {
		httperr.Internal(c, "service_create_failed", "Could not create service.")
		return
	}

	c.JSON(201, service)
}

func (h *ServiceHandler) Update(c *gin.Context) {
	providerID := c.MustGet(middleware.ContextUserID).(string)
	serviceID := c.Param("id")

	var service models.Service
	if err := h.db.
		Where("id = ? AND provider_id = ?", serviceID, providerID).
		First(&service).Error; err != nil {

		httperr.NotFound(c, "service_not_found", "Service not found.")
		return
	}

	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid service payload.")
		return
	}

	if req.Currency != "" && !validators.IsCurrencySupported(req.Currency) {
		httperr.BadRequest(c, "unsupported_currency", "Currency is not supported.")
		return
	}

	service.Name = req.Name
	service.Description = req.Description
	service.DurationMin = req.DurationMin
	service.PriceCents = req.PriceCents
	if req.Currency != "" {
		service.Currency = req.Currency
	}
	service.Category = req.Category
	if req.Active != nil {
		service.Active = *req.Active
	}

	if err := h.db.Save(&service).Error; err != nil {
		httperr.Internal(c, "service_update_failed", "Could not update service.")
		return
	}

	httpresp.OK(c, service)
}

// Delete deactivates instead of removing; past appointments keep pointing at
// the service row.
func (h *ServiceHandler) Delete(c *gin.Context) {
	providerID := c.MustGet(middleware.ContextUserID).(string)
	serviceID := c.Param("id")

	res := h.db.
		Model(&models.Service{}).
		Where("id = ? AND provider_id = ?", serviceID, providerID).
		Update("active", false)

	if res.Error != nil {
		httperr.Internal(c, "service_delete_failed", "Could not deactivate service.")
		return
	}
	if res.RowsAffected == 0 {
		httperr.NotFound(c, "service_not_found", "Service not found.")
		return
	}

	httpresp.OK(c, gin.H{"status": "ok"})
}
