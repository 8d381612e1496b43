package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/chafukay/byootify/internal/middleware"
	"github.com/chafukay/byootify/internal/models"
	"github.com/chafukay/byootify/internal/validators"
)

type WorkingHoursHandler struct {
	db *gorm.DB
}

func NewWorkingHoursHandler(db *gorm.DB) *WorkingHoursHandler {
	return &WorkingHoursHandler{db: db}
}

type WorkingDayConfig struct {
	Weekday    int    `json:"weekday" binding:"required,min=0,max=6"`
	Active     bool   `json:"active"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	BreakStart string `json:"break_start"`
	BreakEnd   string `json:"break_end"`
}

type WorkingHoursUpdateRequest struct {
	Days []WorkingDayConfig `json:"days" binding:"required"`
}

func (h *WorkingHoursHandler) Get(c *gin.Context) {
	providerID := c.MustGet(middleware.ContextUserID).(string)

	var hours []models.WorkingHours
	if err := h.db.
		Where("provider_id = ?", providerID).
		Order("weekday ASC").
		Find(&hours).Error; err != nil {

		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_get_working_hours"})
		return
	}

	c.JSON(http.StatusOK, hours)
}

func (h *WorkingHoursHandler) Update(c *gin.Context) {
	providerID := c.MustGet(middleware.ContextUserID).(string)

	var req WorkingHoursUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"details": err.Error(),
		})
		return
	}

	for _, d := range req.Days {
		if !d.Active {
			continue
		}
		if !validators.IsClockTime(d.StartTime) || !validators.IsClockTime(d.EndTime) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_time",
				"details": "start_time and end_time must be HH:MM",
			})
			return
		}
		hasBreak := d.BreakStart != "" || d.BreakEnd != ""
		if hasBreak && (!validators.IsClockTime(d.BreakStart) || !validators.IsClockTime(d.BreakEnd)) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_time",
				"details": "break_start and break_end must both be HH:MM",
			})
			return
		}
	}

	if err := h.db.Where("provider_id = ?", providerID).Delete(&models.WorkingHours{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_clear_existing_hours"})
		return
	}

	var toCreate []models.WorkingHours
	for _, d := range req.Days {
		wh := models.WorkingHours{
			ProviderID: providerID,
			Weekday:    d.Weekday,
			Active:     d.Active,
			StartTime:  d.StartTime,
			EndTime:    d.EndTime,
			BreakStart: d.BreakStart,
			BreakEnd:   d.BreakEnd,
		}
		toCreate = append(toCreate, wh)
	}

	if len(toCreate) > 0 {
		if err := h.db.Create(&toCreate).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_save_working_hours"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
