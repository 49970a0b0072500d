package handlers

import (
	"errors"
	"net/http"

	"shoplink/internal/api/middleware"
	"shoplink/internal/logger"
	"shoplink/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SettingsHandler serves the merchant's enrichment and publishing defaults.
type SettingsHandler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewSettingsHandler(db *gorm.DB, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		db:     db,
		logger: log,
	}
}

func defaultSettings(ownerID string) models.MerchantSettings {
	return models.MerchantSettings{
		OwnerID:              ownerID,
		AITone:               "professional",
		AIModelPreference:    "gpt-4",
		AutoEnrich:           false,
		DefaultCurrency:      "USD",
		DefaultStockQuantity: 100,
	}
}

// Get returns the stored settings, or the defaults when the merchant has
// never saved any.
func (h *SettingsHandler) Get(c *gin.Context) {
	ownerID := middleware.OwnerID(c)

	var settings models.MerchantSettings
	err := h.db.First(&settings, "owner_id = ?", ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"data": defaultSettings(ownerID)})
			return
		}
		h.logger.Error("failed to fetch settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

func (h *SettingsHandler) Update(c *gin.Context) {
	ownerID := middleware.OwnerID(c)

	settings := defaultSettings(ownerID)
	if err := h.db.First(&settings, "owner_id = ?", ownerID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.Error("failed to fetch settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch settings"})
		return
	}

	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings.OwnerID = ownerID

	if err := h.db.Save(&settings).Error; err != nil {
		h.logger.Error("failed to save settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}
