package handlers

import (
	"errors"
	"net/http"

	"shoplink/internal/api/middleware"
	"shoplink/internal/logger"
	"shoplink/internal/services/integrations"
	"shoplink/internal/services/listings"

	"github.com/gin-gonic/gin"
)

// ListingsHandler publishes products to connected shops and lists the
// results.
type ListingsHandler struct {
	listings *listings.Service
	logger   *logger.Logger
}

func NewListingsHandler(svc *listings.Service, log *logger.Logger) *ListingsHandler {
	return &ListingsHandler{
		listings: svc,
		logger:   log,
	}
}

type publishRequest struct {
	IntegrationID string `json:"integration_id" binding:"required"`
}

func (h *ListingsHandler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "integration_id is required"})
		return
	}

	listing, err := h.listings.Publish(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), req.IntegrationID)
	if err != nil {
		switch {
		case errors.Is(err, listings.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		case errors.Is(err, integrations.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found"})
		case errors.Is(err, listings.ErrForbidden), errors.Is(err, integrations.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Resource belongs to another merchant"})
		case errors.Is(err, listings.ErrNotReady):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, listings.ErrIntegrationInactive):
			c.JSON(http.StatusConflict, gin.H{"error": "Shop connection is not active"})
		case errors.Is(err, listings.ErrPublishFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Publish failed on the platform", "data": listing})
		default:
			h.logger.Error("publish failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish product"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": listing})
}

func (h *ListingsHandler) List(c *gin.Context) {
	out, err := h.listings.List(c.Request.Context(), middleware.OwnerID(c), c.Query("product_id"))
	if err != nil {
		h.logger.Error("failed to list listings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
