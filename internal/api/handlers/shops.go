package handlers

import (
	"errors"
	"net/http"

	"shoplink/internal/api/middleware"
	"shoplink/internal/logger"
	"shoplink/internal/services/integrations"
	"shoplink/internal/services/oauth"

	"github.com/gin-gonic/gin"
)

// ShopsHandler serves the merchant's connected shops.
type ShopsHandler struct {
	integrations *integrations.Manager
	flow         *oauth.Service
	logger       *logger.Logger
}

func NewShopsHandler(manager *integrations.Manager, flow *oauth.Service, log *logger.Logger) *ShopsHandler {
	return &ShopsHandler{
		integrations: manager,
		flow:         flow,
		logger:       log,
	}
}

func (h *ShopsHandler) List(c *gin.Context) {
	shops, err := h.integrations.List(c.Request.Context(), middleware.OwnerID(c), c.Query("platform"))
	if err != nil {
		h.logger.Error("failed to list integrations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch shops"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": shops})
}

func (h *ShopsHandler) Get(c *gin.Context) {
	integ, err := h.integrations.Get(c.Request.Context(), c.Param("id"), middleware.OwnerID(c))
	if err != nil {
		h.respondError(c, err, "Failed to fetch shop")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": integ})
}

// Status reports connection health, flipping the row to expired when the
// token lifetime has passed.
func (h *ShopsHandler) Status(c *gin.Context) {
	integ, err := h.integrations.Status(c.Request.Context(), c.Param("id"), middleware.OwnerID(c))
	if err != nil {
		h.respondError(c, err, "Failed to fetch shop status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":               integ.ID,
		"platform":         integ.Platform,
		"external_shop_id": integ.ExternalShopID,
		"status":           integ.Status,
		"token_expires_at": integ.TokenExpiresAt,
		"connected_at":     integ.ConnectedAt,
		"last_synced_at":   integ.LastSyncedAt,
	}})
}

func (h *ShopsHandler) Disconnect(c *gin.Context) {
	err := h.flow.Disconnect(c.Request.Context(), c.Param("id"), middleware.OwnerID(c))
	if err != nil {
		h.respondError(c, err, "Failed to disconnect shop")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"disconnected": true}})
}

func (h *ShopsHandler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, integrations.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found"})
	case errors.Is(err, integrations.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Shop belongs to another merchant"})
	default:
		h.logger.Error("%s: %v", fallback, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
