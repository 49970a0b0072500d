package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"shoplink/internal/api/middleware"
	"shoplink/internal/config"
	"shoplink/internal/logger"
	"shoplink/internal/services/integrations"
	"shoplink/internal/services/oauth"

	"github.com/gin-gonic/gin"
)

// ConnectHandler drives the OAuth connect flow over HTTP.
type ConnectHandler struct {
	flow   *oauth.Service
	config *config.Config
	logger *logger.Logger
}

func NewConnectHandler(flow *oauth.Service, cfg *config.Config, log *logger.Logger) *ConnectHandler {
	return &ConnectHandler{
		flow:   flow,
		config: cfg,
		logger: log,
	}
}

type startConnectRequest struct {
	ShopDomain  string `json:"shop_domain"`
	RedirectURI string `json:"redirect_uri"`
}

// Start returns the platform authorization URL for the merchant to visit.
func (h *ConnectHandler) Start(c *gin.Context) {
	platform := c.Param("platform")

	var req startConnectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	authURL, err := h.flow.Start(c.Request.Context(), middleware.OwnerID(c), platform, req.ShopDomain, req.RedirectURI)
	if err != nil {
		switch {
		case errors.Is(err, oauth.ErrUnknownPlatform):
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown platform"})
		case errors.Is(err, oauth.ErrNotConfigured):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("Integration unavailable: %s credentials are not configured", platform)})
		case errors.Is(err, oauth.ErrInvalidShopDomain):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shop domain"})
		default:
			h.logger.Error("connect start failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start connect flow"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"authorization_url": authURL}})
}

// Callback completes the flow after the platform redirects back. On success
// the browser is sent to the frontend when one is configured.
func (h *ConnectHandler) Callback(c *gin.Context) {
	platform := c.Param("platform")

	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	integ, err := h.flow.HandleCallback(c.Request.Context(), platform, params)
	if err != nil {
		switch {
		case errors.Is(err, oauth.ErrUnknownPlatform):
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown platform"})
		case errors.Is(err, oauth.ErrInvalidState):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired state"})
		case errors.Is(err, oauth.ErrInvalidSignature):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		case errors.Is(err, oauth.ErrNotConfigured):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("Integration unavailable: %s credentials are not configured", platform)})
		case errors.Is(err, oauth.ErrExchangeFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Token exchange failed"})
		case errors.Is(err, integrations.ErrConflict):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Connection conflicted with a concurrent attempt, please retry"})
		default:
			h.logger.Error("connect callback failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete connect flow"})
		}
		return
	}

	if h.config.FrontendURL != "" {
		redirect := fmt.Sprintf("%s?connected=true&shop=%s&platform=%s",
			h.config.FrontendURL,
			url.QueryEscape(integ.ExternalShopID),
			url.QueryEscape(string(integ.Platform)))
		c.Redirect(http.StatusFound, redirect)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": integ})
}
