package handlers

import (
	"errors"
	"net/http"

	"shoplink/internal/api/middleware"
	"shoplink/internal/logger"
	"shoplink/internal/models"
	"shoplink/internal/services/enrich"

	"github.com/gin-gonic/gin"
)

// EnrichHandler exposes AI enrichment for products.
type EnrichHandler struct {
	enricher *enrich.Enricher
	logger   *logger.Logger
}

func NewEnrichHandler(enricher *enrich.Enricher, log *logger.Logger) *EnrichHandler {
	return &EnrichHandler{
		enricher: enricher,
		logger:   log,
	}
}

type enrichRequest struct {
	Kind string `json:"kind"`
}

func (h *EnrichHandler) Enrich(c *gin.Context) {
	var req enrichRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Kind == "" {
		req.Kind = string(models.EnrichmentKindFull)
	}

	product, logRow, err := h.enricher.Enrich(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), models.EnrichmentKind(req.Kind))
	if err != nil {
		switch {
		case errors.Is(err, enrich.ErrUnknownKind):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown enrichment kind"})
		case errors.Is(err, enrich.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		case errors.Is(err, enrich.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Product belongs to another merchant"})
		default:
			h.logger.Error("enrichment failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enrich product"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"product": product,
		"log":     logRow,
	}})
}

func (h *EnrichHandler) History(c *gin.Context) {
	logs, err := h.enricher.History(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to fetch enrichment history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch enrichment history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}
