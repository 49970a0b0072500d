package handlers

import (
	"net/http"

	"shoplink/internal/config"
	"shoplink/internal/platforms"

	"github.com/gin-gonic/gin"
)

// PlatformsHandler lists the marketplaces this deployment can connect to.
type PlatformsHandler struct {
	catalog *platforms.Catalog
	config  *config.Config
}

func NewPlatformsHandler(catalog *platforms.Catalog, cfg *config.Config) *PlatformsHandler {
	return &PlatformsHandler{
		catalog: catalog,
		config:  cfg,
	}
}

func (h *PlatformsHandler) List(c *gin.Context) {
	defs := h.catalog.List()
	out := make([]gin.H, 0, len(defs))
	for _, def := range defs {
		out = append(out, gin.H{
			"id":         def.ID,
			"name":       def.Name,
			"mocked":     def.Mocked,
			"configured": h.config.Credentials(def.ID) != nil,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
