package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shoplink/internal/api/middleware"
	"shoplink/internal/events"
	"shoplink/internal/logger"
	"shoplink/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ProductHandler owns the merchant product CRUD.
type ProductHandler struct {
	db     *gorm.DB
	events events.Publisher
	logger *logger.Logger
}

func NewProductHandler(db *gorm.DB, publisher events.Publisher, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		db:     db,
		events: publisher,
		logger: log,
	}
}

func (h *ProductHandler) List(c *gin.Context) {
	var products []models.Product

	// Pagination
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	// Filters
	status := c.Query("status")
	search := c.Query("search")

	query := h.db.Model(&models.Product{}).Where("owner_id = ?", middleware.OwnerID(c))

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if search != "" {
		// LOWER + LIKE is case-insensitive on both postgres and sqlite.
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}

	var total int64
	query.Count(&total)

	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": products,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (h *ProductHandler) Get(c *gin.Context) {
	product, ok := h.ownedProduct(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (h *ProductHandler) Create(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if product.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product name is required"})
		return
	}

	ownerID := middleware.OwnerID(c)
	product.ID = ""
	product.OwnerID = ownerID
	product.Status = models.ProductStatusDraft
	product.AIEnriched = false
	product.AIEnrichedAt = nil
	product.AIModelUsed = nil
	h.applyDefaults(c, &product, ownerID)

	if err := h.db.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	if err := h.events.Publish(c.Request.Context(), events.Event{
		Type:      events.TypeProductCreated,
		OwnerID:   ownerID,
		ProductID: product.ID,
		Data:      map[string]interface{}{"name": product.Name},
		Timestamp: time.Now().UTC(),
	}); err != nil {
		h.logger.Warn("failed to publish %s event: %v", events.TypeProductCreated, err)
	}

	c.JSON(http.StatusCreated, gin.H{"data": product})
}

// applyDefaults fills currency and stock from the merchant settings when the
// request left them empty.
func (h *ProductHandler) applyDefaults(c *gin.Context, product *models.Product, ownerID string) {
	var settings models.MerchantSettings
	err := h.db.First(&settings, "owner_id = ?", ownerID).Error
	if err != nil {
		settings = models.MerchantSettings{DefaultCurrency: "USD", DefaultStockQuantity: 100}
	}
	if product.Currency == "" {
		product.Currency = settings.DefaultCurrency
	}
	if product.StockQuantity == 0 {
		product.StockQuantity = settings.DefaultStockQuantity
	}
	if product.Condition == "" {
		product.Condition = models.ProductConditionNew
	}
}

func (h *ProductHandler) Update(c *gin.Context) {
	product, ok := h.ownedProduct(c)
	if !ok {
		return
	}

	id, ownerID, createdAt := product.ID, product.OwnerID, product.CreatedAt
	if err := c.ShouldBindJSON(product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product.ID = id
	product.OwnerID = ownerID
	product.CreatedAt = createdAt

	if err := h.db.Save(product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (h *ProductHandler) Delete(c *gin.Context) {
	product, ok := h.ownedProduct(c)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ProductListing{}, "product_id = ?", product.ID).Error; err != nil {
			return err
		}
		return tx.Delete(product).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// ownedProduct loads the product from the :id param and enforces ownership,
// writing the error response itself when the load fails.
func (h *ProductHandler) ownedProduct(c *gin.Context) (*models.Product, bool) {
	var product models.Product
	if err := h.db.First(&product, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return nil, false
	}
	if product.OwnerID != middleware.OwnerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Product belongs to another merchant"})
		return nil, false
	}
	return &product, true
}
