package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// MerchantIDHeader carries the caller identity.
	MerchantIDHeader = "X-Merchant-ID"
	// MerchantIDKey is the gin context key the resolved id is stored under.
	MerchantIDKey = "merchant_id"
	// DefaultMerchantID is the shared dev merchant used when the header is
	// absent.
	DefaultMerchantID = "00000000-0000-0000-0000-000000000000"
)

// MerchantID resolves the caller from the X-Merchant-ID header. There is no
// auth service in front of this API yet, so the header is trusted as-is.
func MerchantID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(MerchantIDHeader)
		if id == "" {
			id = DefaultMerchantID
		} else if _, err := uuid.Parse(id); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid X-Merchant-ID header"})
			return
		}
		c.Set(MerchantIDKey, id)
		c.Next()
	}
}

// OwnerID returns the merchant id stored by MerchantID.
func OwnerID(c *gin.Context) string {
	return c.GetString(MerchantIDKey)
}
