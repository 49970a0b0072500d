package marketplace

import (
	"context"
	"errors"
	"strconv"

	"shoplink/internal/logger"
	"shoplink/internal/models"
	"shoplink/internal/services/shopify"
)

// ShopifyPublisher creates and updates products through the Shopify Admin API.
type ShopifyPublisher struct {
	logger *logger.Logger
}

func NewShopifyPublisher(log *logger.Logger) *ShopifyPublisher {
	return &ShopifyPublisher{logger: log}
}

func (p *ShopifyPublisher) Publish(ctx context.Context, integ *models.ShopIntegration, accessToken string, product *models.Product, currentID *string) (PublishResult, error) {
	client := shopify.NewClient(integ.ExternalShopID, accessToken, p.logger)

	payload := &shopify.Product{
		Title:  product.Name,
		Status: "active",
	}
	if product.Description != nil {
		payload.BodyHTML = *product.Description
	}
	if product.Category != nil {
		payload.ProductType = *product.Category
	}

	variant := shopify.Variant{
		Price:             strconv.FormatFloat(product.Price, 'f', 2, 64),
		InventoryQuantity: product.StockQuantity,
		RequiresShipping:  true,
		Taxable:           true,
	}
	if product.SKU != nil {
		variant.Sku = *product.SKU
	}
	payload.Variants = []shopify.Variant{variant}

	for i, src := range product.Images {
		payload.Images = append(payload.Images, shopify.Image{Position: i + 1, Src: src})
	}

	// Republish updates the remote product in place. If the merchant
	// deleted it from the Shopify admin in the meantime, create a fresh one.
	if currentID != nil {
		if id, err := strconv.ParseInt(*currentID, 10, 64); err == nil {
			payload.ID = id
			updated, err := client.UpdateProduct(ctx, payload)
			if err == nil {
				return publishResult(client, updated), nil
			}
			if !errors.Is(err, shopify.ErrNotFound) {
				return PublishResult{}, err
			}
			p.logger.Warn("shopify product %d gone on %s, recreating", id, integ.ExternalShopID)
			payload.ID = 0
		}
	}

	created, err := client.CreateProduct(ctx, payload)
	if err != nil {
		return PublishResult{}, err
	}
	return publishResult(client, created), nil
}

func publishResult(client *shopify.Client, product *shopify.Product) PublishResult {
	return PublishResult{
		ExternalProductID: strconv.FormatInt(product.ID, 10),
		ExternalURL:       client.AdminURL(product.ID),
		PlatformData: map[string]interface{}{
			"shopify_product_id": product.ID,
			"handle":             product.Handle,
		},
	}
}
