package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shoplink/internal/logger"
)

const apiVersion = "2024-01"

// ErrNotFound means the resource does not exist on the shop, typically a
// product the merchant deleted from the Shopify admin.
var ErrNotFound = errors.New("shopify: not found")

// Client calls the Shopify Admin REST API for one shop.
type Client struct {
	shopDomain  string
	accessToken string
	httpClient  *http.Client
	logger      *logger.Logger
}

// NewClient accepts either a full myshopify domain or a bare shop handle.
func NewClient(shopDomain, accessToken string, log *logger.Logger) *Client {
	if !strings.Contains(shopDomain, ".") {
		shopDomain += ".myshopify.com"
	}
	return &Client{
		shopDomain:  shopDomain,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
	}
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/%s", c.shopDomain, apiVersion, path)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return fmt.Errorf("API request failed: %d - %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// GetShopInfo fetches the shop record behind the access token.
func (c *Client) GetShopInfo(ctx context.Context) (*Shop, error) {
	var resp struct {
		Shop Shop `json:"shop"`
	}
	if err := c.do(ctx, http.MethodGet, "shop.json", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Shop, nil
}

// CreateProduct pushes a new product to the shop and returns it with the
// ids Shopify assigned.
func (c *Client) CreateProduct(ctx context.Context, product *Product) (*Product, error) {
	payload := struct {
		Product *Product `json:"product"`
	}{Product: product}
	var resp struct {
		Product Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodPost, "products.json", payload, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("created shopify product %d on %s", resp.Product.ID, c.shopDomain)
	return &resp.Product, nil
}

// UpdateProduct replaces an existing product.
func (c *Client) UpdateProduct(ctx context.Context, product *Product) (*Product, error) {
	payload := struct {
		Product *Product `json:"product"`
	}{Product: product}
	var resp struct {
		Product Product `json:"product"`
	}
	path := fmt.Sprintf("products/%d.json", product.ID)
	if err := c.do(ctx, http.MethodPut, path, payload, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// AdminURL returns the storefront admin link for a product.
func (c *Client) AdminURL(productID int64) string {
	return fmt.Sprintf("https://%s/admin/products/%d", c.shopDomain, productID)
}
