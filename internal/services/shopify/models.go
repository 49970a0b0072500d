package shopify

import (
	"time"
)

// Product is the Admin API product resource, trimmed to the fields the
// publisher reads and writes.
type Product struct {
	ID          int64      `json:"id,omitempty"`
	Title       string     `json:"title"`
	BodyHTML    string     `json:"body_html,omitempty"`
	Vendor      string     `json:"vendor,omitempty"`
	ProductType string     `json:"product_type,omitempty"`
	Handle      string     `json:"handle,omitempty"`
	Status      string     `json:"status,omitempty"`
	Tags        string     `json:"tags,omitempty"`
	Variants    []Variant  `json:"variants,omitempty"`
	Images      []Image    `json:"images,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Variant carries price and stock for one sellable unit.
type Variant struct {
	ID                int64  `json:"id,omitempty"`
	ProductID         int64  `json:"product_id,omitempty"`
	Title             string `json:"title,omitempty"`
	Price             string `json:"price"`
	Sku               string `json:"sku,omitempty"`
	InventoryQuantity int    `json:"inventory_quantity,omitempty"`
	InventoryPolicy   string `json:"inventory_policy,omitempty"`
	RequiresShipping  bool   `json:"requires_shipping,omitempty"`
	Taxable           bool   `json:"taxable,omitempty"`
}

// Image is a product image reference.
type Image struct {
	ID       int64  `json:"id,omitempty"`
	Position int    `json:"position,omitempty"`
	Src      string `json:"src"`
	Alt      string `json:"alt,omitempty"`
}

// Shop is the shop resource, trimmed to what the connect flow stores.
type Shop struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Domain          string `json:"domain"`
	MyshopifyDomain string `json:"myshopify_domain"`
	Country         string `json:"country"`
	CountryCode     string `json:"country_code"`
	CountryName     string `json:"country_name"`
	Currency        string `json:"currency"`
	Timezone        string `json:"timezone"`
	IanaTimezone    string `json:"iana_timezone"`
	ShopOwner       string `json:"shop_owner"`
	PlanName        string `json:"plan_name"`
	PrimaryLocale   string `json:"primary_locale"`
}
