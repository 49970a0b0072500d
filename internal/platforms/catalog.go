package platforms

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var platformIDRegexp = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Platform describes one marketplace: where to send the merchant for
// authorization, where to exchange the code, and how its callbacks are
// signed. URLs may contain a {shop} placeholder for shop-scoped endpoints.
type Platform struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	AuthorizeURL   string `yaml:"authorize_url" json:"-"`
	TokenURL       string `yaml:"token_url" json:"-"`
	Scopes         string `yaml:"scopes" json:"scopes"`
	SignatureParam string `yaml:"signature_param" json:"-"`
	ShopParam      string `yaml:"shop_param" json:"-"`
	Mocked         bool   `yaml:"mocked" json:"mocked"`
}

type fileConfig struct {
	Platforms []Platform `yaml:"platforms"`
}

// Catalog is the set of known marketplaces. Built-in defaults cover
// shopify, shopee and tiktok_shop; a YAML file can override or extend them.
type Catalog struct {
	byID map[string]Platform
	ids  []string
}

// Load builds the catalog from defaults plus an optional YAML file. An empty
// path means defaults only.
func Load(path string) (*Catalog, error) {
	entries := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read platforms file %q: %w", path, err)
		}
		var cfg fileConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse platforms file %q: %w", path, err)
		}
		for _, p := range cfg.Platforms {
			p.ID = strings.ToLower(strings.TrimSpace(p.ID))
			if !platformIDRegexp.MatchString(p.ID) {
				return nil, fmt.Errorf("invalid platform id %q in %s", p.ID, path)
			}
			entries[p.ID] = p
		}
	}

	c := &Catalog{byID: entries}
	for id := range entries {
		c.ids = append(c.ids, id)
	}
	sort.Strings(c.ids)
	return c, nil
}

// Lookup returns the platform definition for an id.
func (c *Catalog) Lookup(id string) (Platform, bool) {
	p, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// List returns all platforms in stable id order.
func (c *Catalog) List() []Platform {
	out := make([]Platform, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out
}

// AuthorizeEndpoint resolves the authorize URL for a shop.
func (p Platform) AuthorizeEndpoint(shopDomain string) string {
	return strings.ReplaceAll(p.AuthorizeURL, "{shop}", shopDomain)
}

// TokenEndpoint resolves the token exchange URL for a shop.
func (p Platform) TokenEndpoint(shopDomain string) string {
	return strings.ReplaceAll(p.TokenURL, "{shop}", shopDomain)
}

func defaults() map[string]Platform {
	return map[string]Platform{
		"shopify": {
			ID:             "shopify",
			Name:           "Shopify",
			AuthorizeURL:   "https://{shop}/admin/oauth/authorize",
			TokenURL:       "https://{shop}/admin/oauth/access_token",
			Scopes:         "read_products,write_products,read_orders,write_orders",
			SignatureParam: "hmac",
			ShopParam:      "shop",
		},
		"shopee": {
			ID:             "shopee",
			Name:           "Shopee",
			AuthorizeURL:   "https://partner.shopeemobile.com/api/v2/shop/auth_partner",
			TokenURL:       "https://partner.shopeemobile.com/api/v2/auth/token/get",
			SignatureParam: "sign",
			ShopParam:      "shop_id",
			Mocked:         true,
		},
		"tiktok_shop": {
			ID:             "tiktok_shop",
			Name:           "TikTok Shop",
			AuthorizeURL:   "https://services.tiktokshop.com/open/authorize",
			TokenURL:       "https://auth.tiktok-shops.com/api/v2/token/get",
			SignatureParam: "sign",
			ShopParam:      "shop_id",
			Mocked:         true,
		},
	}
}
