package oauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"shoplink/internal/config"
	"shoplink/internal/models"
	"shoplink/internal/platforms"
)

// Builder constructs marketplace authorize URLs, issuing a fresh state
// token for each request.
type Builder struct {
	states  StateStore
	catalog *platforms.Catalog
	config  *config.Config
}

func NewBuilder(states StateStore, catalog *platforms.Catalog, cfg *config.Config) *Builder {
	return &Builder{
		states:  states,
		catalog: catalog,
		config:  cfg,
	}
}

// BuildAuthorizeURL returns the URL the merchant's browser is sent to.
// ErrNotConfigured means the platform has no client credentials and the
// integration is unavailable.
func (b *Builder) BuildAuthorizeURL(ctx context.Context, ownerID, platformID, shopDomain, redirectURI string) (string, error) {
	platform, ok := b.catalog.Lookup(platformID)
	if !ok {
		return "", ErrUnknownPlatform
	}

	creds := b.config.Credentials(platform.ID)
	if creds == nil {
		return "", ErrNotConfigured
	}

	if platform.ID == string(models.PlatformShopify) {
		shopDomain = NormalizeShopDomain(shopDomain)
		if !IsValidShopDomain(shopDomain) {
			return "", ErrInvalidShopDomain
		}
	}

	state, err := b.states.Issue(ctx, ownerID, models.Platform(platform.ID), shopDomain)
	if err != nil {
		return "", err
	}

	endpoint, err := url.Parse(platform.AuthorizeEndpoint(shopDomain))
	if err != nil {
		return "", fmt.Errorf("invalid authorize endpoint for %s: %w", platform.ID, err)
	}
	q := endpoint.Query()
	q.Set("client_id", creds.ClientID)
	if platform.Scopes != "" {
		q.Set("scope", platform.Scopes)
	}
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	endpoint.RawQuery = q.Encode()

	return endpoint.String(), nil
}

// NormalizeShopDomain lowercases a merchant-entered shop handle and expands
// a bare handle to the full *.myshopify.com domain.
func NormalizeShopDomain(shop string) string {
	shop = strings.TrimSpace(strings.ToLower(shop))
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	shop = strings.TrimSuffix(shop, "/")
	if shop != "" && !strings.Contains(shop, ".") {
		shop += ".myshopify.com"
	}
	return shop
}

// IsValidShopDomain reports whether shop looks like a myshopify.com domain.
func IsValidShopDomain(shop string) bool {
	if !strings.HasSuffix(shop, ".myshopify.com") {
		return false
	}
	if strings.Contains(shop, "/") || strings.Contains(shop, " ") {
		return false
	}
	return len(shop) > len(".myshopify.com")
}
