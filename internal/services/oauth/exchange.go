package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"shoplink/internal/config"
	"shoplink/internal/logger"
	"shoplink/internal/models"
	"shoplink/internal/platforms"
	"shoplink/internal/services/shopify"
)

// TokenSet is the credential material returned by a token exchange.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scopes       string
}

// ShopMetadata is best-effort shop info fetched after an exchange.
type ShopMetadata struct {
	ShopName string
	Region   string
}

// Exchanger swaps an authorization code for tokens. Implementations must
// not retry: authorization codes are single-use, so a failed exchange needs
// a fresh flow, not a replay.
type Exchanger interface {
	Exchange(ctx context.Context, platform models.Platform, shopDomain, code string) (TokenSet, error)
	FetchShopMetadata(ctx context.Context, platform models.Platform, shopDomain, accessToken string) (ShopMetadata, error)
}

// HTTPExchanger performs the real server-to-server exchange against the
// platform's token endpoint.
type HTTPExchanger struct {
	catalog    *platforms.Catalog
	config     *config.Config
	logger     *logger.Logger
	httpClient *http.Client
}

var _ Exchanger = (*HTTPExchanger)(nil)

func NewHTTPExchanger(catalog *platforms.Catalog, cfg *config.Config, log *logger.Logger) *HTTPExchanger {
	timeout := time.Duration(cfg.ExchangeTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPExchanger{
		catalog: catalog,
		config:  cfg,
		logger:  log,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (e *HTTPExchanger) Exchange(ctx context.Context, platform models.Platform, shopDomain, code string) (TokenSet, error) {
	def, ok := e.catalog.Lookup(string(platform))
	if !ok {
		return TokenSet{}, ErrUnknownPlatform
	}
	creds := e.config.Credentials(def.ID)
	if creds == nil {
		return TokenSet{}, ErrNotConfigured
	}

	data := url.Values{}
	data.Set("client_id", creds.ClientID)
	data.Set("client_secret", creds.ClientSecret)
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, def.TokenEndpoint(shopDomain), strings.NewReader(data.Encode()))
	if err != nil {
		return TokenSet{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return TokenSet{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return TokenSet{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("token exchange for %s returned %d: %s", def.ID, resp.StatusCode, string(body))
		return TokenSet{}, fmt.Errorf("%w: status %d", ErrExchangeFailed, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return TokenSet{}, fmt.Errorf("%w: malformed response", ErrExchangeFailed)
	}
	if token.AccessToken == "" {
		return TokenSet{}, fmt.Errorf("%w: empty access token", ErrExchangeFailed)
	}

	set := TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Scopes:       token.Scope,
	}
	if token.ExpiresIn > 0 {
		expires := time.Now().UTC().Add(time.Duration(token.ExpiresIn) * time.Second)
		set.ExpiresAt = &expires
	}
	return set, nil
}

// FetchShopMetadata asks the platform for shop name and region. Mocked
// platforms derive metadata locally.
func (e *HTTPExchanger) FetchShopMetadata(ctx context.Context, platform models.Platform, shopDomain, accessToken string) (ShopMetadata, error) {
	def, ok := e.catalog.Lookup(string(platform))
	if !ok {
		return ShopMetadata{}, ErrUnknownPlatform
	}
	if def.Mocked || platform != models.PlatformShopify {
		return derivedShopMetadata(shopDomain), nil
	}

	client := shopify.NewClient(shopDomain, accessToken, e.logger)
	shop, err := client.GetShopInfo(ctx)
	if err != nil {
		return ShopMetadata{}, err
	}
	return ShopMetadata{ShopName: shop.Name, Region: shop.CountryCode}, nil
}

func derivedShopMetadata(shopDomain string) ShopMetadata {
	return ShopMetadata{ShopName: strings.TrimSuffix(shopDomain, ".myshopify.com")}
}

// StubExchanger returns deterministic tokens without touching the network.
// It doubles as the test exchanger; FailStatus makes Exchange fail as if
// the token endpoint had returned that status.
type StubExchanger struct {
	FailStatus int

	mu    sync.Mutex
	calls int
}

var _ Exchanger = (*StubExchanger)(nil)

func NewStubExchanger() *StubExchanger {
	return &StubExchanger{}
}

func (s *StubExchanger) Exchange(ctx context.Context, platform models.Platform, shopDomain, code string) (TokenSet, error) {
	s.mu.Lock()
	s.calls++
	fail := s.FailStatus
	s.mu.Unlock()

	if fail != 0 {
		return TokenSet{}, fmt.Errorf("%w: status %d", ErrExchangeFailed, fail)
	}

	sum := sha256.Sum256([]byte(string(platform) + "|" + shopDomain + "|" + code))
	token := hex.EncodeToString(sum[:])[:32]
	if platform == models.PlatformShopify {
		token = "shpat_" + token
	}
	return TokenSet{
		AccessToken: token,
		Scopes:      "read_products,write_products,read_orders,write_orders",
	}, nil
}

func (s *StubExchanger) FetchShopMetadata(ctx context.Context, platform models.Platform, shopDomain, accessToken string) (ShopMetadata, error) {
	return derivedShopMetadata(shopDomain), nil
}

// Calls reports how many exchanges were attempted.
func (s *StubExchanger) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
