package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"shoplink/internal/config"
	"shoplink/internal/logger"
	"shoplink/internal/models"
	"shoplink/internal/platforms"
)

// Verifier validates callback requests. The state token must be known,
// unexpired and unused, and the platform's signature must verify. The two
// checks are independent defenses and both are mandatory.
type Verifier struct {
	states  StateStore
	catalog *platforms.Catalog
	config  *config.Config
	logger  *logger.Logger
}

func NewVerifier(states StateStore, catalog *platforms.Catalog, cfg *config.Config, log *logger.Logger) *Verifier {
	return &Verifier{
		states:  states,
		catalog: catalog,
		config:  cfg,
		logger:  log,
	}
}

// CallbackData is the validated result of a callback request.
type CallbackData struct {
	OwnerID    string
	Platform   models.Platform
	ShopDomain string
	Code       string
}

// Verify consumes the state token, then checks the signature. The state
// check runs first so that a forged or replayed callback never reaches the
// signature computation, let alone the token exchange.
func (v *Verifier) Verify(ctx context.Context, platformID string, params map[string]string) (CallbackData, error) {
	platform, ok := v.catalog.Lookup(platformID)
	if !ok {
		return CallbackData{}, ErrUnknownPlatform
	}

	data, err := v.states.Consume(ctx, params["state"])
	if err != nil {
		if errors.Is(err, ErrStateNotFound) || errors.Is(err, ErrStateExpired) {
			return CallbackData{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		return CallbackData{}, err
	}
	if data.Platform != models.Platform(platform.ID) {
		return CallbackData{}, fmt.Errorf("%w: state issued for %s", ErrInvalidState, data.Platform)
	}

	creds := v.config.Credentials(platform.ID)
	if creds == nil {
		return CallbackData{}, ErrNotConfigured
	}

	provided := params[platform.SignatureParam]
	if !VerifySignature(params, platform.SignatureParam, creds.ClientSecret, provided) {
		v.logger.Warn("signature mismatch on %s callback for owner %s", platform.ID, data.OwnerID)
		return CallbackData{}, ErrInvalidSignature
	}

	shopDomain := data.ShopDomain
	if shop := params[platform.ShopParam]; shop != "" {
		if shopDomain != "" && !strings.EqualFold(shop, shopDomain) {
			return CallbackData{}, fmt.Errorf("%w: callback shop does not match state", ErrInvalidState)
		}
		shopDomain = shop
	}

	return CallbackData{
		OwnerID:    data.OwnerID,
		Platform:   data.Platform,
		ShopDomain: shopDomain,
		Code:       params["code"],
	}, nil
}

// ComputeSignature builds the canonical message for a callback: every
// parameter except the signature fields, keys sorted, joined as k=v with &,
// HMAC-SHA256 under the shared secret, hex-encoded.
func ComputeSignature(params map[string]string, signatureParam, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == signatureParam || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares the provided hex digest against the recomputed
// one in constant time.
func VerifySignature(params map[string]string, signatureParam, secret, provided string) bool {
	if provided == "" || secret == "" {
		return false
	}
	expected := ComputeSignature(params, signatureParam, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(provided)))
}
