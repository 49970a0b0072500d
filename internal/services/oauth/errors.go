package oauth

import "errors"

var (
	// ErrNotConfigured means no client credentials exist for the platform.
	// The integration is unavailable; the process is healthy.
	ErrNotConfigured = errors.New("oauth: platform not configured")
	// ErrUnknownPlatform means the platform id is not in the catalog.
	ErrUnknownPlatform = errors.New("oauth: unknown platform")
	// ErrInvalidShopDomain means the shop domain failed validation.
	ErrInvalidShopDomain = errors.New("oauth: invalid shop domain")
	// ErrStateNotFound means the state token was never issued or was
	// already consumed.
	ErrStateNotFound = errors.New("oauth: state not found")
	// ErrStateExpired means the state token outlived its TTL.
	ErrStateExpired = errors.New("oauth: state expired")
	// ErrInvalidState is the callback-facing failure for any state problem.
	ErrInvalidState = errors.New("oauth: invalid state")
	// ErrInvalidSignature means the callback signature did not verify.
	ErrInvalidSignature = errors.New("oauth: invalid signature")
	// ErrExchangeFailed means the token endpoint rejected the code, timed
	// out, or returned a malformed body.
	ErrExchangeFailed = errors.New("oauth: token exchange failed")
)
