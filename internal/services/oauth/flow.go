package oauth

import (
	"context"
	"fmt"
	"time"

	"shoplink/internal/config"
	"shoplink/internal/events"
	"shoplink/internal/logger"
	"shoplink/internal/models"
	"shoplink/internal/platforms"
	"shoplink/internal/services/integrations"
)

// Service runs the connect flow end to end: authorization URL, callback
// verification, token exchange, and integration persistence.
type Service struct {
	builder      *Builder
	verifier     *Verifier
	exchanger    Exchanger
	integrations *integrations.Manager
	events       events.Publisher
	config       *config.Config
	logger       *logger.Logger
}

func NewService(
	catalog *platforms.Catalog,
	states StateStore,
	exchanger Exchanger,
	manager *integrations.Manager,
	publisher events.Publisher,
	cfg *config.Config,
	log *logger.Logger,
) *Service {
	return &Service{
		builder:      NewBuilder(states, catalog, cfg),
		verifier:     NewVerifier(states, catalog, cfg, log),
		exchanger:    exchanger,
		integrations: manager,
		events:       publisher,
		config:       cfg,
		logger:       log,
	}
}

// Start issues a state token and returns the platform authorization URL.
// When redirectURI is empty the callback route of this API is used.
func (s *Service) Start(ctx context.Context, ownerID, platformID, shopDomain, redirectURI string) (string, error) {
	if redirectURI == "" {
		redirectURI = fmt.Sprintf("%s/api/v1/connect/%s/callback", s.config.AppBaseURL, platformID)
	}
	return s.builder.BuildAuthorizeURL(ctx, ownerID, platformID, shopDomain, redirectURI)
}

// HandleCallback verifies the callback, exchanges the code, and upserts the
// integration row. The external shop id comes from the verified callback
// parameters, never from the metadata fetch, so repeated callbacks for the
// same shop land on the same row.
func (s *Service) HandleCallback(ctx context.Context, platformID string, params map[string]string) (*models.ShopIntegration, error) {
	data, err := s.verifier.Verify(ctx, platformID, params)
	if err != nil {
		return nil, err
	}
	if data.ShopDomain == "" {
		return nil, fmt.Errorf("%w: missing shop identifier in callback", ErrInvalidState)
	}

	tokens, err := s.exchanger.Exchange(ctx, data.Platform, data.ShopDomain, data.Code)
	if err != nil {
		return nil, err
	}

	in := integrations.UpsertInput{
		OwnerID:        data.OwnerID,
		Platform:       data.Platform,
		ExternalShopID: data.ShopDomain,
		AccessToken:    tokens.AccessToken,
		RefreshToken:   tokens.RefreshToken,
		TokenExpiresAt: tokens.ExpiresAt,
		Scopes:         tokens.Scopes,
	}

	meta, err := s.exchanger.FetchShopMetadata(ctx, data.Platform, data.ShopDomain, tokens.AccessToken)
	if err != nil {
		s.logger.Warn("metadata fetch failed for %s shop %s: %v", data.Platform, data.ShopDomain, err)
	} else {
		if meta.ShopName != "" {
			in.ShopName = &meta.ShopName
		}
		if meta.Region != "" {
			in.ShopRegion = &meta.Region
		}
	}

	integ, err := s.integrations.Upsert(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("connected %s shop %s for owner %s", integ.Platform, integ.ExternalShopID, integ.OwnerID)

	if err := s.events.Publish(ctx, events.Event{
		Type:          events.TypeShopConnected,
		OwnerID:       integ.OwnerID,
		IntegrationID: integ.ID,
		Data: map[string]interface{}{
			"platform":    string(integ.Platform),
			"shop_domain": integ.ExternalShopID,
		},
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to publish %s event: %v", events.TypeShopConnected, err)
	}

	return integ, nil
}

// Disconnect removes the integration and announces it on the event stream.
func (s *Service) Disconnect(ctx context.Context, id, ownerID string) error {
	if err := s.integrations.Disconnect(ctx, id, ownerID); err != nil {
		return err
	}
	s.logger.Info("disconnected integration %s for owner %s", id, ownerID)

	if err := s.events.Publish(ctx, events.Event{
		Type:          events.TypeShopDisconnected,
		OwnerID:       ownerID,
		IntegrationID: id,
		Timestamp:     time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to publish %s event: %v", events.TypeShopDisconnected, err)
	}
	return nil
}
