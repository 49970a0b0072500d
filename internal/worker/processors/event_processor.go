package processors

import (
	"context"
	"errors"
	"fmt"

	"shoplink/internal/events"
	"shoplink/internal/logger"
	"shoplink/internal/models"
	"shoplink/internal/services/enrich"
	"shoplink/internal/services/integrations"
	"shoplink/internal/services/oauth"

	"gorm.io/gorm"
)

// EventProcessor dispatches integration events to the background work each
// one triggers.
type EventProcessor struct {
	db           *gorm.DB
	integrations *integrations.Manager
	states       oauth.StateStore
	exchanger    oauth.Exchanger
	enricher     *enrich.Enricher
	logger       *logger.Logger
}

func NewEventProcessor(
	db *gorm.DB,
	manager *integrations.Manager,
	states oauth.StateStore,
	exchanger oauth.Exchanger,
	enricher *enrich.Enricher,
	log *logger.Logger,
) *EventProcessor {
	return &EventProcessor{
		db:           db,
		integrations: manager,
		states:       states,
		exchanger:    exchanger,
		enricher:     enricher,
		logger:       log,
	}
}

func (ep *EventProcessor) Process(ctx context.Context, event events.Event) error {
	ep.logger.Debug("Processing %s event for owner %s", event.Type, event.OwnerID)

	switch event.Type {
	case events.TypeShopConnected:
		return ep.handleShopConnected(ctx, event)
	case events.TypeShopDisconnected:
		return ep.handleShopDisconnected(ctx, event)
	case events.TypeProductCreated:
		return ep.handleProductCreated(ctx, event)
	case events.TypeListingPublished, events.TypeListingFailed:
		ep.logger.Info("Listing event %s for product %s on integration %s",
			event.Type, event.ProductID, event.IntegrationID)
		return nil
	default:
		ep.logger.Warn("Ignoring unknown event type %s", event.Type)
		return nil
	}
}

// handleShopConnected refreshes shop metadata for the new integration. The
// callback already did a best-effort fetch; this retries it off the request
// path and records the sync time.
func (ep *EventProcessor) handleShopConnected(ctx context.Context, event events.Event) error {
	integ, err := ep.integrations.Get(ctx, event.IntegrationID, event.OwnerID)
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			ep.logger.Warn("Integration %s gone before metadata sync", event.IntegrationID)
			return nil
		}
		return err
	}

	token, err := ep.integrations.AccessToken(integ)
	if err != nil {
		return fmt.Errorf("failed to decrypt access token: %w", err)
	}

	meta, err := ep.exchanger.FetchShopMetadata(ctx, integ.Platform, integ.ExternalShopID, token)
	if err != nil {
		ep.logger.Warn("Metadata sync failed for integration %s: %v", integ.ID, err)
		return nil
	}

	if err := ep.integrations.UpdateMetadata(ctx, integ.ID, &meta.ShopName, &meta.Region); err != nil {
		return err
	}
	ep.logger.Info("Synced metadata for %s shop %s", integ.Platform, integ.ExternalShopID)
	return nil
}

// handleShopDisconnected uses the disconnect as a housekeeping trigger and
// sweeps expired state rows.
func (ep *EventProcessor) handleShopDisconnected(ctx context.Context, event events.Event) error {
	purged, err := ep.states.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if purged > 0 {
		ep.logger.Info("Purged %d expired authorization states", purged)
	}
	return nil
}

// handleProductCreated runs a full enrichment when the merchant has
// auto-enrich turned on.
func (ep *EventProcessor) handleProductCreated(ctx context.Context, event events.Event) error {
	var settings models.MerchantSettings
	err := ep.db.WithContext(ctx).First(&settings, "owner_id = ?", event.OwnerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if !settings.AutoEnrich {
		return nil
	}

	_, _, err = ep.enricher.Enrich(ctx, event.OwnerID, event.ProductID, models.EnrichmentKindFull)
	if err != nil {
		if errors.Is(err, enrich.ErrNotFound) {
			ep.logger.Warn("Product %s gone before auto-enrich", event.ProductID)
			return nil
		}
		return err
	}
	ep.logger.Info("Auto-enriched product %s", event.ProductID)
	return nil
}
