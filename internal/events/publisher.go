package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"shoplink/internal/logger"

	"github.com/segmentio/kafka-go"
)

const Topic = "integration-events"

// Event types carried on the integration-events topic.
const (
	TypeShopConnected    = "shop.connected"
	TypeShopDisconnected = "shop.disconnected"
	TypeProductCreated   = "product.created"
	TypeListingPublished = "listing.published"
	TypeListingFailed    = "listing.failed"
)

// Event is the message published after integration and listing changes.
type Event struct {
	Type          string                 `json:"type"`
	OwnerID       string                 `json:"owner_id"`
	IntegrationID string                 `json:"integration_id,omitempty"`
	ProductID     string                 `json:"product_id,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// Publisher emits events for the background worker to consume.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// KafkaPublisher writes events to the integration-events topic, keyed by
// owner so one merchant's events stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *logger.Logger
}

func NewKafkaPublisher(brokers string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        Topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 100 * time.Millisecond,
		},
		logger: log,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OwnerID),
		Value: payload,
	})
	if err != nil {
		return err
	}
	p.logger.Debug("published %s event for owner %s", event.Type, event.OwnerID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. Used when KAFKA_BROKERS is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

func (NopPublisher) Close() error { return nil }

// New returns a Kafka publisher when brokers are configured and a
// NopPublisher otherwise.
func New(brokers string, log *logger.Logger) Publisher {
	if strings.TrimSpace(brokers) == "" {
		log.Info("KAFKA_BROKERS not set, event publishing disabled")
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, log)
}
