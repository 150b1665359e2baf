package events

import (
	"context"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Lokeshwarrior12/FineDine/internal/common/events"
	"github.com/Lokeshwarrior12/FineDine/internal/common/kafka"
	"github.com/Lokeshwarrior12/FineDine/internal/metrics"
)

// OfferCatalog applies catalog changes. *application.OfferService satisfies it.
type OfferCatalog interface {
	HandleOfferUpserted(ctx context.Context, event events.OfferUpsertedEvent) error
	HandleOfferDeactivated(ctx context.Context, event events.OfferDeactivatedEvent) error
}

// OfferCatalogConsumer listens to catalog events and keeps local offers in sync.
type OfferCatalogConsumer struct {
	consumer *kafka.Consumer
	catalog  OfferCatalog
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewOfferCatalogConsumer creates a new consumer for offer catalog events.
func NewOfferCatalogConsumer(
	brokers []string,
	groupID string,
	catalog OfferCatalog,
	m *metrics.Metrics,
	logger *zap.Logger,
) *OfferCatalogConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicCatalogOffers, logger)
	return &OfferCatalogConsumer{
		consumer: consumer,
		catalog:  catalog,
		metrics:  m,
		logger:   logger,
	}
}

// Start begins consuming catalog events. It blocks until the context is cancelled.
func (c *OfferCatalogConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// handleMessage routes incoming Kafka messages to the appropriate handler.
func (c *OfferCatalogConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from catalog topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		c.metrics.ObserveCatalogEvent("unknown", err)
		return err
	}

	c.logger.Info("received catalog event",
		zap.String("type", cloudEvent.Type),
		zap.String("id", cloudEvent.ID),
	)

	switch {
	case strings.EqualFold(cloudEvent.Type, events.OfferUpserted):
		err = c.handleOfferUpserted(ctx, cloudEvent)
	case strings.EqualFold(cloudEvent.Type, events.OfferDeactivated):
		err = c.handleOfferDeactivated(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled catalog event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
	c.metrics.ObserveCatalogEvent(strings.ToLower(cloudEvent.Type), err)
	return err
}

func (c *OfferCatalogConsumer) handleOfferUpserted(ctx context.Context, ce kafka.CloudEvent) error {
	var event events.OfferUpsertedEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse OfferUpsertedEvent data", zap.Error(err))
		return err
	}
	return c.catalog.HandleOfferUpserted(ctx, event)
}

func (c *OfferCatalogConsumer) handleOfferDeactivated(ctx context.Context, ce kafka.CloudEvent) error {
	var event events.OfferDeactivatedEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse OfferDeactivatedEvent data", zap.Error(err))
		return err
	}
	return c.catalog.HandleOfferDeactivated(ctx, event)
}

// Close closes the underlying Kafka consumer.
func (c *OfferCatalogConsumer) Close() error {
	return c.consumer.Close()
}
