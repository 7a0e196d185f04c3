package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sibi-seeni/credit-churn-deploy/pkg/events"
	pkgkafka "github.com/sibi-seeni/credit-churn-deploy/pkg/kafka"
)

// MessageProducer is the subset of pkgkafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// Publisher implements port.EventPublisher using Kafka. Each event is sent
// as an events.Envelope keyed by its aggregate ID.
type Publisher struct {
	producer MessageProducer
	logger   *slog.Logger
	topic    string
	source   string
}

// NewPublisher creates a new Kafka event publisher. source names the emitting
// process in every envelope.
func NewPublisher(producer MessageProducer, topic, source string, logger *slog.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		source:   source,
		logger:   logger,
	}
}

// Publish sends domain events to Kafka.
func (p *Publisher) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	messages := make([]pkgkafka.Message, 0, len(domainEvents))
	for _, evt := range domainEvents {
		env, err := events.Wrap(p.source, evt)
		if err != nil {
			return err
		}
		payload, err := env.Marshal()
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", env.Type, err)
		}

		p.logger.DebugContext(ctx, "publishing event",
			slog.String("event_type", env.Type),
			slog.String("topic", p.topic),
			slog.Int("payload_size", len(payload)),
		)

		messages = append(messages, pkgkafka.Message{
			Key:   []byte(env.AggregateID.String()),
			Value: payload,
			Headers: map[string]string{
				"event_type": env.Type,
				"source":     p.source,
			},
		})
	}

	if len(messages) == 0 {
		return nil
	}

	if err := p.producer.Publish(ctx, p.topic, messages...); err != nil {
		return fmt.Errorf("failed to publish events to topic %s: %w", p.topic, err)
	}

	return nil
}
