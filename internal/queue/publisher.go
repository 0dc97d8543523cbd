// Package queue relays committed outbox events to a message broker.
package queue

import (
	"context"
	"strings"
	"time"

	"basmah/config"
	"basmah/internal/models"

	"github.com/pkg/errors"
)

// Message is the broker-neutral form of an outbox event.
type Message struct {
	ID        uint
	Type      string
	Key       string
	Body      []byte
	CreatedAt time.Time
}

func FromOutbox(e models.OutboxEvent) Message {
	return Message{
		ID:        e.ID,
		Type:      e.EventType,
		Key:       e.AggregateID,
		Body:      e.Payload,
		CreatedAt: e.CreatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, m Message) error
	Close() error
}

// NewPublisher builds the publisher selected by cfg.Kind. It returns nil, nil
// when no broker is configured.
func NewPublisher(cfg config.BrokerConfig) (Publisher, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "none":
		return nil, nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("kafka broker list is empty")
		}
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "rabbitmq":
		return NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitQueue), nil
	}
	return nil, errors.Errorf("unknown broker kind %q", cfg.Kind)
}
