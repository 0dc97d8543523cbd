package queue

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

// Publish keys messages by aggregate id so events of one booking or wallet
// stay ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, m Message) error {
	msg := kafka.Message{
		Key:   []byte(m.Key),
		Value: m.Body,
		Time:  m.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(m.Type)},
			{Key: "outbox-id", Value: []byte(strconv.FormatUint(uint64(m.ID), 10))},
		},
	}
	otel.GetTextMapPropagator().Inject(ctx, kafkaHeaderCarrier{&msg.Headers})
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// kafkaHeaderCarrier adapts kafka headers to the otel TextMapCarrier.
type kafkaHeaderCarrier struct {
	headers *[]kafka.Header
}

func (c kafkaHeaderCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c kafkaHeaderCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c kafkaHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}
