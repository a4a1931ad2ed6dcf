package events

import (
	"time"

	"herbalstore-backend/internal/domain"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event Types
const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderStatusChanged = "order.status_changed"
	EventTypeOrderCancelled     = "order.cancelled"
)

// Event is the wire envelope for order lifecycle notifications.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// Publisher emits order lifecycle events. Publishing happens after the
// database transaction commits; failures are reported but never abort the
// request.
type Publisher interface {
	OrderCreated(order *domain.Order) error
	OrderStatusChanged(orderID, oldStatus, newStatus string, actor *string) error
	OrderCancelled(orderID, reason string) error
	Close() error
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) OrderCreated(*domain.Order) error { return nil }

func (NoopPublisher) OrderStatusChanged(string, string, string, *string) error { return nil }

func (NoopPublisher) OrderCancelled(string, string) error { return nil }

func (NoopPublisher) Close() error { return nil }

// KafkaPublisher publishes events to a single orders topic via a synchronous
// producer, keyed by order ID so consumers see per-order ordering.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zerolog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zerolog.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		log:      log,
	}, nil
}

func (p *KafkaPublisher) publishEvent(key, eventType string, payload interface{}) error {
	event := Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now(),
		Payload:    payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return err
	}

	p.log.Debug().
		Str("event_type", eventType).
		Str("key", key).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("event published")
	return nil
}

func (p *KafkaPublisher) OrderCreated(order *domain.Order) error {
	return p.publishEvent(order.ID, EventTypeOrderCreated, map[string]interface{}{
		"orderId":        order.ID,
		"userId":         order.UserID,
		"totalPrice":     order.TotalPrice,
		"discountAmount": order.DiscountAmount,
		"itemCount":      len(order.Items),
	})
}

func (p *KafkaPublisher) OrderStatusChanged(orderID, oldStatus, newStatus string, actor *string) error {
	return p.publishEvent(orderID, EventTypeOrderStatusChanged, map[string]interface{}{
		"orderId":   orderID,
		"oldStatus": oldStatus,
		"newStatus": newStatus,
		"actor":     actor,
	})
}

func (p *KafkaPublisher) OrderCancelled(orderID, reason string) error {
	return p.publishEvent(orderID, EventTypeOrderCancelled, map[string]interface{}{
		"orderId": orderID,
		"reason":  reason,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
