package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
)

// Event names published to the storefront events topic.
const (
	EventCartEntryAdded        = "cart.entry_added"
	EventOrderPlaced           = "order.placed"
	EventOrderPaymentConfirmed = "order.payment_confirmed"
	EventOrderStatusChanged    = "order.status_changed"
)

// Message is the envelope serialised onto the events topic.
type Message struct {
	Event      string         `json:"event"`
	UserID     string         `json:"userId,omitempty"`
	OrderID    string         `json:"orderId,omitempty"`
	ProductID  string         `json:"productId,omitempty"`
	EntryID    string         `json:"entryId,omitempty"`
	Amount     int64          `json:"amount,omitempty"`
	Currency   string         `json:"currency,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Publisher delivers storefront domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, message Message) (string, error)
}

// PubSubPublisher publishes domain events to a Pub/Sub topic.
type PubSubPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubPublisher constructs a Pub/Sub backed event publisher.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub event publisher: topic is required")
	}
	return &PubSubPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// Publish enqueues the event on the configured topic and returns the server message ID.
func (p *PubSubPublisher) Publish(ctx context.Context, message Message) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub event publisher: not initialised")
	}
	if strings.TrimSpace(message.Event) == "" {
		return "", errors.New("pubsub event publisher: event name is required")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "event", message.Event)
	setAttr(attrs, "userId", message.UserID)
	setAttr(attrs, "orderId", message.OrderID)
	setAttr(attrs, "productId", message.ProductID)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish event %s: %w", message.Event, err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
