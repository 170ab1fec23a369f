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

// ProductViewEvent is emitted when a shopper opens a product detail page.
type ProductViewEvent struct {
	ProductID string    `json:"productId"`
	UserID    string    `json:"userId,omitempty"`
	ViewedAt  time.Time `json:"viewedAt"`
}

// OrderEvent is emitted when an order transitions state after checkout.
type OrderEvent struct {
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	Status     string    `json:"status"`
	TotalMinor int64     `json:"totalMinor"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher fans domain events out to interested consumers.
type Publisher interface {
	PublishProductView(ctx context.Context, event ProductViewEvent) (string, error)
	PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error)
}

// PubSubPublisher publishes storefront events to Pub/Sub topics.
type PubSubPublisher struct {
	viewTopic  *pubsub.Topic
	orderTopic *pubsub.Topic
	marshal    func(any) ([]byte, error)
}

var _ Publisher = (*PubSubPublisher)(nil)

// NewPubSubPublisher constructs a Pub/Sub backed event publisher.
func NewPubSubPublisher(viewTopic, orderTopic *pubsub.Topic) (*PubSubPublisher, error) {
	if viewTopic == nil {
		return nil, errors.New("pubsub publisher: product view topic is required")
	}
	if orderTopic == nil {
		return nil, errors.New("pubsub publisher: order events topic is required")
	}
	return &PubSubPublisher{
		viewTopic:  viewTopic,
		orderTopic: orderTopic,
		marshal:    json.Marshal,
	}, nil
}

// PublishProductView enqueues a product view message on the configured topic.
func (p *PubSubPublisher) PublishProductView(ctx context.Context, event ProductViewEvent) (string, error) {
	if p == nil || p.viewTopic == nil {
		return "", errors.New("pubsub publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal product view event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "productId", event.ProductID)
	setAttr(attrs, "userId", event.UserID)

	result := p.viewTopic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish product view event: %w", err)
	}
	return id, nil
}

// PublishOrderEvent enqueues an order lifecycle message on the configured topic.
func (p *PubSubPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error) {
	if p == nil || p.orderTopic == nil {
		return "", errors.New("pubsub publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal order event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "userId", event.UserID)
	setAttr(attrs, "status", event.Status)

	result := p.orderTopic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish order event: %w", err)
	}
	return id, nil
}

// NoopPublisher drops every event. Used when publishing is disabled by config.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) PublishProductView(context.Context, ProductViewEvent) (string, error) {
	return "", nil
}

func (NoopPublisher) PublishOrderEvent(context.Context, OrderEvent) (string, error) {
	return "", nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
