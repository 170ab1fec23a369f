package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestTopics(t *testing.T) (*pubsub.Topic, *pubsub.Topic, *pstest.Server) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	viewTopic, err := client.CreateTopic(ctx, "product-views")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	orderTopic, err := client.CreateTopic(ctx, "order-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	return viewTopic, orderTopic, srv
}

func TestPubSubPublisherPublishesProductView(t *testing.T) {
	viewTopic, orderTopic, srv := newTestTopics(t)

	publisher, err := NewPubSubPublisher(viewTopic, orderTopic)
	if err != nil {
		t.Fatalf("NewPubSubPublisher: %v", err)
	}

	event := ProductViewEvent{
		ProductID: "prod-1",
		UserID:    "uid-9",
		ViewedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if _, err := publisher.PublishProductView(context.Background(), event); err != nil {
		t.Fatalf("PublishProductView: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload ProductViewEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ProductID != event.ProductID || payload.UserID != event.UserID {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["productId"]; attr != "prod-1" {
		t.Fatalf("expected productId attribute, got %q", attr)
	}
}

func TestPubSubPublisherPublishesOrderEvent(t *testing.T) {
	viewTopic, orderTopic, srv := newTestTopics(t)

	publisher, err := NewPubSubPublisher(viewTopic, orderTopic)
	if err != nil {
		t.Fatalf("NewPubSubPublisher: %v", err)
	}

	event := OrderEvent{
		OrderID:    "ord-1",
		UserID:     "uid-9",
		Status:     "paid",
		TotalMinor: 225000,
		Currency:   "NGN",
		OccurredAt: time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC),
	}
	if _, err := publisher.PublishOrderEvent(context.Background(), event); err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if attr := messages[0].Attributes["status"]; attr != "paid" {
		t.Fatalf("expected status attribute, got %q", attr)
	}
}

func TestNewPubSubPublisherRequiresTopics(t *testing.T) {
	if _, err := NewPubSubPublisher(nil, nil); err == nil {
		t.Fatal("expected error when topics are missing")
	}
}
