package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/velvra/api/internal/domain"
	"github.com/velvra/api/internal/repositories"
)

func TestOrderServiceListOrdersAppliesDefaults(t *testing.T) {
	var captured repositories.OrderListFilter
	repo := &stubOrderRepository{
		listFunc: func(ctx context.Context, userID string, filter repositories.OrderListFilter) ([]domain.Order, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user id %q", userID)
			}
			captured = filter
			return nil, nil
		},
	}
	service, err := NewOrderService(OrderServiceDeps{Repository: repo})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	orders, err := service.ListOrders(context.Background(), OrderListCommand{UserID: " user-1 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orders == nil {
		t.Fatalf("expected empty slice, got nil")
	}
	if captured.Limit != defaultOrderPageSize {
		t.Fatalf("expected default page size %d, got %d", defaultOrderPageSize, captured.Limit)
	}
}

func TestOrderServiceListOrdersRejectsUnknownStatus(t *testing.T) {
	service, err := NewOrderService(OrderServiceDeps{Repository: &stubOrderRepository{}})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	_, err = service.ListOrders(context.Background(), OrderListCommand{
		UserID: "user-1",
		Status: []domain.OrderStatus{"shipped"},
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestOrderServiceListOrdersClampsLimit(t *testing.T) {
	var captured repositories.OrderListFilter
	repo := &stubOrderRepository{
		listFunc: func(ctx context.Context, userID string, filter repositories.OrderListFilter) ([]domain.Order, error) {
			captured = filter
			return []domain.Order{}, nil
		},
	}
	service, err := NewOrderService(OrderServiceDeps{Repository: repo})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	if _, err := service.ListOrders(context.Background(), OrderListCommand{UserID: "user-1", Limit: 500}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Limit != maxOrderPageSize {
		t.Fatalf("expected clamp at %d, got %d", maxOrderPageSize, captured.Limit)
	}
}

func TestOrderServiceGetOrderEnforcesOwnership(t *testing.T) {
	repo := &stubOrderRepository{
		findByIDFunc: func(ctx context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: "owner"}, nil
		},
	}
	service, err := NewOrderService(OrderServiceDeps{Repository: repo})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	order, err := service.GetOrder(context.Background(), "owner", "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "order-1" {
		t.Fatalf("expected order-1, got %q", order.ID)
	}

	if _, err := service.GetOrder(context.Background(), "intruder", "order-1"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected foreign order to read as not found, got %v", err)
	}
}

func TestOrderServiceGetOrderMissing(t *testing.T) {
	repo := &stubOrderRepository{
		findByIDFunc: func(ctx context.Context, orderID string) (domain.Order, error) {
			return domain.Order{}, &repositoryErrorStub{notFound: true}
		},
	}
	service, err := NewOrderService(OrderServiceDeps{Repository: repo})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	if _, err := service.GetOrder(context.Background(), "user-1", "ghost"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
