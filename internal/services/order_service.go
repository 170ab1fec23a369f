package services

import (
	"context"
	"errors"
	"strings"

	domain "github.com/velvra/api/internal/domain"
	"github.com/velvra/api/internal/repositories"
)

var errOrderRepositoryRequired = errors.New("order service: repository is required")

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// ErrOrderInvalidInput indicates the caller supplied invalid input.
var ErrOrderInvalidInput = errors.New("order service: invalid input")

// ErrOrderUnavailable indicates the order backend cannot serve the request.
var ErrOrderUnavailable = errors.New("order service: unavailable")

// ErrOrderNotFound indicates the order does not exist or belongs to another user.
var ErrOrderNotFound = errors.New("order service: not found")

// OrderServiceDeps wires order persistence for history reads.
type OrderServiceDeps struct {
	Repository repositories.OrderRepository
	Logger     func(context.Context, string, map[string]any)
}

type orderService struct {
	repo   repositories.OrderRepository
	logger func(context.Context, string, map[string]any)
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Repository == nil {
		return nil, errOrderRepositoryRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{repo: deps.Repository, logger: logger}, nil
}

// ListOrders returns the user's order history, newest first.
func (s *orderService) ListOrders(ctx context.Context, cmd OrderListCommand) ([]Order, error) {
	if s == nil || s.repo == nil {
		return nil, ErrOrderUnavailable
	}

	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return nil, ErrOrderInvalidInput
	}
	for _, status := range cmd.Status {
		switch status {
		case domain.OrderStatusPendingPayment, domain.OrderStatusPaid, domain.OrderStatusCanceled:
		default:
			return nil, ErrOrderInvalidInput
		}
	}

	limit := cmd.Limit
	if limit <= 0 {
		limit = defaultOrderPageSize
	}
	if limit > maxOrderPageSize {
		limit = maxOrderPageSize
	}

	orders, err := s.repo.ListByUser(ctx, uid, repositories.OrderListFilter{
		Status: cmd.Status,
		After:  cmd.After,
		Limit:  limit,
	})
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

// GetOrder loads one order, enforcing that it belongs to the requesting user.
// Orders owned by other users read as not found rather than forbidden.
func (s *orderService) GetOrder(ctx context.Context, userID, orderID string) (Order, error) {
	if s == nil || s.repo == nil {
		return Order{}, ErrOrderUnavailable
	}

	uid := strings.TrimSpace(userID)
	id := strings.TrimSpace(orderID)
	if uid == "" || id == "" {
		return Order{}, ErrOrderInvalidInput
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if order.UserID != uid {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrOrderNotFound
		}
		return ErrOrderUnavailable
	}
	return ErrOrderUnavailable
}

var _ OrderService = (*orderService)(nil)
