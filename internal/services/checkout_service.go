package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/velvra/api/internal/domain"
	"github.com/velvra/api/internal/payments"
	"github.com/velvra/api/internal/platform/events"
	"github.com/velvra/api/internal/repositories"
)

var (
	errCheckoutCartsRequired    = errors.New("checkout service: cart service is required")
	errCheckoutOrdersRequired   = errors.New("checkout service: order repository is required")
	errCheckoutProviderRequired = errors.New("checkout service: payment provider is required")
	errCheckoutClockRequired    = errors.New("checkout service: clock is required")
)

const defaultCheckoutSessionTTL = 30 * time.Minute

// ErrCheckoutInvalidInput indicates the caller supplied invalid input.
var ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")

// ErrCheckoutUnavailable indicates the checkout flow cannot proceed due to backend issues.
var ErrCheckoutUnavailable = errors.New("checkout service: unavailable")

// ErrCheckoutEmptyCart indicates the user attempted checkout with no cart lines.
var ErrCheckoutEmptyCart = errors.New("checkout service: cart is empty")

// ErrCheckoutSessionNotFound indicates the gateway session or its order is unknown.
var ErrCheckoutSessionNotFound = errors.New("checkout service: session not found")

// CheckoutServiceDeps wires the cart read side, order persistence, and the
// payment gateway for checkout flows.
type CheckoutServiceDeps struct {
	Carts       CartService
	Orders      repositories.OrderRepository
	Provider    payments.Provider
	Events      events.Publisher
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string

	ProviderName string
	SuccessURL   string
	CancelURL    string
	SessionTTL   time.Duration
}

type checkoutService struct {
	carts    CartService
	orders   repositories.OrderRepository
	provider payments.Provider
	events   events.Publisher
	newID    func() string
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)

	providerName string
	successURL   string
	cancelURL    string
	sessionTTL   time.Duration
}

// NewCheckoutService constructs a CheckoutService enforcing dependency validation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errCheckoutCartsRequired
	}
	if deps.Orders == nil {
		return nil, errCheckoutOrdersRequired
	}
	if deps.Provider == nil {
		return nil, errCheckoutProviderRequired
	}
	if deps.Clock == nil {
		return nil, errCheckoutClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	providerName := strings.TrimSpace(deps.ProviderName)
	if providerName == "" {
		providerName = "stripe"
	}

	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = defaultCheckoutSessionTTL
	}

	return &checkoutService{
		carts:        deps.Carts,
		orders:       deps.Orders,
		provider:     deps.Provider,
		events:       deps.Events,
		newID:        idGen,
		now:          func() time.Time { return deps.Clock().UTC() },
		logger:       logger,
		providerName: providerName,
		successURL:   strings.TrimSpace(deps.SuccessURL),
		cancelURL:    strings.TrimSpace(deps.CancelURL),
		sessionTTL:   ttl,
	}, nil
}

// CreateCheckoutSession snapshots the user's cart into a pending order and
// opens a gateway session for its total. The cart stays intact until the
// payment is confirmed.
func (s *checkoutService) CreateCheckoutSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSession, error) {
	if s == nil || s.provider == nil {
		return CheckoutSession{}, ErrCheckoutUnavailable
	}

	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return CheckoutSession{}, ErrCheckoutInvalidInput
	}

	cart, err := s.carts.GetCart(ctx, uid)
	if err != nil {
		return CheckoutSession{}, ErrCheckoutUnavailable
	}
	if cart.TotalItems() == 0 || cart.Totals == nil || cart.Totals.Total <= 0 {
		return CheckoutSession{}, ErrCheckoutEmptyCart
	}

	now := s.now()
	orderID := s.newID()
	expiresAt := now.Add(s.sessionTTL)

	successURL := firstNonEmpty(strings.TrimSpace(cmd.SuccessURL), s.successURL)
	cancelURL := firstNonEmpty(strings.TrimSpace(cmd.CancelURL), s.cancelURL)

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		Amount:        cart.Totals.Total,
		Currency:      cart.Currency,
		CustomerEmail: strings.TrimSpace(cmd.CustomerEmail),
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		Metadata: map[string]string{
			"order_id": orderID,
			"user_id":  uid,
		},
		IdempotencyKey: checkoutIdempotencyKey(uid, orderID),
		ExpiresAt:      expiresAt,
		Items:          checkoutLineItems(cart),
	})
	if err != nil {
		s.logger(ctx, "checkout.session_failed", map[string]any{"userID": uid, "error": err.Error()})
		return CheckoutSession{}, ErrCheckoutUnavailable
	}

	order := domain.Order{
		ID:            orderID,
		OrderNumber:   orderNumberFromID(orderID),
		UserID:        uid,
		Status:        domain.OrderStatusPendingPayment,
		Currency:      cart.Currency,
		Lines:         orderLinesFromCart(cart),
		Totals:        *cart.Totals,
		SessionID:     session.ID,
		CustomerEmail: strings.TrimSpace(cmd.CustomerEmail),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		s.logger(ctx, "checkout.order_insert_failed", map[string]any{
			"userID":  uid,
			"orderID": orderID,
			"error":   err.Error(),
		})
		return CheckoutSession{}, ErrCheckoutUnavailable
	}

	s.logger(ctx, "checkout.session_created", map[string]any{
		"userID":     uid,
		"orderID":    orderID,
		"sessionID":  session.ID,
		"totalMajor": domain.MajorUnits(order.Totals.Total),
	})

	result := domain.CheckoutSession{
		SessionID:   session.ID,
		Provider:    s.providerName,
		RedirectURL: session.RedirectURL,
		ExpiresAt:   expiresAt,
	}
	if !session.ExpiresAt.IsZero() {
		result.ExpiresAt = session.ExpiresAt
	}
	return result, nil
}

// ConfirmCheckout reconciles the gateway session with the pending order. Paid
// sessions mark the order paid and clear the cart; expired sessions cancel
// the order. Confirming an already-settled order is idempotent.
func (s *checkoutService) ConfirmCheckout(ctx context.Context, cmd ConfirmCheckoutCommand) (Order, error) {
	if s == nil || s.provider == nil {
		return Order{}, ErrCheckoutUnavailable
	}

	uid := strings.TrimSpace(cmd.UserID)
	sessionID := strings.TrimSpace(cmd.SessionID)
	if uid == "" || sessionID == "" {
		return Order{}, ErrCheckoutInvalidInput
	}

	order, err := s.orders.FindByCheckoutSession(ctx, sessionID)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrCheckoutSessionNotFound
		}
		return Order{}, ErrCheckoutUnavailable
	}
	if order.UserID != uid {
		return Order{}, ErrCheckoutSessionNotFound
	}
	if order.Status != domain.OrderStatusPendingPayment {
		return order, nil
	}

	session, err := s.provider.LookupSession(ctx, payments.SessionLookupRequest{SessionID: sessionID})
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			return Order{}, ErrCheckoutSessionNotFound
		}
		return Order{}, ErrCheckoutUnavailable
	}

	now := s.now()
	switch session.Status {
	case payments.PaymentStatusPaid:
		order.Status = domain.OrderStatusPaid
		order.PaidAt = &now
		order.UpdatedAt = now
		if err := s.orders.Update(ctx, order); err != nil {
			return Order{}, ErrCheckoutUnavailable
		}
		s.publishOrderEvent(ctx, order)
		if err := s.carts.ClearCart(ctx, uid); err != nil {
			// The order is settled; a stale cart is cleaned up on the next mutation.
			s.logger(ctx, "checkout.cart_clear_failed", map[string]any{"userID": uid, "error": err.Error()})
		}
	case payments.PaymentStatusExpired:
		order.Status = domain.OrderStatusCanceled
		order.UpdatedAt = now
		if err := s.orders.Update(ctx, order); err != nil {
			return Order{}, ErrCheckoutUnavailable
		}
		s.publishOrderEvent(ctx, order)
	default:
		// Still pending at the gateway; the client retries confirmation later.
	}
	return order, nil
}

func (s *checkoutService) publishOrderEvent(ctx context.Context, order domain.Order) {
	if s.events == nil {
		return
	}
	_, err := s.events.PublishOrderEvent(ctx, events.OrderEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     string(order.Status),
		TotalMinor: order.Totals.Total,
		Currency:   order.Currency,
		OccurredAt: s.now(),
	})
	if err != nil {
		s.logger(ctx, "checkout.order_event_failed", map[string]any{"orderID": order.ID, "error": err.Error()})
	}
}

func checkoutLineItems(cart domain.Cart) []payments.CheckoutLineItem {
	items := make([]payments.CheckoutLineItem, 0, len(cart.Lines)+1)
	for _, line := range cart.Lines {
		items = append(items, payments.CheckoutLineItem{
			Name:        line.Name,
			Description: lineVariantLabel(line),
			SKU:         line.ProductID,
			Quantity:    int64(line.Quantity),
			UnitAmount:  line.UnitPrice,
			Currency:    cart.Currency,
		})
	}
	if cart.Totals != nil && cart.Totals.Shipping > 0 {
		items = append(items, payments.CheckoutLineItem{
			Name:       "Shipping",
			Quantity:   1,
			UnitAmount: cart.Totals.Shipping,
			Currency:   cart.Currency,
		})
	}
	return items
}

func lineVariantLabel(line domain.CartLine) string {
	switch {
	case line.Size != "" && line.Color != "":
		return fmt.Sprintf("%s / %s", line.Size, line.Color)
	case line.Size != "":
		return line.Size
	case line.Color != "":
		return line.Color
	}
	return ""
}

func orderLinesFromCart(cart domain.Cart) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, domain.OrderLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Size:      line.Size,
			Color:     line.Color,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Total:     line.UnitPrice * int64(line.Quantity),
		})
	}
	return lines
}

func orderNumberFromID(orderID string) string {
	suffix := orderID
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	return "VLV-" + strings.ToUpper(suffix)
}

func checkoutIdempotencyKey(userID, orderID string) string {
	sum := sha256.Sum256([]byte(userID + ":" + orderID))
	return hex.EncodeToString(sum[:])
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

var _ CheckoutService = (*checkoutService)(nil)
