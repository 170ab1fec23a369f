package payments

import (
	"context"
	"errors"
	"time"
)

// PaymentStatus enumerates the normalised payment states reported by the PSP.
type PaymentStatus string

const (
	// PaymentStatusPending indicates the session is awaiting customer action.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid indicates the PSP reports the payment as captured.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusExpired indicates the session expired before payment completed.
	PaymentStatusExpired PaymentStatus = "expired"
)

// ErrSessionNotFound is returned when the PSP does not know the session.
var ErrSessionNotFound = errors.New("payments: checkout session not found")

// CheckoutLineItem describes a single line item to include in a checkout session.
type CheckoutLineItem struct {
	Name        string
	Description string
	SKU         string
	Quantity    int64
	UnitAmount  int64
	Currency    string
}

// CheckoutSessionRequest captures the payload required to create a checkout session.
type CheckoutSessionRequest struct {
	Amount         int64
	Currency       string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
	ExpiresAt      time.Time
	Items          []CheckoutLineItem
}

// CheckoutSession represents the PSP session returned to the client.
type CheckoutSession struct {
	ID          string
	RedirectURL string
	IntentID    string
	Status      PaymentStatus
	AmountTotal int64
	Currency    string
	ExpiresAt   time.Time
}

// SessionLookupRequest identifies a session for reconciliation.
type SessionLookupRequest struct {
	SessionID string
}

// Provider defines the contract for PSP checkout adapters.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	LookupSession(ctx context.Context, req SessionLookupRequest) (CheckoutSession, error)
}
