package domain

import (
	"time"
)

// Product is the storefront's read-only projection of a catalog product.
// Records are normalized once at the repository boundary so consumers can
// assume trimmed, total fields.
type Product struct {
	ID                string
	Name              string
	Description       string
	Category          string
	Subcategory       string
	Price             int64 // minor currency units
	Color             string
	Sizes             []string
	Tags              []string
	Images            []string
	StockQuantity     int
	LowStockThreshold int
	InStock           bool
	Featured          bool
	Views             int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLowStock reports whether the inventory signal is at or below the
// configured threshold. InStock and StockQuantity are independent flags and
// are deliberately not reconciled here.
func (p Product) IsLowStock() bool {
	return p.LowStockThreshold > 0 && p.StockQuantity <= p.LowStockThreshold
}

// CartSchemaVersion is written on every persisted cart document. Documents
// missing the field decode as version 0 and are upgraded on the next write.
const CartSchemaVersion = 1

// Cart aggregates the authoritative server-held cart state for a user.
type Cart struct {
	ID            string
	UserID        string
	Currency      string
	Lines         []CartLine
	Totals        *CartTotals
	SchemaVersion int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TotalItems returns the sum of quantities across lines, not the count of
// distinct lines.
func (c Cart) TotalItems() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// Subtotal sums price*quantity across lines in minor currency units.
func (c Cart) Subtotal() int64 {
	var subtotal int64
	for _, line := range c.Lines {
		if line.Quantity <= 0 || line.UnitPrice < 0 {
			continue
		}
		subtotal += line.UnitPrice * int64(line.Quantity)
	}
	return subtotal
}

// CartLine is one cart entry keyed by the (product, size, color) identity
// triple. UnitPrice is a snapshot taken when the line was first added; later
// product price changes do not retroactively update it.
type CartLine struct {
	ID        string
	ProductID string
	Name      string
	Size      string
	Color     string
	Quantity  int
	UnitPrice int64
	ImageURL  string
	AddedAt   time.Time
	UpdatedAt *time.Time
}

// SameIdentity reports whether two lines share the identity triple.
func (l CartLine) SameIdentity(productID, size, color string) bool {
	return l.ProductID == productID && l.Size == size && l.Color == color
}

// CartTotals summarizes derived monetary totals for a cart.
type CartTotals struct {
	Subtotal int64
	Shipping int64
	Total    int64
	Items    int
}

// WishlistEntry ties a user to a product, identity is the product ID alone.
type WishlistEntry struct {
	ProductID string
	AddedAt   time.Time
}

// Wishlist holds at most one entry per product for a user.
type Wishlist struct {
	UserID        string
	Entries       []WishlistEntry
	SchemaVersion int
	UpdatedAt     time.Time
}

// Contains reports whether the wishlist already holds the product.
func (w Wishlist) Contains(productID string) bool {
	for _, entry := range w.Entries {
		if entry.ProductID == productID {
			return true
		}
	}
	return false
}

// OrderStatus enumerates order states written directly to the data source.
// There is no server-side lifecycle state machine; transitions are plain
// document writes.
type OrderStatus string

const (
	// OrderStatusPendingPayment indicates checkout started but the gateway
	// has not confirmed payment.
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	// OrderStatusPaid indicates the gateway confirmed payment.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCanceled indicates the checkout was abandoned or voided.
	OrderStatusCanceled OrderStatus = "canceled"
)

// Order is the record written after a successful checkout.
type Order struct {
	ID            string
	OrderNumber   string
	UserID        string
	Status        OrderStatus
	Currency      string
	Lines         []OrderLine
	Totals        CartTotals
	SessionID     string
	CustomerEmail string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PaidAt        *time.Time
}

// OrderLine mirrors a cart line at the time of checkout.
type OrderLine struct {
	ProductID string
	Name      string
	Size      string
	Color     string
	Quantity  int
	UnitPrice int64
	Total     int64
}

// CheckoutSession carries gateway session metadata back to the client.
type CheckoutSession struct {
	SessionID   string
	Provider    string
	RedirectURL string
	ExpiresAt   time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
