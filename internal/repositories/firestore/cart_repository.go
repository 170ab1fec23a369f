package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/velvra/api/internal/domain"
	pfirestore "github.com/velvra/api/internal/platform/firestore"
	"github.com/velvra/api/internal/repositories"
)

const cartCollection = "carts"

// CartRepository persists one cart document per user. All mutations run inside
// a Firestore transaction keyed on the cart document, so concurrent writers to
// the same cart serialise instead of overwriting each other.
type CartRepository struct {
	base     *pfirestore.BaseRepository[cartDocument]
	provider *pfirestore.Provider
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		base:     pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil),
		provider: provider,
	}, nil
}

// GetCart loads the cart for the given user ID.
func (r *CartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	doc, err := r.base.Get(ctx, uid)
	if err != nil {
		return domain.Cart{}, err
	}
	return cartFromDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// MutateCart loads the cart inside a transaction, applies mutate, and writes
// the result. Absent documents hydrate as an empty cart, so the first AddItem
// both creates and populates the document atomically. The returned cart
// reflects the committed state.
func (r *CartRepository) MutateCart(ctx context.Context, userID string, mutate func(cart domain.Cart) (domain.Cart, error)) (domain.Cart, error) {
	if r == nil || r.provider == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}
	if mutate == nil {
		return domain.Cart{}, errors.New("cart repository: mutate func is required")
	}

	var committed domain.Cart
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, uid)
		if err != nil {
			return err
		}

		cart := domain.Cart{ID: uid, UserID: uid}
		snapshot, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.NotFound:
			// first write creates the document
		case codes.OK:
			var doc cartDocument
			if err := snapshot.DataTo(&doc); err != nil {
				return err
			}
			cart = cartFromDocument(uid, doc, snapshot.CreateTime, snapshot.UpdateTime)
		default:
			return err
		}

		mutated, err := mutate(cart)
		if err != nil {
			return err
		}
		mutated.ID = uid
		mutated.UserID = uid
		// unversioned documents upgrade on the next write
		mutated.SchemaVersion = domain.CartSchemaVersion
		if mutated.CreatedAt.IsZero() {
			mutated.CreatedAt = time.Now().UTC()
		}
		if mutated.UpdatedAt.IsZero() {
			mutated.UpdatedAt = time.Now().UTC()
		}

		if err := tx.Set(ref, documentFromCart(mutated)); err != nil {
			return err
		}
		committed = mutated
		return nil
	})
	if err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.mutate", err)
	}
	return committed, nil
}

// DeleteCart removes the cart document. Deleting an absent cart is a no-op.
func (r *CartRepository) DeleteCart(ctx context.Context, userID string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return errors.New("cart repository: user id is required")
	}
	return r.base.Delete(ctx, uid)
}

func cartFromDocument(id string, doc cartDocument, createTime, updateTime time.Time) domain.Cart {
	lines := make([]domain.CartLine, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		entry := domain.CartLine{
			ID:        strings.TrimSpace(line.ID),
			ProductID: strings.TrimSpace(line.ProductID),
			Name:      strings.TrimSpace(line.Name),
			Size:      strings.TrimSpace(line.Size),
			Color:     strings.TrimSpace(line.Color),
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			ImageURL:  strings.TrimSpace(line.ImageURL),
			AddedAt:   line.AddedAt.UTC(),
		}
		if line.UpdatedAt != nil && !line.UpdatedAt.IsZero() {
			ts := line.UpdatedAt.UTC()
			entry.UpdatedAt = &ts
		}
		lines = append(lines, entry)
	}

	cart := domain.Cart{
		ID:            id,
		UserID:        id,
		Currency:      strings.ToUpper(strings.TrimSpace(doc.Currency)),
		Lines:         lines,
		SchemaVersion: doc.SchemaVersion,
		CreatedAt:     doc.CreatedAt.UTC(),
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = createTime.UTC()
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = updateTime.UTC()
	}
	return cart
}

func documentFromCart(cart domain.Cart) cartDocument {
	lines := make([]cartLineDocument, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		entry := cartLineDocument{
			ID:        line.ID,
			ProductID: line.ProductID,
			Name:      line.Name,
			Size:      line.Size,
			Color:     line.Color,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			ImageURL:  line.ImageURL,
			AddedAt:   line.AddedAt.UTC(),
		}
		if line.UpdatedAt != nil && !line.UpdatedAt.IsZero() {
			ts := line.UpdatedAt.UTC()
			entry.UpdatedAt = &ts
		}
		lines = append(lines, entry)
	}
	return cartDocument{
		Currency:      strings.ToUpper(strings.TrimSpace(cart.Currency)),
		Lines:         lines,
		LinesCount:    len(lines),
		SchemaVersion: cart.SchemaVersion,
		CreatedAt:     cart.CreatedAt.UTC(),
		UpdatedAt:     cart.UpdatedAt.UTC(),
	}
}

type cartDocument struct {
	Currency      string             `firestore:"currency,omitempty"`
	Lines         []cartLineDocument `firestore:"lines"`
	LinesCount    int                `firestore:"linesCount"`
	SchemaVersion int                `firestore:"schemaVersion"`
	CreatedAt     time.Time          `firestore:"createdAt"`
	UpdatedAt     time.Time          `firestore:"updatedAt"`
}

type cartLineDocument struct {
	ID        string     `firestore:"id"`
	ProductID string     `firestore:"productId"`
	Name      string     `firestore:"name,omitempty"`
	Size      string     `firestore:"size,omitempty"`
	Color     string     `firestore:"color,omitempty"`
	Quantity  int        `firestore:"quantity"`
	UnitPrice int64      `firestore:"unitPrice"`
	ImageURL  string     `firestore:"imageUrl,omitempty"`
	AddedAt   time.Time  `firestore:"addedAt"`
	UpdatedAt *time.Time `firestore:"updatedAt,omitempty"`
}

var _ repositories.CartRepository = (*CartRepository)(nil)
