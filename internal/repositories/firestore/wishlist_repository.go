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

const wishlistCollection = "wishlists"

// WishlistRepository keeps one wishlist document per user. The entry set is
// small and bounded, so entries live inline on the document rather than in a
// subcollection.
type WishlistRepository struct {
	base     *pfirestore.BaseRepository[wishlistDocument]
	provider *pfirestore.Provider
}

// NewWishlistRepository constructs a Firestore-backed wishlist repository.
func NewWishlistRepository(provider *pfirestore.Provider) (*WishlistRepository, error) {
	if provider == nil {
		return nil, errors.New("wishlist repository requires firestore provider")
	}
	return &WishlistRepository{
		base:     pfirestore.NewBaseRepository[wishlistDocument](provider, wishlistCollection, nil, nil),
		provider: provider,
	}, nil
}

// List returns the wishlist for the user. An absent document reads as an
// empty wishlist rather than an error.
func (r *WishlistRepository) List(ctx context.Context, userID string) (domain.Wishlist, error) {
	if r == nil || r.base == nil {
		return domain.Wishlist{}, errors.New("wishlist repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Wishlist{}, errors.New("wishlist repository: user id is required")
	}

	doc, err := r.base.Get(ctx, uid)
	if err != nil {
		if isNotFound(err) {
			return domain.Wishlist{UserID: uid, Entries: []domain.WishlistEntry{}}, nil
		}
		return domain.Wishlist{}, err
	}
	return wishlistFromDocument(uid, doc.Data), nil
}

// Put adds the product to the wishlist. The write is idempotent: adding a
// product already present leaves the document untouched and reports false.
func (r *WishlistRepository) Put(ctx context.Context, userID string, productID string, addedAt time.Time) (bool, error) {
	if r == nil || r.provider == nil {
		return false, errors.New("wishlist repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	pid := strings.TrimSpace(productID)
	if uid == "" || pid == "" {
		return false, errors.New("wishlist repository: user id and product id are required")
	}
	if addedAt.IsZero() {
		addedAt = time.Now()
	}

	added := false
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, uid)
		if err != nil {
			return err
		}

		list, err := r.readForUpdate(tx, ref, uid)
		if err != nil {
			return err
		}
		if list.Contains(pid) {
			added = false
			return nil
		}

		list.Entries = append(list.Entries, domain.WishlistEntry{ProductID: pid, AddedAt: addedAt.UTC()})
		list.UpdatedAt = addedAt.UTC()
		added = true
		return tx.Set(ref, documentFromWishlist(list))
	})
	if err != nil {
		return false, pfirestore.WrapError("wishlists.put", err)
	}
	return added, nil
}

// Delete removes the product from the wishlist. Removing an absent entry is a
// no-op.
func (r *WishlistRepository) Delete(ctx context.Context, userID string, productID string) error {
	if r == nil || r.provider == nil {
		return errors.New("wishlist repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	pid := strings.TrimSpace(productID)
	if uid == "" || pid == "" {
		return errors.New("wishlist repository: user id and product id are required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, uid)
		if err != nil {
			return err
		}

		list, err := r.readForUpdate(tx, ref, uid)
		if err != nil {
			return err
		}
		if !list.Contains(pid) {
			return nil
		}

		entries := list.Entries[:0]
		for _, entry := range list.Entries {
			if entry.ProductID != pid {
				entries = append(entries, entry)
			}
		}
		list.Entries = entries
		list.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, documentFromWishlist(list))
	})
	if err != nil {
		return pfirestore.WrapError("wishlists.delete", err)
	}
	return nil
}

func (r *WishlistRepository) readForUpdate(tx *firestore.Transaction, ref *firestore.DocumentRef, uid string) (domain.Wishlist, error) {
	snapshot, err := tx.Get(ref)
	switch status.Code(err) {
	case codes.NotFound:
		return domain.Wishlist{UserID: uid, Entries: []domain.WishlistEntry{}}, nil
	case codes.OK:
	default:
		return domain.Wishlist{}, err
	}

	var doc wishlistDocument
	if err := snapshot.DataTo(&doc); err != nil {
		return domain.Wishlist{}, err
	}
	return wishlistFromDocument(uid, doc), nil
}

func wishlistFromDocument(uid string, doc wishlistDocument) domain.Wishlist {
	entries := make([]domain.WishlistEntry, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		pid := strings.TrimSpace(entry.ProductID)
		if pid == "" {
			continue
		}
		entries = append(entries, domain.WishlistEntry{
			ProductID: pid,
			AddedAt:   entry.AddedAt.UTC(),
		})
	}
	return domain.Wishlist{
		UserID:        uid,
		Entries:       entries,
		SchemaVersion: doc.SchemaVersion,
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}
}

func documentFromWishlist(list domain.Wishlist) wishlistDocument {
	entries := make([]wishlistEntryDocument, 0, len(list.Entries))
	for _, entry := range list.Entries {
		entries = append(entries, wishlistEntryDocument{
			ProductID: entry.ProductID,
			AddedAt:   entry.AddedAt.UTC(),
		})
	}
	return wishlistDocument{
		Entries:       entries,
		SchemaVersion: domain.CartSchemaVersion,
		UpdatedAt:     list.UpdatedAt.UTC(),
	}
}

type wishlistDocument struct {
	Entries       []wishlistEntryDocument `firestore:"entries"`
	SchemaVersion int                     `firestore:"schemaVersion"`
	UpdatedAt     time.Time               `firestore:"updatedAt"`
}

type wishlistEntryDocument struct {
	ProductID string    `firestore:"productId"`
	AddedAt   time.Time `firestore:"addedAt"`
}

var _ repositories.WishlistRepository = (*WishlistRepository)(nil)
