package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/velvra/api/internal/platform/auth"
	"github.com/velvra/api/internal/platform/httpx"
	"github.com/velvra/api/internal/services"
)

// WishlistHandlers exposes authenticated wishlist endpoints for the current user.
type WishlistHandlers struct {
	wishlists services.WishlistService
}

// NewWishlistHandlers constructs handlers backed by the wishlist service.
func NewWishlistHandlers(wishlists services.WishlistService) *WishlistHandlers {
	return &WishlistHandlers{wishlists: wishlists}
}

// Routes wires the /wishlist endpoints onto the provided router.
func (h *WishlistHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Put("/{productId}", h.add)
	r.Delete("/{productId}", h.remove)
}

func (h *WishlistHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	list, err := h.wishlists.ListWishlist(ctx, uid)
	if err != nil {
		h.writeWishlistError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWishlistPayload(list))
}

func (h *WishlistHandlers) add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	list, err := h.wishlists.AddToWishlist(ctx, uid, productID)
	if err != nil {
		h.writeWishlistError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWishlistPayload(list))
}

func (h *WishlistHandlers) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	list, err := h.wishlists.RemoveFromWishlist(ctx, uid, productID)
	if err != nil {
		h.writeWishlistError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWishlistPayload(list))
}

func (h *WishlistHandlers) requireUser(ctx context.Context, w http.ResponseWriter) (string, bool) {
	if h.wishlists == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_service_unavailable", "wishlist service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return "", false
	}
	return identity.UID, true
}

func (h *WishlistHandlers) writeWishlistError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrWishlistInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrWishlistProductUnknown):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrWishlistUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_service_unavailable", "wishlist service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_error", "failed to update wishlist", http.StatusInternalServerError))
	}
}

type wishlistPayload struct {
	UserID  string                 `json:"userId"`
	Entries []wishlistEntryPayload `json:"entries"`
	Count   int                    `json:"count"`
}

type wishlistEntryPayload struct {
	ProductID string `json:"productId"`
	AddedAt   string `json:"addedAt,omitempty"`
}

func buildWishlistPayload(list services.Wishlist) wishlistPayload {
	entries := make([]wishlistEntryPayload, 0, len(list.Entries))
	for _, entry := range list.Entries {
		entries = append(entries, wishlistEntryPayload{
			ProductID: entry.ProductID,
			AddedAt:   formatTime(entry.AddedAt),
		})
	}
	return wishlistPayload{
		UserID:  strings.TrimSpace(list.UserID),
		Entries: entries,
		Count:   len(entries),
	}
}
