package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/velvra/api/internal/platform/auth"
	"github.com/velvra/api/internal/services"
)

type stubCartHandlerService struct {
	cart       services.Cart
	err        error
	addCmd     *services.AddCartItemCommand
	setCmd     *services.SetCartQuantityCommand
	adjustCmd  *services.AdjustCartQuantityCommand
	removeCmd  *services.RemoveCartItemCommand
	clearedFor string
}

func (s *stubCartHandlerService) GetCart(_ context.Context, userID string) (services.Cart, error) {
	return s.cart, s.err
}

func (s *stubCartHandlerService) AddItem(_ context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
	s.addCmd = &cmd
	return s.cart, s.err
}

func (s *stubCartHandlerService) SetQuantity(_ context.Context, cmd services.SetCartQuantityCommand) (services.Cart, error) {
	s.setCmd = &cmd
	return s.cart, s.err
}

func (s *stubCartHandlerService) AdjustQuantity(_ context.Context, cmd services.AdjustCartQuantityCommand) (services.Cart, error) {
	s.adjustCmd = &cmd
	return s.cart, s.err
}

func (s *stubCartHandlerService) RemoveItem(_ context.Context, cmd services.RemoveCartItemCommand) (services.Cart, error) {
	s.removeCmd = &cmd
	return s.cart, s.err
}

func (s *stubCartHandlerService) ClearCart(_ context.Context, userID string) error {
	s.clearedFor = userID
	return s.err
}

var _ services.CartService = (*stubCartHandlerService)(nil)

func cartRouter(svc services.CartService) http.Handler {
	r := chi.NewRouter()
	r.Route("/cart", NewCartHandlers(svc).Routes)
	return r
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1", Email: "shopper@example.com"})
	return req.WithContext(ctx)
}

func sampleHandlerCart() services.Cart {
	return services.Cart{
		ID:       "cart-user-1",
		UserID:   "user-1",
		Currency: "NGN",
		Lines: []services.CartLine{
			{
				ID:        "line-1",
				ProductID: "prod-1",
				Name:      "Silk Blazer",
				Size:      "M",
				Color:     "Noir",
				Quantity:  2,
				UnitPrice: 1200000,
				AddedAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
			},
		},
		Totals: &services.CartTotals{
			Subtotal: 2400000,
			Shipping: 250000,
			Total:    2650000,
			Items:    2,
		},
	}
}

func TestCartHandlersGetCart(t *testing.T) {
	svc := &stubCartHandlerService{cart: sampleHandlerCart()}
	router := cartRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/cart", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Cart struct {
			Currency string `json:"currency"`
			Lines    []struct {
				ProductID string `json:"productId"`
				Quantity  int    `json:"quantity"`
				LineTotal int64  `json:"lineTotal"`
			} `json:"lines"`
			Totals struct {
				Subtotal     int64  `json:"subtotal"`
				Shipping     int64  `json:"shipping"`
				Total        int64  `json:"total"`
				DisplayTotal string `json:"displayTotal"`
			} `json:"totals"`
			ItemsCount int `json:"itemsCount"`
		} `json:"cart"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Cart.Currency != "NGN" {
		t.Fatalf("expected currency NGN, got %s", body.Cart.Currency)
	}
	if len(body.Cart.Lines) != 1 || body.Cart.Lines[0].LineTotal != 2400000 {
		t.Fatalf("unexpected lines payload: %+v", body.Cart.Lines)
	}
	if body.Cart.Totals.Total != 2650000 {
		t.Fatalf("expected total 2650000, got %d", body.Cart.Totals.Total)
	}
	if body.Cart.Totals.DisplayTotal != "₦26,500.00" {
		t.Fatalf("expected display total ₦26,500.00, got %s", body.Cart.Totals.DisplayTotal)
	}
	if body.Cart.ItemsCount != 2 {
		t.Fatalf("expected itemsCount 2, got %d", body.Cart.ItemsCount)
	}
}

func TestCartHandlersRequireAuthentication(t *testing.T) {
	svc := &stubCartHandlerService{cart: sampleHandlerCart()}
	router := cartRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestCartHandlersAddItemDefaultsQuantity(t *testing.T) {
	svc := &stubCartHandlerService{cart: sampleHandlerCart()}
	router := cartRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart/items", `{"productId":"prod-1","size":"M"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.addCmd == nil {
		t.Fatal("expected AddItem to be invoked")
	}
	if svc.addCmd.UserID != "user-1" {
		t.Fatalf("expected user-1, got %s", svc.addCmd.UserID)
	}
	if svc.addCmd.Quantity != 1 {
		t.Fatalf("expected quantity to default to 1, got %d", svc.addCmd.Quantity)
	}
}

func TestCartHandlersAddItemRequiresProductID(t *testing.T) {
	svc := &stubCartHandlerService{cart: sampleHandlerCart()}
	router := cartRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart/items", `{"size":"M","quantity":1}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if svc.addCmd != nil {
		t.Fatal("expected AddItem not to be invoked")
	}
}

func TestCartHandlersSetQuantity(t *testing.T) {
	svc := &stubCartHandlerService{cart: sampleHandlerCart()}
	router := cartRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPatch, "/cart/items", `{"productId":"prod-1","size":"M","color":"Noir","quantity":3}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.setCmd == nil || svc.setCmd.Quantity != 3 {
		t.Fatalf("unexpected set command: %+v", svc.setCmd)
	}
}

func TestCartHandlersUnavailableService(t *testing.T) {
	svc := &stubCartHandlerService{err: services.ErrCartUnavailable}
	router := cartRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPatch, "/cart/items", `{"productId":"prod-x","size":"M","quantity":2}`))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Error != "cart_service_unavailable" {
		t.Fatalf("expected cart_service_unavailable, got %s", body.Error)
	}
}

func TestCartHandlersProductUnavailableConflict(t *testing.T) {
	svc := &stubCartHandlerService{err: services.ErrCartProductUnavailable}
	router := cartRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart/items", `{"productId":"prod-x","size":"M"}`))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestCartHandlersRemoveItemViaQuery(t *testing.T) {
	svc := &stubCartHandlerService{cart: sampleHandlerCart()}
	router := cartRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodDelete, "/cart/items?productId=prod-1&size=M&color=Noir", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.removeCmd == nil {
		t.Fatal("expected RemoveItem to be invoked")
	}
	if svc.removeCmd.ProductID != "prod-1" || svc.removeCmd.Size != "M" || svc.removeCmd.Color != "Noir" {
		t.Fatalf("unexpected remove command: %+v", svc.removeCmd)
	}
}

func TestCartHandlersRemoveItemRequiresProductID(t *testing.T) {
	svc := &stubCartHandlerService{cart: sampleHandlerCart()}
	router := cartRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodDelete, "/cart/items", ""))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCartHandlersClearCart(t *testing.T) {
	svc := &stubCartHandlerService{}
	router := cartRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodDelete, "/cart", ""))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if svc.clearedFor != "user-1" {
		t.Fatalf("expected clear for user-1, got %q", svc.clearedFor)
	}
}
