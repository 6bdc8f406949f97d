package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/suyogshakya/khajaghar-backend/api/middleware"
	cartsvc "github.com/suyogshakya/khajaghar-backend/internal/cart"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
)

type stubCartService struct {
	view *cartsvc.View
	err  error

	addedItem uuid.UUID
	addedQty  int
}

func (s *stubCartService) Get(context.Context, uuid.UUID) (*cartsvc.View, error) {
	return s.view, s.err
}

func (s *stubCartService) AddItem(_ context.Context, _ uuid.UUID, foodItemID uuid.UUID, quantity int) (*cartsvc.View, error) {
	s.addedItem = foodItemID
	s.addedQty = quantity
	return s.view, s.err
}

func (s *stubCartService) SetQuantity(context.Context, uuid.UUID, uuid.UUID, int) (*cartsvc.View, error) {
	return s.view, s.err
}

func (s *stubCartService) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (*cartsvc.View, error) {
	return s.view, s.err
}

func (s *stubCartService) Clear(context.Context, uuid.UUID) error { return s.err }

func authenticatedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	return req.WithContext(ctx)
}

func TestCartGetSuccess(t *testing.T) {
	view := &cartsvc.View{
		CartID:   uuid.New(),
		Subtotal: decimal.RequireFromString("19.98"),
		Lines: []cartsvc.LineView{{
			FoodItemID:  uuid.New(),
			Name:        "Chicken Momo",
			UnitPrice:   decimal.RequireFromString("9.99"),
			Quantity:    2,
			LineTotal:   decimal.RequireFromString("19.98"),
			IsAvailable: true,
		}},
	}
	handler := CartGet(&stubCartService{view: view}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authenticatedRequest(http.MethodGet, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data cartsvc.View `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.CartID != view.CartID {
		t.Fatalf("unexpected cart id: %s", envelope.Data.CartID)
	}
	if len(envelope.Data.Lines) != 1 || envelope.Data.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected lines: %+v", envelope.Data.Lines)
	}
}

func TestCartGetMissingIdentity(t *testing.T) {
	handler := CartGet(&stubCartService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddItemDecodesPayload(t *testing.T) {
	foodItemID := uuid.New()
	svc := &stubCartService{view: &cartsvc.View{CartID: uuid.New()}}
	handler := CartAddItem(svc, nil)

	body := `{"food_item_id":"` + foodItemID.String() + `","quantity":3}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authenticatedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.addedItem != foodItemID || svc.addedQty != 3 {
		t.Fatalf("expected add of %s x3, got %s x%d", foodItemID, svc.addedItem, svc.addedQty)
	}
}

func TestCartAddItemRejectsInvalidQuantity(t *testing.T) {
	handler := CartAddItem(&stubCartService{}, nil)

	body := `{"food_item_id":"` + uuid.NewString() + `","quantity":0}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authenticatedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartAddItemUnavailableItem(t *testing.T) {
	handler := CartAddItem(&stubCartService{
		err: pkgerrors.New(pkgerrors.CodeStateConflict, "food item is unavailable"),
	}, nil)

	body := `{"food_item_id":"` + uuid.NewString() + `","quantity":1}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authenticatedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestCartClear(t *testing.T) {
	handler := CartClear(&stubCartService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authenticatedRequest(http.MethodDelete, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["status"] != "cleared" {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
}
