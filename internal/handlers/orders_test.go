package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/platform/auth"
	"github.com/shopnet/api/internal/repositories"
	"github.com/shopnet/api/internal/services"
)

type stubOrderService struct {
	createFn   func(context.Context, services.CreateOrderCommand) (services.Order, error)
	listFn     func(context.Context, int64) ([]services.OrderSummary, error)
	getFn      func(context.Context, int64, int64) (services.Order, error)
	cancelFn   func(context.Context, int64, int64) (services.Order, error)
	trackingFn func(context.Context, int64, int64) ([]services.OrderTracking, error)
}

func (s *stubOrderService) CreateFromCart(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetMyOrders(ctx context.Context, userID int64) ([]services.OrderSummary, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (s *stubOrderService) GetMyOrderByID(ctx context.Context, userID, orderID int64) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID, orderID)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) Cancel(ctx context.Context, userID, orderID int64) (services.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, userID, orderID)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetTracking(ctx context.Context, userID, orderID int64) ([]services.OrderTracking, error) {
	if s.trackingFn != nil {
		return s.trackingFn(ctx, userID, orderID)
	}
	return nil, errors.New("not implemented")
}

func newOrderRouter(service services.OrderService) http.Handler {
	router := chi.NewRouter()
	router.Route("/orders", NewOrderHandlers(nil, service).Routes)
	return router
}

func asUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: userID, Role: auth.RoleUser}))
}

func TestOrderHandlersCreateOrderSuccess(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	var captured services.CreateOrderCommand
	service := &stubOrderService{
		createFn: func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			captured = cmd
			method := domain.PaymentMethodCOD
			return services.Order{
				ID:            42,
				UserID:        cmd.UserID,
				OrderNumber:   "ORD-20260315093000-1234",
				TotalAmount:   decimal.RequireFromString("160.00"),
				Status:        domain.OrderStatusPending,
				PaymentMethod: &method,
				PaymentStatus: domain.PaymentStatusPending,
				Items: []domain.OrderItem{
					{ID: 1, ProductID: 7, Quantity: 2, UnitPrice: decimal.RequireFromString("80.00"), Subtotal: decimal.RequireFromString("160.00")},
				},
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		},
	}

	body := bytes.NewBufferString(`{"shipping_address":"12 Rue de la Paix","payment_method":"cod"}`)
	req := asUser(httptest.NewRequest(http.MethodPost, "/orders/", body), 9)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.UserID != 9 {
		t.Fatalf("expected user 9 on command, got %d", captured.UserID)
	}
	if captured.PaymentMethod == nil || *captured.PaymentMethod != domain.PaymentMethodCOD {
		t.Fatalf("expected payment method normalised to COD, got %v", captured.PaymentMethod)
	}
	if captured.ShippingAddress == nil || *captured.ShippingAddress != "12 Rue de la Paix" {
		t.Fatalf("expected shipping address on command, got %v", captured.ShippingAddress)
	}

	var resp struct {
		OrderNumber string `json:"order_number"`
		TotalAmount string `json:"total_amount"`
		Status      string `json:"status"`
		Items       []struct {
			UnitPrice string `json:"unit_price"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.OrderNumber != "ORD-20260315093000-1234" {
		t.Fatalf("unexpected order number %s", resp.OrderNumber)
	}
	if resp.TotalAmount != "160.00" {
		t.Fatalf("expected total 160.00, got %s", resp.TotalAmount)
	}
	if resp.Status != "PENDING" {
		t.Fatalf("expected status PENDING, got %s", resp.Status)
	}
	if len(resp.Items) != 1 || resp.Items[0].UnitPrice != "80.00" {
		t.Fatalf("unexpected items payload: %+v", resp.Items)
	}
}

func TestOrderHandlersCreateOrderInsufficientStockDetails(t *testing.T) {
	service := &stubOrderService{
		createFn: func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			return services.Order{}, fmt.Errorf("%w: %w", services.ErrInsufficientStock, &repositories.InsufficientStockError{
				ProductID: 7,
				Requested: 3,
				Remaining: 1,
			})
		},
	}

	req := asUser(httptest.NewRequest(http.MethodPost, "/orders/", bytes.NewBufferString(`{}`)), 9)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if body["error"] != "insufficient_stock" {
		t.Fatalf("expected insufficient_stock code, got %v", body["error"])
	}
	if body["product_id"] != float64(7) || body["requested"] != float64(3) || body["remaining"] != float64(1) {
		t.Fatalf("expected stock details in payload, got %v", body)
	}
}

func TestOrderHandlersCreateOrderErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"empty cart", services.ErrCartEmpty, http.StatusBadRequest, "cart_empty"},
		{"insufficient stock", services.ErrInsufficientStock, http.StatusBadRequest, "insufficient_stock"},
		{"inactive product", services.ErrProductUnavailable, http.StatusBadRequest, "product_unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := &stubOrderService{
				createFn: func(context.Context, services.CreateOrderCommand) (services.Order, error) {
					return services.Order{}, tc.err
				},
			}

			req := asUser(httptest.NewRequest(http.MethodPost, "/orders/", bytes.NewBufferString(`{}`)), 9)
			rr := httptest.NewRecorder()
			newOrderRouter(service).ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			var resp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("parse response: %v", err)
			}
			if resp.Error != tc.wantCode {
				t.Fatalf("expected error code %s, got %s", tc.wantCode, resp.Error)
			}
		})
	}
}

func TestOrderHandlersCreateOrderRejectsMalformedBody(t *testing.T) {
	service := &stubOrderService{}
	req := asUser(httptest.NewRequest(http.MethodPost, "/orders/", bytes.NewBufferString(`{"shipping_address":`)), 9)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersRequireIdentity(t *testing.T) {
	service := &stubOrderService{}
	req := httptest.NewRequest(http.MethodGet, "/orders/", nil)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without identity, got %d", rr.Code)
	}
}

func TestOrderHandlersListOrders(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	service := &stubOrderService{
		listFn: func(ctx context.Context, userID int64) ([]services.OrderSummary, error) {
			if userID != 9 {
				t.Fatalf("expected user 9, got %d", userID)
			}
			return []services.OrderSummary{
				{ID: 1, OrderNumber: "ORD-1", TotalAmount: decimal.RequireFromString("10.50"), Status: domain.OrderStatusDelivered, ItemCount: 3, CreatedAt: now},
			}, nil
		},
	}

	req := asUser(httptest.NewRequest(http.MethodGet, "/orders/", nil), 9)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp struct {
		Orders []struct {
			OrderNumber string `json:"order_number"`
			TotalAmount string `json:"total_amount"`
			ItemCount   int    `json:"item_count"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(resp.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(resp.Orders))
	}
	if resp.Orders[0].TotalAmount != "10.50" || resp.Orders[0].ItemCount != 3 {
		t.Fatalf("unexpected summary payload: %+v", resp.Orders[0])
	}
}

func TestOrderHandlersGetOrderMapsOwnershipErrors(t *testing.T) {
	service := &stubOrderService{
		getFn: func(ctx context.Context, userID, orderID int64) (services.Order, error) {
			return services.Order{}, services.ErrOrderForbidden
		},
	}

	req := asUser(httptest.NewRequest(http.MethodGet, "/orders/5", nil), 9)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderRejectsBadID(t *testing.T) {
	service := &stubOrderService{}
	req := asUser(httptest.NewRequest(http.MethodGet, "/orders/abc", nil), 9)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for non-numeric id, got %d", rr.Code)
	}
}

func TestOrderHandlersCancelOrder(t *testing.T) {
	service := &stubOrderService{
		cancelFn: func(ctx context.Context, userID, orderID int64) (services.Order, error) {
			if userID != 9 || orderID != 5 {
				t.Fatalf("unexpected cancel arguments user=%d order=%d", userID, orderID)
			}
			return services.Order{ID: 5, UserID: 9, Status: domain.OrderStatusCancelled, TotalAmount: decimal.Zero, PaymentStatus: domain.PaymentStatusPending}, nil
		},
	}

	req := asUser(httptest.NewRequest(http.MethodPost, "/orders/5:cancel", nil), 9)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Status != "CANCELLED" {
		t.Fatalf("expected status CANCELLED, got %s", resp.Status)
	}
}

func TestOrderHandlersCancelOrderInvalidState(t *testing.T) {
	service := &stubOrderService{
		cancelFn: func(context.Context, int64, int64) (services.Order, error) {
			return services.Order{}, services.ErrOrderInvalidState
		},
	}

	req := asUser(httptest.NewRequest(http.MethodPost, "/orders/5:cancel", nil), 9)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Error != "invalid_state" {
		t.Fatalf("expected error invalid_state, got %s", resp.Error)
	}
}

func TestOrderHandlersGetTracking(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	location := "Paris hub"
	service := &stubOrderService{
		trackingFn: func(ctx context.Context, userID, orderID int64) ([]services.OrderTracking, error) {
			return []services.OrderTracking{
				{ID: 1, OrderID: orderID, Status: domain.OrderStatusPending, CreatedAt: now},
				{ID: 2, OrderID: orderID, Status: domain.OrderStatusShipped, Location: &location, CreatedAt: now.Add(time.Hour)},
			}, nil
		},
	}

	req := asUser(httptest.NewRequest(http.MethodGet, "/orders/5/tracking", nil), 9)
	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp struct {
		Trackings []struct {
			Status   string  `json:"status"`
			Location *string `json:"location"`
		} `json:"trackings"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(resp.Trackings) != 2 {
		t.Fatalf("expected 2 tracking rows, got %d", len(resp.Trackings))
	}
	if resp.Trackings[1].Status != "SHIPPED" || resp.Trackings[1].Location == nil || *resp.Trackings[1].Location != "Paris hub" {
		t.Fatalf("unexpected tracking payload: %+v", resp.Trackings[1])
	}
}
