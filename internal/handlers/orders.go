package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/platform/auth"
	"github.com/shopnet/api/internal/platform/httpx"
	"github.com/shopnet/api/internal/services"
)

type createOrderRequest struct {
	ShippingAddress *string `json:"shipping_address"`
	PaymentMethod   *string `json:"payment_method"`
}

// OrderHandlers exposes the customer-facing order endpoints.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}:cancel", h.cancelOrder)
	r.Get("/{orderID}/tracking", h.getTracking)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.CreateOrderCommand{
		UserID:          identity.UserID,
		ShippingAddress: req.ShippingAddress,
	}
	if req.PaymentMethod != nil {
		method := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(*req.PaymentMethod)))
		cmd.PaymentMethod = &method
	}

	order, err := h.orders.CreateFromCart(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	summaries, err := h.orders.GetMyOrders(ctx, identity.UserID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := make([]orderSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		payload = append(payload, toOrderSummaryResponse(summary))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": payload})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orders.GetMyOrderByID(ctx, identity.UserID, orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orders.Cancel(ctx, identity.UserID, orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandlers) getTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}

	trackings, err := h.orders.GetTracking(ctx, identity.UserID, orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := make([]trackingResponse, 0, len(trackings))
	for _, tracking := range trackings {
		payload = append(payload, toTrackingResponse(tracking))
	}
	writeJSON(w, http.StatusOK, map[string]any{"trackings": payload})
}

func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity.UserID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", name+" must be a positive integer", http.StatusBadRequest))
		return 0, false
	}
	return id, true
}
