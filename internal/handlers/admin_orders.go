package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/platform/auth"
	"github.com/shopnet/api/internal/platform/httpx"
	"github.com/shopnet/api/internal/repositories"
	"github.com/shopnet/api/internal/services"
)

const (
	defaultAdminPageSize = 20
	maxAdminPageSize     = 100
)

type updateStatusRequest struct {
	Status      string  `json:"status"`
	Description *string `json:"description"`
}

type updatePaymentRequest struct {
	PaymentMethod *string `json:"payment_method"`
	PaymentStatus string  `json:"payment_status"`
}

type trackingRequest struct {
	Status            *string `json:"status"`
	Location          *string `json:"location"`
	Description       *string `json:"description"`
	Note              *string `json:"note"`
	TrackingNumber    *string `json:"tracking_number"`
	ShippingPattern   *string `json:"shipping_pattern"`
	EstimatedDelivery *string `json:"estimated_delivery"`
}

// AdminOrderHandlers exposes the back-office order endpoints.
type AdminOrderHandlers struct {
	authn  *auth.Authenticator
	orders services.AdminOrderService
}

// NewAdminOrderHandlers constructs a new AdminOrderHandlers instance.
func NewAdminOrderHandlers(authn *auth.Authenticator, orders services.AdminOrderService) *AdminOrderHandlers {
	return &AdminOrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /admin/orders endpoints.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth(auth.RoleAdmin))
	}
	r.Get("/orders", h.listOrders)
	r.Get("/orders/stats", h.orderStats)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Patch("/orders/{orderID}/status", h.updateStatus)
	r.Patch("/orders/{orderID}/payment", h.updatePayment)
	r.Post("/orders/{orderID}/tracking", h.addTracking)
	r.Patch("/orders/{orderID}/tracking/{trackingID}", h.updateTracking)
	r.Delete("/orders/{orderID}/tracking/{trackingID}", h.deleteTracking)
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query, ok := parseAdminOrderQuery(w, r)
	if !ok {
		return
	}

	page, err := h.orders.List(ctx, query)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	orders := make([]orderResponse, 0, len(page.Orders))
	for _, order := range page.Orders {
		orders = append(orders, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, orderPageResponse{
		Orders:   orders,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

func parseAdminOrderQuery(w http.ResponseWriter, r *http.Request) (repositories.AdminOrderQuery, bool) {
	ctx := r.Context()
	values := r.URL.Query()
	query := repositories.AdminOrderQuery{
		OrderNumber: strings.TrimSpace(values.Get("order_number")),
		SortBy:      strings.TrimSpace(values.Get("sort_by")),
		SortDir:     strings.TrimSpace(values.Get("sort_dir")),
		Page:        1,
		PageSize:    defaultAdminPageSize,
	}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status := domain.OrderStatus(strings.ToUpper(raw))
		query.Status = &status
	}
	if raw := strings.TrimSpace(values.Get("payment_status")); raw != "" {
		status := domain.PaymentStatus(strings.ToUpper(raw))
		query.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(values.Get("payment_method")); raw != "" {
		method := domain.PaymentMethod(strings.ToUpper(raw))
		query.PaymentMethod = &method
	}
	if raw := strings.TrimSpace(values.Get("user_id")); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "user_id must be a positive integer", http.StatusBadRequest))
			return repositories.AdminOrderQuery{}, false
		}
		query.UserID = &userID
	}
	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return repositories.AdminOrderQuery{}, false
		}
		query.From = &ts
	}
	if raw := strings.TrimSpace(values.Get("to")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return repositories.AdminOrderQuery{}, false
		}
		query.To = &ts
	}
	if raw := strings.TrimSpace(values.Get("min_total")); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "min_total must be a decimal amount", http.StatusBadRequest))
			return repositories.AdminOrderQuery{}, false
		}
		query.MinTotal = &amount
	}
	if raw := strings.TrimSpace(values.Get("max_total")); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "max_total must be a decimal amount", http.StatusBadRequest))
			return repositories.AdminOrderQuery{}, false
		}
		query.MaxTotal = &amount
	}
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page must be a positive integer", http.StatusBadRequest))
			return repositories.AdminOrderQuery{}, false
		}
		query.Page = page
	}
	if raw := strings.TrimSpace(values.Get("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be a positive integer", http.StatusBadRequest))
			return repositories.AdminOrderQuery{}, false
		}
		if size > maxAdminPageSize {
			size = maxAdminPageSize
		}
		query.PageSize = size
	}

	return query, true
}

func (h *AdminOrderHandlers) orderStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	values := r.URL.Query()

	var from, to *time.Time
	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		from = &ts
	}
	if raw := strings.TrimSpace(values.Get("to")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		to = &ts
	}

	stats, err := h.orders.Stats(ctx, from, to)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	counts := make(map[string]int64, len(stats.CountByStatus))
	for status, count := range stats.CountByStatus {
		counts[string(status)] = count
	}
	writeJSON(w, http.StatusOK, orderStatsResponse{
		From:          stats.From,
		To:            stats.To,
		TotalOrders:   stats.TotalOrders,
		TotalRevenue:  stats.TotalRevenue.StringFixed(2),
		CountByStatus: counts,
	})
}

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *AdminOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateStatusCommand{
		OrderID:     orderID,
		Status:      domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *AdminOrderHandlers) updatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}

	var req updatePaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.UpdatePaymentCommand{
		OrderID: orderID,
		Status:  domain.PaymentStatus(strings.ToUpper(strings.TrimSpace(req.PaymentStatus))),
	}
	if req.PaymentMethod != nil {
		method := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(*req.PaymentMethod)))
		cmd.Method = &method
	}

	order, err := h.orders.UpdatePayment(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *AdminOrderHandlers) addTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}

	var req trackingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}
	if req.Status == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is required", http.StatusBadRequest))
		return
	}

	estimated, ok := parseEstimatedDelivery(w, r, req.EstimatedDelivery)
	if !ok {
		return
	}

	tracking, err := h.orders.AddTracking(ctx, services.AddTrackingCommand{
		OrderID:           orderID,
		Status:            domain.OrderStatus(strings.ToUpper(strings.TrimSpace(*req.Status))),
		Location:          req.Location,
		Description:       req.Description,
		Note:              req.Note,
		TrackingNumber:    req.TrackingNumber,
		ShippingPattern:   req.ShippingPattern,
		EstimatedDelivery: estimated,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTrackingResponse(tracking))
}

func (h *AdminOrderHandlers) updateTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}
	trackingID, ok := parseIDParam(w, r, "trackingID")
	if !ok {
		return
	}

	var req trackingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	estimated, ok := parseEstimatedDelivery(w, r, req.EstimatedDelivery)
	if !ok {
		return
	}

	patch := repositories.TrackingPatch{
		Location:          req.Location,
		Description:       req.Description,
		Note:              req.Note,
		TrackingNumber:    req.TrackingNumber,
		ShippingPattern:   req.ShippingPattern,
		EstimatedDelivery: estimated,
	}
	if req.Status != nil {
		status := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		patch.Status = &status
	}

	tracking, err := h.orders.UpdateTracking(ctx, services.UpdateTrackingCommand{
		OrderID:    orderID,
		TrackingID: trackingID,
		Patch:      patch,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTrackingResponse(tracking))
}

func (h *AdminOrderHandlers) deleteTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}
	trackingID, ok := parseIDParam(w, r, "trackingID")
	if !ok {
		return
	}

	if err := h.orders.DeleteTracking(ctx, orderID, trackingID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseEstimatedDelivery(w http.ResponseWriter, r *http.Request, raw *string) (*time.Time, bool) {
	if raw == nil {
		return nil, true
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "estimated_delivery must be a valid RFC3339 timestamp", http.StatusBadRequest))
		return nil, false
	}
	return &ts, true
}
