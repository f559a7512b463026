package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shopnet/api/internal/platform/httpx"
	"github.com/shopnet/api/internal/repositories"
	"github.com/shopnet/api/internal/services"
)

const maxRequestBodySize = 64 * 1024

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// writeServiceError translates service taxonomy errors into the JSON envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartEmpty):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInsufficientStock):
		out := httpx.NewError("insufficient_stock", err.Error(), http.StatusBadRequest)
		var stock *repositories.InsufficientStockError
		if errors.As(err, &stock) {
			out = out.
				WithDetail("product_id", stock.ProductID).
				WithDetail("requested", stock.Requested).
				WithDetail("remaining", stock.Remaining)
		}
		httpx.WriteError(ctx, w, out)
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, services.ErrReviewInvalidInput),
		errors.Is(err, services.ErrReviewNotEligible):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderForbidden),
		errors.Is(err, services.ErrReviewForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", err.Error(), http.StatusForbidden))
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrTrackingNotFound),
		errors.Is(err, services.ErrReviewNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrOrderConflict),
		errors.Is(err, services.ErrReviewConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}
