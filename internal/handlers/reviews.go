package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopnet/api/internal/platform/auth"
	"github.com/shopnet/api/internal/platform/httpx"
	"github.com/shopnet/api/internal/services"
)

type createReviewRequest struct {
	ProductID   int64   `json:"product_id"`
	OrderItemID *int64  `json:"order_item_id"`
	Rating      int     `json:"rating"`
	Comment     *string `json:"comment"`
}

type updateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

// ReviewHandlers exposes the review endpoints.
type ReviewHandlers struct {
	authn   *auth.Authenticator
	reviews services.ReviewService
}

// NewReviewHandlers constructs a new ReviewHandlers instance.
func NewReviewHandlers(authn *auth.Authenticator, reviews services.ReviewService) *ReviewHandlers {
	return &ReviewHandlers{
		authn:   authn,
		reviews: reviews,
	}
}

// Routes registers the /reviews endpoints.
func (h *ReviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Post("/", h.createReview)
	r.Get("/", h.listMyReviews)
	r.Patch("/{reviewID}", h.updateReview)
	r.Delete("/{reviewID}", h.deleteReview)
}

func (h *ReviewHandlers) createReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req createReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	review, err := h.reviews.Create(ctx, services.CreateReviewCommand{
		UserID:      identity.UserID,
		ProductID:   req.ProductID,
		OrderItemID: req.OrderItemID,
		Rating:      req.Rating,
		Comment:     req.Comment,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReviewResponse(review))
}

func (h *ReviewHandlers) listMyReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	page := 1
	pageSize := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page must be a positive integer", http.StatusBadRequest))
			return
		}
		page = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be a positive integer", http.StatusBadRequest))
			return
		}
		pageSize = parsed
	}

	result, err := h.reviews.GetMyReviews(ctx, identity.UserID, page, pageSize)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	reviews := make([]reviewResponse, 0, len(result.Reviews))
	for _, review := range result.Reviews {
		reviews = append(reviews, toReviewResponse(review))
	}
	writeJSON(w, http.StatusOK, reviewPageResponse{
		Reviews:  reviews,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

func (h *ReviewHandlers) updateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	reviewID, ok := parseIDParam(w, r, "reviewID")
	if !ok {
		return
	}

	var req updateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	review, err := h.reviews.Update(ctx, services.UpdateReviewCommand{
		UserID:   identity.UserID,
		ReviewID: reviewID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReviewResponse(review))
}

func (h *ReviewHandlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	reviewID, ok := parseIDParam(w, r, "reviewID")
	if !ok {
		return
	}

	err := h.reviews.Delete(ctx, services.DeleteReviewCommand{
		UserID:   identity.UserID,
		ReviewID: reviewID,
		IsAdmin:  identity.IsAdmin(),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
