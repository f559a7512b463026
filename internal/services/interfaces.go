package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Order         = domain.Order
	OrderItem     = domain.OrderItem
	OrderTracking = domain.OrderTracking
	OrderStatus   = domain.OrderStatus
	OrderStats    = domain.OrderStats
	PaymentMethod = domain.PaymentMethod
	PaymentStatus = domain.PaymentStatus
	Review        = domain.Review
)

// OrderService covers the customer-facing order flows: checkout, reads,
// cancellation and tracking history.
type OrderService interface {
	CreateFromCart(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	GetMyOrders(ctx context.Context, userID int64) ([]OrderSummary, error)
	GetMyOrderByID(ctx context.Context, userID, orderID int64) (Order, error)
	Cancel(ctx context.Context, userID, orderID int64) (Order, error)
	GetTracking(ctx context.Context, userID, orderID int64) ([]OrderTracking, error)
}

// AdminOrderService covers the back-office surface: listing, fulfillment
// transitions, payment updates, tracking maintenance and statistics.
type AdminOrderService interface {
	List(ctx context.Context, query repositories.AdminOrderQuery) (OrderPage, error)
	GetByID(ctx context.Context, orderID int64) (Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (Order, error)
	UpdatePayment(ctx context.Context, cmd UpdatePaymentCommand) (Order, error)
	AddTracking(ctx context.Context, cmd AddTrackingCommand) (OrderTracking, error)
	UpdateTracking(ctx context.Context, cmd UpdateTrackingCommand) (OrderTracking, error)
	DeleteTracking(ctx context.Context, orderID, trackingID int64) error
	Stats(ctx context.Context, from, to *time.Time) (OrderStats, error)
}

// ReviewService enforces the purchase-gated review rules.
type ReviewService interface {
	Create(ctx context.Context, cmd CreateReviewCommand) (Review, error)
	GetMyReviews(ctx context.Context, userID int64, page, pageSize int) (ReviewPage, error)
	Update(ctx context.Context, cmd UpdateReviewCommand) (Review, error)
	Delete(ctx context.Context, cmd DeleteReviewCommand) error
}

// CreateOrderCommand carries the checkout request for the caller's cart.
type CreateOrderCommand struct {
	UserID          int64
	ShippingAddress *string
	PaymentMethod   *PaymentMethod
}

// OrderSummary is the customer list projection of an order.
type OrderSummary struct {
	ID          int64
	OrderNumber string
	TotalAmount decimal.Decimal
	Status      OrderStatus
	ItemCount   int
	CreatedAt   time.Time
}

// OrderPage is one page of the admin order listing.
type OrderPage struct {
	Orders   []Order
	Total    int64
	Page     int
	PageSize int
}

// UpdateStatusCommand requests a fulfillment transition on an order.
type UpdateStatusCommand struct {
	OrderID     int64
	Status      OrderStatus
	Description *string
}

// UpdatePaymentCommand updates payment fields on an order. A nil Method leaves
// the stored payment method untouched.
type UpdatePaymentCommand struct {
	OrderID int64
	Method  *PaymentMethod
	Status  PaymentStatus
}

// AddTrackingCommand appends a tracking row to an order.
type AddTrackingCommand struct {
	OrderID           int64
	Status            OrderStatus
	Location          *string
	Description       *string
	Note              *string
	TrackingNumber    *string
	ShippingPattern   *string
	EstimatedDelivery *time.Time
}

// UpdateTrackingCommand patches an existing tracking row. Nil fields are left
// untouched.
type UpdateTrackingCommand struct {
	OrderID    int64
	TrackingID int64
	Patch      repositories.TrackingPatch
}

// CreateReviewCommand submits a review. OrderItemID optionally binds the
// review to a specific purchased line.
type CreateReviewCommand struct {
	UserID      int64
	ProductID   int64
	OrderItemID *int64
	Rating      int
	Comment     *string
}

// ReviewPage is one page of a user's reviews.
type ReviewPage struct {
	Reviews  []Review
	Total    int64
	Page     int
	PageSize int
}

// UpdateReviewCommand edits a review owned by the caller. Nil fields keep the
// stored values.
type UpdateReviewCommand struct {
	UserID   int64
	ReviewID int64
	Rating   *int
	Comment  *string
}

// DeleteReviewCommand removes a review. Admin callers may delete any review.
type DeleteReviewCommand struct {
	UserID   int64
	ReviewID int64
	IsAdmin  bool
}
