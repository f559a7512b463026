package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopnet/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// InsufficientStockError reports a guarded stock decrement that found fewer
// units than requested. Remaining carries the quantity observed at the time of
// the failed decrement.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, remaining %d",
		e.ProductID, e.Requested, e.Remaining)
}

// UnitOfWork groups repository operations into one atomic transaction. Every
// repository call made with the context passed to fn joins that transaction.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AdminOrderQuery filters, sorts and pages the administrator order listing.
type AdminOrderQuery struct {
	Status        *domain.OrderStatus
	PaymentStatus *domain.PaymentStatus
	PaymentMethod *domain.PaymentMethod
	UserID        *int64
	OrderNumber   string // substring match
	From          *time.Time
	To            *time.Time
	MinTotal      *decimal.Decimal
	MaxTotal      *decimal.Decimal

	SortBy  string // createdAt | totalAmount | status
	SortDir string // asc | desc

	Page     int
	PageSize int
}

// TrackingPatch carries a partial update for a tracking row. A nil field is
// left untouched; only non-nil fields overwrite existing values.
type TrackingPatch struct {
	Status            *domain.OrderStatus
	Location          *string
	Description       *string
	Note              *string
	TrackingNumber    *string
	ShippingPattern   *string
	EstimatedDelivery *time.Time
}

// OrderRepository persists order headers together with their owned items and
// tracking rows.
type OrderRepository interface {
	// Create inserts the order header plus its Items and Trackings in one go.
	Create(ctx context.Context, order *domain.Order) error
	// FindByID loads an order with items and trackings preloaded.
	FindByID(ctx context.Context, orderID int64) (domain.Order, error)
	// FindByIDForUpdate loads an order with items under a row-level write lock,
	// so a status check and the subsequent write serialise against concurrent
	// transitions on the same order.
	FindByIDForUpdate(ctx context.Context, orderID int64) (domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	List(ctx context.Context, query AdminOrderQuery) ([]domain.Order, int64, error)
	ExistsByNumber(ctx context.Context, orderNumber string) (bool, error)
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus, updatedAt time.Time) error
	UpdatePayment(ctx context.Context, orderID int64, method *domain.PaymentMethod, status domain.PaymentStatus, updatedAt time.Time) error
	Stats(ctx context.Context, from, to *time.Time) (domain.OrderStats, error)
}

// OrderItemRepository serves the review eligibility gate.
type OrderItemRepository interface {
	// FindWithOrder loads an order item together with its owning order header.
	FindWithOrder(ctx context.Context, orderItemID int64) (domain.OrderItem, error)
	SetReviewed(ctx context.Context, orderItemID int64, reviewed bool) error
	// HasDeliveredPurchase reports whether the user has at least one DELIVERED
	// order containing the product.
	HasDeliveredPurchase(ctx context.Context, userID, productID int64) (bool, error)
}

// TrackingRepository maintains the append-only tracking history of an order.
type TrackingRepository interface {
	Append(ctx context.Context, tracking *domain.OrderTracking) error
	FindByID(ctx context.Context, trackingID int64) (domain.OrderTracking, error)
	ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderTracking, error)
	Update(ctx context.Context, trackingID int64, patch TrackingPatch, updatedAt time.Time) (domain.OrderTracking, error)
	Delete(ctx context.Context, trackingID int64) error
}

// ProductRepository exposes the slice of the catalog the order core consumes:
// price/stock/active reads and atomic stock movements.
type ProductRepository interface {
	FindByID(ctx context.Context, productID int64) (domain.Product, error)
	// FindByIDForUpdate acquires a row-level write lock so the stock check and
	// the decrement staged later in the same transaction cannot race another
	// checkout of the same product.
	FindByIDForUpdate(ctx context.Context, productID int64) (domain.Product, error)
	HasColor(ctx context.Context, productID, colorID int64) (bool, error)
	// DecrementStock applies "stock = stock - qty" guarded by "stock >= qty".
	// It returns an InsufficientStockError when the guard fails.
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	// IncrementStock applies an atomic "stock = stock + qty".
	IncrementStock(ctx context.Context, productID int64, quantity int) error
}

// CartRepository is the read/clear contract consumed from the cart collaborator.
type CartRepository interface {
	GetByUserWithItems(ctx context.Context, userID int64) (domain.Cart, error)
	ClearItems(ctx context.Context, cartID int64) error
}

// ReviewRepository persists product reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	FindByID(ctx context.Context, reviewID int64) (domain.Review, error)
	FindByUserAndProduct(ctx context.Context, userID, productID int64) (domain.Review, error)
	ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]domain.Review, int64, error)
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, reviewID int64) error
}
