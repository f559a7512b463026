package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates the fulfillment states an order moves through.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// OrderStatuses lists every valid status, in fulfillment order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether the status is one of the known values.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// PaymentMethod labels how the customer intends to pay. It is tracked, not
// reconciled with an external processor.
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "COD"
	PaymentMethodMomo PaymentMethod = "MOMO"
	PaymentMethodBank PaymentMethod = "BANK"
)

// Valid reports whether the payment method is one of the known values.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodMomo, PaymentMethodBank:
		return true
	}
	return false
}

// PaymentStatus labels the payment state of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Valid reports whether the payment status is one of the known values.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Order is the immutable-after-creation record of a purchase. The header is
// created only by checkout; afterwards only Status, the payment fields and
// UpdatedAt may change.
type Order struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	UserID      int64           `gorm:"index;not null" json:"user_id"`
	OrderNumber string          `gorm:"uniqueIndex;size:32;not null" json:"order_number"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`

	ShippingAddress *string        `gorm:"size:500" json:"shipping_address,omitempty"`
	PaymentMethod   *PaymentMethod `gorm:"type:varchar(10)" json:"payment_method,omitempty"`
	PaymentStatus   PaymentStatus  `gorm:"type:varchar(10);not null;default:'PENDING'" json:"payment_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items     []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Trackings []OrderTracking `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"trackings"`
}

func (Order) TableName() string { return "orders" }

// ItemCount sums the quantities across all lines.
func (o Order) ItemCount() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// OrderItem is a purchase line owned by exactly one order. Price and subtotal
// are locked at checkout; only IsReviewed mutates afterwards.
type OrderItem struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	OrderID   int64           `gorm:"index;not null" json:"order_id"`
	ProductID int64           `gorm:"index;not null" json:"product_id"`
	ColorID   *int64          `json:"color_id,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`

	IsReviewed bool `gorm:"not null;default:false" json:"is_reviewed"`

	Order *Order `gorm:"foreignKey:OrderID" json:"-"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderTracking is one append-only event in an order's audit trail: the status
// at a point in time plus optional logistics metadata.
type OrderTracking struct {
	ID      int64       `gorm:"primaryKey" json:"id"`
	OrderID int64       `gorm:"index;not null" json:"order_id"`
	Status  OrderStatus `gorm:"type:varchar(20);not null" json:"status"`

	Location          *string    `gorm:"size:255" json:"location,omitempty"`
	Description       *string    `gorm:"size:1000" json:"description,omitempty"`
	Note              *string    `gorm:"size:1000" json:"note,omitempty"`
	TrackingNumber    *string    `gorm:"size:100" json:"tracking_number,omitempty"`
	ShippingPattern   *string    `gorm:"size:100" json:"shipping_pattern,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OrderTracking) TableName() string { return "order_trackings" }

// OrderStats aggregates order counts and revenue over an optional date range.
// Revenue sums every order in the range, cancelled ones included.
type OrderStats struct {
	From          *time.Time            `json:"from,omitempty"`
	To            *time.Time            `json:"to,omitempty"`
	TotalOrders   int64                 `json:"total_orders"`
	TotalRevenue  decimal.Decimal       `json:"total_revenue"`
	CountByStatus map[OrderStatus]int64 `json:"count_by_status"`
}
