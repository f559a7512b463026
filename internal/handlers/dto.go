package handlers

import (
	"time"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/services"
)

type orderItemResponse struct {
	ID         int64  `json:"id"`
	ProductID  int64  `json:"product_id"`
	ColorID    *int64 `json:"color_id,omitempty"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	Subtotal   string `json:"subtotal"`
	IsReviewed bool   `json:"is_reviewed"`
}

type trackingResponse struct {
	ID                int64      `json:"id"`
	OrderID           int64      `json:"order_id"`
	Status            string     `json:"status"`
	Location          *string    `json:"location,omitempty"`
	Description       *string    `json:"description,omitempty"`
	Note              *string    `json:"note,omitempty"`
	TrackingNumber    *string    `json:"tracking_number,omitempty"`
	ShippingPattern   *string    `json:"shipping_pattern,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	UserID          int64               `json:"user_id"`
	OrderNumber     string              `json:"order_number"`
	TotalAmount     string              `json:"total_amount"`
	Status          string              `json:"status"`
	ShippingAddress *string             `json:"shipping_address,omitempty"`
	PaymentMethod   *string             `json:"payment_method,omitempty"`
	PaymentStatus   string              `json:"payment_status"`
	Items           []orderItemResponse `json:"items"`
	Trackings       []trackingResponse  `json:"trackings,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type orderSummaryResponse struct {
	ID          int64     `json:"id"`
	OrderNumber string    `json:"order_number"`
	TotalAmount string    `json:"total_amount"`
	Status      string    `json:"status"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type orderPageResponse struct {
	Orders   []orderResponse `json:"orders"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type orderStatsResponse struct {
	From          *time.Time       `json:"from,omitempty"`
	To            *time.Time       `json:"to,omitempty"`
	TotalOrders   int64            `json:"total_orders"`
	TotalRevenue  string           `json:"total_revenue"`
	CountByStatus map[string]int64 `json:"count_by_status"`
}

type reviewResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ProductID   int64     `json:"product_id"`
	OrderItemID *int64    `json:"order_item_id,omitempty"`
	Rating      int       `json:"rating"`
	Comment     *string   `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type reviewPageResponse struct {
	Reviews  []reviewResponse `json:"reviews"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			ColorID:    item.ColorID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.StringFixed(2),
			Subtotal:   item.Subtotal.StringFixed(2),
			IsReviewed: item.IsReviewed,
		})
	}
	trackings := make([]trackingResponse, 0, len(order.Trackings))
	for _, tracking := range order.Trackings {
		trackings = append(trackings, toTrackingResponse(tracking))
	}

	var method *string
	if order.PaymentMethod != nil {
		value := string(*order.PaymentMethod)
		method = &value
	}

	return orderResponse{
		ID:              order.ID,
		UserID:          order.UserID,
		OrderNumber:     order.OrderNumber,
		TotalAmount:     order.TotalAmount.StringFixed(2),
		Status:          string(order.Status),
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   method,
		PaymentStatus:   string(order.PaymentStatus),
		Items:           items,
		Trackings:       trackings,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func toTrackingResponse(tracking domain.OrderTracking) trackingResponse {
	return trackingResponse{
		ID:                tracking.ID,
		OrderID:           tracking.OrderID,
		Status:            string(tracking.Status),
		Location:          tracking.Location,
		Description:       tracking.Description,
		Note:              tracking.Note,
		TrackingNumber:    tracking.TrackingNumber,
		ShippingPattern:   tracking.ShippingPattern,
		EstimatedDelivery: tracking.EstimatedDelivery,
		CreatedAt:         tracking.CreatedAt,
		UpdatedAt:         tracking.UpdatedAt,
	}
}

func toOrderSummaryResponse(summary services.OrderSummary) orderSummaryResponse {
	return orderSummaryResponse{
		ID:          summary.ID,
		OrderNumber: summary.OrderNumber,
		TotalAmount: summary.TotalAmount.StringFixed(2),
		Status:      string(summary.Status),
		ItemCount:   summary.ItemCount,
		CreatedAt:   summary.CreatedAt,
	}
}

func toReviewResponse(review domain.Review) reviewResponse {
	return reviewResponse{
		ID:          review.ID,
		UserID:      review.UserID,
		ProductID:   review.ProductID,
		OrderItemID: review.OrderItemID,
		Rating:      review.Rating,
		Comment:     review.Comment,
		CreatedAt:   review.CreatedAt,
		UpdatedAt:   review.UpdatedAt,
	}
}
