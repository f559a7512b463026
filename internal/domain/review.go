package domain

import "time"

// Review is a customer's verdict on a purchased product. At most one review
// exists per (user, product). When bound to an order item the review gates on
// that item's order being DELIVERED and flips the item's IsReviewed flag.
type Review struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	UserID      int64  `gorm:"index:idx_user_product,unique;not null" json:"user_id"`
	ProductID   int64  `gorm:"index:idx_user_product,unique;not null" json:"product_id"`
	OrderItemID *int64 `json:"order_item_id,omitempty"`

	Rating  int     `gorm:"not null" json:"rating"`
	Comment *string `gorm:"size:2000" json:"comment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Review) TableName() string { return "reviews" }
