package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is owned by the cart collaborator; checkout only reads it and deletes
// its items on success. At most one cart exists per user.
type Cart struct {
	ID     int64 `gorm:"primaryKey" json:"id"`
	UserID int64 `gorm:"uniqueIndex;not null" json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Cart) TableName() string { return "carts" }

// CartItem carries the quantity and a price snapshot taken when the item was
// added. The snapshot may be stale; checkout re-reads the catalog price.
type CartItem struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	CartID    int64           `gorm:"index;not null" json:"cart_id"`
	ProductID int64           `gorm:"not null" json:"product_id"`
	ColorID   *int64          `json:"color_id,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartItem) TableName() string { return "cart_items" }
