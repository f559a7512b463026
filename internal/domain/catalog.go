package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is owned by the catalog. The order core reads price, discount price,
// stock and the active flag, and mutates StockQuantity through the product
// repository's atomic stock operations only.
type Product struct {
	ID            int64            `gorm:"primaryKey" json:"id"`
	Name          string           `gorm:"size:255;not null" json:"name"`
	Slug          string           `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Price         decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price"`
	DiscountPrice *decimal.Decimal `gorm:"type:decimal(10,2)" json:"discount_price,omitempty"`
	StockQuantity int              `gorm:"not null;default:0" json:"stock_quantity"`
	IsActive      bool             `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Colors []ProductColor `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"colors,omitempty"`
}

func (Product) TableName() string { return "products" }

// EffectivePrice returns the discount price when present, the list price otherwise.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// Color is a catalog-owned variant dimension.
type Color struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	ColorName string `gorm:"size:100;not null" json:"color_name"`
	HexCode   string `gorm:"size:7" json:"hex_code"`
}

func (Color) TableName() string { return "colors" }

// ProductColor associates a color variant with a product. Checkout rejects
// cart lines whose color is not associated with the line's product.
type ProductColor struct {
	ID        int64 `gorm:"primaryKey" json:"id"`
	ProductID int64 `gorm:"index:idx_product_color,unique;not null" json:"product_id"`
	ColorID   int64 `gorm:"index:idx_product_color,unique;not null" json:"color_id"`
}

func (ProductColor) TableName() string { return "product_colors" }
