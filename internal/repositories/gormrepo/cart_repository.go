package gormrepo

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopnet/api/internal/domain"
)

// CartRepository reads and clears a user's cart for checkout.
type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) GetByUserWithItems(ctx context.Context, userID int64) (domain.Cart, error) {
	var cart domain.Cart
	err := session(ctx, r.db).
		Preload("Items").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return domain.Cart{}, wrapError("cart get by user", err)
	}
	return cart, nil
}

func (r *CartRepository) ClearItems(ctx context.Context, cartID int64) error {
	err := session(ctx, r.db).
		Where("cart_id = ?", cartID).
		Delete(&domain.CartItem{}).Error
	if err != nil {
		return wrapError("cart clear items", err)
	}
	return nil
}
