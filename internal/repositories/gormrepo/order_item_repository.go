package gormrepo

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopnet/api/internal/domain"
)

// OrderItemRepository answers the item-level questions the review gate asks.
type OrderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) *OrderItemRepository {
	return &OrderItemRepository{db: db}
}

func (r *OrderItemRepository) FindWithOrder(ctx context.Context, orderItemID int64) (domain.OrderItem, error) {
	var item domain.OrderItem
	err := session(ctx, r.db).
		Preload("Order").
		First(&item, orderItemID).Error
	if err != nil {
		return domain.OrderItem{}, wrapError("order item find", err)
	}
	return item, nil
}

func (r *OrderItemRepository) SetReviewed(ctx context.Context, orderItemID int64, reviewed bool) error {
	res := session(ctx, r.db).
		Model(&domain.OrderItem{}).
		Where("id = ?", orderItemID).
		Update("is_reviewed", reviewed)
	if res.Error != nil {
		return wrapError("order item set reviewed", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("order item set reviewed", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *OrderItemRepository) HasDeliveredPurchase(ctx context.Context, userID, productID int64) (bool, error) {
	var count int64
	err := session(ctx, r.db).
		Model(&domain.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?",
			userID, domain.OrderStatusDelivered, productID).
		Count(&count).Error
	if err != nil {
		return false, wrapError("order item delivered purchase", err)
	}
	return count > 0, nil
}
