package gormrepo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/repositories"
)

// ProductRepository exposes catalog reads and atomic stock movements.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) FindByID(ctx context.Context, productID int64) (domain.Product, error) {
	var product domain.Product
	if err := session(ctx, r.db).First(&product, productID).Error; err != nil {
		return domain.Product{}, wrapError("product find", err)
	}
	return product, nil
}

func (r *ProductRepository) FindByIDForUpdate(ctx context.Context, productID int64) (domain.Product, error) {
	var product domain.Product
	err := session(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, productID).Error
	if err != nil {
		return domain.Product{}, wrapError("product find for update", err)
	}
	return product, nil
}

func (r *ProductRepository) HasColor(ctx context.Context, productID, colorID int64) (bool, error) {
	var count int64
	err := session(ctx, r.db).
		Model(&domain.ProductColor{}).
		Where("product_id = ? AND color_id = ?", productID, colorID).
		Count(&count).Error
	if err != nil {
		return false, wrapError("product has color", err)
	}
	return count > 0, nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	res := session(ctx, r.db).
		Model(&domain.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if res.Error != nil {
		return wrapError("product decrement stock", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the row is gone or the guard failed. Re-read to tell apart
		// and to report the remaining quantity.
		product, err := r.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		return &repositories.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Remaining: product.StockQuantity,
		}
	}
	return nil
}

func (r *ProductRepository) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	res := session(ctx, r.db).
		Model(&domain.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if res.Error != nil {
		return wrapError("product increment stock", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("product increment stock", gorm.ErrRecordNotFound)
	}
	return nil
}
