package gormrepo

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopnet/api/internal/domain"
)

// ReviewRepository persists product reviews.
type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if err := session(ctx, r.db).Create(review).Error; err != nil {
		return wrapError("review create", err)
	}
	return nil
}

func (r *ReviewRepository) FindByID(ctx context.Context, reviewID int64) (domain.Review, error) {
	var review domain.Review
	if err := session(ctx, r.db).First(&review, reviewID).Error; err != nil {
		return domain.Review{}, wrapError("review find", err)
	}
	return review, nil
}

func (r *ReviewRepository) FindByUserAndProduct(ctx context.Context, userID, productID int64) (domain.Review, error) {
	var review domain.Review
	err := session(ctx, r.db).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&review).Error
	if err != nil {
		return domain.Review{}, wrapError("review find by user and product", err)
	}
	return review, nil
}

func (r *ReviewRepository) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]domain.Review, int64, error) {
	db := session(ctx, r.db).Model(&domain.Review{}).Where("user_id = ?", userID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, wrapError("review list count", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var reviews []domain.Review
	err := db.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, wrapError("review list", err)
	}
	return reviews, total, nil
}

func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	res := session(ctx, r.db).
		Model(&domain.Review{}).
		Where("id = ?", review.ID).
		Updates(map[string]any{
			"rating":     review.Rating,
			"comment":    review.Comment,
			"updated_at": review.UpdatedAt,
		})
	if res.Error != nil {
		return wrapError("review update", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("review update", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, reviewID int64) error {
	res := session(ctx, r.db).Delete(&domain.Review{}, reviewID)
	if res.Error != nil {
		return wrapError("review delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("review delete", gorm.ErrRecordNotFound)
	}
	return nil
}
