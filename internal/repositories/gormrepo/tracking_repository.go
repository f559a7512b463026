package gormrepo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/repositories"
)

// TrackingRepository persists the per-order tracking history.
type TrackingRepository struct {
	db *gorm.DB
}

func NewTrackingRepository(db *gorm.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

func (r *TrackingRepository) Append(ctx context.Context, tracking *domain.OrderTracking) error {
	if err := session(ctx, r.db).Create(tracking).Error; err != nil {
		return wrapError("tracking append", err)
	}
	return nil
}

func (r *TrackingRepository) FindByID(ctx context.Context, trackingID int64) (domain.OrderTracking, error) {
	var tracking domain.OrderTracking
	if err := session(ctx, r.db).First(&tracking, trackingID).Error; err != nil {
		return domain.OrderTracking{}, wrapError("tracking find", err)
	}
	return tracking, nil
}

func (r *TrackingRepository) ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderTracking, error) {
	var trackings []domain.OrderTracking
	err := session(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&trackings).Error
	if err != nil {
		return nil, wrapError("tracking list by order", err)
	}
	return trackings, nil
}

func (r *TrackingRepository) Update(ctx context.Context, trackingID int64, patch repositories.TrackingPatch, updatedAt time.Time) (domain.OrderTracking, error) {
	updates := map[string]any{"updated_at": updatedAt}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.Location != nil {
		updates["location"] = *patch.Location
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Note != nil {
		updates["note"] = *patch.Note
	}
	if patch.TrackingNumber != nil {
		updates["tracking_number"] = *patch.TrackingNumber
	}
	if patch.ShippingPattern != nil {
		updates["shipping_pattern"] = *patch.ShippingPattern
	}
	if patch.EstimatedDelivery != nil {
		updates["estimated_delivery"] = *patch.EstimatedDelivery
	}

	res := session(ctx, r.db).
		Model(&domain.OrderTracking{}).
		Where("id = ?", trackingID).
		Updates(updates)
	if res.Error != nil {
		return domain.OrderTracking{}, wrapError("tracking update", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.OrderTracking{}, notFoundError("tracking update", gorm.ErrRecordNotFound)
	}
	return r.FindByID(ctx, trackingID)
}

func (r *TrackingRepository) Delete(ctx context.Context, trackingID int64) error {
	res := session(ctx, r.db).Delete(&domain.OrderTracking{}, trackingID)
	if res.Error != nil {
		return wrapError("tracking delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("tracking delete", gorm.ErrRecordNotFound)
	}
	return nil
}
