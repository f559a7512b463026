package gormrepo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopnet/api/internal/domain"
	"github.com/shopnet/api/internal/repositories"
)

// OrderRepository persists orders and their owned rows in Postgres.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if err := session(ctx, r.db).Create(order).Error; err != nil {
		return wrapError("order create", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID int64) (domain.Order, error) {
	var order domain.Order
	err := session(ctx, r.db).
		Preload("Items").
		Preload("Trackings", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&order, orderID).Error
	if err != nil {
		return domain.Order{}, wrapError("order find", err)
	}
	return order, nil
}

func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (domain.Order, error) {
	var order domain.Order
	err := session(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, orderID).Error
	if err != nil {
		return domain.Order{}, wrapError("order find for update", err)
	}
	if err := session(ctx, r.db).Where("order_id = ?", orderID).Find(&order.Items).Error; err != nil {
		return domain.Order{}, wrapError("order find for update", err)
	}
	return order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	var orders []domain.Order
	err := session(ctx, r.db).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, wrapError("order list by user", err)
	}
	return orders, nil
}

func (r *OrderRepository) List(ctx context.Context, query repositories.AdminOrderQuery) ([]domain.Order, int64, error) {
	db := session(ctx, r.db).Model(&domain.Order{})
	db = applyOrderFilters(db, query)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, wrapError("order list count", err)
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size < 1 {
		size = 20
	}

	var orders []domain.Order
	err := db.
		Preload("Items").
		Order(orderSortClause(query)).
		Offset((page - 1) * size).
		Limit(size).
		Find(&orders).Error
	if err != nil {
		return nil, 0, wrapError("order list", err)
	}
	return orders, total, nil
}

func applyOrderFilters(db *gorm.DB, query repositories.AdminOrderQuery) *gorm.DB {
	if query.Status != nil {
		db = db.Where("status = ?", *query.Status)
	}
	if query.PaymentStatus != nil {
		db = db.Where("payment_status = ?", *query.PaymentStatus)
	}
	if query.PaymentMethod != nil {
		db = db.Where("payment_method = ?", *query.PaymentMethod)
	}
	if query.UserID != nil {
		db = db.Where("user_id = ?", *query.UserID)
	}
	if query.OrderNumber != "" {
		db = db.Where("order_number LIKE ?", "%"+query.OrderNumber+"%")
	}
	if query.From != nil {
		db = db.Where("created_at >= ?", *query.From)
	}
	if query.To != nil {
		db = db.Where("created_at <= ?", *query.To)
	}
	if query.MinTotal != nil {
		db = db.Where("total_amount >= ?", *query.MinTotal)
	}
	if query.MaxTotal != nil {
		db = db.Where("total_amount <= ?", *query.MaxTotal)
	}
	return db
}

func orderSortClause(query repositories.AdminOrderQuery) string {
	column := "created_at"
	switch query.SortBy {
	case "totalAmount":
		column = "total_amount"
	case "status":
		column = "status"
	}
	dir := "DESC"
	if query.SortDir == "asc" {
		dir = "ASC"
	}
	return column + " " + dir + ", id " + dir
}

func (r *OrderRepository) ExistsByNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	err := session(ctx, r.db).
		Model(&domain.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error
	if err != nil {
		return false, wrapError("order exists by number", err)
	}
	return count > 0, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus, updatedAt time.Time) error {
	res := session(ctx, r.db).
		Model(&domain.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{"status": status, "updated_at": updatedAt})
	if res.Error != nil {
		return wrapError("order update status", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("order update status", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *OrderRepository) UpdatePayment(ctx context.Context, orderID int64, method *domain.PaymentMethod, status domain.PaymentStatus, updatedAt time.Time) error {
	updates := map[string]any{"payment_status": status, "updated_at": updatedAt}
	if method != nil {
		updates["payment_method"] = *method
	}
	res := session(ctx, r.db).
		Model(&domain.Order{}).
		Where("id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return wrapError("order update payment", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("order update payment", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *OrderRepository) Stats(ctx context.Context, from, to *time.Time) (domain.OrderStats, error) {
	db := session(ctx, r.db).Model(&domain.Order{})
	if from != nil {
		db = db.Where("created_at >= ?", *from)
	}
	if to != nil {
		db = db.Where("created_at <= ?", *to)
	}

	stats := domain.OrderStats{
		From:          from,
		To:            to,
		TotalRevenue:  decimal.Zero,
		CountByStatus: make(map[domain.OrderStatus]int64, len(domain.OrderStatuses)),
	}
	for _, s := range domain.OrderStatuses {
		stats.CountByStatus[s] = 0
	}

	type row struct {
		Status domain.OrderStatus
		Count  int64
		Sum    decimal.Decimal
	}
	var rows []row
	err := db.
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS sum").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return domain.OrderStats{}, wrapError("order stats", err)
	}

	for _, r := range rows {
		stats.CountByStatus[r.Status] = r.Count
		stats.TotalOrders += r.Count
		stats.TotalRevenue = stats.TotalRevenue.Add(r.Sum)
	}
	return stats, nil
}
