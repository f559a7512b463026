package gormrepo

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shopnet/api/internal/domain"
)

// Open connects to the Postgres instance described by dsn and verifies the
// connection. TranslateError is enabled so unique-constraint violations
// surface as gorm.ErrDuplicatedKey and map onto conflict errors here.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormrepo: open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gormrepo: open: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("gormrepo: ping: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates the schema for every persisted aggregate.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Product{},
		&domain.Color{},
		&domain.ProductColor{},
		&domain.Cart{},
		&domain.CartItem{},
		&domain.Order{},
		&domain.OrderItem{},
		&domain.OrderTracking{},
		&domain.Review{},
	)
	if err != nil {
		return fmt.Errorf("gormrepo: migrate: %w", err)
	}
	return nil
}
