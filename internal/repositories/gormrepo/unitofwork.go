package gormrepo

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// UnitOfWork runs a function inside one database transaction. The transaction
// handle travels in the context, so every gormrepo repository called with that
// context joins the same transaction and the whole group commits or rolls back
// together.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// session returns the transaction bound to ctx when one is active, or db
// scoped to the context otherwise.
func session(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
