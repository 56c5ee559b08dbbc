package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// New wraps ctx with no transaction.
func New(ctx context.Context) Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return Context{Ctx: ctx}
}

// WithTx wraps ctx with an explicit transaction handle.
func WithTx(ctx context.Context, tx *gorm.DB) Context {
	c := New(ctx)
	c.Tx = tx
	return c
}

// DB picks the transaction when present, the base handle otherwise.
func (c Context) DB(base *gorm.DB) *gorm.DB {
	if c.Tx != nil {
		return c.Tx
	}
	return base
}
