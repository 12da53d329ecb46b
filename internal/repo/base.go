package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is the connection holder embedded by the domain repositories. It keeps
// the transaction-cloning rules in one place.
type Base struct {
	db *gorm.DB
}

// NewBase binds a Base to the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection scoped to ctx when one is supplied.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Rebind returns a Base bound to tx. A nil tx keeps the current connection, so
// repository WithTx implementations stay total.
func (b Base) Rebind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}
