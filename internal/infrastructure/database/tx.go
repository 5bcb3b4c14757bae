// internal/infrastructure/database/tx.go
package database

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// TxOptions controls how WithTransaction opens its transaction
type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
}

// DefaultTxOptions returns read-committed, read-write options.
// Conditional updates give the stock guarantees, so no stronger isolation is needed.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		ReadOnly:       false,
	}
}

// WithTransaction runs fn inside one database transaction.
// Any error from fn rolls the transaction back and is returned unchanged.
// A failed rollback is reported as a data inconsistency, never as the
// original error, so callers can tell the two apart.
func WithTransaction(ctx context.Context, db *gorm.DB, opts TxOptions, fn func(tx *gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin(&sql.TxOptions{
		Isolation: opts.IsolationLevel,
		ReadOnly:  opts.ReadOnly,
	})
	if tx.Error != nil {
		return apperror.Persistence(tx.Error, "begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		return rollbackOutcome(err, tx.Rollback().Error)
	}

	if err := tx.Commit().Error; err != nil {
		return apperror.Persistence(err, "commit transaction")
	}

	return nil
}

// rollbackOutcome decides what a caller sees after fn failed.
// sql.ErrTxDone means the driver already rolled back, typically because the
// context was cancelled, so the original error stands.
func rollbackOutcome(err, rbErr error) error {
	if rbErr == nil || errors.Is(rbErr, sql.ErrTxDone) {
		return err
	}
	return apperror.Wrap(
		apperror.KindDataInconsistency,
		errors.Join(err, rbErr),
		"rollback failed: %v (original error: %v)", rbErr, err,
	)
}
