package utils

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/torao/kazzla/internal/interfaces"
)

// WithTx runs fn inside a transaction on pool.
// The transaction is committed when fn returns nil and rolled back otherwise, exactly once.
// A panic in fn rolls the transaction back before it propagates.
func WithTx(ctx context.Context, pool interfaces.PgxPoolIface, fn func(tx pgx.Tx) error) error {
	LogMessageWithFields(ctx, "debug", "Beginning transaction...")

	tx, err := pool.Begin(ctx)
	if err != nil {
		LogMessageWithFieldsAndError(ctx, "error", "Error beginning transaction", err)
		return err
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		LogMessageWithFields(ctx, "debug", "Rolling back transaction...")
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			LogMessageWithFieldsAndError(ctx, "error", "Error rolling back transaction", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	LogMessageWithFields(ctx, "debug", "Committing transaction...")
	finished = true
	if err := tx.Commit(ctx); err != nil {
		LogMessageWithFieldsAndError(ctx, "error", "Error committing transaction", err)
		return err
	}

	LogMessageWithFields(ctx, "debug", "Transaction committed")
	return nil
}
