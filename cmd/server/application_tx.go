package main

import (
	"context"
	"database/sql"
	"time"

	applicationservice "daycareplanner/internal/application/service"
	applicationstore "daycareplanner/internal/application/store"
	dErrors "daycareplanner/pkg/domain-errors"
)

const defaultApplicationTxTimeout = 5 * time.Second

type applicationPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newApplicationPostgresTx(db *sql.DB) *applicationPostgresTx {
	return &applicationPostgresTx{db: db}
}

func (t *applicationPostgresTx) RunInTx(ctx context.Context, fn func(store applicationservice.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultApplicationTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(applicationstore.NewPostgresTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
