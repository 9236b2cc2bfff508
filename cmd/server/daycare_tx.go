package main

import (
	"context"
	"database/sql"
	"time"

	daycareservice "daycareplanner/internal/daycare/service"
	daycarestore "daycareplanner/internal/daycare/store"
	dErrors "daycareplanner/pkg/domain-errors"
)

const defaultDaycareTxTimeout = 5 * time.Second

type daycarePostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newDaycarePostgresTx(db *sql.DB) *daycarePostgresTx {
	return &daycarePostgresTx{db: db}
}

func (t *daycarePostgresTx) RunInTx(ctx context.Context, fn func(store daycareservice.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultDaycareTxTimeout
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

	if err := fn(daycarestore.NewPostgresTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
