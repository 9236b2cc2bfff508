package main

import (
	"context"
	"database/sql"
	"time"

	applicationstore "daycareplanner/internal/application/store"
	daycarestore "daycareplanner/internal/daycare/store"
	placementservice "daycareplanner/internal/placement/service"
	placementstore "daycareplanner/internal/placement/store"
	dErrors "daycareplanner/pkg/domain-errors"
)

const defaultPlacementTxTimeout = 5 * time.Second

// placementPostgresTx runs accept and end-placement transitions in one
// database transaction spanning the choice, placement, and enrollment rows.
type placementPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newPlacementPostgresTx(db *sql.DB) *placementPostgresTx {
	return &placementPostgresTx{db: db}
}

func (t *placementPostgresTx) RunInTx(ctx context.Context, fn func(stores placementservice.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultPlacementTxTimeout
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

	applications := applicationstore.NewPostgresTx(tx)
	stores := placementservice.TxStores{
		Choices:      applications,
		Applications: applications,
		Placements:   placementstore.NewPostgresTx(tx),
		Daycares:     daycarestore.NewPostgresTx(tx),
	}
	if err := fn(stores); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
