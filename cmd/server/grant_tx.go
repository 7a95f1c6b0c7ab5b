package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "clockgate/pkg/domain-errors"
	txcontext "clockgate/pkg/platform/tx"
)

const defaultGrantTxTimeout = 5 * time.Second

// grantPostgresTx runs a lost-device grant and the device's lost flag in one
// transaction, bounded by a deadline when the caller has none.
type grantPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newGrantPostgresTx(db *sql.DB) *grantPostgresTx {
	return &grantPostgresTx{db: db}
}

func (t *grantPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultGrantTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return txcontext.Run(ctx, t.db, nil, fn)
}
