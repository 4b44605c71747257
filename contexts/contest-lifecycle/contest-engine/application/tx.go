package application

import (
	"context"

	"devquest/contexts/contest-lifecycle/contest-engine/ports"
)

// RunInTx runs fn inside the manager's transaction, or directly when no
// manager is wired.
func RunInTx(ctx context.Context, tx ports.TxManager, fn func(ctx context.Context) error) error {
	if tx == nil {
		return fn(ctx)
	}
	return tx.WithinTx(ctx, fn)
}
