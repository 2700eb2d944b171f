// Package txn holds the transaction-scoped primitives shared by the cache
// access strategies and the database locking strategies: lock modes, row
// versions and a small coordinator that runs queued actions just before
// commit and callbacks after completion.
//
// Typical flow:
//
//	tx, _ := txn.Begin(ctx, db, nil)
//	strategy.Lock(ctx, tx, id, version, entity, 0) // may queue a pre-commit check
//	tx.AfterCompletion(func(ctx context.Context, committed bool) { ... })
//	err := tx.Commit(ctx) // runs pre-commit actions in order, then COMMIT
package txn
