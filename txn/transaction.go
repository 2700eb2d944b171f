package txn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/regioncache/timestamp"
)

var (
	// ErrCompleted is returned when a transaction is used after Commit or Rollback.
	ErrCompleted = errors.New("txn: transaction already completed")
	// ErrNoDatabase is returned by Exec when the transaction has no database.
	ErrNoDatabase = errors.New("txn: transaction has no database")
)

// Executor is the part of *sql.Tx the locking strategies use.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a database transaction. *sql.Tx satisfies it.
type Tx interface {
	Executor
	Commit() error
	Rollback() error
}

// Beginner starts database transactions. *sql.DB satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Clock hands out transaction start timestamps.
type Clock interface {
	Next() int64
}

// Action runs just before commit. A non-nil error aborts the commit.
type Action func(ctx context.Context) error

// Completion runs once the transaction has committed or rolled back.
type Completion func(ctx context.Context, committed bool)

type namedAction struct {
	name string
	fn   Action
}

// ActionError reports the pre-commit action that aborted a commit.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("txn: before-commit action %q: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Transaction is a unit of work. It is meant to be used by one goroutine,
// like the session it belongs to; registration methods are still safe to
// call concurrently.
type Transaction struct {
	id uuid.UUID
	tx Tx
	ts int64

	mu        sync.Mutex
	before    []namedAction
	after     []Completion
	completed bool
}

// Begin starts a database transaction on db and stamps it with clock.
// A nil clock uses the process-wide timestamp source.
func Begin(ctx context.Context, db Beginner, clock Clock) (*Transaction, error) {
	sqltx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("txn: begin: %w", err)
	}
	if clock == nil {
		return New(sqltx, timestamp.Next()), nil
	}
	return New(sqltx, clock.Next()), nil
}

// New wraps tx, which may be nil for cache-only units of work.
// startTS is the logical start timestamp used for cache reads.
func New(tx Tx, startTS int64) *Transaction {
	return &Transaction{id: uuid.New(), tx: tx, ts: startTS}
}

// ID uniquely identifies the transaction.
func (t *Transaction) ID() uuid.UUID { return t.id }

// Timestamp is the logical start time of the transaction.
func (t *Transaction) Timestamp() int64 { return t.ts }

// Exec returns the executor statements should run on.
func (t *Transaction) Exec() (Executor, error) {
	if t.tx == nil {
		return nil, ErrNoDatabase
	}
	return t.tx, nil
}

// BeforeCommit queues fn to run just before commit, after everything queued
// earlier.
func (t *Transaction) BeforeCommit(name string, fn Action) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed {
		return ErrCompleted
	}
	t.before = append(t.before, namedAction{name: name, fn: fn})
	return nil
}

// AfterCompletion registers fn to run after commit or rollback.
func (t *Transaction) AfterCompletion(fn Completion) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed {
		return ErrCompleted
	}
	t.after = append(t.after, fn)
	return nil
}

// Pending returns the number of queued pre-commit actions.
func (t *Transaction) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.before)
}

// Commit runs the pre-commit actions in order and commits. If an action or
// the commit fails, the transaction is rolled back and the error returned.
// After-completion callbacks run in either case.
func (t *Transaction) Commit(ctx context.Context) error {
	before, err := t.complete()
	if err != nil {
		return err
	}

	for _, a := range before {
		if err := a.fn(ctx); err != nil {
			if t.tx != nil {
				_ = t.tx.Rollback()
			}
			t.finish(ctx, false)
			return &ActionError{Action: a.name, Err: err}
		}
	}

	if t.tx != nil {
		if err := t.tx.Commit(); err != nil {
			t.finish(ctx, false)
			return fmt.Errorf("txn: commit: %w", err)
		}
	}
	t.finish(ctx, true)
	return nil
}

// Rollback discards the transaction. Pending pre-commit actions never run.
func (t *Transaction) Rollback(ctx context.Context) error {
	if _, err := t.complete(); err != nil {
		return err
	}
	var rerr error
	if t.tx != nil {
		if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			rerr = fmt.Errorf("txn: rollback: %w", err)
		}
	}
	t.finish(ctx, false)
	return rerr
}

func (t *Transaction) complete() ([]namedAction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed {
		return nil, ErrCompleted
	}
	t.completed = true
	before := t.before
	t.before = nil
	return before, nil
}

func (t *Transaction) finish(ctx context.Context, committed bool) {
	t.mu.Lock()
	after := t.after
	t.after = nil
	t.mu.Unlock()
	for _, fn := range after {
		fn(ctx, committed)
	}
}
