package uow

import (
	"context"
	"fmt"
	"sync"
)

// UnitOfWork defines the interface for managing transactions across repositories
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction and then runs its after-commit hooks
	Commit() error
	// Rollback rolls back the transaction and discards its hooks
	Rollback() error
	// Context returns a context carrying the transaction
	Context() context.Context
	// AfterCommit registers fn to run once the transaction has committed
	AfterCommit(fn func())
}

type txKey struct{}

// WithTransaction returns a copy of ctx carrying tx.
func WithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// FromContext returns the transaction active in ctx, if any.
func FromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(txKey{}).(Transaction)
	return tx, ok
}

// Do runs fn inside a transaction. fn joins the transaction already active in
// ctx when there is one; otherwise a new one is begun, committed when fn
// returns nil and rolled back otherwise.
func Do(ctx context.Context, u UnitOfWork, fn func(ctx context.Context) error) (err error) {
	if tx, ok := FromContext(ctx); ok {
		return fn(tx.Context())
	}

	tx, err := u.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx.Context()); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// Hooks collects after-commit callbacks for one transaction.
type Hooks struct {
	mu   sync.Mutex
	fns  []func()
	done bool
}

// Add registers fn. Hooks added after Run or Discard are ignored.
func (h *Hooks) Add(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	h.fns = append(h.fns, fn)
}

// Run executes the registered hooks in registration order, once.
func (h *Hooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns, h.done = nil, true
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Discard drops the registered hooks without running them.
func (h *Hooks) Discard() {
	h.mu.Lock()
	h.fns, h.done = nil, true
	h.mu.Unlock()
}
