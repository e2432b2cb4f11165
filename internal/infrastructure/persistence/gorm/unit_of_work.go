package gorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/matemarket/pulse/internal/application/uow"
)

// UnitOfWork implements the Unit of Work pattern for GORM
type UnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a new GORM-based unit of work
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Begin starts a new transaction
func (u *UnitOfWork) Begin(ctx context.Context) (uow.Transaction, error) {
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}

	t := &gormTransaction{tx: tx}
	t.ctx = uow.WithTransaction(ctx, t)
	return t, nil
}

// gormTransaction implements uow.Transaction for GORM
type gormTransaction struct {
	tx    *gorm.DB
	ctx   context.Context
	hooks uow.Hooks
}

// Commit commits the transaction, then runs the after-commit hooks
func (t *gormTransaction) Commit() error {
	if err := t.tx.Commit().Error; err != nil {
		t.hooks.Discard()
		return fmt.Errorf("commit transaction: %w", err)
	}
	t.hooks.Run()
	return nil
}

// Rollback rolls back the transaction
func (t *gormTransaction) Rollback() error {
	t.hooks.Discard()
	if err := t.tx.Rollback().Error; err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return nil
		}
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// Context returns the transaction context
func (t *gormTransaction) Context() context.Context {
	return t.ctx
}

// AfterCommit registers fn to run after a successful commit
func (t *gormTransaction) AfterCommit(fn func()) {
	t.hooks.Add(fn)
}

// conn returns the handle repositories must use for ctx: the transaction
// begun by this package when one is active, the plain pool otherwise.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := uow.FromContext(ctx); ok {
		if gt, ok := tx.(*gormTransaction); ok {
			return gt.tx.WithContext(ctx)
		}
	}
	return db.WithContext(ctx)
}
