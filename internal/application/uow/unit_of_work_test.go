package uow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matemarket/pulse/internal/application/uow"
)

type fakeTx struct {
	ctx        context.Context
	hooks      uow.Hooks
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error            { t.committed = true; t.hooks.Run(); return nil }
func (t *fakeTx) Rollback() error          { t.rolledBack = true; t.hooks.Discard(); return nil }
func (t *fakeTx) Context() context.Context { return t.ctx }
func (t *fakeTx) AfterCommit(fn func())    { t.hooks.Add(fn) }

type fakeUoW struct {
	began []*fakeTx
}

func (u *fakeUoW) Begin(ctx context.Context) (uow.Transaction, error) {
	tx := &fakeTx{}
	tx.ctx = uow.WithTransaction(ctx, tx)
	u.began = append(u.began, tx)
	return tx, nil
}

func TestDo_CommitRunsHooks(t *testing.T) {
	u := &fakeUoW{}
	var ran bool

	err := uow.Do(context.Background(), u, func(ctx context.Context) error {
		tx, ok := uow.FromContext(ctx)
		require.True(t, ok)
		tx.AfterCommit(func() { ran = true })
		assert.False(t, ran)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, u.began, 1)
	assert.True(t, u.began[0].committed)
	assert.True(t, ran)
}

func TestDo_RollbackDiscardsHooks(t *testing.T) {
	u := &fakeUoW{}
	var ran bool
	boom := errors.New("boom")

	err := uow.Do(context.Background(), u, func(ctx context.Context) error {
		tx, _ := uow.FromContext(ctx)
		tx.AfterCommit(func() { ran = true })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.True(t, u.began[0].rolledBack)
	assert.False(t, ran)
}

func TestDo_JoinsOuterTransaction(t *testing.T) {
	u := &fakeUoW{}

	err := uow.Do(context.Background(), u, func(ctx context.Context) error {
		return uow.Do(ctx, u, func(ctx context.Context) error { return nil })
	})

	require.NoError(t, err)
	assert.Len(t, u.began, 1)
}

func TestDo_PanicRollsBack(t *testing.T) {
	u := &fakeUoW{}

	assert.Panics(t, func() {
		_ = uow.Do(context.Background(), u, func(ctx context.Context) error { panic("x") })
	})
	assert.True(t, u.began[0].rolledBack)
}

func TestHooks_RunOnce(t *testing.T) {
	var h uow.Hooks
	count := 0
	h.Add(func() { count++ })
	h.Run()
	h.Run()
	h.Add(func() { count++ })
	h.Run()
	assert.Equal(t, 1, count)
}
