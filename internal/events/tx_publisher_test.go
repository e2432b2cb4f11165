package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matemarket/pulse/internal/application/uow"
	"github.com/matemarket/pulse/internal/domain/notify"
)

type capturePublisher struct {
	got []notify.EventRecord
}

func (p *capturePublisher) Publish(_ context.Context, rec notify.EventRecord) {
	p.got = append(p.got, rec)
}

type hookTx struct {
	ctx   context.Context
	hooks uow.Hooks
}

func (t *hookTx) Commit() error            { t.hooks.Run(); return nil }
func (t *hookTx) Rollback() error          { t.hooks.Discard(); return nil }
func (t *hookTx) Context() context.Context { return t.ctx }
func (t *hookTx) AfterCommit(fn func())    { t.hooks.Add(fn) }

type hookUoW struct{}

func (hookUoW) Begin(ctx context.Context) (uow.Transaction, error) {
	tx := &hookTx{}
	tx.ctx = uow.WithTransaction(ctx, tx)
	return tx, nil
}

func TestTxPublisher(t *testing.T) {
	rec := chatRecord(t, "room-1", "alice", "hi")

	t.Run("without transaction publishes immediately", func(t *testing.T) {
		bus := &capturePublisher{}
		NewTxPublisher(bus).Publish(context.Background(), rec)
		assert.Len(t, bus.got, 1)
	})

	t.Run("publishes only after commit", func(t *testing.T) {
		bus := &capturePublisher{}
		pub := NewTxPublisher(bus)

		err := uow.Do(context.Background(), hookUoW{}, func(ctx context.Context) error {
			pub.Publish(ctx, rec)
			assert.Empty(t, bus.got)
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, []notify.EventRecord{rec}, bus.got)
	})

	t.Run("rollback discards", func(t *testing.T) {
		bus := &capturePublisher{}
		pub := NewTxPublisher(bus)

		err := uow.Do(context.Background(), hookUoW{}, func(ctx context.Context) error {
			pub.Publish(ctx, rec)
			return errors.New("write failed")
		})

		require.Error(t, err)
		assert.Empty(t, bus.got)
	})
}
