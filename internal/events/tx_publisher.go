package events

import (
	"context"

	"github.com/matemarket/pulse/internal/application/uow"
	"github.com/matemarket/pulse/internal/domain/notify"
)

// TxPublisher defers publication to the commit of the transaction active in
// the caller's context. A rolled back transaction never publishes.
type TxPublisher struct {
	bus Publisher
}

// NewTxPublisher wraps bus.
func NewTxPublisher(bus Publisher) *TxPublisher {
	return &TxPublisher{bus: bus}
}

// Publish hands rec to the bus after commit, or immediately when ctx carries
// no transaction.
func (p *TxPublisher) Publish(ctx context.Context, rec notify.EventRecord) {
	tx, ok := uow.FromContext(ctx)
	if !ok {
		p.bus.Publish(ctx, rec)
		return
	}
	detached := context.WithoutCancel(ctx)
	tx.AfterCommit(func() {
		p.bus.Publish(detached, rec)
	})
}
