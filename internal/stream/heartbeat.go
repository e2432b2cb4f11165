package stream

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/domain/notify"
)

// Keeper sends periodic heartbeats to every open channel and closes channels
// whose transport has not written anything for longer than the idle timeout.
type Keeper struct {
	registry    *Registry
	interval    time.Duration
	idleTimeout time.Duration
	logger      *zap.Logger
}

// NewKeeper creates a heartbeat keeper. A zero idleTimeout disables the
// idle check.
func NewKeeper(registry *Registry, interval, idleTimeout time.Duration, logger *zap.Logger) *Keeper {
	return &Keeper{
		registry:    registry,
		interval:    interval,
		idleTimeout: idleTimeout,
		logger:      logger.Named("heartbeat"),
	}
}

// Run sweeps on every interval until ctx is done.
func (k *Keeper) Run(ctx context.Context) {
	if k.interval <= 0 {
		k.logger.Warn("heartbeats disabled")
		return
	}

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			k.Sweep(now)
		}
	}
}

// Sweep closes idle channels and queues a heartbeat on the rest.
func (k *Keeper) Sweep(now time.Time) {
	var idle, sent int
	for _, ch := range k.registry.snapshot() {
		if k.idleTimeout > 0 && now.Sub(ch.LastActivity()) > k.idleTimeout {
			ch.CompleteWithError(notify.ErrIdleTimeout)
			idle++
			continue
		}
		if ch.SendHeartbeat() {
			sent++
		}
	}
	if idle > 0 {
		k.logger.Info("closed idle subscriber streams", zap.Int("count", idle))
	}
	k.logger.Debug("heartbeat sweep", zap.Int("sent", sent))
}
