package stream

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/domain/notify"
	apperrors "github.com/matemarket/pulse/pkg/errors"
)

// Coordinator opens subscriber channels, replaying what a reconnecting
// client missed before live delivery resumes.
type Coordinator struct {
	store    notify.EventStore
	registry *Registry
	logger   *zap.Logger
}

// NewCoordinator creates a replay coordinator.
func NewCoordinator(store notify.EventStore, registry *Registry, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		registry: registry,
		logger:   logger.Named("replay"),
	}
}

// Resume returns the subscriber's stored events after lastSeenSeq, ascending.
func (c *Coordinator) Resume(ctx context.Context, subscriberID string, lastSeenSeq int64) ([]notify.SequencedEvent, error) {
	events, err := c.store.QueryAfter(ctx, subscriberID, lastSeenSeq)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeUnavailable, "failed to load missed events", err)
	}
	return events, nil
}

// Subscribe opens the subscriber's channel. An empty cursor starts live
// delivery directly. Otherwise the channel is registered first so live
// events are queued, the missed events are loaded, and replay runs in the
// background ahead of the queued live events. A failed load completes the
// channel and is returned.
func (c *Coordinator) Subscribe(ctx context.Context, subscriberID, cursor string) (*Channel, error) {
	lastSeen, resume, err := notify.ParseCursor(cursor)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeBadRequest, fmt.Sprintf("invalid last event id %q", cursor), err)
	}
	if !resume {
		return c.registry.Open(subscriberID), nil
	}

	ch := c.registry.OpenReplaying(subscriberID)
	ch.resumeAfter(lastSeen)

	events, err := c.Resume(ctx, subscriberID, lastSeen)
	if err != nil {
		c.logger.Error("replay failed",
			zap.String("subscriber_id", subscriberID),
			zap.Int64("after", lastSeen),
			zap.Error(err),
		)
		ch.CompleteWithError(err)
		return nil, err
	}

	c.logger.Debug("replaying missed events",
		zap.String("subscriber_id", subscriberID),
		zap.Int64("after", lastSeen),
		zap.Int("count", len(events)),
	)
	go c.replay(ctx, ch, events)
	return ch, nil
}

func (c *Coordinator) replay(ctx context.Context, ch *Channel, events []notify.SequencedEvent) {
	for _, ev := range events {
		if !ch.pushReplayed(ctx, ev) {
			return
		}
	}
	ch.GoLive()
}
