package stream

import (
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/domain/notify"
)

const shardCount = 32

type shard struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

// Registry maps each subscriber to its single live channel. Operations on
// one subscriber are serialized by the shard that owns its id; different
// subscribers rarely contend.
type Registry struct {
	shards     [shardCount]*shard
	bufferSize int
	logger     *zap.Logger
}

// NewRegistry creates a registry whose channels buffer bufferSize frames.
func NewRegistry(bufferSize int, logger *zap.Logger) *Registry {
	r := &Registry{
		bufferSize: bufferSize,
		logger:     logger.Named("registry"),
	}
	for i := range r.shards {
		r.shards[i] = &shard{channels: make(map[string]*Channel)}
	}
	return r
}

// Open registers a live channel for subscriberID, completing any previous
// one with ErrSuperseded.
func (r *Registry) Open(subscriberID string) *Channel {
	return r.open(subscriberID, true)
}

// OpenReplaying registers a channel that queues live events until GoLive.
func (r *Registry) OpenReplaying(subscriberID string) *Channel {
	return r.open(subscriberID, false)
}

func (r *Registry) open(subscriberID string, live bool) *Channel {
	ch := newChannel(subscriberID, r.bufferSize, live, r.logger)

	s := r.shardFor(subscriberID)
	s.mu.Lock()
	old := s.channels[subscriberID]
	s.channels[subscriberID] = ch
	s.mu.Unlock()

	ch.onDone(r.remove)
	if old != nil {
		r.logger.Info("replacing subscriber stream",
			zap.String("subscriber_id", subscriberID),
			zap.String("old_channel_id", old.ID()),
			zap.String("channel_id", ch.ID()),
		)
		old.CompleteWithError(notify.ErrSuperseded)
	}

	r.logger.Debug("subscriber stream opened",
		zap.String("subscriber_id", subscriberID),
		zap.String("channel_id", ch.ID()),
		zap.Bool("live", live),
	)
	return ch
}

// Dispatch pushes ev to the subscriber's channel. It reports false when the
// subscriber is not connected or the push was not accepted; the event is
// already durable and will be replayed on reconnect.
func (r *Registry) Dispatch(subscriberID string, ev notify.SequencedEvent) bool {
	ch, ok := r.Lookup(subscriberID)
	if !ok {
		return false
	}
	return ch.Push(ev.Seq, ev.Body)
}

// Close completes the subscriber's channel, if any. It is idempotent.
func (r *Registry) Close(subscriberID string) {
	if ch, ok := r.Lookup(subscriberID); ok {
		ch.Complete()
	}
}

// Lookup returns the current channel of a subscriber.
func (r *Registry) Lookup(subscriberID string) (*Channel, bool) {
	s := r.shardFor(subscriberID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[subscriberID]
	return ch, ok
}

// Len returns the number of connected subscribers.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.channels)
		s.mu.RUnlock()
	}
	return n
}

// CloseAll completes every channel. Used on shutdown.
func (r *Registry) CloseAll() {
	channels := r.snapshot()
	for _, ch := range channels {
		ch.Complete()
	}
	r.logger.Info("closed all subscriber streams", zap.Int("count", len(channels)))
}

func (r *Registry) snapshot() []*Channel {
	var channels []*Channel
	for _, s := range r.shards {
		s.mu.RLock()
		for _, ch := range s.channels {
			channels = append(channels, ch)
		}
		s.mu.RUnlock()
	}
	return channels
}

// remove deletes ch only if it is still the subscriber's current channel, so
// a superseded channel never unregisters its successor.
func (r *Registry) remove(ch *Channel) {
	s := r.shardFor(ch.SubscriberID())
	s.mu.Lock()
	if s.channels[ch.SubscriberID()] == ch {
		delete(s.channels, ch.SubscriberID())
	}
	s.mu.Unlock()

	r.logger.Debug("subscriber stream closed",
		zap.String("subscriber_id", ch.SubscriberID()),
		zap.String("channel_id", ch.ID()),
		zap.Error(ch.Err()),
	)
}

func (r *Registry) shardFor(subscriberID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subscriberID))
	return r.shards[h.Sum32()%shardCount]
}
