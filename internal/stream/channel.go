package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/domain/notify"
)

// Frame is one unit written to a subscriber. Heartbeat frames carry no id
// and no data.
type Frame struct {
	ID        string
	Event     string
	Data      []byte
	Heartbeat bool
}

type channelState int

const (
	stateReplaying channelState = iota
	stateLive
	stateClosed
)

// Channel is the outbound half of one subscriber connection. Frames are
// buffered; a transport goroutine drains Frames until Done is closed.
type Channel struct {
	subscriberID string
	id           string
	frames       chan Frame
	done         chan struct{}
	logger       *zap.Logger
	lastActivity atomic.Int64

	mu         sync.Mutex
	state      channelState
	lastSeq    int64
	pending    []notify.SequencedEvent
	err        error
	onComplete []func(*Channel)
}

func newChannel(subscriberID string, bufferSize int, live bool, logger *zap.Logger) *Channel {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	id := uuid.NewString()
	c := &Channel{
		subscriberID: subscriberID,
		id:           id,
		frames:       make(chan Frame, bufferSize),
		done:         make(chan struct{}),
		logger:       logger.With(zap.String("subscriber_id", subscriberID), zap.String("channel_id", id)),
		state:        stateReplaying,
	}
	if live {
		c.state = stateLive
	}
	c.MarkActive()
	return c
}

// SubscriberID returns the member this channel delivers to.
func (c *Channel) SubscriberID() string { return c.subscriberID }

// ID identifies this connection instance.
func (c *Channel) ID() string { return c.id }

// Frames returns the outbound frame queue.
func (c *Channel) Frames() <-chan Frame { return c.frames }

// Done is closed once the channel has completed.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Err returns the error the channel completed with, nil while open or after
// a clean Complete.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// LastDeliveredSeq returns the highest seq handed to the transport.
func (c *Channel) LastDeliveredSeq() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeq
}

// MarkActive records that the transport just wrote a frame.
func (c *Channel) MarkActive() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns when the transport last wrote a frame.
func (c *Channel) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// Push delivers a live event. While the channel is replaying the event is
// queued and delivered by GoLive. Events at or below the last delivered seq
// are dropped. A full buffer completes the channel with ErrSlowSubscriber.
func (c *Channel) Push(seq int64, body notify.Body) bool {
	c.mu.Lock()
	var (
		ok        bool
		callbacks []func(*Channel)
	)
	switch c.state {
	case stateClosed:
		c.logger.Debug("push after completion ignored", zap.Int64("seq", seq))
	case stateReplaying:
		if len(c.pending) >= cap(c.frames) {
			callbacks = c.closeLocked(notify.ErrSlowSubscriber)
			break
		}
		c.pending = append(c.pending, notify.SequencedEvent{Seq: seq, RecipientID: c.subscriberID, Body: body})
		ok = true
	default:
		ok, callbacks = c.pushLocked(seq, body)
	}
	c.mu.Unlock()

	runCallbacks(c, callbacks)
	return ok
}

// SendHeartbeat queues a keep-alive frame. It reports false when the channel
// is closed or already has frames waiting, in which case no keep-alive is
// needed.
func (c *Channel) SendHeartbeat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return false
	}
	select {
	case c.frames <- Frame{Heartbeat: true}:
		return true
	default:
		return false
	}
}

// GoLive ends replay: queued live events are delivered in order, skipping
// those the replay already covered.
func (c *Channel) GoLive() {
	c.mu.Lock()
	if c.state != stateReplaying {
		c.mu.Unlock()
		return
	}
	pending := c.pending
	c.pending = nil
	c.state = stateLive

	var callbacks []func(*Channel)
	for _, ev := range pending {
		_, callbacks = c.pushLocked(ev.Seq, ev.Body)
		if c.state == stateClosed {
			break
		}
	}
	c.mu.Unlock()

	runCallbacks(c, callbacks)
}

// Complete closes the channel normally.
func (c *Channel) Complete() {
	c.CompleteWithError(nil)
}

// CompleteWithError closes the channel, recording err. Only the first call
// has an effect.
func (c *Channel) CompleteWithError(err error) {
	c.mu.Lock()
	callbacks := c.closeLocked(err)
	c.mu.Unlock()

	runCallbacks(c, callbacks)
}

// onDone registers fn to run once the channel completes, immediately when it
// already has.
func (c *Channel) onDone(fn func(*Channel)) {
	c.mu.Lock()
	if c.state != stateClosed {
		c.onComplete = append(c.onComplete, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn(c)
}

// resumeAfter sets the cursor the client reported before replay starts.
func (c *Channel) resumeAfter(seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateReplaying && seq > c.lastSeq {
		c.lastSeq = seq
	}
}

// pushReplayed hands a stored event to the transport, waiting for buffer
// space. Only replay writes data frames while the channel is replaying, so
// the wait does not hold the lock.
func (c *Channel) pushReplayed(ctx context.Context, ev notify.SequencedEvent) bool {
	c.mu.Lock()
	replaying, seen := c.state == stateReplaying, ev.Seq <= c.lastSeq
	c.mu.Unlock()
	if !replaying || seen {
		return replaying
	}

	frame, err := encodeFrame(ev.Seq, ev.Body)
	if err != nil {
		c.logger.Error("dropping unencodable event", zap.Int64("seq", ev.Seq), zap.Error(err))
		return true
	}

	select {
	case c.frames <- frame:
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.Seq > c.lastSeq {
		c.lastSeq = ev.Seq
	}
	return c.state == stateReplaying
}

func (c *Channel) pushLocked(seq int64, body notify.Body) (bool, []func(*Channel)) {
	if c.state == stateClosed {
		return false, nil
	}
	if seq <= c.lastSeq {
		c.logger.Debug("duplicate event skipped", zap.Int64("seq", seq), zap.Int64("last_seq", c.lastSeq))
		return false, nil
	}

	frame, err := encodeFrame(seq, body)
	if err != nil {
		c.logger.Error("dropping unencodable event", zap.Int64("seq", seq), zap.Error(err))
		return false, nil
	}

	select {
	case c.frames <- frame:
		c.lastSeq = seq
		return true, nil
	default:
		c.logger.Warn("subscriber buffer full, closing stream", zap.Int64("seq", seq))
		return false, c.closeLocked(notify.ErrSlowSubscriber)
	}
}

func (c *Channel) closeLocked(err error) []func(*Channel) {
	if c.state == stateClosed {
		return nil
	}
	c.state = stateClosed
	c.err = err
	c.pending = nil
	close(c.done)

	callbacks := c.onComplete
	c.onComplete = nil
	return callbacks
}

func runCallbacks(c *Channel, callbacks []func(*Channel)) {
	for _, fn := range callbacks {
		fn(c)
	}
}

func encodeFrame(seq int64, body notify.Body) (Frame, error) {
	data, err := body.Encode()
	if err != nil {
		return Frame{}, err
	}
	return Frame{ID: notify.FormatSeq(seq), Event: string(body.Kind), Data: data}, nil
}
