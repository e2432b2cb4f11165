package events

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/domain/notify"
)

// ErrBusClosed is returned by Close when called twice.
var ErrBusClosed = errors.New("event bus closed")

// Handler consumes records delivered by the bus.
type Handler interface {
	// Name identifies the handler in logs
	Name() string
	// Handle processes one record; errors are logged by the bus
	Handle(ctx context.Context, rec notify.EventRecord) error
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, rec notify.EventRecord) error
}

func (h HandlerFunc) Name() string { return h.HandlerName }

func (h HandlerFunc) Handle(ctx context.Context, rec notify.EventRecord) error {
	return h.Fn(ctx, rec)
}

// Publisher is the only coupling point domain modules need.
type Publisher interface {
	// Publish enqueues rec and returns immediately; it never fails observably
	Publish(ctx context.Context, rec notify.EventRecord)
}

// EventBus decouples the write path from delivery.
type EventBus interface {
	Publisher

	// Subscribe registers a handler for every record
	Subscribe(handler Handler)

	// Close stops accepting records and waits for queued ones
	Close(ctx context.Context) error
}

// InMemoryEventBus runs handlers on a fixed pool of workers. Records are
// partitioned by subject id, so records about the same room or resource are
// handled one at a time in publish order.
type InMemoryEventBus struct {
	logger   *zap.Logger
	handlers []Handler
	queues   []chan notify.EventRecord
	baseCtx  context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryEventBus starts workers goroutines each buffering queueSize records.
func NewInMemoryEventBus(workers, queueSize int, logger *zap.Logger) *InMemoryEventBus {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &InMemoryEventBus{
		logger:  logger.Named("event-bus"),
		queues:  make([]chan notify.EventRecord, workers),
		baseCtx: ctx,
		cancel:  cancel,
	}
	for i := range b.queues {
		b.queues[i] = make(chan notify.EventRecord, queueSize)
		b.wg.Add(1)
		go b.work(b.queues[i])
	}
	return b
}

// Subscribe registers a handler. Handlers should be registered before the
// first Publish.
func (b *InMemoryEventBus) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers = append(b.handlers, handler)
	b.logger.Debug("event handler subscribed", zap.String("handler", handler.Name()))
}

// Publish enqueues rec on its partition. A full partition or a closed bus
// drops the record with an error log; the caller's write already succeeded.
func (b *InMemoryEventBus) Publish(_ context.Context, rec notify.EventRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Error("event dropped, bus closed", recordFields(rec)...)
		return
	}

	select {
	case b.queues[b.partition(rec.SubjectID())] <- rec:
	default:
		b.logger.Error("event dropped, bus saturated", recordFields(rec)...)
	}
}

// Close stops accepting records and waits until queued ones are handled or
// ctx is done, in which case running handlers see their context cancelled.
func (b *InMemoryEventBus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.closed = true
	for _, q := range b.queues {
		close(q)
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.cancel()
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		b.cancel()
		return fmt.Errorf("event bus drain: %w", ctx.Err())
	}
}

func (b *InMemoryEventBus) partition(subjectID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subjectID))
	return int(h.Sum32() % uint32(len(b.queues)))
}

func (b *InMemoryEventBus) work(queue <-chan notify.EventRecord) {
	defer b.wg.Done()
	for rec := range queue {
		b.dispatch(rec)
	}
}

func (b *InMemoryEventBus) dispatch(rec notify.EventRecord) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		b.runHandler(h, rec)
	}
}

// runHandler isolates one handler: its error or panic is logged and never
// reaches the other handlers.
func (b *InMemoryEventBus) runHandler(h Handler, rec notify.EventRecord) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				append(recordFields(rec),
					zap.String("handler", h.Name()),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
				)...)
		}
	}()

	if err := h.Handle(b.baseCtx, rec); err != nil {
		b.logger.Error("event handler failed",
			append(recordFields(rec), zap.String("handler", h.Name()), zap.Error(err))...)
	}
}

func recordFields(rec notify.EventRecord) []zap.Field {
	return []zap.Field{
		zap.String("kind", string(rec.Kind())),
		zap.String("subject_id", rec.SubjectID()),
		zap.String("actor", rec.Actor()),
	}
}
