package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/config"
	"github.com/matemarket/pulse/internal/domain/notify"
)

// NATSEventBus carries records over a NATS subject and hands them to a local
// worker pool. Subscribing through a queue group keeps each record handled
// once by this process even when the connection is shared.
type NATSEventBus struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	workers *InMemoryEventBus
	logger  *zap.Logger
}

// NewNATSEventBus connects to NATS and starts consuming the configured subject.
func NewNATSEventBus(cfg *config.Config, logger *zap.Logger) (*NATSEventBus, error) {
	logger = logger.Named("nats-bus")

	opts := []nats.Option{
		nats.Name(cfg.Server.ServiceName),
		nats.MaxReconnects(cfg.NATS.MaxReconnect),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS async error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	b := &NATSEventBus{
		nc:      nc,
		subject: cfg.NATS.Subject,
		workers: NewInMemoryEventBus(cfg.Bus.Workers, cfg.Bus.QueueSize, logger),
		logger:  logger,
	}

	b.sub, err = nc.QueueSubscribe(cfg.NATS.Subject, cfg.NATS.QueueGroup, b.receive)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", cfg.NATS.Subject, err)
	}
	if err := nc.Flush(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to flush subscription: %w", err)
	}

	logger.Info("NATS event bus ready",
		zap.String("url", cfg.NATS.URL),
		zap.String("subject", cfg.NATS.Subject),
	)
	return b, nil
}

// Subscribe registers a handler on the local worker pool.
func (b *NATSEventBus) Subscribe(handler Handler) {
	b.workers.Subscribe(handler)
}

// Publish sends rec to NATS. The client buffers outgoing messages, so this
// does not wait for the server; failures are logged and dropped.
func (b *NATSEventBus) Publish(_ context.Context, rec notify.EventRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		b.logger.Error("event dropped, marshal failed", append(recordFields(rec), zap.Error(err))...)
		return
	}
	if err := b.nc.Publish(b.subject, data); err != nil {
		b.logger.Error("event dropped, publish failed", append(recordFields(rec), zap.Error(err))...)
	}
}

func (b *NATSEventBus) receive(msg *nats.Msg) {
	rec, err := notify.DecodeRecord(msg.Data)
	if err != nil {
		b.logger.Error("discarding undecodable event", zap.Error(err))
		return
	}
	b.workers.Publish(context.Background(), rec)
}

// Close drains the subscription, then the worker pool, then the connection.
func (b *NATSEventBus) Close(ctx context.Context) error {
	if err := b.sub.Drain(); err != nil {
		b.logger.Warn("draining NATS subscription", zap.Error(err))
	}
	for b.sub.IsValid() {
		select {
		case <-ctx.Done():
			b.nc.Close()
			return fmt.Errorf("NATS drain: %w", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
	err := b.workers.Close(ctx)
	b.nc.Close()
	return err
}
