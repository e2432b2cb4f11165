package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/config"
	"github.com/matemarket/pulse/internal/domain/notify"
)

// KafkaEventBus carries records over a Kafka topic and hands them to a local
// worker pool. Messages are keyed by subject id, so records about one room
// or resource stay on one partition and keep their order.
type KafkaEventBus struct {
	producer sarama.AsyncProducer
	group    sarama.ConsumerGroup
	topic    string
	workers  *InMemoryEventBus
	logger   *zap.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewKafkaEventBus connects the producer and the consumer group.
func NewKafkaEventBus(cfg *config.Config, logger *zap.Logger) (*KafkaEventBus, error) {
	brokers := cfg.Kafka.BrokerList()

	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = cfg.Server.ServiceName
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Consumer.Return.Errors = true
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest

	producer, err := sarama.NewAsyncProducer(brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}
	group, err := sarama.NewConsumerGroup(brokers, cfg.Kafka.GroupID, saramaCfg)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	b := newKafkaEventBus(producer, group, cfg.Kafka.Topic,
		NewInMemoryEventBus(cfg.Bus.Workers, cfg.Bus.QueueSize, logger), logger)
	logger.Info("Kafka event bus ready",
		zap.Strings("brokers", brokers),
		zap.String("topic", cfg.Kafka.Topic),
	)
	return b, nil
}

func newKafkaEventBus(producer sarama.AsyncProducer, group sarama.ConsumerGroup, topic string, workers *InMemoryEventBus, logger *zap.Logger) *KafkaEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &KafkaEventBus{
		producer: producer,
		group:    group,
		topic:    topic,
		workers:  workers,
		logger:   logger.Named("kafka-bus"),
		cancel:   cancel,
	}

	b.wg.Add(2)
	go b.logProducerErrors()
	go b.consume(ctx)
	return b
}

// Subscribe registers a handler on the local worker pool.
func (b *KafkaEventBus) Subscribe(handler Handler) {
	b.workers.Subscribe(handler)
}

// Publish queues rec on the async producer. A full producer buffer drops the
// record; delivery failures are logged.
func (b *KafkaEventBus) Publish(_ context.Context, rec notify.EventRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		b.logger.Error("event dropped, marshal failed", append(recordFields(rec), zap.Error(err))...)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(rec.SubjectID()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(rec.Kind())},
		},
	}
	select {
	case b.producer.Input() <- msg:
	default:
		b.logger.Error("event dropped, producer saturated", recordFields(rec)...)
	}
}

func (b *KafkaEventBus) logProducerErrors() {
	defer b.wg.Done()
	for perr := range b.producer.Errors() {
		b.logger.Error("event dropped, produce failed", zap.String("topic", perr.Msg.Topic), zap.Error(perr.Err))
	}
}

func (b *KafkaEventBus) consume(ctx context.Context) {
	defer b.wg.Done()
	for {
		if err := b.group.Consume(ctx, []string{b.topic}, b); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			b.logger.Error("consumer group session ended", zap.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Setup implements sarama.ConsumerGroupHandler
func (b *KafkaEventBus) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler
func (b *KafkaEventBus) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim implements sarama.ConsumerGroupHandler. Offsets are marked
// once the record is queued on the local worker pool.
func (b *KafkaEventBus) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			rec, err := notify.DecodeRecord(msg.Value)
			if err != nil {
				b.logger.Error("discarding undecodable event", zap.Int64("offset", msg.Offset), zap.Error(err))
			} else {
				b.workers.Publish(session.Context(), rec)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// Close stops consuming, flushes the producer and drains the worker pool.
func (b *KafkaEventBus) Close(ctx context.Context) error {
	b.cancel()
	var errs []error
	if err := b.group.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing consumer group: %w", err))
	}
	if err := b.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing producer: %w", err))
	}
	b.wg.Wait()
	if err := b.workers.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
