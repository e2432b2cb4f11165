package gorm

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/matemarket/pulse/internal/domain/notify"
)

// EventStore implements notify.EventStore on the sequenced_events table.
type EventStore struct {
	db *gorm.DB
}

// NewEventStore creates a new GORM event store
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// Append persists body for recipientID and returns the assigned seq.
func (s *EventStore) Append(ctx context.Context, recipientID string, body notify.Body) (int64, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal body: %w", err)
	}

	model := SequencedEventModel{
		RecipientID: recipientID,
		Kind:        string(body.Kind),
		BodyID:      body.ID,
		Body:        data,
	}
	if err := conn(ctx, s.db).Create(&model).Error; err != nil {
		return 0, fmt.Errorf("append event for %s: %w", recipientID, err)
	}
	return model.Seq, nil
}

// QueryAfter returns the recipient's events with seq > after, ascending.
func (s *EventStore) QueryAfter(ctx context.Context, recipientID string, after int64) ([]notify.SequencedEvent, error) {
	var models []SequencedEventModel
	err := conn(ctx, s.db).
		Where("recipient_id = ? AND seq > ?", recipientID, after).
		Order("seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("query events after %d for %s: %w", after, recipientID, err)
	}

	events := make([]notify.SequencedEvent, len(models))
	for i, model := range models {
		var body notify.Body
		if err := json.Unmarshal(model.Body, &body); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", model.Seq, err)
		}
		events[i] = notify.SequencedEvent{
			Seq:         model.Seq,
			RecipientID: model.RecipientID,
			Body:        body,
		}
	}
	return events, nil
}
