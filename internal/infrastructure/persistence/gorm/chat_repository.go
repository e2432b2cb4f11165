package gorm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matemarket/pulse/internal/domain/notify"
)

// ChatMessageRepository implements notify.ChatMessageRepository
type ChatMessageRepository struct {
	db *gorm.DB
}

// NewChatMessageRepository creates a new GORM chat message repository
func NewChatMessageRepository(db *gorm.DB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

// SaveMessage stores msg, filling in its ID and CreatedAt when unset.
func (r *ChatMessageRepository) SaveMessage(ctx context.Context, msg *notify.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	model := ChatMessageModel{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Kind:      string(msg.Kind),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if err := conn(ctx, r.db).Create(&model).Error; err != nil {
		return fmt.Errorf("save chat message: %w", err)
	}
	msg.CreatedAt = model.CreatedAt
	return nil
}

// ListMessages returns the room's messages, oldest first.
func (r *ChatMessageRepository) ListMessages(ctx context.Context, roomID string) ([]notify.ChatMessage, error) {
	var models []ChatMessageModel
	if err := conn(ctx, r.db).Where("room_id = ?", roomID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	msgs := make([]notify.ChatMessage, len(models))
	for i, m := range models {
		msgs[i] = notify.ChatMessage{
			ID:        m.ID,
			RoomID:    m.RoomID,
			SenderID:  m.SenderID,
			Kind:      notify.Kind(m.Kind),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return msgs, nil
}
