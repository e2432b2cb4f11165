package gorm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matemarket/pulse/internal/domain/notify"
)

// NotificationRepository implements notify.NotificationRepository
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new GORM notification repository
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// SaveNotification stores n, filling in its ID and CreatedAt when unset.
func (r *NotificationRepository) SaveNotification(ctx context.Context, n *notify.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	model := NotificationModel{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		ActorID:     n.ActorID,
		ResourceID:  n.ResourceID,
		Kind:        string(n.Kind),
		Content:     n.Content,
		TargetURL:   n.TargetURL,
		CreatedAt:   n.CreatedAt,
	}
	if err := conn(ctx, r.db).Create(&model).Error; err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	n.CreatedAt = model.CreatedAt
	return nil
}

// CountUnread returns how many notifications recipientID has not read.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&NotificationModel{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
