//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks
package notify

import (
	"context"
	"time"
)

// EventStore is the durable, per-recipient ordered log used for replay.
type EventStore interface {
	// Append stores body for recipientID and returns its newly assigned seq.
	Append(ctx context.Context, recipientID string, body Body) (int64, error)

	// QueryAfter returns every event for recipientID with seq greater than
	// after, ascending by seq.
	QueryAfter(ctx context.Context, recipientID string, after int64) ([]SequencedEvent, error)
}

// ChatMessage is a stored chat room line.
type ChatMessage struct {
	ID        string
	RoomID    string
	SenderID  string
	Kind      Kind
	Content   string
	CreatedAt time.Time
}

// ChatMessageRepository persists chat room lines.
type ChatMessageRepository interface {
	SaveMessage(ctx context.Context, msg *ChatMessage) error
}

// Notification is a stored member notification.
type Notification struct {
	ID          string
	RecipientID string
	ActorID     string
	ResourceID  string
	Kind        Kind
	Content     string
	TargetURL   string
	CreatedAt   time.Time
}

// NotificationRepository persists member notifications.
type NotificationRepository interface {
	SaveNotification(ctx context.Context, n *Notification) error
}

// RoomDirectory resolves chat room membership.
type RoomDirectory interface {
	Members(ctx context.Context, roomID string) ([]string, error)
	AddMember(ctx context.Context, roomID, memberID string) error
	RemoveMember(ctx context.Context, roomID, memberID string) error
	IsMember(ctx context.Context, roomID, memberID string) (bool, error)
}
