package gorm

import (
	"time"
)

// SequencedEventModel is one recipient-addressed delivery in the replay log.
// Seq is allocated by the database so that seq order is commit order for a
// recipient whose appends are serialized.
type SequencedEventModel struct {
	Seq         int64     `gorm:"primaryKey;autoIncrement;index:idx_sequenced_recipient_seq,priority:2"`
	RecipientID string    `gorm:"not null;index:idx_sequenced_recipient_seq,priority:1"`
	Kind        string    `gorm:"not null"`
	BodyID      string    `gorm:"not null"`
	Body        []byte    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (SequencedEventModel) TableName() string { return "sequenced_events" }

// ChatMessageModel represents a chat room line in the database
type ChatMessageModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	RoomID    string    `gorm:"not null;index"`
	SenderID  string    `gorm:"not null"`
	Kind      string    `gorm:"not null"`
	Content   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (ChatMessageModel) TableName() string { return "chat_messages" }

// NotificationModel represents a member notification in the database
type NotificationModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	RecipientID string `gorm:"not null;index"`
	ActorID     string `gorm:"not null"`
	ResourceID  string `gorm:"not null"`
	Kind        string `gorm:"not null"`
	Content     string `gorm:"not null"`
	TargetURL   string
	IsRead      bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (NotificationModel) TableName() string { return "notifications" }

// ChatRoomModel represents a chat room
type ChatRoomModel struct {
	ID        string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (ChatRoomModel) TableName() string { return "chat_rooms" }

// RoomMemberModel represents a member's presence in a room
type RoomMemberModel struct {
	RoomID   string    `gorm:"primaryKey"`
	MemberID string    `gorm:"primaryKey"`
	JoinedAt time.Time `gorm:"not null"`
}

func (RoomMemberModel) TableName() string { return "room_members" }

// allModels lists every table managed by AutoMigrate.
func allModels() []interface{} {
	return []interface{}{
		&SequencedEventModel{},
		&ChatMessageModel{},
		&NotificationModel{},
		&ChatRoomModel{},
		&RoomMemberModel{},
	}
}
