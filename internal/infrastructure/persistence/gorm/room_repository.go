package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/matemarket/pulse/internal/domain/notify"
)

// RoomRepository implements notify.RoomDirectory
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository creates a new GORM room repository
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Members returns the room's members in join order.
func (r *RoomRepository) Members(ctx context.Context, roomID string) ([]string, error) {
	var room ChatRoomModel
	if err := conn(ctx, r.db).Where("id = ?", roomID).Take(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notify.ErrRoomNotFound
		}
		return nil, fmt.Errorf("load room: %w", err)
	}

	var members []string
	err := conn(ctx, r.db).Model(&RoomMemberModel{}).
		Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Pluck("member_id", &members).Error
	if err != nil {
		return nil, fmt.Errorf("list room members: %w", err)
	}
	return members, nil
}

// AddMember adds memberID to the room, creating the room on first use.
// Adding an existing member is a no-op.
func (r *RoomRepository) AddMember(ctx context.Context, roomID, memberID string) error {
	db := conn(ctx, r.db)
	now := time.Now().UTC()

	room := ChatRoomModel{ID: roomID, CreatedAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&room).Error; err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	member := RoomMemberModel{RoomID: roomID, MemberID: memberID, JoinedAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
		return fmt.Errorf("add room member: %w", err)
	}
	return nil
}

// RemoveMember removes memberID from the room.
func (r *RoomRepository) RemoveMember(ctx context.Context, roomID, memberID string) error {
	err := conn(ctx, r.db).
		Where("room_id = ? AND member_id = ?", roomID, memberID).
		Delete(&RoomMemberModel{}).Error
	if err != nil {
		return fmt.Errorf("remove room member: %w", err)
	}
	return nil
}

// IsMember reports whether memberID is currently in the room.
func (r *RoomRepository) IsMember(ctx context.Context, roomID, memberID string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&RoomMemberModel{}).
		Where("room_id = ? AND member_id = ?", roomID, memberID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check room member: %w", err)
	}
	return count > 0, nil
}
