package chat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/application/uow"
	"github.com/matemarket/pulse/internal/domain/notify"
	"github.com/matemarket/pulse/internal/events"
	apperrors "github.com/matemarket/pulse/pkg/errors"
)

// ApplicationService handles the chat room actions that produce deliveries
type ApplicationService struct {
	rooms      notify.RoomDirectory
	publisher  events.Publisher
	unitOfWork uow.UnitOfWork
	logger     *zap.Logger
}

// NewApplicationService creates a new chat application service. publisher
// should defer to commit, see events.NewTxPublisher.
func NewApplicationService(
	rooms notify.RoomDirectory,
	publisher events.Publisher,
	unitOfWork uow.UnitOfWork,
	logger *zap.Logger,
) *ApplicationService {
	return &ApplicationService{
		rooms:      rooms,
		publisher:  publisher,
		unitOfWork: unitOfWork,
		logger:     logger.Named("chat"),
	}
}

// EnterRoom adds the member to the room and announces it to the others
func (s *ApplicationService) EnterRoom(ctx context.Context, cmd EnterRoomCommand) error {
	rec, err := notify.NewChatRecord(cmd.RoomID, cmd.MemberID, notify.KindEnter, "")
	if err != nil {
		return invalid(err)
	}

	return uow.Do(ctx, s.unitOfWork, func(ctx context.Context) error {
		if err := s.rooms.AddMember(ctx, cmd.RoomID, cmd.MemberID); err != nil {
			return fmt.Errorf("entering room: %w", err)
		}
		s.publisher.Publish(ctx, rec)
		return nil
	})
}

// LeaveRoom removes the member from the room and announces it to the rest
func (s *ApplicationService) LeaveRoom(ctx context.Context, cmd LeaveRoomCommand) error {
	rec, err := notify.NewChatRecord(cmd.RoomID, cmd.MemberID, notify.KindLeave, "")
	if err != nil {
		return invalid(err)
	}

	return uow.Do(ctx, s.unitOfWork, func(ctx context.Context) error {
		if err := s.requireMember(ctx, cmd.RoomID, cmd.MemberID); err != nil {
			return err
		}
		if err := s.rooms.RemoveMember(ctx, cmd.RoomID, cmd.MemberID); err != nil {
			return fmt.Errorf("leaving room: %w", err)
		}
		s.publisher.Publish(ctx, rec)
		return nil
	})
}

// SendMessage posts a line to the room. Only members may post.
func (s *ApplicationService) SendMessage(ctx context.Context, cmd SendMessageCommand) error {
	rec, err := notify.NewChatRecord(cmd.RoomID, cmd.MemberID, notify.KindMessage, cmd.Text)
	if err != nil {
		return invalid(err)
	}

	return uow.Do(ctx, s.unitOfWork, func(ctx context.Context) error {
		if err := s.requireMember(ctx, cmd.RoomID, cmd.MemberID); err != nil {
			return err
		}
		s.publisher.Publish(ctx, rec)
		return nil
	})
}

func (s *ApplicationService) requireMember(ctx context.Context, roomID, memberID string) error {
	ok, err := s.rooms.IsMember(ctx, roomID, memberID)
	if err != nil {
		return fmt.Errorf("checking room membership: %w", err)
	}
	if !ok {
		s.logger.Debug("rejected non-member", zap.String("room_id", roomID), zap.String("member_id", memberID))
		return apperrors.Wrap(apperrors.ErrorTypeForbidden, "not a member of this room", notify.ErrNotRoomMember)
	}
	return nil
}

func invalid(err error) error {
	if errors.Is(err, notify.ErrInvalidRecord) {
		return apperrors.Wrap(apperrors.ErrorTypeBadRequest, "invalid chat action", err)
	}
	return err
}
