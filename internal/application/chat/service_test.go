package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/matemarket/pulse/internal/domain/notify"
	"github.com/matemarket/pulse/internal/events"
	persistence "github.com/matemarket/pulse/internal/infrastructure/persistence/gorm"
	apperrors "github.com/matemarket/pulse/pkg/errors"
)

type recordingPublisher struct {
	mu  sync.Mutex
	got []notify.EventRecord
}

func (p *recordingPublisher) Publish(_ context.Context, rec notify.EventRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, rec)
}

type ChatServiceTestSuite struct {
	suite.Suite

	ctx     context.Context
	rooms   *persistence.RoomRepository
	bus     *recordingPublisher
	service *ApplicationService
}

func (suite *ChatServiceTestSuite) SetupTest() {
	db := persistence.NewTestDB(suite.T())
	suite.ctx = context.Background()
	suite.rooms = persistence.NewRoomRepository(db)
	suite.bus = &recordingPublisher{}
	suite.service = NewApplicationService(
		suite.rooms,
		events.NewTxPublisher(suite.bus),
		persistence.NewUnitOfWork(db),
		zaptest.NewLogger(suite.T()),
	)
}

func (suite *ChatServiceTestSuite) TestEnterRoomPublishesAfterCommit() {
	err := suite.service.EnterRoom(suite.ctx, EnterRoomCommand{RoomID: "room-1", MemberID: "alice"})
	suite.Require().NoError(err)

	ok, err := suite.rooms.IsMember(suite.ctx, "room-1", "alice")
	suite.Require().NoError(err)
	suite.True(ok)

	suite.Require().Len(suite.bus.got, 1)
	suite.Equal(notify.KindEnter, suite.bus.got[0].Kind())
	suite.Equal("alice", suite.bus.got[0].Actor())
}

func (suite *ChatServiceTestSuite) TestSendMessageRequiresMembership() {
	err := suite.service.SendMessage(suite.ctx, SendMessageCommand{RoomID: "room-1", MemberID: "mallory", Text: "hi"})

	suite.True(apperrors.IsForbidden(err))
	suite.ErrorIs(err, notify.ErrNotRoomMember)
	suite.Empty(suite.bus.got)
}

func (suite *ChatServiceTestSuite) TestSendMessageRejectsEmptyText() {
	suite.Require().NoError(suite.service.EnterRoom(suite.ctx, EnterRoomCommand{RoomID: "room-1", MemberID: "alice"}))

	err := suite.service.SendMessage(suite.ctx, SendMessageCommand{RoomID: "room-1", MemberID: "alice", Text: "  "})

	suite.True(apperrors.IsBadRequest(err))
	suite.Len(suite.bus.got, 1)
}

func (suite *ChatServiceTestSuite) TestSendMessage() {
	suite.Require().NoError(suite.service.EnterRoom(suite.ctx, EnterRoomCommand{RoomID: "room-1", MemberID: "alice"}))

	err := suite.service.SendMessage(suite.ctx, SendMessageCommand{RoomID: "room-1", MemberID: "alice", Text: "hello"})
	suite.Require().NoError(err)

	suite.Require().Len(suite.bus.got, 2)
	suite.Equal(notify.KindMessage, suite.bus.got[1].Kind())
	suite.Equal("hello", suite.bus.got[1].Payload().Text)
}

func (suite *ChatServiceTestSuite) TestLeaveRoom() {
	suite.Require().NoError(suite.service.EnterRoom(suite.ctx, EnterRoomCommand{RoomID: "room-1", MemberID: "alice"}))
	suite.Require().NoError(suite.service.LeaveRoom(suite.ctx, LeaveRoomCommand{RoomID: "room-1", MemberID: "alice"}))

	ok, err := suite.rooms.IsMember(suite.ctx, "room-1", "alice")
	suite.Require().NoError(err)
	suite.False(ok)
	suite.Require().Len(suite.bus.got, 2)
	suite.Equal(notify.KindLeave, suite.bus.got[1].Kind())

	err = suite.service.LeaveRoom(suite.ctx, LeaveRoomCommand{RoomID: "room-1", MemberID: "alice"})
	suite.True(apperrors.IsForbidden(err))
	suite.Len(suite.bus.got, 2)
}

func TestChatServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ChatServiceTestSuite))
}
