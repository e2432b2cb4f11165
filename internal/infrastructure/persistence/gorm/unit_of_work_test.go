package gorm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/matemarket/pulse/internal/application/uow"
	"github.com/matemarket/pulse/internal/domain/notify"
)

type UnitOfWorkTestSuite struct {
	suite.Suite

	ctx   context.Context
	uow   *UnitOfWork
	rooms *RoomRepository
	chat  *ChatMessageRepository
}

func (suite *UnitOfWorkTestSuite) SetupTest() {
	db := NewTestDB(suite.T())
	suite.ctx = context.Background()
	suite.uow = NewUnitOfWork(db)
	suite.rooms = NewRoomRepository(db)
	suite.chat = NewChatMessageRepository(db)
}

func (suite *UnitOfWorkTestSuite) TestCommitRunsHooksAfterWrite() {
	var membersAtHook []string

	err := uow.Do(suite.ctx, suite.uow, func(ctx context.Context) error {
		if err := suite.rooms.AddMember(ctx, "room-1", "alice"); err != nil {
			return err
		}
		tx, ok := uow.FromContext(ctx)
		suite.Require().True(ok)
		tx.AfterCommit(func() {
			membersAtHook, _ = suite.rooms.Members(suite.ctx, "room-1")
		})
		return nil
	})

	suite.Require().NoError(err)
	suite.Equal([]string{"alice"}, membersAtHook)
}

func (suite *UnitOfWorkTestSuite) TestRollbackDiscardsWritesAndHooks() {
	hookRan := false
	boom := errors.New("boom")

	err := uow.Do(suite.ctx, suite.uow, func(ctx context.Context) error {
		if err := suite.chat.SaveMessage(ctx, &notify.ChatMessage{RoomID: "room-1", SenderID: "alice", Kind: notify.KindMessage, Content: "hi"}); err != nil {
			return err
		}
		tx, _ := uow.FromContext(ctx)
		tx.AfterCommit(func() { hookRan = true })
		return boom
	})

	suite.ErrorIs(err, boom)
	suite.False(hookRan)

	msgs, err := suite.chat.ListMessages(suite.ctx, "room-1")
	suite.Require().NoError(err)
	suite.Empty(msgs)
}

func (suite *UnitOfWorkTestSuite) TestRoomMembership() {
	suite.Require().NoError(suite.rooms.AddMember(suite.ctx, "room-2", "alice"))
	suite.Require().NoError(suite.rooms.AddMember(suite.ctx, "room-2", "bob"))
	suite.Require().NoError(suite.rooms.AddMember(suite.ctx, "room-2", "bob"))

	members, err := suite.rooms.Members(suite.ctx, "room-2")
	suite.Require().NoError(err)
	suite.ElementsMatch([]string{"alice", "bob"}, members)

	suite.Require().NoError(suite.rooms.RemoveMember(suite.ctx, "room-2", "alice"))
	ok, err := suite.rooms.IsMember(suite.ctx, "room-2", "alice")
	suite.Require().NoError(err)
	suite.False(ok)

	_, err = suite.rooms.Members(suite.ctx, "missing")
	suite.ErrorIs(err, notify.ErrRoomNotFound)
}

func (suite *UnitOfWorkTestSuite) TestNotificationUnreadCount() {
	repo := NewNotificationRepository(suite.uow.db)
	n := &notify.Notification{RecipientID: "alice", ActorID: "bob", ResourceID: "goods-1", Kind: notify.KindTrade, Content: "sold"}
	suite.Require().NoError(repo.SaveNotification(suite.ctx, n))
	suite.NotEmpty(n.ID)

	count, err := repo.CountUnread(suite.ctx, "alice")
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)
}

func TestUnitOfWorkTestSuite(t *testing.T) {
	suite.Run(t, new(UnitOfWorkTestSuite))
}
