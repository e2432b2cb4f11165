package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/matemarket/pulse/internal/application/uow"
	"github.com/matemarket/pulse/internal/domain/notify"
	"github.com/matemarket/pulse/internal/domain/notify/mocks"
)

type inlineTx struct {
	ctx   context.Context
	hooks uow.Hooks
}

func (t *inlineTx) Commit() error            { t.hooks.Run(); return nil }
func (t *inlineTx) Rollback() error          { t.hooks.Discard(); return nil }
func (t *inlineTx) Context() context.Context { return t.ctx }
func (t *inlineTx) AfterCommit(fn func())    { t.hooks.Add(fn) }

type inlineUoW struct{}

func (inlineUoW) Begin(ctx context.Context) (uow.Transaction, error) {
	tx := &inlineTx{}
	tx.ctx = uow.WithTransaction(ctx, tx)
	return tx, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	online map[string]bool
	got    []notify.SequencedEvent
}

func (d *recordingDispatcher) Dispatch(subscriberID string, ev notify.SequencedEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, ev)
	return d.online[subscriberID]
}

type mockedHandler struct {
	rooms         *mocks.MockRoomDirectory
	messages      *mocks.MockChatMessageRepository
	notifications *mocks.MockNotificationRepository
	store         *mocks.MockEventStore
	dispatcher    *recordingDispatcher
	handler       *EventHandler
}

func newMockedHandler(t *testing.T) *mockedHandler {
	ctrl := gomock.NewController(t)
	m := &mockedHandler{
		rooms:         mocks.NewMockRoomDirectory(ctrl),
		messages:      mocks.NewMockChatMessageRepository(ctrl),
		notifications: mocks.NewMockNotificationRepository(ctrl),
		store:         mocks.NewMockEventStore(ctrl),
		dispatcher:    &recordingDispatcher{online: map[string]bool{}},
	}
	m.handler = NewEventHandler(inlineUoW{}, m.rooms, m.messages, m.notifications, m.store, m.dispatcher, zaptest.NewLogger(t))
	return m
}

func TestEventHandler_MembersLookupFails(t *testing.T) {
	m := newMockedHandler(t)
	rec, err := notify.NewChatRecord("room-1", "alice", notify.KindMessage, "hi")
	require.NoError(t, err)

	m.rooms.EXPECT().Members(gomock.Any(), "room-1").Return(nil, errors.New("connection reset"))
	m.messages.EXPECT().SaveMessage(gomock.Any(), gomock.Any()).Times(0)
	m.store.EXPECT().Append(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	err = m.handler.Handle(context.Background(), rec)
	assert.Error(t, err)
	assert.Empty(t, m.dispatcher.got)
}

func TestEventHandler_SaveFailureSkipsDelivery(t *testing.T) {
	m := newMockedHandler(t)
	rec, err := notify.NewChatRecord("room-1", "alice", notify.KindMessage, "hi")
	require.NoError(t, err)

	m.rooms.EXPECT().Members(gomock.Any(), "room-1").Return([]string{"alice", "bob"}, nil)
	m.messages.EXPECT().SaveMessage(gomock.Any(), gomock.Any()).Return(errors.New("constraint violation"))
	m.store.EXPECT().Append(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	err = m.handler.Handle(context.Background(), rec)
	assert.Error(t, err)
	assert.Empty(t, m.dispatcher.got)
}

func TestEventHandler_DeduplicatesRecipients(t *testing.T) {
	m := newMockedHandler(t)
	m.dispatcher.online["bob"] = true
	rec, err := notify.NewChatRecord("room-1", "alice", notify.KindMessage, "hi")
	require.NoError(t, err)

	m.rooms.EXPECT().Members(gomock.Any(), "room-1").Return([]string{"bob", "alice", "carol", "bob"}, nil)
	m.messages.EXPECT().SaveMessage(gomock.Any(), gomock.Any()).Return(nil)
	gomock.InOrder(
		m.store.EXPECT().Append(gomock.Any(), "bob", gomock.Any()).Return(int64(7), nil),
		m.store.EXPECT().Append(gomock.Any(), "carol", gomock.Any()).Return(int64(8), nil),
	)

	require.NoError(t, m.handler.Handle(context.Background(), rec))

	require.Len(t, m.dispatcher.got, 2)
	assert.Equal(t, "bob", m.dispatcher.got[0].RecipientID)
	assert.Equal(t, int64(7), m.dispatcher.got[0].Seq)
	assert.Equal(t, "carol", m.dispatcher.got[1].RecipientID)
	assert.Equal(t, int64(8), m.dispatcher.got[1].Seq)
	assert.Equal(t, "hi", m.dispatcher.got[1].Body.Content)
}
