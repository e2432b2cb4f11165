package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/matemarket/pulse/internal/application/chat"
	"github.com/matemarket/pulse/internal/application/notification"
	"github.com/matemarket/pulse/internal/domain/notify"
	"github.com/matemarket/pulse/pkg/auth"
	apperrors "github.com/matemarket/pulse/pkg/errors"
)

type fakeChat struct {
	entered []chat.EnterRoomCommand
	left    []chat.LeaveRoomCommand
	sent    []chat.SendMessageCommand
	err     error
}

func (f *fakeChat) EnterRoom(_ context.Context, cmd chat.EnterRoomCommand) error {
	f.entered = append(f.entered, cmd)
	return f.err
}

func (f *fakeChat) LeaveRoom(_ context.Context, cmd chat.LeaveRoomCommand) error {
	f.left = append(f.left, cmd)
	return f.err
}

func (f *fakeChat) SendMessage(_ context.Context, cmd chat.SendMessageCommand) error {
	f.sent = append(f.sent, cmd)
	return f.err
}

type fakeNotifier struct {
	got []notification.NotifyCommand
}

func (f *fakeNotifier) Notify(_ context.Context, cmd notification.NotifyCommand) error {
	f.got = append(f.got, cmd)
	return nil
}

func setup(t *testing.T) (*httptest.Server, *fakeChat, *fakeNotifier, string) {
	t.Helper()
	jwt := auth.NewJWTManager("test-secret", "matemarket")
	chatSvc := &fakeChat{}
	notifier := &fakeNotifier{}

	mux := runtime.NewServeMux()
	require.NoError(t, NewHandler(chatSvc, notifier, jwt, zaptest.NewLogger(t)).Register(mux))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	token, err := jwt.IssueAccessToken("alice", "alice", time.Hour)
	require.NoError(t, err)
	return srv, chatSvc, notifier, token
}

func post(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRoomActions(t *testing.T) {
	srv, chatSvc, _, token := setup(t)

	assert.Equal(t, http.StatusAccepted, post(t, srv.URL+"/api/v1/rooms/room-1/enter", token, "").StatusCode)
	assert.Equal(t, http.StatusAccepted, post(t, srv.URL+"/api/v1/rooms/room-1/messages", token, `{"text":"hi"}`).StatusCode)
	assert.Equal(t, http.StatusAccepted, post(t, srv.URL+"/api/v1/rooms/room-1/leave", token, "").StatusCode)

	assert.Equal(t, []chat.EnterRoomCommand{{RoomID: "room-1", MemberID: "alice"}}, chatSvc.entered)
	assert.Equal(t, []chat.SendMessageCommand{{RoomID: "room-1", MemberID: "alice", Text: "hi"}}, chatSvc.sent)
	assert.Equal(t, []chat.LeaveRoomCommand{{RoomID: "room-1", MemberID: "alice"}}, chatSvc.left)
}

func TestRoomActions_Errors(t *testing.T) {
	srv, chatSvc, _, token := setup(t)

	assert.Equal(t, http.StatusUnauthorized, post(t, srv.URL+"/api/v1/rooms/room-1/enter", "", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/api/v1/rooms/room-1/messages", token, `{`).StatusCode)

	chatSvc.err = apperrors.Wrap(apperrors.ErrorTypeForbidden, "not a member of this room", notify.ErrNotRoomMember)
	assert.Equal(t, http.StatusForbidden, post(t, srv.URL+"/api/v1/rooms/room-1/messages", token, `{"text":"hi"}`).StatusCode)
}

func TestNotify(t *testing.T) {
	srv, _, notifier, token := setup(t)

	resp := post(t, srv.URL+"/api/v1/notifications", token,
		`{"kind":"review","resource_id":"review-1","recipient_id":"bob","text":"new review","target_url":"/reviews/1"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, notifier.got, 1)
	assert.Equal(t, notification.NotifyCommand{
		Kind:        notify.KindReview,
		ResourceID:  "review-1",
		ActorID:     "alice",
		RecipientID: "bob",
		Text:        "new review",
		TargetURL:   "/reviews/1",
	}, notifier.got[0])

	resp = post(t, srv.URL+"/api/v1/notifications", token, `{"kind":"party"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
