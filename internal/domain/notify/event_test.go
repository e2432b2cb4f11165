package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matemarket/pulse/internal/domain/notify"
)

func TestNewChatRecord(t *testing.T) {
	t.Run("message keeps its text", func(t *testing.T) {
		rec, err := notify.NewChatRecord("room-1", "alice", notify.KindMessage, "hi there")
		require.NoError(t, err)
		assert.Equal(t, "room-1", rec.SubjectID())
		assert.Equal(t, "alice", rec.Actor())
		assert.Equal(t, notify.KindMessage, rec.Kind())
		assert.Equal(t, "hi there", rec.Payload().Text)
		assert.False(t, rec.IsZero())
	})

	t.Run("enter needs no text", func(t *testing.T) {
		_, err := notify.NewChatRecord("room-1", "alice", notify.KindEnter, "")
		require.NoError(t, err)
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		_, err := notify.NewChatRecord("room-1", "alice", notify.KindMessage, "   ")
		assert.ErrorIs(t, err, notify.ErrInvalidRecord)
	})

	t.Run("missing room is rejected", func(t *testing.T) {
		_, err := notify.NewChatRecord("", "alice", notify.KindEnter, "")
		assert.ErrorIs(t, err, notify.ErrInvalidRecord)
	})

	t.Run("notification kind is rejected", func(t *testing.T) {
		_, err := notify.NewChatRecord("room-1", "alice", notify.KindReview, "x")
		assert.ErrorIs(t, err, notify.ErrInvalidRecord)
	})
}

func TestNewNotificationRecord(t *testing.T) {
	rec, err := notify.NewNotificationRecord("goods-7", "bob", notify.KindReview, "alice", "bob reviewed you", "/reviews/3")
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Payload().RecipientID)
	assert.Equal(t, "/reviews/3", rec.Payload().TargetURL)

	_, err = notify.NewNotificationRecord("goods-7", "bob", notify.KindReview, "", "text", "")
	assert.ErrorIs(t, err, notify.ErrInvalidRecord)

	_, err = notify.NewNotificationRecord("goods-7", "bob", notify.KindMessage, "alice", "text", "")
	assert.ErrorIs(t, err, notify.ErrInvalidRecord)
}

func TestDecodeRecord(t *testing.T) {
	rec, err := notify.NewNotificationRecord("mate-2", "bob", notify.KindMateApplication, "alice", "bob applied", "/mates/2")
	require.NoError(t, err)

	data, err := rec.MarshalJSON()
	require.NoError(t, err)

	decoded, err := notify.DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)

	_, err = notify.DecodeRecord([]byte(`{"kind":"BOGUS","subject_id":"x","actor":"y"}`))
	assert.ErrorIs(t, err, notify.ErrInvalidRecord)
}

func TestParseKind(t *testing.T) {
	k, err := notify.ParseKind(" trade ")
	require.NoError(t, err)
	assert.Equal(t, notify.KindTrade, k)
	assert.True(t, k.IsNotification())

	_, err = notify.ParseKind("nope")
	assert.ErrorIs(t, err, notify.ErrInvalidRecord)
}

func TestParseCursor(t *testing.T) {
	seq, ok, err := notify.ParseCursor("")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, seq)

	seq, ok, err = notify.ParseCursor("100")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(100), seq)
	assert.Equal(t, "100", notify.FormatSeq(seq))

	_, _, err = notify.ParseCursor("abc")
	assert.ErrorIs(t, err, notify.ErrInvalidCursor)

	_, _, err = notify.ParseCursor("-4")
	assert.ErrorIs(t, err, notify.ErrInvalidCursor)
}
