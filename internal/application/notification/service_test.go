package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matemarket/pulse/internal/domain/notify"
	apperrors "github.com/matemarket/pulse/pkg/errors"
)

type recordingPublisher struct {
	got []notify.EventRecord
}

func (p *recordingPublisher) Publish(_ context.Context, rec notify.EventRecord) {
	p.got = append(p.got, rec)
}

func TestNotify(t *testing.T) {
	bus := &recordingPublisher{}
	svc := NewApplicationService(bus)

	err := svc.Notify(context.Background(), NotifyCommand{
		Kind:        notify.KindMateApplication,
		ResourceID:  "mate-3",
		ActorID:     "alice",
		RecipientID: "bob",
		Text:        "alice applied to your mate post",
		TargetURL:   "/mates/3",
	})
	require.NoError(t, err)

	require.Len(t, bus.got, 1)
	rec := bus.got[0]
	assert.Equal(t, notify.KindMateApplication, rec.Kind())
	assert.Equal(t, "bob", rec.Payload().RecipientID)
	assert.Equal(t, "/mates/3", rec.Payload().TargetURL)
}

func TestNotify_Invalid(t *testing.T) {
	bus := &recordingPublisher{}
	svc := NewApplicationService(bus)

	tests := []struct {
		name string
		cmd  NotifyCommand
	}{
		{"chat kind", NotifyCommand{Kind: notify.KindMessage, ResourceID: "r", ActorID: "a", RecipientID: "b"}},
		{"no recipient", NotifyCommand{Kind: notify.KindTrade, ResourceID: "r", ActorID: "a"}},
		{"no actor", NotifyCommand{Kind: notify.KindReview, ResourceID: "r", RecipientID: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Notify(context.Background(), tt.cmd)
			assert.True(t, apperrors.IsBadRequest(err))
			assert.ErrorIs(t, err, notify.ErrInvalidRecord)
		})
	}
	assert.Empty(t, bus.got)
}
