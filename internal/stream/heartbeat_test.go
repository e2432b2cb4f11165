package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/matemarket/pulse/internal/domain/notify"
)

func TestKeeper_SweepSendsHeartbeats(t *testing.T) {
	r := NewRegistry(4, zaptest.NewLogger(t))
	ch := r.Open("bob")
	k := NewKeeper(r, time.Second, time.Minute, zaptest.NewLogger(t))

	k.Sweep(time.Now())

	f := nextFrame(t, ch)
	assert.True(t, f.Heartbeat)
	assert.Equal(t, int64(0), ch.LastDeliveredSeq())
}

func TestKeeper_SweepClosesIdleChannels(t *testing.T) {
	r := NewRegistry(4, zaptest.NewLogger(t))
	idle := r.Open("bob")
	k := NewKeeper(r, time.Second, time.Minute, zaptest.NewLogger(t))

	k.Sweep(time.Now().Add(2 * time.Minute))

	<-idle.Done()
	assert.ErrorIs(t, idle.Err(), notify.ErrIdleTimeout)
	assert.Equal(t, 0, r.Len())
}

func TestKeeper_Run(t *testing.T) {
	r := NewRegistry(4, zaptest.NewLogger(t))
	ch := r.Open("bob")
	k := NewKeeper(r, 10*time.Millisecond, 0, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		k.Run(ctx)
		close(done)
	}()

	assert.True(t, nextFrame(t, ch).Heartbeat)
	cancel()
	<-done
}
