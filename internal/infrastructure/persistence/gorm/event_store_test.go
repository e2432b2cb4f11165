package gorm

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matemarket/pulse/internal/domain/notify"
)

func TestEventStore_AppendAssignsIncreasingSeq(t *testing.T) {
	store := NewEventStore(NewTestDB(t))
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		seq, err := store.Append(ctx, "bob", notify.Body{ID: "m", Kind: notify.KindMessage, Content: "hi"})
		require.NoError(t, err)
		assert.Greater(t, seq, last)
		last = seq
	}
}

func TestEventStore_QueryAfter(t *testing.T) {
	store := NewEventStore(NewTestDB(t))
	ctx := context.Background()

	var bobSeqs []int64
	for i, content := range []string{"one", "two", "three"} {
		seq, err := store.Append(ctx, "bob", notify.Body{ID: content, Kind: notify.KindMessage, Content: content})
		require.NoError(t, err)
		bobSeqs = append(bobSeqs, seq)

		_, err = store.Append(ctx, "carol", notify.Body{ID: content, Kind: notify.KindMessage, Content: content})
		require.NoError(t, err, i)
	}

	t.Run("everything after zero", func(t *testing.T) {
		events, err := store.QueryAfter(ctx, "bob", 0)
		require.NoError(t, err)
		require.Len(t, events, 3)
		for i, ev := range events {
			assert.Equal(t, bobSeqs[i], ev.Seq)
			assert.Equal(t, "bob", ev.RecipientID)
		}
		assert.Equal(t, "one", events[0].Body.Content)
	})

	t.Run("strictly after the cursor", func(t *testing.T) {
		events, err := store.QueryAfter(ctx, "bob", bobSeqs[0])
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, bobSeqs[1], events[0].Seq)
		assert.Equal(t, "three", events[1].Body.Content)
	})

	t.Run("nothing after the last", func(t *testing.T) {
		events, err := store.QueryAfter(ctx, "bob", bobSeqs[2])
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestEventStore_ConcurrentAppends(t *testing.T) {
	store := NewEventStore(NewTestDB(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Append(ctx, "bob", notify.Body{ID: "x", Kind: notify.KindReview})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	events, err := store.QueryAfter(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, events, 20)

	seen := make(map[int64]bool)
	for i, ev := range events {
		assert.False(t, seen[ev.Seq])
		seen[ev.Seq] = true
		if i > 0 {
			assert.Greater(t, ev.Seq, events[i-1].Seq)
		}
	}
}

func TestStatus(t *testing.T) {
	db := NewTestDB(t)
	store := NewEventStore(db)
	_, err := store.Append(context.Background(), "bob", notify.Body{ID: "m-1", Kind: notify.KindMessage})
	require.NoError(t, err)

	tables, err := Status(db)
	require.NoError(t, err)
	require.Len(t, tables, 5)
	for _, st := range tables {
		assert.True(t, st.Exists, st.Table)
		if st.Table == "sequenced_events" {
			assert.Equal(t, int64(1), st.Rows)
		}
	}
}
