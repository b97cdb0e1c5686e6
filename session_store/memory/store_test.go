package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sessionstore "github.com/w-h-a/chatter/session_store"
)

func appendN(t *testing.T, store sessionstore.Store, id string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.AppendMessage(context.Background(), id, sessionstore.Message{
			ID:        fmt.Sprintf("msg-%d", i),
			Type:      sessionstore.MessageTypeUser,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first, err := store.Create(ctx, "abc")
	require.NoError(t, err)

	appendN(t, store, "abc", 2)

	second, err := store.Create(ctx, "abc")
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 2, second.MessageCount)
}

func TestLogIsBoundedAndKeepsNewest(t *testing.T) {
	store := NewStore(sessionstore.WithMaxMessages(200))
	ctx := context.Background()

	_, err := store.Create(ctx, "abc")
	require.NoError(t, err)

	appendN(t, store, "abc", 250)

	count, err := store.MessageCount(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 200, count)

	session, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 200, session.MessageCount, "reported count tracks the trimmed log")

	history, err := store.History(ctx, "abc", 200)
	require.NoError(t, err)
	require.Len(t, history, 200)
	assert.Equal(t, "msg-50", history[0].ID, "oldest surviving message")
	assert.Equal(t, "msg-249", history[199].ID, "newest message")
}

func TestHistoryOrderingAndLimits(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Create(ctx, "abc")
	require.NoError(t, err)

	appendN(t, store, "abc", 10)

	history, err := store.History(ctx, "abc", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "msg-7", history[0].ID)
	assert.Equal(t, "msg-9", history[2].ID)

	empty, err := store.History(ctx, "abc", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	all, err := store.History(ctx, "abc", 100)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestClearKeepsSessionIdentity(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "abc")
	require.NoError(t, err)

	appendN(t, store, "abc", 5)

	require.NoError(t, store.Clear(ctx, "abc"))

	session, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, session.CreatedAt)
	assert.Zero(t, session.MessageCount)

	history, err := store.History(ctx, "abc", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUnknownSessionErrors(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)

	err = store.AppendMessage(ctx, "missing", sessionstore.Message{ID: "x"})
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)

	_, err = store.History(ctx, "missing", 10)
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)

	err = store.Clear(ctx, "missing")
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)
}

func TestExpiredSessionIsGone(t *testing.T) {
	store := NewStore(sessionstore.WithTTL(time.Millisecond))
	ctx := context.Background()

	_, err := store.Create(ctx, "abc")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	exists, err := store.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)
}

func TestTouchRefreshesActivityAndTTL(t *testing.T) {
	store := NewStore(sessionstore.WithTTL(50 * time.Millisecond))
	ctx := context.Background()

	created, err := store.Create(ctx, "abc")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		require.NoError(t, store.Touch(ctx, "abc"))
	}

	session, err := store.Get(ctx, "abc")
	require.NoError(t, err, "touches must keep the session alive past the original deadline")
	assert.True(t, session.LastActivity.After(created.LastActivity))
	assert.Zero(t, session.MessageCount, "touch never writes messages")

	assert.ErrorIs(t, store.Touch(ctx, "missing"), sessionstore.ErrNotFound)
}

func TestAppendRefreshesTTL(t *testing.T) {
	store := NewStore(sessionstore.WithTTL(50 * time.Millisecond))
	ctx := context.Background()

	_, err := store.Create(ctx, "abc")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		appendN(t, store, "abc", 1)
	}

	exists, err := store.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, exists, "activity must keep the session alive past the original deadline")
}

func TestStatsAggregation(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := store.Create(ctx, id)
		require.NoError(t, err)
	}

	appendN(t, store, "a", 4)
	appendN(t, store, "b", 2)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 2, stats.ActiveLastHour)
	assert.Equal(t, 2, stats.ActiveLastDay)
	assert.Equal(t, 6, stats.TotalMessages)
	assert.Equal(t, 3.0, stats.AverageMessagesPerSession)
}

func TestSearchMatchesCaseInsensitive(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Create(ctx, "a")
	require.NoError(t, err)
	_, err = store.Create(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, store.AppendMessage(ctx, "a", sessionstore.Message{ID: "1", Content: "Climate summit opens"}))
	require.NoError(t, store.AppendMessage(ctx, "a", sessionstore.Message{ID: "2", Content: "sports roundup"}))
	require.NoError(t, store.AppendMessage(ctx, "b", sessionstore.Message{ID: "3", Content: "CLIMATE policy vote"}))

	results, err := store.Search(ctx, "climate")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, results["a"], 1)
	assert.Equal(t, "1", results["a"][0].ID)
	require.Len(t, results["b"], 1)
	assert.Equal(t, "3", results["b"][0].ID)
}
