package history

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreAppendAssignsIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.Append(ctx, "alice", "hello")
	require.NoError(t, err)
	second, err := store.Append(ctx, "bob", "hi")
	require.NoError(t, err)

	require.NotNil(t, first.ID)
	require.NotNil(t, second.ID)
	assert.NotEqual(t, first.ID.ID, second.ID.ID)
	assert.Equal(t, "message", first.ID.Table)
	assert.Equal(t, "alice", first.Author)
	require.NotNil(t, first.CreatedAt)
	assert.False(t, first.CreatedAt.Time.IsZero())
}

func TestMemoryStoreRecentOldestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Append(ctx, "alice", "msg-"+strconv.Itoa(i))
		require.NoError(t, err)
	}

	recent, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	// The newest three, oldest of them first.
	assert.Equal(t, "msg-2", recent[0].Body)
	assert.Equal(t, "msg-3", recent[1].Body)
	assert.Equal(t, "msg-4", recent[2].Body)
}

func TestMemoryStoreRecentBounds(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	empty, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = store.Append(ctx, "alice", "only")
	require.NoError(t, err)

	all, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
