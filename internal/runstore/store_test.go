package runstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndGetByRunID(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "r1", "RunStarted", []byte(`{"workflow":"gpu-build"}`)))
	require.NoError(t, store.Append(ctx, "r1", "RunFinished", []byte(`{"outcome":"success"}`)))
	require.NoError(t, store.Append(ctx, "r2", "RunStarted", []byte(`{}`)))

	events, err := store.GetByRunID(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "RunStarted", events[0].Type())
	assert.Equal(t, "RunFinished", events[1].Type())
	assert.Equal(t, "r1", events[0].RunID())
	assert.JSONEq(t, `{"workflow":"gpu-build"}`, string(events[0].Payload()))
}

func TestAppendNilPayload(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "r1", "JobStarted", nil))
	events, err := store.GetByRunID(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "{}", string(events[0].Payload()))
}

func TestGetRange(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()
	before := time.Now().Add(-time.Minute)
	require.NoError(t, store.Append(ctx, "r1", "RunStarted", []byte(`{}`)))
	after := time.Now().Add(time.Minute)

	events, err := store.GetRange(ctx, before, after)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	empty, err := store.GetRange(ctx, after, after.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
