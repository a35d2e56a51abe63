package runstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendAll(t *testing.T, store Store, runID string, pairs [][2]string) {
	t.Helper()
	ctx := context.Background()
	for _, p := range pairs {
		require.NoError(t, store.Append(ctx, runID, p[0], []byte(p[1])))
	}
}

func TestProjectionTracksRunLifecycle(t *testing.T) {
	store := newMemStore(t)
	appendAll(t, store, "r1", [][2]string{
		{"RunStarted", `{"workflow":"gpu-build","trigger":"push","branch":"main","jobs":2}`},
		{"StepFinished", `{"job":"build (windows-latest/x86_64-pc-windows-msvc)","step":"Build workspace","status":"failed"}`},
		{"RunFinished", `{"outcome":"failed"}`},
	})

	p := NewHistoryProjection(store, 10)
	require.NoError(t, p.Rebuild(context.Background()))

	summary, ok := p.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "gpu-build", summary.Workflow)
	assert.Equal(t, "push", summary.Trigger)
	assert.Equal(t, "main", summary.Branch)
	assert.Equal(t, "failed", summary.Status)
	assert.Equal(t, 2, summary.JobCount)
	require.Len(t, summary.FailedSteps, 1)
	assert.Contains(t, summary.FailedSteps[0], "Build workspace")
	require.NotNil(t, summary.CompletedAt)
}

func TestProjectionRunningRun(t *testing.T) {
	store := newMemStore(t)
	appendAll(t, store, "r2", [][2]string{
		{"RunStarted", `{"workflow":"gpu-build","jobs":2}`},
	})
	p := NewHistoryProjection(store, 10)
	require.NoError(t, p.Rebuild(context.Background()))

	summary, ok := p.Get("r2")
	require.True(t, ok)
	assert.Equal(t, "running", summary.Status)
	assert.Nil(t, summary.CompletedAt)
}

func TestProjectionApplyRealtime(t *testing.T) {
	store := newMemStore(t)
	p := NewHistoryProjection(store, 10)

	p.Apply(&BaseEvent{EventRunID: "r3", EventType: "RunStarted", EventPayload: []byte(`{"workflow":"gpu-build","jobs":1}`)})
	summary, ok := p.Get("r3")
	require.True(t, ok)
	assert.Equal(t, "running", summary.Status)

	p.Apply(&BaseEvent{EventRunID: "r3", EventType: "RunFinished", EventPayload: []byte(`{"outcome":"success"}`)})
	summary, _ = p.Get("r3")
	assert.Equal(t, "success", summary.Status)
}

func TestProjectionHistoryOrderAndTrim(t *testing.T) {
	store := newMemStore(t)
	appendAll(t, store, "old", [][2]string{
		{"RunStarted", `{"workflow":"a","jobs":1}`},
		{"RunFinished", `{"outcome":"success"}`},
	})
	appendAll(t, store, "new", [][2]string{
		{"RunStarted", `{"workflow":"b","jobs":1}`},
		{"RunFinished", `{"outcome":"success"}`},
	})

	p := NewHistoryProjection(store, 1)
	require.NoError(t, p.Rebuild(context.Background()))

	history := p.History()
	require.Len(t, history, 1)
	assert.Equal(t, "new", history[0].RunID)

	_, ok := p.Get("old")
	assert.False(t, ok, "trimmed completed runs drop out of the index")
}
