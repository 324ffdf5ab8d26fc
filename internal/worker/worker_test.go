package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/docstore"
	"github.com/huangsam/hotswarm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup writes a two-worker state and the worker.json of worker 2.
func setup(t *testing.T) (worktree, swarmDir string) {
	t.Helper()
	swarmDir = filepath.Join(t.TempDir(), ".hotswarm")
	worktree = t.TempDir()
	state := schema.SwarmState{
		ID:    "swarm-1",
		Phase: schema.PhaseExecuting,
		Workers: []schema.WorkerState{
			{WorkerID: 1, ItemID: "10", Status: schema.WorkerExecuting},
			{WorkerID: 2, ItemID: "11", Status: schema.WorkerPending},
		},
	}
	require.NoError(t, docstore.WriteJSONAtomic(filepath.Join(swarmDir, contract.StateFileName), state))
	require.NoError(t, docstore.WriteJSONAtomic(contract.WorkerConfigPath(worktree), schema.WorkerConfig{
		SwarmID:           "swarm-1",
		WorkerID:          2,
		ItemID:            "11",
		SwarmDir:          swarmDir,
		HeartbeatInterval: "30s",
	}))
	return worktree, swarmDir
}

func readWorker(t *testing.T, swarmDir string, id int) schema.WorkerState {
	t.Helper()
	var state schema.SwarmState
	found, err := docstore.ReadJSON(filepath.Join(swarmDir, contract.StateFileName), &state)
	require.NoError(t, err)
	require.True(t, found)
	w := state.Worker(id)
	require.NotNil(t, w)
	return *w
}

func TestLoad_OutsideSwarmIsInactive(t *testing.T) {
	c, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.False(t, c.Active())
	assert.Nil(t, c.Config())
	assert.NoError(t, c.StartPlanning())
	assert.NoError(t, c.StartExecuting(context.Background(), 3))
	assert.NoError(t, c.Complete(schema.WorkerResult{}))
	assert.NoError(t, c.Close())
}

func TestLoad_MalformedConfig(t *testing.T) {
	worktree := t.TempDir()
	path := contract.WorkerConfigPath(worktree)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(worktree)
	assert.Error(t, err)
}

func TestLifecycle(t *testing.T) {
	worktree, swarmDir := setup(t)
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	c, err := Load(worktree, WithClock(func() time.Time { return now }), WithHeartbeatInterval(time.Hour))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	require.True(t, c.Active())
	assert.Equal(t, "11", c.Config().ItemID)

	require.NoError(t, c.StartPlanning())
	w := readWorker(t, swarmDir, 2)
	assert.Equal(t, schema.WorkerPlanning, w.Status)
	require.NotNil(t, w.StartedAt)
	assert.True(t, now.Equal(*w.StartedAt))

	now = now.Add(5 * time.Minute)
	require.NoError(t, c.StartExecuting(context.Background(), 4))
	require.NoError(t, c.ReportProgress("write tests", 2, 4))
	w = readWorker(t, swarmDir, 2)
	assert.Equal(t, schema.WorkerExecuting, w.Status)
	assert.Equal(t, schema.WorkerProgress{Step: "write tests", Completed: 2, Total: 4}, w.Progress)
	assert.True(t, now.Equal(*w.Heartbeat))
	assert.True(t, now.Add(-5*time.Minute).Equal(*w.StartedAt), "start time is kept")

	now = now.Add(20 * time.Minute)
	require.NoError(t, c.Complete(schema.WorkerResult{Summary: "done", TrackerStatus: "Ready"}))
	w = readWorker(t, swarmDir, 2)
	assert.Equal(t, schema.WorkerCompleted, w.Status)
	assert.Equal(t, 25, w.ElapsedMinutes())
	assert.Equal(t, 4, w.Progress.Completed)
	require.NotNil(t, w.Result)
	assert.Equal(t, "Ready", w.Result.TrackerStatus)

	other := readWorker(t, swarmDir, 1)
	assert.Equal(t, schema.WorkerExecuting, other.Status)
	assert.Nil(t, other.Heartbeat)
}

func TestFail(t *testing.T) {
	worktree, swarmDir := setup(t)
	c, err := Load(worktree)
	require.NoError(t, err)
	require.NoError(t, c.Fail(errors.New("tests do not compile")))

	w := readWorker(t, swarmDir, 2)
	assert.Equal(t, schema.WorkerFailed, w.Status)
	assert.Equal(t, "tests do not compile", w.Error)
	assert.NotNil(t, w.CompletedAt)
	assert.FileExists(t, contract.WorkerLogPath(swarmDir, 2))
}

func TestUpdate_UnknownWorker(t *testing.T) {
	worktree, swarmDir := setup(t)
	require.NoError(t, docstore.WriteJSONAtomic(contract.WorkerConfigPath(worktree), schema.WorkerConfig{
		WorkerID: 9,
		SwarmDir: swarmDir,
	}))
	c, err := Load(worktree)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Heartbeat(), ErrWorkerNotFound)

	require.NoError(t, os.Remove(filepath.Join(swarmDir, contract.StateFileName)))
	assert.ErrorIs(t, c.Heartbeat(), ErrWorkerNotFound)
}

func TestHeartbeatLoop(t *testing.T) {
	worktree, swarmDir := setup(t)
	c, err := Load(worktree, WithHeartbeatInterval(10*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.StartExecuting(ctx, 1))
	first := *readWorker(t, swarmDir, 2).Heartbeat

	assert.Eventually(t, func() bool {
		var state schema.SwarmState
		if _, err := docstore.ReadJSON(filepath.Join(swarmDir, contract.StateFileName), &state); err != nil {
			return false
		}
		hb := state.Worker(2).Heartbeat
		return hb != nil && hb.After(first)
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, c.Close())
	stopped := *readWorker(t, swarmDir, 2).Heartbeat
	time.Sleep(50 * time.Millisecond)
	assert.True(t, stopped.Equal(*readWorker(t, swarmDir, 2).Heartbeat))
}
