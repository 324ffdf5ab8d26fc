package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/hotswarm/core/swarm"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/docstore"
	"github.com/huangsam/hotswarm/internal/history"
	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/internal/worker"
	"github.com/huangsam/hotswarm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testDeps(t *testing.T) (*contract.Config, *Deps, *contract.MockTracker) {
	t.Helper()
	root := t.TempDir()
	cfg := &contract.Config{
		RepoPath:         filepath.Join(root, "repo"),
		SwarmDir:         filepath.Join(root, "repo", contract.DefaultSwarmDir),
		MaxWorkers:       3,
		HeartbeatTimeout: contract.DefaultHeartbeatTimeout,
		NumBatches:       3,
		MaxBatchSize:     4,
		MinCompatibility: 0,
		Output:           schema.JSONOut,
		OutputFile:       filepath.Join(root, "out.json"),
		Precision:        2,
		HistoryBackend:   schema.SQLiteBackend,
	}
	kb, err := knowledge.Open(cfg.KnowledgeDir())
	require.NoError(t, err)
	store, err := history.Open(cfg.HistoryBackend, "", HistoryDBPath(cfg))
	require.NoError(t, err)
	tracker := &contract.MockTracker{}
	deps := &Deps{Git: &contract.MockGitClient{}, KB: kb, Tracker: tracker, History: store}
	t.Cleanup(func() { _ = deps.Close() })
	return cfg, deps, tracker
}

func quietCtx() context.Context {
	return WithSuppressHeader(context.Background())
}

func readJSON[T any](t *testing.T, path string) T {
	t.Helper()
	var v T
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

var trackerItems = []schema.Item{
	{ID: "1", Title: "Fix login button", Priority: 2},
	{ID: "2", Title: "Update docs readme", Priority: 3},
	{ID: "3", Title: "Add database migration", Priority: 1},
}

func TestGetSuggestResults_OpenItems(t *testing.T) {
	cfg, deps, tracker := testDeps(t)
	tracker.On("ListOpenItems", mock.Anything, contract.DefaultListLimit).Return(trackerItems)

	batches, err := GetSuggestResults(quietCtx(), cfg, deps, nil)
	require.NoError(t, err)
	require.NotEmpty(t, batches)
	assert.Equal(t, 1, batches[0].Rank)
	assert.GreaterOrEqual(t, len(batches[0].Items), 2)
	tracker.AssertExpectations(t)
}

func TestGetSuggestResults_NotEnoughItems(t *testing.T) {
	cfg, deps, tracker := testDeps(t)
	tracker.On("FetchItems", mock.Anything, []string{"1", "9"}).Return(trackerItems[:1])

	_, err := GetSuggestResults(quietCtx(), cfg, deps, []string{"1", "9"})
	assert.ErrorIs(t, err, ErrNotEnoughItems)
	assert.ErrorContains(t, err, "found 1")
}

func TestGetSuggestResults_InvalidID(t *testing.T) {
	cfg, deps, _ := testDeps(t)
	_, err := GetSuggestResults(quietCtx(), cfg, deps, []string{"--upload-pack=x", "2"})
	assert.ErrorIs(t, err, contract.ErrInvalidIdentifier)
}

func TestExecuteSuggest_WritesJSON(t *testing.T) {
	cfg, deps, tracker := testDeps(t)
	tracker.On("FetchItems", mock.Anything, []string{"1", "2", "3"}).Return(trackerItems)

	require.NoError(t, ExecuteSuggest(quietCtx(), cfg, deps, []string{"1", "2", "3"}))
	batches := readJSON[[]schema.SwarmBatch](t, cfg.OutputFile)
	require.Len(t, batches, 1)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, batches[0].ItemIDs())
	assert.Equal(t, "3", batches[0].Items[0].Item.ID) // priority 1 seeds the batch
}

func TestExecuteMonitor_NoSwarm(t *testing.T) {
	cfg, deps, _ := testDeps(t)
	require.NoError(t, ExecuteMonitor(quietCtx(), cfg, deps))
	assert.NoFileExists(t, cfg.OutputFile)
}

func TestExecuteMonitor_FlagsStaleWorker(t *testing.T) {
	cfg, deps, _ := testDeps(t)
	old := time.Now().Add(-time.Hour).UTC()
	state := &schema.SwarmState{
		ID: "s1", Phase: schema.PhaseExecuting, BaseBranch: "main",
		Workers: []schema.WorkerState{{WorkerID: 1, ItemID: "1", Status: schema.WorkerExecuting, StartedAt: &old, Heartbeat: &old}},
	}
	require.NoError(t, docstore.WriteJSONAtomic(cfg.StatePath(), state))

	require.NoError(t, ExecuteMonitor(quietCtx(), cfg, deps))
	got := readJSON[map[string]any](t, cfg.OutputFile)
	assert.Equal(t, []any{float64(1)}, got["stale_workers"])

	saved, err := swarm.LoadState(cfg.StatePath())
	require.NoError(t, err)
	assert.Equal(t, schema.WorkerTimeout, saved.Workers[0].Status)
}

func TestExecuteMerge_NoSwarm(t *testing.T) {
	cfg, deps, _ := testDeps(t)
	err := ExecuteMerge(quietCtx(), cfg, deps)
	assert.ErrorIs(t, err, swarm.ErrNoSwarm)
}

func TestExecuteMerge_PrintsPendingWorkers(t *testing.T) {
	cfg, deps, _ := testDeps(t)
	state := &schema.SwarmState{
		ID: "s1", Phase: schema.PhaseExecuting, BaseBranch: "main",
		Workers: []schema.WorkerState{{WorkerID: 1, ItemID: "1", Status: schema.WorkerExecuting}},
	}
	require.NoError(t, docstore.WriteJSONAtomic(cfg.StatePath(), state))

	err := ExecuteMerge(quietCtx(), cfg, deps)
	assert.ErrorIs(t, err, swarm.ErrWorkersNotFinished)
	report := readJSON[schema.MergeReport](t, cfg.OutputFile)
	require.Len(t, report.Pending, 1)
	assert.Equal(t, "1", report.Pending[0].ItemID)
}

func TestExecuteConflicts(t *testing.T) {
	cfg, deps, _ := testDeps(t)
	require.NoError(t, ExecuteConflicts(quietCtx(), cfg, deps))
	assert.NoFileExists(t, cfg.OutputFile)

	pending := &schema.PendingConflicts{SwarmID: "s1", WorkerID: 2, ItemID: "2", Files: []schema.ConflictFile{{Path: "a.go"}}}
	require.NoError(t, docstore.WriteJSONAtomic(cfg.PendingConflictsPath(), pending))
	require.NoError(t, ExecuteConflicts(quietCtx(), cfg, deps))
	got := readJSON[schema.PendingConflicts](t, cfg.OutputFile)
	assert.Equal(t, "a.go", got.Files[0].Path)
}

func TestExecuteInit(t *testing.T) {
	cfg, _, _ := testDeps(t)
	require.NoError(t, ExecuteInit(quietCtx(), cfg, false))
	got := readJSON[map[string]any](t, cfg.ConfigPath())
	assert.Equal(t, float64(contract.DefaultMaxWorkers), got["max-workers"])
	assert.Equal(t, "30s", got["heartbeat-interval"])

	err := ExecuteInit(quietCtx(), cfg, false)
	assert.ErrorContains(t, err, "already exists")
	assert.NoError(t, ExecuteInit(quietCtx(), cfg, true))
}

func TestExecuteKBSearchAndPredict(t *testing.T) {
	cfg, deps, tracker := testDeps(t)
	_, err := deps.KB.AddPattern(schema.IssuePattern{
		ItemID: "7",
		Input:  schema.PatternInput{Title: "Fix login redirect", Keywords: []string{"fix", "login", "redirect"}},
	})
	require.NoError(t, err)
	deps.KB.UpdateFileAssociation("login", "src/auth/login.ts")

	results, patterns := SearchPatterns(deps, "login redirect broken", 5)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Score)
	assert.Equal(t, "7", patterns[0].ItemID)

	assert.ErrorContains(t, ExecuteKBSearch(quietCtx(), cfg, deps, "  ", 5), "query is required")

	tracker.On("FetchItems", mock.Anything, []string{"1"}).Return(trackerItems[:1])
	preds, err := PredictItems(quietCtx(), cfg, deps, []string{"1"}, "Tweak login page", "")
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, schema.Learned, preds[0].Confidence)
	assert.Equal(t, []string{"src/auth/login.ts"}, preds[0].Files)
	assert.Equal(t, "adhoc", preds[1].Item.ID)

	_, err = PredictItems(quietCtx(), cfg, deps, nil, "", "")
	assert.ErrorContains(t, err, "nothing to predict")
}

func TestExecuteKBExport(t *testing.T) {
	cfg, deps, _ := testDeps(t)
	_, err := deps.KB.AddPattern(schema.IssuePattern{ItemID: "7", Input: schema.PatternInput{Title: "Fix login"}})
	require.NoError(t, err)
	deps.KB.RecordPairCoModification("a.go", "b.go")

	prefix := filepath.Join(t.TempDir(), "kb")
	require.NoError(t, ExecuteKBExport(quietCtx(), cfg, deps, prefix))
	assert.FileExists(t, prefix+".patterns.parquet")
	assert.FileExists(t, prefix+".conflict_pairs.parquet")
	assert.Error(t, ExecuteKBExport(quietCtx(), cfg, deps, ""))
}

func TestExecuteKBRebuild(t *testing.T) {
	cfg, deps, _ := testDeps(t)
	_, err := deps.KB.AddPattern(schema.IssuePattern{ItemID: "7", Input: schema.PatternInput{Title: "Fix login", Keywords: []string{"login"}}})
	require.NoError(t, err)

	require.NoError(t, ExecuteKBRebuild(quietCtx(), cfg, deps))
	stats := readJSON[schema.KnowledgeStats](t, cfg.OutputFile)
	assert.Equal(t, 1, stats.TotalPatterns)
	assert.FileExists(t, filepath.Join(cfg.KnowledgeDir(), knowledge.IndexFile))
}

func TestExecuteHistory(t *testing.T) {
	cfg, deps, _ := testDeps(t)
	_, err := deps.History.BeginRun("s1", "main", 2, time.Now(), nil)
	require.NoError(t, err)

	require.NoError(t, ExecuteHistoryStatus(quietCtx(), cfg, deps))
	status := readJSON[schema.HistoryStatus](t, cfg.OutputFile)
	assert.Equal(t, 1, status.TotalRuns)

	prefix := filepath.Join(t.TempDir(), "hist")
	require.NoError(t, ExecuteHistoryExport(quietCtx(), cfg, deps, prefix))
	assert.FileExists(t, prefix+".swarm_runs.parquet")

	require.NoError(t, ExecuteHistoryClear(quietCtx(), cfg, deps))
	status, err = deps.History.GetStatus()
	require.NoError(t, err)
	assert.Zero(t, status.TotalRuns)
}

func TestExecuteHistoryMigrate(t *testing.T) {
	cfg, _, _ := testDeps(t)
	cfg.HistoryDBConnect = filepath.Join(t.TempDir(), "migrated.db")
	assert.NoError(t, ExecuteHistoryMigrate(quietCtx(), cfg, -1))

	cfg.HistoryBackend = schema.NoneBackend
	assert.Error(t, ExecuteHistoryMigrate(quietCtx(), cfg, -1))
}

func TestExecuteWorkerUpdate(t *testing.T) {
	cfg, _, _ := testDeps(t)
	worktree := t.TempDir()

	err := ExecuteWorkerUpdate(worktree, func(*worker.Client) error { return nil })
	assert.ErrorIs(t, err, ErrNotInWorktree)

	state := &schema.SwarmState{
		ID: "s1", Phase: schema.PhaseExecuting,
		Workers: []schema.WorkerState{{WorkerID: 1, ItemID: "1", Status: schema.WorkerPending}},
	}
	require.NoError(t, docstore.WriteJSONAtomic(cfg.StatePath(), state))
	require.NoError(t, docstore.WriteJSONAtomic(contract.WorkerConfigPath(worktree), schema.WorkerConfig{
		SwarmID: "s1", WorkerID: 1, ItemID: "1", SwarmDir: cfg.SwarmDir,
	}))

	require.NoError(t, ExecuteWorkerUpdate(worktree, func(c *worker.Client) error { return c.StartPlanning() }))
	saved, err := swarm.LoadState(cfg.StatePath())
	require.NoError(t, err)
	assert.Equal(t, schema.WorkerPlanning, saved.Workers[0].Status)
	assert.NotNil(t, saved.Workers[0].StartedAt)
}
