package swarm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/docstore"
	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// harness bundles an orchestrator with its mocks.
type harness struct {
	o       *Orchestrator
	cfg     *contract.Config
	git     *contract.MockGitClient
	tracker *contract.MockTracker
	kb      *knowledge.KnowledgeBase
	now     *time.Time
	gitDir  string
}

func testConfig(t *testing.T) *contract.Config {
	t.Helper()
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	require.NoError(t, os.MkdirAll(repo, 0o755))
	return &contract.Config{
		RepoPath:             repo,
		SwarmDir:             filepath.Join(repo, contract.DefaultSwarmDir),
		WorktreeBase:         filepath.Join(root, "worktrees"),
		MaxWorkers:           3,
		HeartbeatInterval:    30 * time.Second,
		HeartbeatTimeout:     5 * time.Minute,
		BranchPrefix:         "swarm/",
		CommitPrefix:         "[swarm]",
		MinSimilarPatterns:   3,
		OverlapRiskThreshold: 3,
		Excludes:             append([]string{}, contract.DefaultExcludes...),
		ReviewStatus:         contract.DefaultReviewStatus,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testConfig(t)
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	kb, err := knowledge.Open(cfg.KnowledgeDir(), knowledge.WithClock(clock))
	require.NoError(t, err)

	h := &harness{
		cfg:     cfg,
		git:     &contract.MockGitClient{},
		tracker: &contract.MockTracker{},
		kb:      kb,
		now:     &now,
		gitDir:  filepath.Join(cfg.RepoPath, ".git"),
	}
	h.o = New(cfg, h.git, kb, h.tracker, nil,
		WithClock(clock),
		WithIDGenerator(func() string { return "swarm-1" }),
		WithProgress(nil),
	)
	return h
}

// writeState persists a state document as a worker or an earlier run would have.
func (h *harness) writeState(t *testing.T, state *schema.SwarmState) {
	t.Helper()
	require.NoError(t, docstore.WriteJSONAtomic(h.cfg.StatePath(), state))
}

func (h *harness) readState(t *testing.T) *schema.SwarmState {
	t.Helper()
	state, err := LoadState(h.cfg.StatePath())
	require.NoError(t, err)
	return state
}

func ptr(t time.Time) *time.Time { return &t }

// --- Start ---

func TestStart_RejectsTooManyItems(t *testing.T) {
	h := newHarness(t)
	_, err := h.o.Start(context.Background(), []string{"1", "2", "3", "4"})
	assert.ErrorIs(t, err, ErrTooManyItems)
	assert.False(t, docstore.Exists(h.cfg.StatePath()))
	h.git.AssertExpectations(t)
}

func TestStart_RejectsInvalidItemID(t *testing.T) {
	h := newHarness(t)
	_, err := h.o.Start(context.Background(), []string{"--upload-pack=evil"})
	assert.ErrorIs(t, err, contract.ErrInvalidIdentifier)

	_, err = h.o.Start(context.Background(), []string{"7", "7"})
	assert.ErrorContains(t, err, "given twice")
	assert.False(t, docstore.Exists(h.cfg.StatePath()))
}

func TestStart_RejectsDirtyWorkingTree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.git.On("GetDirtyFiles", ctx, h.cfg.RepoPath).Return([]string{"src/app.ts", ".hotswarm/state.json"}, nil)

	_, err := h.o.Start(ctx, []string{"1"})
	require.ErrorIs(t, err, ErrDirtyWorkingTree)
	assert.Contains(t, err.Error(), "src/app.ts")
	assert.NotContains(t, err.Error(), "state.json")
	assert.False(t, docstore.Exists(h.cfg.StatePath()))
	h.git.AssertNotCalled(t, "GetCurrentBranch", mock.Anything, mock.Anything)
}

func TestStart_RefusesWhileSwarmInProgress(t *testing.T) {
	h := newHarness(t)
	h.writeState(t, &schema.SwarmState{ID: "old", Phase: schema.PhaseExecuting})

	_, err := h.o.Start(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, ErrSwarmInProgress)
	assert.Equal(t, "old", h.readState(t).ID)
}

func (h *harness) expectStart(ctx context.Context, ids []string, items []schema.Item) {
	h.git.On("GetDirtyFiles", ctx, h.cfg.RepoPath).Return([]string{}, nil)
	h.git.On("GetCurrentBranch", ctx, h.cfg.RepoPath).Return("main", nil)
	h.git.On("Run", ctx, h.cfg.RepoPath, "rev-parse", "--git-common-dir").Return([]byte(".git\n"), nil)
	h.tracker.On("FetchItems", ctx, ids).Return(items)
}

func TestStart_PreparesWorkers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	items := []schema.Item{
		{ID: "1", Title: "Fix login button", Priority: 2},
		{ID: "2", Title: "Update docs for deploy", Description: "mention the new flags", Priority: 3},
	}
	h.expectStart(ctx, []string{"1", "2"}, items)
	wt1 := filepath.Join(h.cfg.WorktreeBase, "item-1")
	wt2 := filepath.Join(h.cfg.WorktreeBase, "item-2")
	h.git.On("AddWorktree", ctx, h.cfg.RepoPath, wt1, "swarm/item-1", "main").Return(nil)
	h.git.On("AddWorktree", ctx, h.cfg.RepoPath, wt2, "swarm/item-2", "main").Return(nil)

	state, err := h.o.Start(ctx, []string{"1", "2"})
	require.NoError(t, err)
	h.git.AssertExpectations(t)
	h.tracker.AssertExpectations(t)

	assert.Equal(t, "swarm-1", state.ID)
	assert.Equal(t, schema.PhaseExecuting, state.Phase)
	assert.Equal(t, "main", state.BaseBranch)
	assert.Equal(t, []int{1, 2}, state.MergeOrder)
	require.NotNil(t, state.Overlap)
	assert.Equal(t, schema.RecommendProceed, state.Overlap.Recommendation)
	assert.Contains(t, state.Overlap.Predictions["1"], "src/components/**/*Button*")

	require.Len(t, state.Workers, 2)
	for i, w := range state.Workers {
		assert.Equal(t, i+1, w.WorkerID)
		assert.Equal(t, schema.WorkerPending, w.Status)
		assert.NotEmpty(t, w.PatternID)
	}
	assert.Equal(t, wt1, state.Workers[0].WorktreePath)
	assert.Equal(t, "swarm/item-2", state.Workers[1].Branch)
	persisted := h.readState(t)
	assert.Equal(t, schema.PhaseExecuting, persisted.Phase)
	assert.Equal(t, state.Workers[1].WorktreePath, persisted.Workers[1].WorktreePath)

	var workerCfg schema.WorkerConfig
	found, err := docstore.ReadJSON(contract.WorkerConfigPath(wt2), &workerCfg)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, workerCfg.WorkerID)
	assert.Equal(t, "mention the new flags", workerCfg.Description)
	assert.Equal(t, h.cfg.SwarmDir, workerCfg.SwarmDir)
	assert.Equal(t, "30s", workerCfg.HeartbeatInterval)
	assert.Equal(t, state.Workers[1].PatternID, workerCfg.PatternID)

	patterns := h.kb.Patterns()
	require.Len(t, patterns, 2)
	assert.Equal(t, "1", patterns[0].ItemID)
	assert.Equal(t, schema.ComplexityLow, patterns[0].Predictions.Complexity)
	assert.Equal(t, 30, patterns[0].Predictions.EstimatedMinutes)
	assert.Equal(t, schema.ColdStart, patterns[0].Predictions.Confidence)
	assert.True(t, patterns[0].Input.Scope.IsBugFix)

	exclude, err := os.ReadFile(filepath.Join(h.gitDir, "info", "exclude"))
	require.NoError(t, err)
	assert.Contains(t, string(exclude), "/.hotswarm/\n")
}

func TestStart_WorktreeFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.expectStart(ctx, []string{"1", "2"}, []schema.Item{{ID: "1", Title: "Fix login"}})
	h.git.On("AddWorktree", ctx, h.cfg.RepoPath, mock.Anything, "swarm/item-1", "main").Return(nil)
	h.git.On("AddWorktree", ctx, h.cfg.RepoPath, mock.Anything, "swarm/item-2", "main").Return(assert.AnError)

	state, err := h.o.Start(ctx, []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, schema.PhaseExecuting, state.Phase)
	assert.Equal(t, schema.WorkerPending, state.Workers[0].Status)
	assert.Equal(t, schema.WorkerFailed, state.Workers[1].Status)
	assert.Contains(t, state.Workers[1].Error, "create worktree")

	p, ok := h.kb.GetPattern(state.Workers[1].PatternID)
	require.True(t, ok)
	assert.Empty(t, p.Input.Title)
}

func TestStart_ReplacesExistingWorktree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.expectStart(ctx, []string{"1"}, []schema.Item{{ID: "1", Title: "Fix login"}})
	wt := filepath.Join(h.cfg.WorktreeBase, "item-1")
	require.NoError(t, os.MkdirAll(wt, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(wt, "stale.txt"), []byte("old"), 0o644))
	h.git.On("RemoveWorktree", ctx, h.cfg.RepoPath, wt).Return(assert.AnError)
	h.git.On("AddWorktree", ctx, h.cfg.RepoPath, wt, "swarm/item-1", "main").Return(nil)

	_, err := h.o.Start(ctx, []string{"1"})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(wt, "stale.txt"))
	h.git.AssertExpectations(t)
}

func TestStart_RejectsItemsSharingAWorktree(t *testing.T) {
	h := newHarness(t)
	_, err := h.o.Start(context.Background(), []string{"a/b", "a-b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "would share worktree item-a-b")
	assert.False(t, docstore.Exists(h.cfg.StatePath()))
	h.git.AssertNotCalled(t, "AddWorktree", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPredict_UnscoredHistoryStaysColdStart(t *testing.T) {
	h := newHarness(t)
	globs := knowledge.ColdStartPrediction("Fix login button", "").Globs
	for i := 0; i < 3; i++ {
		_, err := h.kb.AddPattern(schema.IssuePattern{
			Input:       schema.PatternInput{Title: "Fix login button"},
			Predictions: schema.PatternPredictions{Files: globs, Confidence: schema.ColdStart},
		})
		require.NoError(t, err)
	}

	plan := h.o.predict(schema.Item{ID: "9", Title: "Fix login button"})
	assert.Equal(t, schema.ColdStart, plan.confidence)
	assert.Equal(t, globs, plan.files)
}

func TestPredict_ScoredHistoryIsLearned(t *testing.T) {
	h := newHarness(t)
	actual := []string{"src/ui/Button.tsx", "src/ui/Login.tsx"}
	for i := 0; i < 3; i++ {
		p, err := h.kb.AddPattern(schema.IssuePattern{
			Input:       schema.PatternInput{Title: "Fix login button"},
			Predictions: schema.PatternPredictions{Files: []string{"src/auth/**/*"}, Confidence: schema.ColdStart},
		})
		require.NoError(t, err)
		_, err = h.kb.RecordOutcome(p.ID, schema.PatternOutcome{ActualFiles: actual, ActualMinutes: 20, Success: true})
		require.NoError(t, err)
	}

	plan := h.o.predict(schema.Item{ID: "9", Title: "Fix login button"})
	assert.Equal(t, schema.Learned, plan.confidence)
	assert.Equal(t, actual, plan.files)
}

// --- Monitor ---

func TestMonitor_FlagsStaleHeartbeats(t *testing.T) {
	h := newHarness(t)
	now := *h.now
	h.writeState(t, &schema.SwarmState{
		ID:    "swarm-1",
		Phase: schema.PhaseExecuting,
		Workers: []schema.WorkerState{
			{WorkerID: 1, Status: schema.WorkerExecuting, Heartbeat: ptr(now.Add(-10 * time.Minute))},
			{WorkerID: 2, Status: schema.WorkerExecuting, Heartbeat: ptr(now.Add(-time.Minute))},
			{WorkerID: 3, Status: schema.WorkerCompleted, Heartbeat: ptr(now.Add(-time.Hour))},
			{WorkerID: 4, Status: schema.WorkerExecuting, StartedAt: ptr(now.Add(-6 * time.Minute))},
			{WorkerID: 5, Status: schema.WorkerPending},
		},
	})

	state, timedOut, err := h.o.Monitor()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, timedOut)
	assert.Equal(t, schema.WorkerTimeout, state.Workers[0].Status)
	assert.Contains(t, state.Workers[0].Error, "no heartbeat for 10m0s")
	assert.Equal(t, schema.WorkerExecuting, state.Workers[1].Status)
	assert.Equal(t, schema.WorkerCompleted, state.Workers[2].Status)

	persisted := h.readState(t)
	assert.Equal(t, schema.WorkerTimeout, persisted.Workers[3].Status)
}

func TestMonitor_NoSwarm(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.o.Monitor()
	assert.ErrorIs(t, err, ErrNoSwarm)
}

// --- Abort ---

func TestAbort(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	wt := filepath.Join(h.cfg.WorktreeBase, "item-1")
	h.writeState(t, &schema.SwarmState{
		ID:      "swarm-1",
		Phase:   schema.PhaseExecuting,
		Workers: []schema.WorkerState{{WorkerID: 1, Status: schema.WorkerExecuting, WorktreePath: wt}},
	})
	require.NoError(t, docstore.WriteJSONAtomic(h.cfg.PendingConflictsPath(), schema.PendingConflicts{WorkerID: 1}))
	h.git.On("RemoveWorktree", ctx, h.cfg.RepoPath, wt).Return(nil)

	state, err := h.o.Abort(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, schema.PhaseFailed, state.Phase)
	assert.Equal(t, "aborted by operator", h.readState(t).Error)
	assert.False(t, docstore.Exists(h.cfg.PendingConflictsPath()))

	again, err := h.o.Abort(ctx, "twice")
	require.NoError(t, err)
	assert.Equal(t, "aborted by operator", again.Error)
	h.git.AssertNumberOfCalls(t, "RemoveWorktree", 1)
}
