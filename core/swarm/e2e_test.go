package swarm

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := exec.Command("git", append([]string{"-C", dir}, args...)...).CombinedOutput()
	require.NoError(t, err, string(out))
	return string(out)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// completeWorker commits an edit in the worker's worktree and reports it done.
func completeWorker(t *testing.T, o *Orchestrator, workerID int, content string) {
	t.Helper()
	state, err := o.State()
	require.NoError(t, err)
	w := state.Worker(workerID)
	require.NotNil(t, w)
	writeFile(t, w.WorktreePath, "src/app.ts", content)
	gitCmd(t, w.WorktreePath, "add", ".")
	gitCmd(t, w.WorktreePath, "commit", "-q", "-m", "[swarm] worker edit")

	started := o.now().Add(-20 * time.Minute)
	done := o.now()
	w.Status = schema.WorkerCompleted
	w.StartedAt = &started
	w.CompletedAt = &done
	require.NoError(t, o.saveState(state))
}

func TestEndToEnd_ConflictingWorkers(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git binary not found in PATH: %v", err)
	}
	t.Setenv("GIT_AUTHOR_NAME", "Dev")
	t.Setenv("GIT_AUTHOR_EMAIL", "dev@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Dev")
	t.Setenv("GIT_COMMITTER_EMAIL", "dev@example.com")

	repo := t.TempDir()
	gitCmd(t, repo, "init", "-q", "-b", "main")
	gitCmd(t, repo, "config", "commit.gpgsign", "false")
	writeFile(t, repo, "src/app.ts", "export const value = 0;\n")
	gitCmd(t, repo, "add", ".")
	gitCmd(t, repo, "commit", "-q", "-m", "Initial commit")

	cfg := testConfig(t)
	cfg.RepoPath = repo
	cfg.SwarmDir = filepath.Join(repo, contract.DefaultSwarmDir)
	cfg.WorktreeBase = t.TempDir()

	kb, err := knowledge.Open(cfg.KnowledgeDir())
	require.NoError(t, err)
	client := contract.NewLocalGitClient()
	o := New(cfg, client, kb, nil, nil, WithProgress(nil))
	ctx := context.Background()

	state, err := o.Start(ctx, []string{"1", "2"})
	require.NoError(t, err)
	require.Equal(t, schema.PhaseExecuting, state.Phase)
	for _, w := range state.Workers {
		assert.FileExists(t, contract.WorkerConfigPath(w.WorktreePath))
	}

	completeWorker(t, o, 1, "export const value = 1;\n")
	completeWorker(t, o, 2, "export const value = 2;\n")

	report, err := o.Merge(ctx)
	require.ErrorIs(t, err, ErrMergeConflict)
	assert.Equal(t, []int{1}, report.Merged)
	require.NotNil(t, report.Conflict)
	require.Len(t, report.Conflict.Files, 1)
	assert.Equal(t, "src/app.ts", report.Conflict.Files[0].Path)
	require.Len(t, report.Conflict.Files[0].Blocks, 1)
	block := report.Conflict.Files[0].Blocks[0]
	assert.Equal(t, "export const value = 1;", block.Ours)
	assert.Equal(t, "export const value = 2;", block.Theirs)
	assert.DirExists(t, state.Workers[1].WorktreePath)

	writeFile(t, repo, "src/app.ts", "export const value = 3;\n")
	gitCmd(t, repo, "add", "src/app.ts")
	gitCmd(t, repo, "commit", "-q", "--no-edit")

	report, err = o.Merge(ctx)
	require.NoError(t, err)
	assert.True(t, report.Completed)
	assert.Equal(t, []int{2}, report.Merged)

	final, err := o.State()
	require.NoError(t, err)
	assert.Equal(t, schema.PhaseCompleted, final.Phase)
	assert.Equal(t, []string{"src/app.ts"}, final.Workers[1].Result.FilesChanged)
	for _, w := range final.Workers {
		assert.NoDirExists(t, w.WorktreePath)
	}

	subjects := strings.Split(strings.TrimSpace(gitCmd(t, repo, "log", "--format=%s", "main")), "\n")
	assert.Contains(t, subjects, "[swarm] Merge #1")
	assert.NotContains(t, gitCmd(t, repo, "status", "--porcelain"), "worker.json")
	assert.InDelta(t, 1.0, kb.GetConflictRisk("src/app.ts", "src/app.ts"), 1e-9)
}
