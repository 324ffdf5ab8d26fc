// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/hotswarm/schema"
)

// GitClient defines the version-control operations the orchestrator relies on.
// This allows the orchestration logic to be tested without needing a real git executable.
type GitClient interface {
	// --- Generic / Low-Level ---

	// Run executes a git command and returns its stdout.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// --- Repository State ---

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// GetCurrentBranch returns the name of the checked out branch.
	GetCurrentBranch(ctx context.Context, repoPath string) (string, error)

	// GetDirtyFiles returns the paths with uncommitted changes, including untracked files.
	GetDirtyFiles(ctx context.Context, repoPath string) ([]string, error)

	// Checkout switches the working tree to ref.
	Checkout(ctx context.Context, repoPath string, ref string) error

	// --- Worktrees ---

	// AddWorktree creates branch from base and checks it out at path.
	AddWorktree(ctx context.Context, repoPath string, path string, branch string, base string) error

	// RemoveWorktree force-removes the worktree at path.
	RemoveWorktree(ctx context.Context, repoPath string, path string) error

	// --- Merge / Diff ---

	// Merge merges branch into the current branch with a merge commit.
	Merge(ctx context.Context, repoPath string, branch string, message string) error

	// GetChangedFilesBetweenRefs returns the files targetRef changed since it forked from baseRef.
	GetChangedFilesBetweenRefs(ctx context.Context, repoPath string, baseRef string, targetRef string) ([]string, error)

	// GetConflictedFiles returns the unmerged paths of an in-progress merge.
	GetConflictedFiles(ctx context.Context, repoPath string) ([]string, error)

	// --- History ---

	// GetCommitLog returns the raw message + name-only log of the last maxCommits commits.
	GetCommitLog(ctx context.Context, repoPath string, maxCommits int) ([]byte, error)
}

// Tracker defines the external issue tracker contract.
// Implementations never fail loudly: an unavailable tracker yields empty results or false.
type Tracker interface {
	// FetchItems returns the items with the given ids, skipping any that cannot be loaded.
	FetchItems(ctx context.Context, ids []string) []schema.Item

	// ListOpenItems returns up to limit open items.
	ListOpenItems(ctx context.Context, limit int) []schema.Item

	// UpdateItemStatus moves an item to the named status and reports success.
	UpdateItemStatus(ctx context.Context, id string, status string) bool
}

// HistoryStore defines the interface for auditing swarm runs and worker outcomes.
type HistoryStore interface {
	// BeginRun creates a new run record and returns its unique ID
	BeginRun(swarmID string, baseBranch string, itemCount int, startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun closes the run record with its final phase
	EndRun(runID int64, endTime time.Time, phase schema.Phase) error

	// RecordWorkerOutcome stores the graded outcome of one worker
	RecordWorkerOutcome(runID int64, outcome schema.WorkerOutcomeRecord) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// Close closes the underlying connection
	Close() error
}
