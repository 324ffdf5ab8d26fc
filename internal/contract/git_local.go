package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout output.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		if stderr == "" {
			stderr = strings.TrimSpace(string(out))
		}
		return out, fmt.Errorf("git %s failed in %q: %s", args[0], repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// GetRepoRoot implements the GitClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	out, err := c.Run(ctx, contextPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetCurrentBranch implements the GitClient interface.
func (c *LocalGitClient) GetCurrentBranch(ctx context.Context, repoPath string) (string, error) {
	out, err := c.Run(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(string(out))
	if branch == "HEAD" {
		return "", fmt.Errorf("repository %q is in detached HEAD state", repoPath)
	}
	return branch, nil
}

// GetDirtyFiles implements the GitClient interface.
func (c *LocalGitClient) GetDirtyFiles(ctx context.Context, repoPath string) ([]string, error) {
	out, err := c.Run(ctx, repoPath, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	var files []string
	for line := range strings.SplitSeq(string(out), "\n") {
		if len(line) < 4 {
			continue
		}
		path := line[3:]
		// Renames are reported as "old -> new"
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		files = append(files, strings.Trim(path, "\""))
	}
	return files, nil
}

// Checkout implements the GitClient interface.
func (c *LocalGitClient) Checkout(ctx context.Context, repoPath string, ref string) error {
	_, err := c.Run(ctx, repoPath, "checkout", ref)
	return err
}

// AddWorktree implements the GitClient interface.
func (c *LocalGitClient) AddWorktree(ctx context.Context, repoPath string, path string, branch string, base string) error {
	// -B resets a branch left over from an earlier run
	_, err := c.Run(ctx, repoPath, "worktree", "add", "-B", branch, path, base)
	return err
}

// RemoveWorktree implements the GitClient interface.
func (c *LocalGitClient) RemoveWorktree(ctx context.Context, repoPath string, path string) error {
	if _, err := c.Run(ctx, repoPath, "worktree", "remove", "--force", path); err != nil {
		return err
	}
	_, err := c.Run(ctx, repoPath, "worktree", "prune")
	return err
}

// Merge implements the GitClient interface.
func (c *LocalGitClient) Merge(ctx context.Context, repoPath string, branch string, message string) error {
	_, err := c.Run(ctx, repoPath, "merge", "--no-ff", "--no-edit", "-m", message, branch)
	return err
}

// GetChangedFilesBetweenRefs implements the GitClient interface.
// It uses Git's "..." (three-dot) range syntax, which diffs targetRef against
// its merge base with baseRef. Commits merged into baseRef after the fork
// therefore do not show up as changes of targetRef.
func (c *LocalGitClient) GetChangedFilesBetweenRefs(ctx context.Context, repoPath string, baseRef string, targetRef string) ([]string, error) {
	out, err := c.Run(ctx, repoPath, "diff", "--name-only", baseRef+"..."+targetRef)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// GetConflictedFiles implements the GitClient interface.
func (c *LocalGitClient) GetConflictedFiles(ctx context.Context, repoPath string) ([]string, error) {
	out, err := c.Run(ctx, repoPath, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// CommitLogDelimiter starts every commit record in the GetCommitLog output.
const CommitLogDelimiter = "--COMMIT--"

// GetCommitLog implements the GitClient interface.
// Each record is the delimiter followed by the subject, then the changed file names.
func (c *LocalGitClient) GetCommitLog(ctx context.Context, repoPath string, maxCommits int) ([]byte, error) {
	args := []string{
		"log",
		"-n", strconv.Itoa(maxCommits),
		"--no-merges",
		"--name-only",
		"--pretty=format:" + CommitLogDelimiter + "%s",
	}
	return c.Run(ctx, repoPath, args...)
}

// splitLines splits command output into non-empty trimmed lines.
func splitLines(out []byte) []string {
	files := []string{}
	for line := range strings.SplitSeq(strings.TrimSpace(string(out)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files
}
