package contract

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockGitClient is a testify mock for the GitClient interface.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	mockArgs := []any{ctx, repoPath}
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	return ret.String(0), ret.Error(1)
}

// GetCurrentBranch implements the GitClient interface.
func (m *MockGitClient) GetCurrentBranch(ctx context.Context, repoPath string) (string, error) {
	ret := m.Called(ctx, repoPath)
	return ret.String(0), ret.Error(1)
}

// GetDirtyFiles implements the GitClient interface.
func (m *MockGitClient) GetDirtyFiles(ctx context.Context, repoPath string) ([]string, error) {
	ret := m.Called(ctx, repoPath)
	files, _ := ret.Get(0).([]string)
	return files, ret.Error(1)
}

// Checkout implements the GitClient interface.
func (m *MockGitClient) Checkout(ctx context.Context, repoPath string, ref string) error {
	return m.Called(ctx, repoPath, ref).Error(0)
}

// AddWorktree implements the GitClient interface.
func (m *MockGitClient) AddWorktree(ctx context.Context, repoPath string, path string, branch string, base string) error {
	return m.Called(ctx, repoPath, path, branch, base).Error(0)
}

// RemoveWorktree implements the GitClient interface.
func (m *MockGitClient) RemoveWorktree(ctx context.Context, repoPath string, path string) error {
	return m.Called(ctx, repoPath, path).Error(0)
}

// Merge implements the GitClient interface.
func (m *MockGitClient) Merge(ctx context.Context, repoPath string, branch string, message string) error {
	return m.Called(ctx, repoPath, branch, message).Error(0)
}

// GetChangedFilesBetweenRefs implements the GitClient interface.
func (m *MockGitClient) GetChangedFilesBetweenRefs(ctx context.Context, repoPath string, baseRef string, targetRef string) ([]string, error) {
	ret := m.Called(ctx, repoPath, baseRef, targetRef)
	files, _ := ret.Get(0).([]string)
	return files, ret.Error(1)
}

// GetConflictedFiles implements the GitClient interface.
func (m *MockGitClient) GetConflictedFiles(ctx context.Context, repoPath string) ([]string, error) {
	ret := m.Called(ctx, repoPath)
	files, _ := ret.Get(0).([]string)
	return files, ret.Error(1)
}

// GetCommitLog implements the GitClient interface.
func (m *MockGitClient) GetCommitLog(ctx context.Context, repoPath string, maxCommits int) ([]byte, error) {
	ret := m.Called(ctx, repoPath, maxCommits)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}
