package knowledge

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/huangsam/hotswarm/internal/contract"
)

// CommitRecord is one commit message with the files it changed.
type CommitRecord struct {
	Message string
	Files   []string
}

// BootstrapResult summarizes a git history bootstrap.
type BootstrapResult struct {
	CommitsRead       int `json:"commits_read"`
	CommitsUsed       int `json:"commits_used"`
	AssociationsAdded int `json:"associations_added"`
	PairsTouched      int `json:"pairs_touched"`
}

// ParseCommitLog parses the output of GitClient.GetCommitLog.
func ParseCommitLog(out []byte) []CommitRecord {
	var commits []CommitRecord
	var current *CommitRecord
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if msg, ok := strings.CutPrefix(line, contract.CommitLogDelimiter); ok {
			commits = append(commits, CommitRecord{Message: msg})
			current = &commits[len(commits)-1]
			continue
		}
		if line == "" || current == nil {
			continue
		}
		current.Files = append(current.Files, line)
	}
	return commits
}

// ColdStartFromGitHistory seeds associations and co-modification counts from the last
// maxCommits commits. Commits with fewer than minFilesChanged surviving files are skipped.
// The index is rebuilt, metrics refreshed and everything saved before returning.
func (kb *KnowledgeBase) ColdStartFromGitHistory(ctx context.Context, client contract.GitClient, repoPath string, maxCommits, minFilesChanged int, excludes []string) (BootstrapResult, error) {
	out, err := client.GetCommitLog(ctx, repoPath, maxCommits)
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("read commit log: %w", err)
	}

	result := BootstrapResult{}
	for _, commit := range ParseCommitLog(out) {
		result.CommitsRead++
		var files []string
		for _, f := range commit.Files {
			if !contract.ShouldIgnore(f, excludes) {
				files = append(files, f)
			}
		}
		if len(files) < minFilesChanged {
			continue
		}
		result.CommitsUsed++
		kb.RecordCoModification(files)
		n := len(dedupeSorted(files))
		result.PairsTouched += n * (n - 1) / 2
		for _, kw := range ExtractKeywords(commit.Message) {
			for _, f := range files {
				kb.UpdateFileAssociation(kw, f)
				result.AssociationsAdded++
			}
		}
	}

	if err := kb.RebuildIndex(); err != nil {
		return result, err
	}
	kb.UpdateMetrics()
	if err := kb.Save(); err != nil {
		return result, err
	}
	return result, nil
}
