//go:build basic

// Package integration contains integration tests for hotswarm.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
// Database backends: go test -tags database ./integration
package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/hotswarm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSwarmLifecycleWithSQLite runs a full swarm against the default SQLite history.
func TestSwarmLifecycleWithSQLite(t *testing.T) {
	status := runLifecycle(t, []string{"HOTSWARM_HISTORY_BACKEND=sqlite"})
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.TotalRuns)
	assert.Equal(t, 2, status.TotalOutcomes)
}

// TestSuggestWithFileTracker batches the open items of a YAML tracker.
func TestSuggestWithFileTracker(t *testing.T) {
	repo, trackerFile := newRepo(t)
	env := []string{"HOTSWARM_TRACKER=file", "HOTSWARM_TRACKER_FILE=" + trackerFile}

	out, err := runHotswarm(t, repo, env, "suggest", "--min-compatibility", "0", "--output", "json")
	require.NoError(t, err)

	var batches []schema.SwarmBatch
	require.NoError(t, json.Unmarshal([]byte(out), &batches))
	require.Len(t, batches, 1)
	assert.ElementsMatch(t, []string{"1", "2"}, batches[0].ItemIDs())
}

// TestBootstrapAndPredict learns from commits and predicts the learned file.
func TestBootstrapAndPredict(t *testing.T) {
	repo, _ := newRepo(t)
	for _, msg := range []string{"Fix login session", "Harden login checks"} {
		writeFile(t, repo, "src/auth/login.ts", "// "+msg+"\n")
		writeFile(t, repo, "src/auth/session.ts", "// "+msg+"\n")
		git(t, repo, "add", "-A")
		git(t, repo, "commit", "-m", msg)
	}

	_, err := runHotswarm(t, repo, nil, "kb", "bootstrap", "--min-files-changed", "2")
	require.NoError(t, err)

	out, err := runHotswarm(t, repo, nil, "kb", "predict", "--title", "Login fails on Safari", "--output", "json")
	require.NoError(t, err)
	var preds []schema.ItemPrediction
	require.NoError(t, json.Unmarshal([]byte(out), &preds))
	require.Len(t, preds, 1)
	assert.Equal(t, schema.Learned, preds[0].Confidence)
	assert.Contains(t, preds[0].Files, "src/auth/login.ts")
}

// TestInitWritesConfig checks that init refuses to overwrite without --force.
func TestInitWritesConfig(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := runHotswarm(t, repo, nil, "init")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(repo, ".hotswarm", "config.json"))

	_, err = runHotswarm(t, repo, nil, "init")
	assert.Error(t, err)

	_, err = runHotswarm(t, repo, nil, "init", "--force")
	assert.NoError(t, err)

	// The written config is read back by later commands
	data, err := os.ReadFile(filepath.Join(repo, ".hotswarm", "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"max-workers"`)
	_, err = runHotswarm(t, repo, nil, "monitor")
	assert.NoError(t, err)
}
