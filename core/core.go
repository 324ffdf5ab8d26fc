// Package core has the command entry points: batch suggestion, swarm lifecycle,
// knowledge base maintenance and run history.
package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/huangsam/hotswarm/core/swarm"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/docstore"
	"github.com/huangsam/hotswarm/internal/outwriter"
	"github.com/huangsam/hotswarm/schema"
)

// ErrNotEnoughItems is returned when fewer than two items are available for batching.
var ErrNotEnoughItems = errors.New("at least two items are needed to suggest batches")

var ow = outwriter.NewOutWriter()

// logHeader prints the repository line that precedes every command's output.
func logHeader(ctx context.Context, cfg *contract.Config, format string, args ...any) {
	w := progressWriter(ctx)
	repoName := filepath.Base(cfg.RepoPath)
	if repoName == "" || repoName == "." {
		repoName = "current"
	}
	_, _ = fmt.Fprintf(w, "🔎 Repo: %s (swarm dir: %s)\n", repoName, contract.TruncatePath(cfg.SwarmDir, 60))
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}

// --- Suggest ---

// GetSuggestResults loads the items and returns ranked batches. Without ids, the
// open items of the tracker are considered.
func GetSuggestResults(ctx context.Context, cfg *contract.Config, deps *Deps, ids []string) ([]schema.SwarmBatch, error) {
	for _, id := range ids {
		if err := contract.ValidateIdentifier("item id", id); err != nil {
			return nil, err
		}
	}
	var items []schema.Item
	if len(ids) > 0 {
		items = deps.Tracker.FetchItems(ctx, ids)
	} else {
		items = deps.Tracker.ListOpenItems(ctx, contract.DefaultListLimit)
	}
	if len(items) < 2 {
		return nil, fmt.Errorf("%w (found %d)", ErrNotEnoughItems, len(items))
	}
	engine := NewEngine(deps.KB, cfg.User)
	return engine.SuggestBatches(items, cfg.NumBatches, cfg.MaxBatchSize, cfg.MinCompatibility), nil
}

// ExecuteSuggest prints suggested batches of compatible items.
func ExecuteSuggest(ctx context.Context, cfg *contract.Config, deps *Deps, ids []string) error {
	start := time.Now()
	logHeader(ctx, cfg, "🧮 Suggesting up to %d batches of at most %d items (min compatibility %.2f)",
		cfg.NumBatches, cfg.MaxBatchSize, cfg.MinCompatibility)
	batches, err := GetSuggestResults(ctx, cfg, deps, ids)
	if err != nil {
		return err
	}
	return ow.WriteBatches(batches, cfg, time.Since(start))
}

// --- Swarm lifecycle ---

// ExecuteStart starts a swarm for the items and prints its state.
func ExecuteStart(ctx context.Context, cfg *contract.Config, deps *Deps, ids []string) error {
	logHeader(ctx, cfg, "🐝 Preparing %d workers", len(ids))
	o := deps.Orchestrator(cfg, swarm.WithProgress(progressWriter(ctx)))
	state, err := o.Start(ctx, ids)
	if err != nil {
		if state != nil {
			_ = ow.WriteSwarmStatus(state, nil, cfg)
		}
		return err
	}
	return ow.WriteSwarmStatus(state, nil, cfg)
}

// GetSwarmStatus runs a monitor pass and returns the state and the workers that timed out.
func GetSwarmStatus(cfg *contract.Config, deps *Deps) (*schema.SwarmState, []int, error) {
	return deps.Orchestrator(cfg, swarm.WithProgress(nil)).Monitor()
}

// ExecuteMonitor prints the swarm state, flagging workers without a recent heartbeat.
func ExecuteMonitor(ctx context.Context, cfg *contract.Config, deps *Deps) error {
	state, stale, err := GetSwarmStatus(cfg, deps)
	if isNoSwarm(err) {
		_, _ = fmt.Fprintln(progressWriter(ctx), "No swarm found. Start one with `hotswarm start <item>...`.")
		return nil
	}
	if err != nil {
		return err
	}
	return ow.WriteSwarmStatus(state, stale, cfg)
}

// ExecuteMerge merges completed workers and prints the report. A conflict is printed
// and returned as swarm.ErrMergeConflict.
func ExecuteMerge(ctx context.Context, cfg *contract.Config, deps *Deps) error {
	logHeader(ctx, cfg, "🔀 Merging completed workers")
	o := deps.Orchestrator(cfg, swarm.WithProgress(progressWriter(ctx)))
	report, err := o.Merge(ctx)
	if report != nil && (err == nil || errors.Is(err, swarm.ErrMergeConflict) || errors.Is(err, swarm.ErrWorkersNotFinished)) {
		if werr := ow.WriteMergeReport(report, cfg); werr != nil {
			return werr
		}
	}
	return err
}

// ExecuteConflicts prints the outstanding conflict report, if any.
func ExecuteConflicts(ctx context.Context, cfg *contract.Config, deps *Deps) error {
	pending, err := deps.Orchestrator(cfg, swarm.WithProgress(nil)).PendingConflicts()
	if err != nil {
		return err
	}
	if pending == nil {
		_, _ = fmt.Fprintln(progressWriter(ctx), "✅ No pending conflicts.")
		return nil
	}
	return ow.WriteConflicts(pending, cfg)
}

// ExecuteAbort abandons the current swarm.
func ExecuteAbort(ctx context.Context, cfg *contract.Config, deps *Deps, reason string) error {
	o := deps.Orchestrator(cfg, swarm.WithProgress(progressWriter(ctx)))
	state, err := o.Abort(ctx, reason)
	if err != nil {
		return err
	}
	return ow.WriteSwarmStatus(state, nil, cfg)
}

// --- Init ---

// DefaultConfigFile is the content written by ExecuteInit.
func DefaultConfigFile() map[string]any {
	return map[string]any{
		"max-workers":            contract.DefaultMaxWorkers,
		"heartbeat-interval":     contract.DefaultHeartbeatInterval.String(),
		"heartbeat-timeout":      contract.DefaultHeartbeatTimeout.String(),
		"branch-prefix":          contract.DefaultBranchPrefix,
		"commit-prefix":          contract.DefaultCommitPrefix,
		"min-similar-patterns":   contract.DefaultMinSimilarPatterns,
		"overlap-risk-threshold": contract.DefaultOverlapRiskThreshold,
		"batches":                contract.DefaultNumBatches,
		"batch-size":             contract.DefaultMaxBatchSize,
		"min-compatibility":      contract.DefaultMinCompatibility,
		"tracker":                string(schema.NoneTracker),
		"review-status":          contract.DefaultReviewStatus,
		"history-backend":        string(schema.NoneBackend),
	}
}

// ExecuteInit writes a default config file into the swarm directory.
func ExecuteInit(ctx context.Context, cfg *contract.Config, force bool) error {
	path := cfg.ConfigPath()
	if !force && docstore.Exists(path) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := docstore.WriteJSONAtomic(path, DefaultConfigFile()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	_, _ = fmt.Fprintf(progressWriter(ctx), "✨ Wrote %s\n", path)
	return nil
}
