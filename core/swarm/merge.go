package swarm

import (
	"context"
	"fmt"
	"strings"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/docstore"
	"github.com/huangsam/hotswarm/schema"
)

// Merge integrates completed worker branches into the base branch, strictly in merge
// order. It refuses to run while any worker is unfinished. On the first conflict it
// writes the pending-conflicts report and stops; re-run it once the conflict is resolved
// and committed. When every branch is in, it updates the tracker, removes the worktrees
// and completes the run.
func (o *Orchestrator) Merge(ctx context.Context) (*schema.MergeReport, error) {
	state, err := o.State()
	if err != nil {
		return nil, err
	}
	report := &schema.MergeReport{SwarmID: state.ID}
	switch state.Phase {
	case schema.PhaseCompleted:
		report.Completed = true
		return report, nil
	case schema.PhaseExecuting:
	default:
		return report, fmt.Errorf("swarm %s is %s; only an executing swarm can merge", state.ID, state.Phase)
	}
	if unfinished := state.Unfinished(); len(unfinished) > 0 {
		report.Pending = unfinished
		return report, fmt.Errorf("%w: %d of %d workers still running", ErrWorkersNotFinished, len(unfinished), len(state.Workers))
	}

	repo := o.cfg.RepoPath
	unresolved, err := o.git.GetConflictedFiles(ctx, repo)
	if err != nil {
		return report, fmt.Errorf("check for unresolved conflicts: %w", err)
	}
	if len(unresolved) > 0 {
		return report, fmt.Errorf("%w: resolve and commit %s before merging again", ErrMergeConflict, strings.Join(unresolved, ", "))
	}
	pending, err := o.PendingConflicts()
	if err != nil {
		return report, err
	}
	if err := o.git.Checkout(ctx, repo, state.BaseBranch); err != nil {
		return report, fmt.Errorf("checkout %s: %w", state.BaseBranch, err)
	}

	merged := mergedFiles(state)
	for _, id := range mergeSequence(state) {
		w := state.Worker(id)
		if w == nil || w.MergedAt != nil {
			continue
		}
		if w.Status != schema.WorkerCompleted {
			report.Skipped = append(report.Skipped, id)
			continue
		}
		conflict, err := o.mergeWorker(ctx, state, w, pending, merged)
		if err != nil {
			return report, err
		}
		if conflict != nil {
			report.Conflict = conflict
			return report, fmt.Errorf("%w: %s", ErrMergeConflict, describeConflict(conflict))
		}
		report.Merged = append(report.Merged, id)
	}

	if err := o.complete(ctx, state); err != nil {
		return report, err
	}
	report.Completed = true
	return report, nil
}

// mergeWorker merges one branch. It returns the conflict report when the merge stops.
func (o *Orchestrator) mergeWorker(ctx context.Context, state *schema.SwarmState, w *schema.WorkerState, pending *schema.PendingConflicts, merged map[string]bool) (*schema.PendingConflicts, error) {
	repo := o.cfg.RepoPath
	actual, err := o.git.GetChangedFilesBetweenRefs(ctx, repo, state.BaseBranch, w.Branch)
	if err != nil {
		contract.LogWarn(fmt.Sprintf("Failed to diff %s", w.Branch), err)
	}
	conflicts := 0
	resolved := make(map[string]bool)
	if pending != nil && pending.WorkerID == w.WorkerID {
		conflicts = len(pending.Files)
		for _, f := range pending.Files {
			resolved[f.Path] = true
		}
		if len(actual) == 0 {
			actual = pending.ChangedFiles
		}
	}

	o.logf("🔀 Merging worker %d (#%s) from %s", w.WorkerID, w.ItemID, w.Branch)
	if mergeErr := o.git.Merge(ctx, repo, w.Branch, o.mergeMessage(w)); mergeErr != nil {
		return o.captureConflict(ctx, state, w, actual, mergeErr)
	}

	now := o.now().UTC()
	w.MergedAt = &now
	if w.Result == nil {
		w.Result = &schema.WorkerResult{}
	}
	w.Result.FilesChanged = actual

	o.kb.RecordCoModification(actual)
	for _, f := range actual {
		if merged[f] && !resolved[f] {
			o.kb.RecordPairCoModification(f, f)
		}
		merged[f] = true
	}
	o.learn(state, w, actual, conflicts, true)
	state.Error = ""
	return nil, o.saveState(state)
}

// captureConflict writes the pending-conflicts report and records the collision.
func (o *Orchestrator) captureConflict(ctx context.Context, state *schema.SwarmState, w *schema.WorkerState, actual []string, mergeErr error) (*schema.PendingConflicts, error) {
	repo := o.cfg.RepoPath
	paths, err := o.git.GetConflictedFiles(ctx, repo)
	if err != nil {
		contract.LogWarn("Failed to list conflicted files", err)
	}

	pending := &schema.PendingConflicts{
		SwarmID:      state.ID,
		WorkerID:     w.WorkerID,
		ItemID:       w.ItemID,
		Branch:       w.Branch,
		BaseBranch:   state.BaseBranch,
		Files:        readConflictFiles(repo, paths),
		ChangedFiles: actual,
		Error:        mergeErr.Error(),
		CreatedAt:    o.now().UTC(),
	}
	if p, ok := o.kb.GetPattern(w.PatternID); ok {
		pending.ItemTitle = p.Input.Title
		pending.ItemDescription = p.Input.Description
	}
	if err := docstore.WriteJSONAtomic(o.cfg.PendingConflictsPath(), pending); err != nil {
		return nil, fmt.Errorf("write pending conflicts: %w", err)
	}

	for _, f := range paths {
		o.kb.RecordPairCoModification(f, f)
		o.kb.RecordConflict(f, f)
	}
	if err := o.kb.Save(); err != nil {
		contract.LogWarn("Failed to save conflict observations", err)
	}

	state.Error = describeConflict(pending)
	if err := o.saveState(state); err != nil {
		return pending, err
	}
	o.logf("💥 %s; see %s", state.Error, o.cfg.PendingConflictsPath())
	return pending, nil
}

// complete finishes a run whose completed workers are all merged.
func (o *Orchestrator) complete(ctx context.Context, state *schema.SwarmState) error {
	for i := range state.Workers {
		w := &state.Workers[i]
		if w.Status != schema.WorkerFailed || w.PatternID == "" {
			continue
		}
		actual, err := o.git.GetChangedFilesBetweenRefs(ctx, o.cfg.RepoPath, state.BaseBranch, w.Branch)
		if err != nil {
			actual = nil
		}
		o.learn(state, w, actual, 0, false)
	}

	if err := docstore.Remove(o.cfg.PendingConflictsPath()); err != nil {
		contract.LogWarn("Failed to remove pending conflicts", err)
	}
	for _, w := range state.Workers {
		if w.MergedAt == nil || o.tracker == nil {
			continue
		}
		status := o.cfg.ReviewStatus
		if w.Result != nil && w.Result.TrackerStatus != "" {
			status = w.Result.TrackerStatus
		}
		if !o.tracker.UpdateItemStatus(ctx, w.ItemID, status) {
			contract.LogWarn(fmt.Sprintf("Failed to move #%s", w.ItemID), fmt.Errorf("tracker did not accept status %q", status))
		}
	}
	for _, w := range state.Workers {
		if w.WorktreePath != "" {
			o.removeWorktree(ctx, w.WorktreePath)
		}
	}

	o.kb.UpdateMetrics()
	if err := o.kb.Save(); err != nil {
		return fmt.Errorf("save knowledge base: %w", err)
	}
	state.Phase = schema.PhaseCompleted
	state.Error = ""
	if err := o.saveState(state); err != nil {
		return err
	}
	o.endRun(state)
	o.logf("🎉 Swarm %s completed", state.ID)
	return nil
}

// learn feeds a worker outcome into the knowledge base and the run history.
func (o *Orchestrator) learn(state *schema.SwarmState, w *schema.WorkerState, actual []string, conflicts int, success bool) {
	outcome := schema.PatternOutcome{
		ActualFiles:   actual,
		ActualMinutes: w.ElapsedMinutes(),
		Conflicts:     conflicts,
		Success:       success,
	}
	scores, err := o.kb.RecordOutcome(w.PatternID, outcome)
	if err != nil {
		contract.LogWarn(fmt.Sprintf("Failed to record outcome of #%s", w.ItemID), err)
	}
	record := schema.WorkerOutcomeRecord{
		WorkerID:      int32(w.WorkerID),
		ItemID:        w.ItemID,
		Branch:        w.Branch,
		Status:        string(w.Status),
		ActualFiles:   int32(len(actual)),
		Precision:     scores.FilePrecision,
		Recall:        scores.FileRecall,
		ActualMinutes: int32(outcome.ActualMinutes),
		Conflicts:     int32(conflicts),
	}
	if p, ok := o.kb.GetPattern(w.PatternID); ok {
		record.PredictedFiles = int32(len(p.Predictions.Files))
		record.Confidence = string(p.Predictions.Confidence)
	}
	o.recordOutcome(state, record)
}

func (o *Orchestrator) mergeMessage(w *schema.WorkerState) string {
	title := ""
	if p, ok := o.kb.GetPattern(w.PatternID); ok {
		title = p.Input.Title
	}
	msg := fmt.Sprintf("Merge #%s", w.ItemID)
	if title != "" {
		msg += ": " + title
	}
	return strings.TrimSpace(o.cfg.CommitPrefix + " " + msg)
}

// mergeSequence returns the stored merge order, falling back to preparation order.
func mergeSequence(state *schema.SwarmState) []int {
	if len(state.MergeOrder) == len(state.Workers) {
		return state.MergeOrder
	}
	order := make([]int, len(state.Workers))
	for i, w := range state.Workers {
		order[i] = w.WorkerID
	}
	return order
}

// mergedFiles collects the files changed by workers already merged in this run.
func mergedFiles(state *schema.SwarmState) map[string]bool {
	files := make(map[string]bool)
	for _, w := range state.Workers {
		if w.MergedAt == nil || w.Result == nil {
			continue
		}
		for _, f := range w.Result.FilesChanged {
			files[f] = true
		}
	}
	return files
}
