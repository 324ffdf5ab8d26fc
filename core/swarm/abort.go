package swarm

import (
	"context"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/docstore"
	"github.com/huangsam/hotswarm/schema"
)

// Abort marks an unfinished run failed and removes its worktrees. Branches are kept
// so no work is lost. Aborting a finished run is a no-op.
func (o *Orchestrator) Abort(ctx context.Context, reason string) (*schema.SwarmState, error) {
	state, err := o.State()
	if err != nil {
		return nil, err
	}
	if state.Phase == schema.PhaseCompleted || state.Phase == schema.PhaseFailed {
		return state, nil
	}
	if reason == "" {
		reason = "aborted by operator"
	}
	for _, w := range state.Workers {
		if w.WorktreePath != "" {
			o.removeWorktree(ctx, w.WorktreePath)
		}
	}
	if err := docstore.Remove(o.cfg.PendingConflictsPath()); err != nil {
		contract.LogWarn("Failed to remove pending conflicts", err)
	}
	state.Phase = schema.PhaseFailed
	state.Error = reason
	if err := o.saveState(state); err != nil {
		return state, err
	}
	o.endRun(state)
	o.logf("🛑 Swarm %s aborted: %s", state.ID, reason)
	return state, nil
}
