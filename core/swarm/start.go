package swarm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/docstore"
	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/schema"
)

// itemPlan carries per-item analysis results into planning and preparation.
type itemPlan struct {
	item       schema.Item
	files      []string
	confidence schema.Confidence
	patternID  string
}

// Start validates preconditions, then runs analysis, planning and preparation in order.
// On a precondition failure nothing is written.
func (o *Orchestrator) Start(ctx context.Context, itemIDs []string) (*schema.SwarmState, error) {
	if err := o.checkPreconditions(ctx, itemIDs); err != nil {
		return nil, err
	}
	base, err := o.git.GetCurrentBranch(ctx, o.cfg.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve base branch: %w", err)
	}

	now := o.now().UTC()
	state := &schema.SwarmState{
		ID:         o.newID(),
		Phase:      schema.PhaseInitializing,
		BaseBranch: base,
		ItemIDs:    slices.Clone(itemIDs),
		CreatedAt:  now,
	}
	if err := os.MkdirAll(o.cfg.LogsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create swarm directory: %w", err)
	}
	if err := o.pendingReset(); err != nil {
		return nil, err
	}
	o.beginRun(state)
	if err := o.saveState(state); err != nil {
		return nil, err
	}
	o.logf("🐝 Starting swarm %s on %s with %d items", state.ID, base, len(itemIDs))

	plans, err := o.analyze(ctx, state)
	if err != nil {
		return state, o.fail(state, err)
	}
	if err := o.plan(state, plans); err != nil {
		return state, o.fail(state, err)
	}
	if err := o.prepare(ctx, state, plans); err != nil {
		return state, o.fail(state, err)
	}
	return state, nil
}

func (o *Orchestrator) checkPreconditions(ctx context.Context, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return errors.New("no items given")
	}
	if len(itemIDs) > o.cfg.MaxWorkers {
		return fmt.Errorf("%w: %d items exceed max-workers %d", ErrTooManyItems, len(itemIDs), o.cfg.MaxWorkers)
	}
	seen := make(map[string]bool, len(itemIDs))
	slugs := make(map[string]string, len(itemIDs))
	for _, id := range itemIDs {
		if err := contract.ValidateIdentifier("item id", id); err != nil {
			return err
		}
		if seen[id] {
			return fmt.Errorf("item %s given twice", id)
		}
		seen[id] = true
		slug := itemSlug(id)
		if other, clash := slugs[slug]; clash {
			return fmt.Errorf("items %s and %s would share worktree %s", other, id, slug)
		}
		slugs[slug] = id
	}

	if state, err := o.State(); err == nil {
		if state.Phase != schema.PhaseCompleted && state.Phase != schema.PhaseFailed {
			return fmt.Errorf("%w: %s is %s", ErrSwarmInProgress, state.ID, state.Phase)
		}
	} else if !errors.Is(err, ErrNoSwarm) {
		return err
	}

	dirty, err := o.git.GetDirtyFiles(ctx, o.cfg.RepoPath)
	if err != nil {
		return fmt.Errorf("check working tree: %w", err)
	}
	var blocking []string
	for _, f := range dirty {
		if !contract.ShouldIgnore(f, o.cfg.Excludes) {
			blocking = append(blocking, f)
		}
	}
	if len(blocking) > 0 {
		return fmt.Errorf("%w: %s", ErrDirtyWorkingTree, strings.Join(blocking, ", "))
	}
	return nil
}

// pendingReset drops a conflict report left behind by an earlier run.
func (o *Orchestrator) pendingReset() error {
	if err := docstore.Remove(o.cfg.PendingConflictsPath()); err != nil {
		return fmt.Errorf("remove stale pending conflicts: %w", err)
	}
	return nil
}

// --- Analysis ---

func (o *Orchestrator) analyze(ctx context.Context, state *schema.SwarmState) ([]itemPlan, error) {
	if err := o.setPhase(state, schema.PhaseAnalyzing); err != nil {
		return nil, err
	}
	items := o.resolveItems(ctx, state.ItemIDs)
	o.logf("🔍 Analyzing %d items", len(items))

	plans := make([]itemPlan, len(items))
	predictions := make(map[string][]string, len(items))
	for i, item := range items {
		plans[i] = o.predict(item)
		predictions[item.ID] = plans[i].files
	}
	state.Overlap = AnalyzeOverlap(state.ItemIDs, predictions, o.cfg.OverlapRiskThreshold)
	for _, w := range state.Overlap.Warnings {
		o.logf("⚠️  %s", w)
	}
	o.logf("📋 Recommendation: %s", state.Overlap.Recommendation)
	return plans, o.saveState(state)
}

// resolveItems fetches items from the tracker, keeping the requested order.
// Items the tracker cannot provide are planned from their id alone.
func (o *Orchestrator) resolveItems(ctx context.Context, ids []string) []schema.Item {
	byID := make(map[string]schema.Item)
	if o.tracker != nil {
		for _, item := range o.tracker.FetchItems(ctx, ids) {
			byID[item.ID] = item
		}
	}
	items := make([]schema.Item, len(ids))
	for i, id := range ids {
		item, ok := byID[id]
		if !ok {
			contract.LogWarn("Item not available from tracker", fmt.Errorf("planning #%s from its id only", id))
			item = schema.Item{ID: id}
		}
		items[i] = item
	}
	return items
}

// predict uses similar historical patterns when there are enough of them,
// and the cold-start heuristics otherwise.
func (o *Orchestrator) predict(item schema.Item) itemPlan {
	plan := itemPlan{item: item, confidence: schema.ColdStart}
	similar := WithOutcomes(o.kb.FindSimilarPatterns(item.Title, item.Description, similarPatternLimit))
	if len(similar) >= o.cfg.MinSimilarPatterns {
		plan.files = FilesFromPatterns(similar)
	}
	if len(plan.files) > 0 {
		plan.confidence = schema.Learned
		return plan
	}
	plan.files = knowledge.ColdStartPrediction(item.Title, item.Description).Globs
	if len(plan.files) > contract.MaxPredictedFiles {
		plan.files = plan.files[:contract.MaxPredictedFiles]
	}
	return plan
}

// --- Planning ---

func (o *Orchestrator) plan(state *schema.SwarmState, plans []itemPlan) error {
	if err := o.setPhase(state, schema.PhasePlanning); err != nil {
		return err
	}
	o.logf("🧭 Planning %d items", len(plans))
	for i := range plans {
		item := plans[i].item
		cold := knowledge.ColdStartPrediction(item.Title, item.Description)
		pattern, err := o.kb.AddPattern(schema.IssuePattern{
			ItemID:    item.ID,
			Timestamp: o.now().UTC(),
			Input: schema.PatternInput{
				Title:       item.Title,
				Description: item.Description,
				Keywords:    cold.Keywords,
				Labels:      item.Labels,
				Scope:       knowledge.InferScope(item.Title),
			},
			Predictions: schema.PatternPredictions{
				Files:            plans[i].files,
				EstimatedMinutes: cold.Minutes,
				Complexity:       cold.Complexity,
				ConflictRisk:     o.predictedConflictRisk(plans, i),
				Confidence:       plans[i].confidence,
			},
		})
		if err != nil {
			return fmt.Errorf("record pattern for #%s: %w", item.ID, err)
		}
		plans[i].patternID = pattern.ID
	}
	return o.saveState(state)
}

// predictedConflictRisk is the highest recorded risk between the item's files and
// the files of any other item in the run.
func (o *Orchestrator) predictedConflictRisk(plans []itemPlan, idx int) float64 {
	var risk float64
	for j, other := range plans {
		if j == idx {
			continue
		}
		for _, a := range plans[idx].files {
			for _, b := range other.files {
				risk = max(risk, o.kb.GetConflictRisk(a, b))
			}
		}
	}
	return risk
}

// --- Preparation ---

func (o *Orchestrator) prepare(ctx context.Context, state *schema.SwarmState, plans []itemPlan) error {
	if err := o.setPhase(state, schema.PhasePreparing); err != nil {
		return err
	}
	o.logf("🌲 Preparing %d worktrees under %s", len(plans), o.cfg.WorktreeBase)
	if err := o.excludeSwarmDir(ctx); err != nil {
		contract.LogWarn("Failed to hide swarm files from git", err)
	}

	for i, plan := range plans {
		worker := o.prepareWorker(ctx, state, i+1, plan)
		state.Workers = append(state.Workers, worker)
		if err := o.saveState(state); err != nil {
			return err
		}
	}
	state.MergeOrder = MergeOrder(state.Workers, state.Overlap)
	if err := o.setPhase(state, schema.PhaseExecuting); err != nil {
		return err
	}
	o.logf("🚀 Swarm %s is executing; agents can start in each worktree", state.ID)
	return nil
}

func (o *Orchestrator) prepareWorker(ctx context.Context, state *schema.SwarmState, workerID int, plan itemPlan) schema.WorkerState {
	slug := itemSlug(plan.item.ID)
	worker := schema.WorkerState{
		WorkerID:     workerID,
		ItemID:       plan.item.ID,
		PatternID:    plan.patternID,
		Status:       schema.WorkerPending,
		WorktreePath: filepath.Join(o.cfg.WorktreeBase, slug),
		Branch:       o.cfg.BranchPrefix + slug,
		CreatedAt:    o.now().UTC(),
	}

	if _, err := os.Stat(worker.WorktreePath); err == nil {
		o.removeWorktree(ctx, worker.WorktreePath)
	}
	if err := o.git.AddWorktree(ctx, o.cfg.RepoPath, worker.WorktreePath, worker.Branch, state.BaseBranch); err != nil {
		contract.LogWarn(fmt.Sprintf("Failed to create worktree for #%s", plan.item.ID), err)
		worker.Status = schema.WorkerFailed
		worker.Error = fmt.Sprintf("create worktree: %v", err)
		return worker
	}

	workerCfg := schema.WorkerConfig{
		SwarmID:           state.ID,
		WorkerID:          workerID,
		ItemID:            plan.item.ID,
		PatternID:         plan.patternID,
		Title:             plan.item.Title,
		Description:       plan.item.Description,
		Branch:            worker.Branch,
		BaseBranch:        state.BaseBranch,
		SwarmDir:          o.cfg.SwarmDir,
		CommitPrefix:      o.cfg.CommitPrefix,
		PredictedFiles:    plan.files,
		HeartbeatInterval: o.cfg.HeartbeatInterval.String(),
		CreatedAt:         worker.CreatedAt,
	}
	if err := docstore.WriteJSONAtomic(contract.WorkerConfigPath(worker.WorktreePath), workerCfg); err != nil {
		contract.LogWarn(fmt.Sprintf("Failed to write worker config for #%s", plan.item.ID), err)
		worker.Status = schema.WorkerFailed
		worker.Error = fmt.Sprintf("write worker config: %v", err)
		return worker
	}
	o.logf("  ✅ Worker %d: #%s on %s", workerID, plan.item.ID, worker.Branch)
	return worker
}

// itemSlug names the worktree directory and branch suffix of an item.
func itemSlug(id string) string {
	return "item-" + strings.ReplaceAll(id, "/", "-")
}

// removeWorktree is best effort: failures are logged and the directory is deleted anyway.
func (o *Orchestrator) removeWorktree(ctx context.Context, path string) {
	if err := o.git.RemoveWorktree(ctx, o.cfg.RepoPath, path); err != nil {
		contract.LogWarn(fmt.Sprintf("Failed to remove worktree %s", path), err)
	}
	if err := os.RemoveAll(path); err != nil {
		contract.LogWarn(fmt.Sprintf("Failed to delete %s", path), err)
	}
}

// excludeSwarmDir adds the swarm directory to the repository's info/exclude so worker
// documents inside worktrees never show up as changes.
func (o *Orchestrator) excludeSwarmDir(ctx context.Context) error {
	out, err := o.git.Run(ctx, o.cfg.RepoPath, "rev-parse", "--git-common-dir")
	if err != nil {
		return err
	}
	gitDir := strings.TrimSpace(string(out))
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(o.cfg.RepoPath, gitDir)
	}
	excludePath := filepath.Join(gitDir, "info", "exclude")

	entries := []string{"/" + contract.DefaultSwarmDir + "/"}
	if rel, err := filepath.Rel(o.cfg.RepoPath, o.cfg.SwarmDir); err == nil && !strings.HasPrefix(rel, "..") {
		entries = append(entries, "/"+filepath.ToSlash(rel)+"/")
	}

	existing, err := os.ReadFile(excludePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	lines := strings.Split(string(existing), "\n")
	var missing []string
	for _, e := range entries {
		if !slices.Contains(lines, e) && !slices.Contains(missing, e) {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(excludePath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(excludePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	prefix := ""
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		prefix = "\n"
	}
	_, err = f.WriteString(prefix + strings.Join(missing, "\n") + "\n")
	return err
}
