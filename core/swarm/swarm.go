// Package swarm drives a multi-worker run from analysis to merge. Shared state lives in
// the swarm directory and is exchanged with workers through state.json.
package swarm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/docstore"
	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/schema"
)

var (
	// ErrTooManyItems is returned when a run asks for more workers than allowed.
	ErrTooManyItems = errors.New("too many items for one swarm")

	// ErrDirtyWorkingTree is returned when the repository has uncommitted changes.
	ErrDirtyWorkingTree = errors.New("working tree has uncommitted changes")

	// ErrSwarmInProgress is returned when a run is started while another is unfinished.
	ErrSwarmInProgress = errors.New("a swarm is already in progress")

	// ErrWorkersNotFinished is returned by Merge while some workers are still running.
	ErrWorkersNotFinished = errors.New("workers are not finished")

	// ErrMergeConflict is returned when merging a worker branch stops on conflicts.
	ErrMergeConflict = errors.New("merge conflict")

	// ErrNoSwarm is returned when no swarm state exists.
	ErrNoSwarm = errors.New("no swarm found")
)

// Orchestrator owns the lifecycle of one swarm directory.
type Orchestrator struct {
	cfg      *contract.Config
	git      contract.GitClient
	kb       *knowledge.KnowledgeBase
	tracker  contract.Tracker
	history  contract.HistoryStore
	now      func() time.Time
	newID    func() string
	progress io.Writer
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides how swarm ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// WithProgress redirects progress lines. A nil writer silences them.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) {
		if w == nil {
			w = io.Discard
		}
		o.progress = w
	}
}

// New wires an orchestrator. The tracker and history store may be nil.
func New(cfg *contract.Config, git contract.GitClient, kb *knowledge.KnowledgeBase, tracker contract.Tracker, history contract.HistoryStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		git:      git,
		kb:       kb,
		tracker:  tracker,
		history:  history,
		now:      time.Now,
		newID:    uuid.NewString,
		progress: os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// --- State document ---

// LoadState reads the swarm state at path, returning ErrNoSwarm if there is none.
func LoadState(path string) (*schema.SwarmState, error) {
	var state schema.SwarmState
	found, err := docstore.ReadJSON(path, &state)
	if err != nil {
		return nil, fmt.Errorf("read swarm state: %w", err)
	}
	if !found {
		return nil, ErrNoSwarm
	}
	return &state, nil
}

// State returns the current swarm state.
func (o *Orchestrator) State() (*schema.SwarmState, error) {
	return LoadState(o.cfg.StatePath())
}

func (o *Orchestrator) saveState(state *schema.SwarmState) error {
	state.UpdatedAt = o.now().UTC()
	if err := docstore.WriteJSONAtomic(o.cfg.StatePath(), state); err != nil {
		return fmt.Errorf("write swarm state: %w", err)
	}
	return nil
}

func (o *Orchestrator) setPhase(state *schema.SwarmState, phase schema.Phase) error {
	state.Phase = phase
	return o.saveState(state)
}

// fail marks the run failed, closes its history record and returns cause.
func (o *Orchestrator) fail(state *schema.SwarmState, cause error) error {
	state.Phase = schema.PhaseFailed
	state.Error = cause.Error()
	if err := o.saveState(state); err != nil {
		contract.LogWarn("Failed to persist failed swarm state", err)
	}
	o.endRun(state)
	return cause
}

// PendingConflicts returns the unresolved conflict report, if any.
func (o *Orchestrator) PendingConflicts() (*schema.PendingConflicts, error) {
	var pending schema.PendingConflicts
	found, err := docstore.ReadJSON(o.cfg.PendingConflictsPath(), &pending)
	if err != nil {
		return nil, fmt.Errorf("read pending conflicts: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &pending, nil
}

// --- History ---

func (o *Orchestrator) beginRun(state *schema.SwarmState) {
	if o.history == nil {
		return
	}
	params := map[string]any{
		"max_workers":          o.cfg.MaxWorkers,
		"heartbeat_timeout":    o.cfg.HeartbeatTimeout.String(),
		"branch_prefix":        o.cfg.BranchPrefix,
		"min_similar_patterns": o.cfg.MinSimilarPatterns,
		"items":                state.ItemIDs,
	}
	id, err := o.history.BeginRun(state.ID, state.BaseBranch, len(state.ItemIDs), state.CreatedAt, params)
	if err != nil {
		contract.LogWarn("Failed to record run start", err)
		return
	}
	state.HistoryID = id
}

func (o *Orchestrator) endRun(state *schema.SwarmState) {
	if o.history == nil || state.HistoryID == 0 {
		return
	}
	if err := o.history.EndRun(state.HistoryID, o.now().UTC(), state.Phase); err != nil {
		contract.LogWarn("Failed to record run end", err)
	}
}

func (o *Orchestrator) recordOutcome(state *schema.SwarmState, record schema.WorkerOutcomeRecord) {
	if o.history == nil || state.HistoryID == 0 {
		return
	}
	record.RecordedAt = o.now().UTC()
	if err := o.history.RecordWorkerOutcome(state.HistoryID, record); err != nil {
		contract.LogWarn(fmt.Sprintf("Failed to record outcome of worker %d", record.WorkerID), err)
	}
}

func (o *Orchestrator) logf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.progress, format+"\n", args...)
}
