package schema

import "time"

// WorkerProgress is the latest progress report of a worker.
type WorkerProgress struct {
	Step      string `json:"step"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// WorkerResult is what a worker reports when it completes.
type WorkerResult struct {
	Summary       string   `json:"summary,omitempty"`
	FilesChanged  []string `json:"files_changed,omitempty"`
	TrackerStatus string   `json:"tracker_status,omitempty"`
}

// WorkerState is the shared record of one worker within a run.
type WorkerState struct {
	WorkerID     int            `json:"worker_id"`
	ItemID       string         `json:"item_id"`
	PatternID    string         `json:"pattern_id"`
	Status       WorkerStatus   `json:"status"`
	WorktreePath string         `json:"worktree_path"`
	Branch       string         `json:"branch"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	MergedAt     *time.Time     `json:"merged_at,omitempty"`
	Heartbeat    *time.Time     `json:"heartbeat,omitempty"`
	Progress     WorkerProgress `json:"progress"`
	Result       *WorkerResult  `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// ElapsedMinutes returns completedAt - startedAt in whole minutes, or 0 if unknown.
func (w WorkerState) ElapsedMinutes() int {
	if w.StartedAt == nil || w.CompletedAt == nil {
		return 0
	}
	return int(w.CompletedAt.Sub(*w.StartedAt).Round(time.Minute) / time.Minute)
}

// WorkerConfig is the static document written into each worktree during preparation.
type WorkerConfig struct {
	SwarmID           string    `json:"swarm_id"`
	WorkerID          int       `json:"worker_id"`
	ItemID            string    `json:"item_id"`
	PatternID         string    `json:"pattern_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Branch            string    `json:"branch"`
	BaseBranch        string    `json:"base_branch"`
	SwarmDir          string    `json:"swarm_dir"`
	CommitPrefix      string    `json:"commit_prefix"`
	PredictedFiles    []string  `json:"predicted_files"`
	HeartbeatInterval string    `json:"heartbeat_interval"`
	CreatedAt         time.Time `json:"created_at"`
}

// PairOverlap is the shared-file footprint of two items.
type PairOverlap struct {
	ItemA       string    `json:"item_a"`
	ItemB       string    `json:"item_b"`
	SharedFiles []string  `json:"shared_files"`
	Risk        RiskLevel `json:"risk"`
}

// OverlapAnalysis summarizes pairwise predicted-file overlap for a run.
type OverlapAnalysis struct {
	Predictions    map[string][]string `json:"predictions"`
	Pairs          []PairOverlap       `json:"pairs"`
	HighRiskPairs  int                 `json:"high_risk_pairs"`
	Warnings       []string            `json:"warnings,omitempty"`
	Recommendation Recommendation      `json:"recommendation"`
}

// SwarmState is the shared record of an orchestration run.
type SwarmState struct {
	ID         string           `json:"id"`
	Phase      Phase            `json:"phase"`
	BaseBranch string           `json:"base_branch"`
	ItemIDs    []string         `json:"item_ids"`
	Workers    []WorkerState    `json:"workers"`
	Overlap    *OverlapAnalysis `json:"overlap,omitempty"`
	MergeOrder []int            `json:"merge_order"`
	HistoryID  int64            `json:"history_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Error      string           `json:"error,omitempty"`
}

// Worker returns a pointer to the worker with the given ordinal, or nil.
func (s *SwarmState) Worker(id int) *WorkerState {
	for i := range s.Workers {
		if s.Workers[i].WorkerID == id {
			return &s.Workers[i]
		}
	}
	return nil
}

// Unfinished returns the workers that are not yet in a terminal state.
func (s *SwarmState) Unfinished() []WorkerState {
	var out []WorkerState
	for _, w := range s.Workers {
		if !w.Status.Terminal() {
			out = append(out, w)
		}
	}
	return out
}

// ConflictBlock is one <<<<<<< / ======= / >>>>>>> region of a conflicted file.
type ConflictBlock struct {
	Ours      string `json:"ours"`
	Theirs    string `json:"theirs"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// ConflictFile groups the conflict blocks found in one file.
type ConflictFile struct {
	Path   string          `json:"path"`
	Blocks []ConflictBlock `json:"blocks"`
}

// PendingConflicts is the artifact written when a merge halts on conflicts.
type PendingConflicts struct {
	SwarmID         string         `json:"swarm_id"`
	WorkerID        int            `json:"worker_id"`
	ItemID          string         `json:"item_id"`
	ItemTitle       string         `json:"item_title,omitempty"`
	ItemDescription string         `json:"item_description,omitempty"`
	Branch          string         `json:"branch"`
	BaseBranch      string         `json:"base_branch"`
	Files           []ConflictFile `json:"files"`
	ChangedFiles    []string       `json:"changed_files,omitempty"` // Files the branch changed before the merge
	Error           string         `json:"error,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// MergeReport summarizes one merge invocation.
type MergeReport struct {
	SwarmID   string            `json:"swarm_id"`
	Merged    []int             `json:"merged,omitempty"`
	Skipped   []int             `json:"skipped,omitempty"`
	Pending   []WorkerState     `json:"pending,omitempty"`
	Conflict  *PendingConflicts `json:"conflict,omitempty"`
	Completed bool              `json:"completed"`
}
