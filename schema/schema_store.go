package schema

import "time"

// RunRecord represents a row from the swarm_runs table.
type RunRecord struct {
	RunID        int64
	SwarmID      string
	BaseBranch   string
	ItemCount    int32
	Phase        string
	StartTime    time.Time
	EndTime      *time.Time
	DurationMs   *int64
	ConfigParams *string
}

// WorkerOutcomeRecord represents a row from the swarm_worker_outcomes table.
type WorkerOutcomeRecord struct {
	RunID          int64
	WorkerID       int32
	ItemID         string
	Branch         string
	Status         string
	Confidence     string
	PredictedFiles int32
	ActualFiles    int32
	Precision      float64
	Recall         float64
	ActualMinutes  int32
	Conflicts      int32
	RecordedAt     time.Time
}

// HistoryStatus represents the status of the run history store.
type HistoryStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     int64            `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalOutcomes int              `json:"total_outcomes"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}
