// Package parquet exports run history and knowledge base data to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/hotswarm/schema"
	"github.com/parquet-go/parquet-go"
)

// SwarmRun is one swarm run. It maps to the swarm_runs table.
type SwarmRun struct {
	RunID int64 `parquet:"run_id,snappy"`

	SwarmID    string `parquet:"swarm_id,snappy"`
	BaseBranch string `parquet:"base_branch,snappy"`
	ItemCount  int32  `parquet:"item_count,snappy"`

	// Phase is the last recorded swarm phase
	Phase string `parquet:"phase,snappy"`

	StartTime time.Time  `parquet:"start_time,snappy"`
	EndTime   *time.Time `parquet:"end_time,optional,snappy"`

	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// WorkerOutcome is the graded outcome of one worker. It maps to the swarm_worker_outcomes table.
type WorkerOutcome struct {
	RunID          int64     `parquet:"run_id,snappy"`
	WorkerID       int32     `parquet:"worker_id,snappy"`
	ItemID         string    `parquet:"item_id,snappy"`
	Branch         string    `parquet:"branch,snappy"`
	Status         string    `parquet:"status,snappy"`
	Confidence     string    `parquet:"confidence,snappy"`
	PredictedFiles int32     `parquet:"predicted_files,snappy"`
	ActualFiles    int32     `parquet:"actual_files,snappy"`
	FilePrecision  float64   `parquet:"file_precision,snappy"`
	FileRecall     float64   `parquet:"file_recall,snappy"`
	ActualMinutes  int32     `parquet:"actual_minutes,snappy"`
	Conflicts      int32     `parquet:"conflicts,snappy"`
	RecordedAt     time.Time `parquet:"recorded_at,snappy"`
}

// Pattern is a flattened knowledge base pattern. List fields are joined with ";".
type Pattern struct {
	PatternID        string    `parquet:"pattern_id,snappy"`
	ItemID           string    `parquet:"item_id,snappy"`
	Timestamp        time.Time `parquet:"timestamp,snappy"`
	Title            string    `parquet:"title,snappy"`
	Keywords         string    `parquet:"keywords,snappy"`
	PredictedFiles   string    `parquet:"predicted_files,snappy"`
	EstimatedMinutes int32     `parquet:"estimated_minutes,snappy"`
	Complexity       string    `parquet:"complexity,snappy"`
	Confidence       string    `parquet:"confidence,snappy"`

	// Outcome columns are null until the pattern was learned from
	ActualFiles   *string  `parquet:"actual_files,optional,snappy"`
	ActualMinutes *int32   `parquet:"actual_minutes,optional,snappy"`
	Conflicts     *int32   `parquet:"conflicts,optional,snappy"`
	Success       *bool    `parquet:"success,optional,snappy"`
	FilePrecision *float64 `parquet:"file_precision,optional,snappy"`
	FileRecall    *float64 `parquet:"file_recall,optional,snappy"`
	TimeAccuracy  *float64 `parquet:"time_accuracy,optional,snappy"`
}

// ConflictPair is one observed file pair from the conflict graph.
type ConflictPair struct {
	FileA               string    `parquet:"file_a,snappy"`
	FileB               string    `parquet:"file_b,snappy"`
	ConflictCount       int32     `parquet:"conflict_count,snappy"`
	CoModificationCount int32     `parquet:"co_modification_count,snappy"`
	ConflictRate        float64   `parquet:"conflict_rate,snappy"`
	LastSeen            time.Time `parquet:"last_seen,snappy"`
}

// writeRows writes rows to a Parquet file whose schema is inferred from T's struct tags.
func writeRows[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// WriteSwarmRunsParquet writes swarm runs to a Parquet file.
func WriteSwarmRunsParquet(data []SwarmRun, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteWorkerOutcomesParquet writes worker outcomes to a Parquet file.
func WriteWorkerOutcomesParquet(data []WorkerOutcome, outputPath string) error {
	return writeRows(data, outputPath)
}

// WritePatternsParquet writes flattened patterns to a Parquet file.
func WritePatternsParquet(data []Pattern, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteConflictPairsParquet writes conflict pairs to a Parquet file.
func WriteConflictPairsParquet(data []ConflictPair, outputPath string) error {
	return writeRows(data, outputPath)
}

// --- Conversions ---

// ConvertRunRecords converts history rows to Parquet rows.
func ConvertRunRecords(records []schema.RunRecord) []SwarmRun {
	out := make([]SwarmRun, len(records))
	for i, r := range records {
		out[i] = SwarmRun{
			RunID:         r.RunID,
			SwarmID:       r.SwarmID,
			BaseBranch:    r.BaseBranch,
			ItemCount:     r.ItemCount,
			Phase:         r.Phase,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			RunDurationMs: r.DurationMs,
			ConfigParams:  r.ConfigParams,
		}
	}
	return out
}

// ConvertWorkerOutcomeRecords converts history rows to Parquet rows.
func ConvertWorkerOutcomeRecords(records []schema.WorkerOutcomeRecord) []WorkerOutcome {
	out := make([]WorkerOutcome, len(records))
	for i, r := range records {
		out[i] = WorkerOutcome{
			RunID:          r.RunID,
			WorkerID:       r.WorkerID,
			ItemID:         r.ItemID,
			Branch:         r.Branch,
			Status:         r.Status,
			Confidence:     r.Confidence,
			PredictedFiles: r.PredictedFiles,
			ActualFiles:    r.ActualFiles,
			FilePrecision:  r.Precision,
			FileRecall:     r.Recall,
			ActualMinutes:  r.ActualMinutes,
			Conflicts:      r.Conflicts,
			RecordedAt:     r.RecordedAt,
		}
	}
	return out
}

// ConvertPatterns flattens knowledge base patterns.
func ConvertPatterns(patterns []schema.IssuePattern) []Pattern {
	out := make([]Pattern, len(patterns))
	for i, p := range patterns {
		row := Pattern{
			PatternID:        p.ID,
			ItemID:           p.ItemID,
			Timestamp:        p.Timestamp,
			Title:            p.Input.Title,
			Keywords:         strings.Join(p.Input.Keywords, ";"),
			PredictedFiles:   strings.Join(p.Predictions.Files, ";"),
			EstimatedMinutes: int32(p.Predictions.EstimatedMinutes),
			Complexity:       string(p.Predictions.Complexity),
			Confidence:       string(p.Predictions.Confidence),
		}
		if o := p.Outcome; o != nil {
			files := strings.Join(o.ActualFiles, ";")
			minutes, conflicts, success := int32(o.ActualMinutes), int32(o.Conflicts), o.Success
			row.ActualFiles, row.ActualMinutes, row.Conflicts, row.Success = &files, &minutes, &conflicts, &success
		}
		if s := p.Scores; s != nil {
			precision, recall, timeAcc := s.FilePrecision, s.FileRecall, s.TimeAccuracy
			row.FilePrecision, row.FileRecall, row.TimeAccuracy = &precision, &recall, &timeAcc
		}
		out[i] = row
	}
	return out
}

// ConvertConflictPairs converts conflict graph records.
func ConvertConflictPairs(pairs []schema.ConflictPair) []ConflictPair {
	out := make([]ConflictPair, len(pairs))
	for i, p := range pairs {
		out[i] = ConflictPair{
			FileA:               p.FileA,
			FileB:               p.FileB,
			ConflictCount:       int32(p.ConflictCount),
			CoModificationCount: int32(p.CoModificationCount),
			ConflictRate:        p.ConflictRate,
			LastSeen:            p.LastSeen,
		}
	}
	return out
}
