// Package outwriter renders batches, swarm status, merge reports and knowledge base
// summaries as tables, JSON or CSV.
package outwriter

import (
	"os"
	"time"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteBatches prints suggested batches using the configured output format.
func (ow *OutWriter) WriteBatches(batches []schema.SwarmBatch, cfg *contract.Config, duration time.Duration) error {
	return WriteBatchResults(batches, cfg, duration)
}

// WriteSwarmStatus prints the swarm state with stale workers flagged.
func (ow *OutWriter) WriteSwarmStatus(state *schema.SwarmState, stale []int, cfg *contract.Config) error {
	return WriteSwarmStatus(state, stale, cfg)
}

// WriteMergeReport prints the result of a merge pass.
func (ow *OutWriter) WriteMergeReport(report *schema.MergeReport, cfg *contract.Config) error {
	return WriteMergeReport(report, cfg)
}

// WriteConflicts prints an outstanding conflict report.
func (ow *OutWriter) WriteConflicts(pending *schema.PendingConflicts, cfg *contract.Config) error {
	return WriteConflicts(pending, cfg)
}

// WriteKnowledgeStats prints the knowledge base summary.
func (ow *OutWriter) WriteKnowledgeStats(stats schema.KnowledgeStats, cfg *contract.Config) error {
	return WriteKnowledgeStats(stats, cfg)
}

// WritePredictions prints per-item footprints.
func (ow *OutWriter) WritePredictions(preds []schema.ItemPrediction, cfg *contract.Config) error {
	return WritePredictions(preds, cfg)
}

// WriteSearchResults prints patterns matched by a keyword search.
func (ow *OutWriter) WriteSearchResults(results []knowledge.SearchResult, patterns []schema.IssuePattern, cfg *contract.Config) error {
	return WriteSearchResults(results, patterns, cfg)
}

// WriteHistoryStatus prints the run history store status.
func (ow *OutWriter) WriteHistoryStatus(status schema.HistoryStatus, cfg *contract.Config) error {
	return WriteHistoryStatus(status, cfg)
}

// getMaxTablePathWidth calculates the maximum width for file paths in table output
// based on terminal width and the width taken by the other columns.
func getMaxTablePathWidth(cfg *contract.Config, fixedColumns int) int {
	termWidth := cfg.Width
	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve space for table borders, separators, and padding
	available := termWidth - fixedColumns - 20
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
