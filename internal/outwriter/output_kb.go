package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/schema"
)

// WriteKnowledgeStats outputs the knowledge base summary.
func WriteKnowledgeStats(stats schema.KnowledgeStats, cfg *contract.Config) error {
	fmtFloat := createFormatters(cfg.Precision)
	return dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, stats) },
		func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"metric", "value"}, func(cw *csv.Writer) error {
				for _, kv := range statsRows(stats, fmtFloat) {
					if err := cw.Write(kv); err != nil {
						return err
					}
				}
				return nil
			})
		},
		func(w io.Writer) error {
			if err := headline(w, "🧠 Knowledge base"); err != nil {
				return err
			}
			return renderTable(w, []string{"Metric", "Value"}, statsRows(stats, fmtFloat))
		},
	)
}

func statsRows(stats schema.KnowledgeStats, fmtFloat func(float64) string) [][]string {
	m := stats.Metrics
	rows := [][]string{
		{"patterns", strconv.Itoa(stats.TotalPatterns)},
		{"scored_patterns", strconv.Itoa(stats.ScoredPatterns)},
		{"keywords", strconv.Itoa(stats.TotalKeywords)},
		{"files", strconv.Itoa(stats.TotalFiles)},
		{"conflict_pairs", strconv.Itoa(stats.ConflictPairs)},
		{"high_risk_pairs", strconv.Itoa(stats.HighRiskPairs)},
		{"cold_start_samples", strconv.Itoa(m.ColdStart.Samples)},
		{"cold_start_precision", fmtFloat(m.ColdStart.AvgPrecision)},
		{"cold_start_recall", fmtFloat(m.ColdStart.AvgRecall)},
		{"learned_samples", strconv.Itoa(m.Learned.Samples)},
		{"learned_precision", fmtFloat(m.Learned.AvgPrecision)},
		{"learned_recall", fmtFloat(m.Learned.AvgRecall)},
		{"improvement_rate", fmtFloat(m.ImprovementRate)},
	}
	if top := stats.TopConflictPair; top != nil {
		rows = append(rows, []string{"top_conflict_pair", fmt.Sprintf("%s <-> %s (%s)", top.FileA, top.FileB, fmtFloat(top.ConflictRate))})
	}
	return rows
}

// searchView is the JSON shape of one search hit.
type searchView struct {
	PatternID string   `json:"pattern_id"`
	Score     int      `json:"score"`
	ItemID    string   `json:"item_id"`
	Title     string   `json:"title"`
	Files     []string `json:"files"`
}

// WriteSearchResults outputs patterns matched by a keyword search.
// patterns holds the pattern of each result at the same index.
func WriteSearchResults(results []knowledge.SearchResult, patterns []schema.IssuePattern, cfg *contract.Config) error {
	views := make([]searchView, len(results))
	for i, r := range results {
		v := searchView{PatternID: r.PatternID, Score: r.Score}
		if i < len(patterns) {
			p := patterns[i]
			v.ItemID, v.Title, v.Files = p.ItemID, p.Input.Title, p.Predictions.Files
			if p.Outcome != nil {
				v.Files = p.Outcome.ActualFiles
			}
		}
		views[i] = v
	}
	return dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, views) },
		func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"pattern_id", "score", "item_id", "title", "files"}, func(cw *csv.Writer) error {
				for _, v := range views {
					if err := cw.Write([]string{v.PatternID, strconv.Itoa(v.Score), v.ItemID, v.Title, strings.Join(v.Files, "|")}); err != nil {
						return err
					}
				}
				return nil
			})
		},
		func(w io.Writer) error {
			if len(views) == 0 {
				_, err := fmt.Fprintln(w, "No matching patterns.")
				return err
			}
			width := getMaxTablePathWidth(cfg, 40)
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.ItemID, strconv.Itoa(v.Score), contract.TruncatePath(v.Title, width), strconv.Itoa(len(v.Files))})
			}
			return renderTable(w, []string{"Item", "Score", "Title", "Files"}, rows)
		},
	)
}
