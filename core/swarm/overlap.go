package swarm

import (
	"fmt"
	"sort"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/schema"
)

// Overlap risk tuning.
const (
	highOverlapFloor    = 6 // shared files at which a pair is high risk
	minPatternSupport   = 2 // similar patterns a file must appear in to be predicted
	similarPatternLimit = 10
	maxHighRiskPairs    = 2 // high-risk pairs tolerated before forcing a sequential run
)

// WithOutcomes keeps the patterns whose outcome has been recorded.
func WithOutcomes(patterns []schema.IssuePattern) []schema.IssuePattern {
	var out []schema.IssuePattern
	for _, p := range patterns {
		if p.Outcome != nil {
			out = append(out, p)
		}
	}
	return out
}

// FilesFromPatterns returns the actual files that appear in at least two of the given
// patterns, most frequent first. Patterns without an outcome are ignored.
func FilesFromPatterns(patterns []schema.IssuePattern) []string {
	counts := make(map[string]int)
	for _, p := range patterns {
		if p.Outcome == nil {
			continue
		}
		files := p.Outcome.ActualFiles
		seen := make(map[string]struct{}, len(files))
		for _, f := range files {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			counts[f]++
		}
	}
	var out []string
	for f, n := range counts {
		if n >= minPatternSupport {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > contract.MaxPredictedFiles {
		out = out[:contract.MaxPredictedFiles]
	}
	return out
}

// OverlapRisk labels a shared-file count. Counts below threshold are low risk.
func OverlapRisk(shared, threshold int) schema.RiskLevel {
	switch {
	case shared == 0:
		return schema.RiskNone
	case shared >= highOverlapFloor:
		return schema.RiskHigh
	case shared >= threshold:
		return schema.RiskMedium
	default:
		return schema.RiskLow
	}
}

// AnalyzeOverlap compares every pair of predictions in item order.
func AnalyzeOverlap(itemIDs []string, predictions map[string][]string, threshold int) *schema.OverlapAnalysis {
	analysis := &schema.OverlapAnalysis{Predictions: predictions}
	for i := 0; i < len(itemIDs); i++ {
		for j := i + 1; j < len(itemIDs); j++ {
			a, b := itemIDs[i], itemIDs[j]
			shared := sharedFiles(predictions[a], predictions[b])
			pair := schema.PairOverlap{ItemA: a, ItemB: b, SharedFiles: shared, Risk: OverlapRisk(len(shared), threshold)}
			analysis.Pairs = append(analysis.Pairs, pair)
			switch pair.Risk {
			case schema.RiskHigh:
				analysis.HighRiskPairs++
				analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("#%s and #%s share %d predicted files", a, b, len(shared)))
			case schema.RiskMedium:
				analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("#%s and #%s may collide on %d files", a, b, len(shared)))
			}
		}
	}
	switch {
	case analysis.HighRiskPairs > maxHighRiskPairs:
		analysis.Recommendation = schema.RecommendSequential
	case analysis.HighRiskPairs > 0:
		analysis.Recommendation = schema.RecommendReorder
	default:
		analysis.Recommendation = schema.RecommendProceed
	}
	return analysis
}

// MergeOrder returns worker ids in merge order. With a reorder recommendation the
// workers sharing the fewest predicted files merge first; otherwise preparation order.
func MergeOrder(workers []schema.WorkerState, analysis *schema.OverlapAnalysis) []int {
	order := make([]int, len(workers))
	for i, w := range workers {
		order[i] = w.WorkerID
	}
	if analysis == nil || analysis.Recommendation != schema.RecommendReorder {
		return order
	}
	load := make(map[string]int)
	for _, pair := range analysis.Pairs {
		load[pair.ItemA] += len(pair.SharedFiles)
		load[pair.ItemB] += len(pair.SharedFiles)
	}
	byID := make(map[int]string, len(workers))
	for _, w := range workers {
		byID[w.WorkerID] = w.ItemID
	}
	sort.SliceStable(order, func(i, j int) bool {
		return load[byID[order[i]]] < load[byID[order[j]]]
	})
	return order
}

func sharedFiles(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, f := range a {
		set[f] = struct{}{}
	}
	var shared []string
	for _, f := range b {
		if _, ok := set[f]; ok {
			shared = append(shared, f)
			delete(set, f)
		}
	}
	sort.Strings(shared)
	return shared
}
