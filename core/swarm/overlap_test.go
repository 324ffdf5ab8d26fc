package swarm

import (
	"fmt"
	"testing"

	"github.com/huangsam/hotswarm/schema"
	"github.com/stretchr/testify/assert"
)

func filesN(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s/f%d.go", prefix, i)
	}
	return out
}

func TestOverlapRisk(t *testing.T) {
	tests := []struct {
		shared int
		want   schema.RiskLevel
	}{
		{0, schema.RiskNone},
		{1, schema.RiskLow},
		{2, schema.RiskLow},
		{3, schema.RiskMedium},
		{5, schema.RiskMedium},
		{6, schema.RiskHigh},
		{20, schema.RiskHigh},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.shared), func(t *testing.T) {
			assert.Equal(t, tt.want, OverlapRisk(tt.shared, 3))
		})
	}
}

func TestAnalyzeOverlap(t *testing.T) {
	shared := filesN("src/core", 6)
	predictions := map[string][]string{
		"1": append(append([]string{}, shared...), "src/one.go"),
		"2": append(append([]string{}, shared...), "src/two.go"),
		"3": {"docs/readme.md", "src/core/f0.go", "src/core/f1.go", "src/core/f2.go"},
	}

	analysis := AnalyzeOverlap([]string{"1", "2", "3"}, predictions, 3)
	assert.Len(t, analysis.Pairs, 3)
	assert.Equal(t, "1", analysis.Pairs[0].ItemA)
	assert.Equal(t, "2", analysis.Pairs[0].ItemB)
	assert.Equal(t, shared, analysis.Pairs[0].SharedFiles)
	assert.Equal(t, schema.RiskHigh, analysis.Pairs[0].Risk)
	assert.Equal(t, schema.RiskMedium, analysis.Pairs[1].Risk)
	assert.Equal(t, 1, analysis.HighRiskPairs)
	assert.Equal(t, schema.RecommendReorder, analysis.Recommendation)
	assert.Equal(t, []string{
		"#1 and #2 share 6 predicted files",
		"#1 and #3 may collide on 3 files",
		"#2 and #3 may collide on 3 files",
	}, analysis.Warnings)
}

func TestAnalyzeOverlap_Recommendations(t *testing.T) {
	shared := filesN("lib", 7)
	all := map[string][]string{"a": shared, "b": shared, "c": shared, "d": {"x.go"}}

	analysis := AnalyzeOverlap([]string{"a", "b", "c", "d"}, all, 3)
	assert.Equal(t, 3, analysis.HighRiskPairs)
	assert.Equal(t, schema.RecommendSequential, analysis.Recommendation)

	analysis = AnalyzeOverlap([]string{"a", "d"}, all, 3)
	assert.Equal(t, schema.RecommendProceed, analysis.Recommendation)
	assert.Empty(t, analysis.Warnings)
	assert.Equal(t, schema.RiskNone, analysis.Pairs[0].Risk)
}

func TestMergeOrder(t *testing.T) {
	workers := []schema.WorkerState{
		{WorkerID: 1, ItemID: "a"},
		{WorkerID: 2, ItemID: "b"},
		{WorkerID: 3, ItemID: "c"},
	}
	analysis := &schema.OverlapAnalysis{
		Recommendation: schema.RecommendReorder,
		Pairs: []schema.PairOverlap{
			{ItemA: "a", ItemB: "b", SharedFiles: filesN("x", 6)},
			{ItemA: "a", ItemB: "c", SharedFiles: filesN("y", 1)},
		},
	}
	assert.Equal(t, []int{3, 2, 1}, MergeOrder(workers, analysis))

	analysis.Recommendation = schema.RecommendProceed
	assert.Equal(t, []int{1, 2, 3}, MergeOrder(workers, analysis))
	assert.Equal(t, []int{1, 2, 3}, MergeOrder(workers, nil))
}

func TestFilesFromPatterns(t *testing.T) {
	patterns := []schema.IssuePattern{
		{
			Predictions: schema.PatternPredictions{Files: []string{"y.go"}},
			Outcome:     &schema.PatternOutcome{ActualFiles: []string{"a.go", "b.go", "b.go"}},
		},
		{Outcome: &schema.PatternOutcome{ActualFiles: []string{"a.go", "c.go"}}},
		{
			Predictions: schema.PatternPredictions{Files: []string{"z.go"}},
			Outcome:     &schema.PatternOutcome{ActualFiles: []string{"a.go", "c.go", "b.go"}},
		},
		{Predictions: schema.PatternPredictions{Files: []string{"z.go", "y.go"}}},
	}
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, FilesFromPatterns(patterns))
	assert.Empty(t, FilesFromPatterns(patterns[:1]))
	assert.Len(t, WithOutcomes(patterns), 3)
}

func TestFilesFromPatterns_IgnoresUnscoredPredictions(t *testing.T) {
	patterns := []schema.IssuePattern{
		{Predictions: schema.PatternPredictions{Files: []string{"src/auth/**/*"}}},
		{Predictions: schema.PatternPredictions{Files: []string{"src/auth/**/*"}}},
	}
	assert.Empty(t, FilesFromPatterns(patterns))
	assert.Empty(t, WithOutcomes(patterns))
}
