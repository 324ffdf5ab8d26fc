package core

import (
	"path/filepath"
	"testing"

	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*Engine, *knowledge.KnowledgeBase) {
	t.Helper()
	kb, err := knowledge.Open(filepath.Join(t.TempDir(), "kb"))
	require.NoError(t, err)
	return NewEngine(kb, "octocat"), kb
}

func TestPredictFiles_ColdStartFallbackIsCapped(t *testing.T) {
	e, _ := newEngine(t)
	files, confidence := e.PredictFiles(schema.Item{Title: "Fix login button form page layout modal api endpoint route database"})
	assert.Equal(t, schema.ColdStart, confidence)
	assert.Len(t, files, 10)
	assert.Equal(t, "src/auth/**/*", files[0])
}

func TestPredictFiles_PrefersLearnedData(t *testing.T) {
	e, kb := newEngine(t)
	kb.UpdateFileAssociation("login", "src/auth/login.ts")

	files, confidence := e.PredictFiles(schema.Item{Title: "Fix login button"})
	assert.Equal(t, schema.Learned, confidence)
	assert.Equal(t, []string{"src/auth/login.ts"}, files)
}

func TestDetectLayers(t *testing.T) {
	assert.Equal(t, []string{"ui", "auth"}, DetectLayers(schema.Item{Title: "Fix login button"}))
	assert.Equal(t, []string{"api", "database"}, DetectLayers(schema.Item{Title: "Add endpoint", Description: "needs a migration"}))
	assert.Equal(t, []string{GeneralLayer}, DetectLayers(schema.Item{Title: "Misc chores"}))
}

func TestEstimateComplexity(t *testing.T) {
	tier, minutes := EstimateComplexity(schema.Item{Title: "Fix typo", Priority: 1})
	assert.Equal(t, schema.ComplexityHigh, tier)
	assert.Equal(t, 480, minutes)

	tier, minutes = EstimateComplexity(schema.Item{Title: "Fix typo", Priority: 3})
	assert.Equal(t, schema.ComplexityLow, tier)
	assert.Equal(t, 30, minutes)

	tier, _ = EstimateComplexity(schema.Item{Title: "Something", Priority: 2})
	assert.Equal(t, schema.ComplexityMedium, tier)
}

func TestPredict_Affinity(t *testing.T) {
	e, _ := newEngine(t)
	assert.Equal(t, schema.AffinityMine, e.Predict(schema.Item{ID: "1", Assignee: "octocat"}).Affinity)
	assert.Equal(t, schema.AffinityUnassigned, e.Predict(schema.Item{ID: "2"}).Affinity)
	assert.Equal(t, schema.AffinityOther, e.Predict(schema.Item{ID: "3", Assignee: "hubot"}).Affinity)
}

func TestSuggestBatches_DisjointItems(t *testing.T) {
	e, kb := newEngine(t)
	kb.UpdateFileAssociation("alpha", "a.go")
	kb.UpdateFileAssociation("beta", "b.go")

	batches := e.SuggestBatches([]schema.Item{
		{ID: "1", Title: "Tweak alpha widget", Priority: 2},
		{ID: "2", Title: "Tweak beta widget", Priority: 2},
	}, 3, 4, 0.6)

	require.Len(t, batches, 1)
	b := batches[0]
	assert.Equal(t, 1, b.Rank)
	assert.Equal(t, []string{"1", "2"}, b.ItemIDs())
	assert.InDelta(t, 0.75, b.AvgScore, 1e-9)
	assert.Equal(t, schema.RiskLow, b.Risk)
	assert.Contains(t, b.Reasons, "No predicted file overlap between items")
	assert.Contains(t, b.Warnings, "All items touch the general layer")
}

func TestSuggestBatches_Properties(t *testing.T) {
	e, _ := newEngine(t)
	items := []schema.Item{
		{ID: "1", Title: "Fix login button", Priority: 2},
		{ID: "2", Title: "Add API endpoint for orders", Priority: 2},
		{ID: "3", Title: "Update docs for deploy", Priority: 3},
		{ID: "4", Title: "Fix session timeout", Priority: 1},
		{ID: "5", Title: "Add database migration for invoices", Priority: 4},
		{ID: "6", Title: "Restyle settings modal", Priority: 0},
	}
	batches := e.SuggestBatches(items, 3, 3, 0.5)
	require.NotEmpty(t, batches)
	assert.LessOrEqual(t, len(batches), 3)

	seen := map[string]bool{}
	for i, b := range batches {
		assert.Equal(t, i+1, b.Rank)
		assert.GreaterOrEqual(t, len(b.Items), 2)
		assert.LessOrEqual(t, len(b.Items), 3)
		if i > 0 {
			assert.GreaterOrEqual(t, batches[i-1].AvgScore, b.AvgScore)
		}
		for _, id := range b.ItemIDs() {
			assert.False(t, seen[id], "item %s placed twice", id)
			seen[id] = true
		}
	}

	assert.Empty(t, e.SuggestBatches(items[:1], 3, 3, 0.5))
	assert.Empty(t, e.SuggestBatches(items, 3, 3, 1.01))
}

func TestGenerateReasoning(t *testing.T) {
	batch := schema.SwarmBatch{
		Items: []schema.ItemPrediction{
			{Item: schema.Item{ID: "1", Priority: 1}, Layers: []string{"ui"}, Complexity: schema.ComplexityHigh, Confidence: schema.ColdStart},
			{Item: schema.Item{ID: "2", Priority: 4}, Layers: []string{"api"}, Complexity: schema.ComplexityLow, Confidence: schema.Learned},
		},
		MaxMinutes: 480,
		PairScores: []schema.CompatibilityScore{{ItemA: "1", ItemB: "2", SharedFiles: []string{"a.go", "b.go", "c.go"}}},
	}
	reasons, warnings := GenerateReasoning(batch)
	assert.Equal(t, []string{"Items work in different layers (ui, api)"}, reasons)
	assert.Equal(t, []string{
		"High file overlap: #1 and #2 share 3 files",
		"Mixed complexity: finish times range up to 480 minutes",
		"Wide priority spread (P1 to P4)",
		"1 of 2 items use cold-start predictions",
	}, warnings)
}
