package algo

import (
	"testing"

	"github.com/huangsam/hotswarm/schema"
	"github.com/stretchr/testify/assert"
)

// fakeHistory is a fixed conflict table keyed by schema.PairKey.
type fakeHistory map[string]float64

func (h fakeHistory) LookupConflictRisk(a, b string) (float64, bool) {
	r, ok := h[schema.PairKey(a, b)]
	return r, ok
}

func pred(id string, priority int, complexity schema.Complexity, layers []string, files ...string) schema.ItemPrediction {
	return schema.ItemPrediction{
		Item:       schema.Item{ID: id, Title: "item " + id, Priority: priority},
		Files:      files,
		Layers:     layers,
		Complexity: complexity,
		Minutes:    complexity.Minutes(),
	}
}

func TestCalculateCompatibility_DisjointFilesSameLayer(t *testing.T) {
	a := pred("1", 2, schema.ComplexityLow, []string{"ui"}, "src/a.ts", "src/b.ts")
	b := pred("2", 2, schema.ComplexityLow, []string{"ui"}, "src/c.ts")

	score := CalculateCompatibility(a, b, fakeHistory{})
	assert.Equal(t, schema.ScoreBreakdown{File: 1, Layer: 0, Complexity: 1, Priority: 1, History: 1}, score.Breakdown)
	assert.InDelta(t, 0.75, score.Total, 1e-9)
	assert.Equal(t, schema.RiskLow, score.Risk)
	assert.Empty(t, score.SharedFiles)
}

func TestCalculateCompatibility_SubScores(t *testing.T) {
	a := pred("1", 1, schema.ComplexityHigh, []string{"ui", "api"}, "x.go", "y.go", "z.go")
	b := pred("2", 4, schema.ComplexityLow, []string{"api"}, "y.go", "z.go", "w.go")
	history := fakeHistory{
		schema.PairKey("y.go", "y.go"): 0.5,
		schema.PairKey("x.go", "w.go"): 0.3,
	}

	score := CalculateCompatibility(a, b, history)
	assert.InDelta(t, 1-2.0/4, score.Breakdown.File, 1e-9)
	assert.InDelta(t, 0.5, score.Breakdown.Layer, 1e-9)
	assert.InDelta(t, 0.1, score.Breakdown.Complexity, 1e-9)
	assert.InDelta(t, 0.25, score.Breakdown.Priority, 1e-9)
	assert.InDelta(t, 0.6, score.Breakdown.History, 1e-9)
	assert.Equal(t, []string{"y.go", "z.go"}, score.SharedFiles)

	want := 0.40*0.5 + 0.25*0.5 + 0.15*0.1 + 0.10*0.25 + 0.10*0.6
	assert.InDelta(t, want, score.Total, 1e-9)
	assert.Equal(t, schema.RiskHigh, score.Risk)
}

func TestCalculateCompatibility_IsSymmetric(t *testing.T) {
	preds := []schema.ItemPrediction{
		pred("1", 1, schema.ComplexityHigh, []string{"ui", "api"}, "x.go", "y.go", "z.go"),
		pred("2", 4, schema.ComplexityLow, []string{"api"}, "y.go", "w.go"),
		pred("3", 0, schema.ComplexityMedium, []string{"general"}),
		pred("4", 3, schema.ComplexityMedium, []string{"database", "test"}, "db/m.sql", "x.go"),
	}
	history := fakeHistory{
		schema.PairKey("x.go", "w.go"):     0.1,
		schema.PairKey("y.go", "y.go"):     0.7,
		schema.PairKey("z.go", "db/m.sql"): 0.2,
		schema.PairKey("x.go", "x.go"):     1.0 / 3,
	}
	for _, a := range preds {
		for _, b := range preds {
			ab := CalculateCompatibility(a, b, history)
			ba := CalculateCompatibility(b, a, history)
			assert.Equal(t, ab, ba, "%s vs %s", a.Item.ID, b.Item.ID)
		}
	}
}

func TestCalculateCompatibility_EmptyPredictions(t *testing.T) {
	score := CalculateCompatibility(pred("1", 0, "", nil), pred("2", 0, "", nil), nil)
	assert.Equal(t, 1.0, score.Breakdown.File)
	assert.Equal(t, 1.0, score.Breakdown.Layer)
	assert.Equal(t, 1.0, score.Breakdown.History)
	assert.InDelta(t, 1.0, score.Total, 1e-9)
}

func TestRiskFor(t *testing.T) {
	assert.Equal(t, schema.RiskLow, RiskFor(0.7))
	assert.Equal(t, schema.RiskMedium, RiskFor(0.69))
	assert.Equal(t, schema.RiskMedium, RiskFor(0.5))
	assert.Equal(t, schema.RiskHigh, RiskFor(0.49))
}
