package algo

import (
	"testing"

	"github.com/huangsam/hotswarm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(preds []schema.ItemPrediction) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = p.Item.ID
	}
	return out
}

// fixedMatrix builds a matrix from explicit totals.
func fixedMatrix(totals map[[2]string]float64) Matrix {
	m := make(Matrix, len(totals))
	for pair, total := range totals {
		m[schema.PairKey(pair[0], pair[1])] = schema.CompatibilityScore{ItemA: pair[0], ItemB: pair[1], Total: total}
	}
	return m
}

func TestGreedyBatchSelection_SeedOrdering(t *testing.T) {
	preds := []schema.ItemPrediction{
		{Item: schema.Item{ID: "a", Priority: 1}, Affinity: schema.AffinityOther},
		{Item: schema.Item{ID: "b", Priority: 0}, Affinity: schema.AffinityMine},
		{Item: schema.Item{ID: "c", Priority: 2}, Affinity: schema.AffinityMine},
		{Item: schema.Item{ID: "d", Priority: 1}, Affinity: schema.AffinityUnassigned},
	}
	batch := GreedyBatchSelection(preds, Matrix{}, 1, 0, nil)
	assert.Equal(t, []string{"c"}, ids(batch))

	batch = GreedyBatchSelection(preds, Matrix{}, 1, 0, map[string]bool{"c": true, "b": true})
	assert.Equal(t, []string{"d"}, ids(batch))
}

func TestGreedyBatchSelection_BestAverageFirst(t *testing.T) {
	preds := []schema.ItemPrediction{
		{Item: schema.Item{ID: "a", Priority: 1}},
		{Item: schema.Item{ID: "b", Priority: 2}},
		{Item: schema.Item{ID: "c", Priority: 2}},
		{Item: schema.Item{ID: "d", Priority: 3}},
	}
	matrix := fixedMatrix(map[[2]string]float64{
		{"a", "b"}: 0.7, {"a", "c"}: 0.9, {"a", "d"}: 0.8,
		{"b", "c"}: 0.4, {"b", "d"}: 0.9, {"c", "d"}: 0.8,
	})

	batch := GreedyBatchSelection(preds, matrix, 4, 0.6, nil)
	// a seeds; c (0.9) joins; d averages 0.8 against {a,c}; b averages 0.667 against {a,c,d}.
	assert.Equal(t, []string{"a", "c", "d", "b"}, ids(batch))

	batch = GreedyBatchSelection(preds, matrix, 4, 0.7, nil)
	assert.Equal(t, []string{"a", "c", "d"}, ids(batch))
}

func TestGreedyBatchSelection_RespectsLimits(t *testing.T) {
	var preds []schema.ItemPrediction
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		preds = append(preds, schema.ItemPrediction{Item: schema.Item{ID: id, Priority: 2}})
	}
	totals := map[[2]string]float64{}
	values := []float64{0.95, 0.3, 0.62, 0.8, 0.55, 0.71, 0.66, 0.9, 0.2, 0.61, 0.75, 0.58, 0.99, 0.64, 0.7}
	k := 0
	for i := 0; i < len(preds); i++ {
		for j := i + 1; j < len(preds); j++ {
			totals[[2]string{preds[i].Item.ID, preds[j].Item.ID}] = values[k]
			k++
		}
	}
	matrix := fixedMatrix(totals)

	for maxSize := 1; maxSize <= 6; maxSize++ {
		for _, minCompat := range []float64{0, 0.5, 0.6, 0.7, 0.9} {
			batch := GreedyBatchSelection(preds, matrix, maxSize, minCompat, nil)
			require.NotEmpty(t, batch)
			assert.LessOrEqual(t, len(batch), maxSize)
			for n := 1; n < len(batch); n++ {
				avg := averageAgainst(batch[n], batch[:n], matrix)
				assert.GreaterOrEqual(t, avg, minCompat, "size=%d min=%.1f member=%s", maxSize, minCompat, batch[n].Item.ID)
			}
		}
	}
	assert.Nil(t, GreedyBatchSelection(preds, matrix, 0, 0, nil))
	assert.Nil(t, GreedyBatchSelection(nil, matrix, 3, 0, nil))
}

func TestBuildMatrixAndSummarize(t *testing.T) {
	preds := []schema.ItemPrediction{
		pred("1", 2, schema.ComplexityLow, []string{"ui"}, "a.ts"),
		pred("2", 2, schema.ComplexityLow, []string{"ui"}, "b.ts"),
		pred("3", 2, schema.ComplexityHigh, []string{"api"}, "a.ts"),
	}
	matrix := BuildMatrix(preds, nil)
	require.Len(t, matrix, 3)
	assert.InDelta(t, 0.75, matrix.Score("2", "1"), 1e-9)
	assert.Equal(t, matrix.Score("1", "3"), matrix.Score("3", "1"))
	assert.Zero(t, matrix.Score("1", "missing"))

	batch := SummarizeBatch(preds[:2], matrix)
	assert.InDelta(t, 0.75, batch.AvgScore, 1e-9)
	assert.InDelta(t, 0.75, batch.MinScore, 1e-9)
	assert.Equal(t, 60, batch.TotalMinutes)
	assert.Equal(t, 30, batch.MaxMinutes)
	assert.Equal(t, schema.RiskLow, batch.Risk)
	assert.Len(t, batch.PairScores, 1)
}

func TestRankBatches(t *testing.T) {
	batches := RankBatches([]schema.SwarmBatch{{AvgScore: 0.6}, {AvgScore: 0.9}, {AvgScore: 0.75}})
	require.Len(t, batches, 3)
	assert.Equal(t, []float64{0.9, 0.75, 0.6}, []float64{batches[0].AvgScore, batches[1].AvgScore, batches[2].AvgScore})
	assert.Equal(t, []int{1, 2, 3}, []int{batches[0].Rank, batches[1].Rank, batches[2].Rank})
}
