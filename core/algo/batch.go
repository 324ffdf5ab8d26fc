package algo

import (
	"sort"

	"github.com/huangsam/hotswarm/schema"
)

// noPriority is the urgency assigned to priority 0 so unprioritized items sort last.
const noPriority = 5

// Matrix holds pairwise compatibility scores keyed by schema.PairKey of item ids.
type Matrix map[string]schema.CompatibilityScore

// BuildMatrix scores every unordered pair of predictions.
func BuildMatrix(preds []schema.ItemPrediction, history ConflictHistory) Matrix {
	m := make(Matrix, len(preds)*(len(preds)-1)/2)
	for i := 0; i < len(preds); i++ {
		for j := i + 1; j < len(preds); j++ {
			score := CalculateCompatibility(preds[i], preds[j], history)
			m[schema.PairKey(preds[i].Item.ID, preds[j].Item.ID)] = score
		}
	}
	return m
}

// Score returns the compatibility total of two items, or 0 when the pair is unknown.
func (m Matrix) Score(a, b string) float64 {
	return m[schema.PairKey(a, b)].Total
}

// Pair returns the full score of two items.
func (m Matrix) Pair(a, b string) (schema.CompatibilityScore, bool) {
	s, ok := m[schema.PairKey(a, b)]
	return s, ok
}

// GreedyBatchSelection assembles one batch. Candidates are ordered by assignee
// affinity then urgency, the first one seeds the batch, and the candidate with the
// best average compatibility against the batch is added while that average stays at
// or above minCompatibility and the batch is below maxSize.
func GreedyBatchSelection(preds []schema.ItemPrediction, matrix Matrix, maxSize int, minCompatibility float64, exclude map[string]bool) []schema.ItemPrediction {
	if maxSize < 1 {
		return nil
	}
	var candidates []schema.ItemPrediction
	for _, p := range preds {
		if !exclude[p.Item.ID] {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := affinityRank(candidates[i].Affinity), affinityRank(candidates[j].Affinity)
		if ri != rj {
			return ri < rj
		}
		return urgency(candidates[i].Item.Priority) < urgency(candidates[j].Item.Priority)
	})

	batch := []schema.ItemPrediction{candidates[0]}
	remaining := candidates[1:]
	for len(batch) < maxSize && len(remaining) > 0 {
		best, bestAvg := -1, 0.0
		for i, c := range remaining {
			avg := averageAgainst(c, batch, matrix)
			if avg >= minCompatibility && (best < 0 || avg > bestAvg) {
				best, bestAvg = i, avg
			}
		}
		if best < 0 {
			break
		}
		batch = append(batch, remaining[best])
		remaining = append(remaining[:best:best], remaining[best+1:]...)
	}
	return batch
}

// SummarizeBatch fills the score and duration fields of a batch from its members.
func SummarizeBatch(members []schema.ItemPrediction, matrix Matrix) schema.SwarmBatch {
	batch := schema.SwarmBatch{Items: members}
	var sum float64
	var pairs int
	for i := 0; i < len(members); i++ {
		batch.TotalMinutes += members[i].Minutes
		batch.MaxMinutes = max(batch.MaxMinutes, members[i].Minutes)
		for j := i + 1; j < len(members); j++ {
			score, _ := matrix.Pair(members[i].Item.ID, members[j].Item.ID)
			batch.PairScores = append(batch.PairScores, score)
			if pairs == 0 || score.Total < batch.MinScore {
				batch.MinScore = score.Total
			}
			sum += score.Total
			pairs++
		}
	}
	if pairs > 0 {
		batch.AvgScore = sum / float64(pairs)
	}
	batch.Risk = RiskFor(batch.AvgScore)
	return batch
}

// RankBatches sorts batches by descending average score and numbers them from 1.
func RankBatches(batches []schema.SwarmBatch) []schema.SwarmBatch {
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].AvgScore > batches[j].AvgScore
	})
	for i := range batches {
		batches[i].Rank = i + 1
	}
	return batches
}

func averageAgainst(c schema.ItemPrediction, batch []schema.ItemPrediction, matrix Matrix) float64 {
	var sum float64
	for _, member := range batch {
		sum += matrix.Score(c.Item.ID, member.Item.ID)
	}
	return sum / float64(len(batch))
}

func affinityRank(a schema.Affinity) int {
	switch a {
	case schema.AffinityMine:
		return 0
	case schema.AffinityOther:
		return 2
	default:
		return 1
	}
}

func urgency(priority int) int {
	if priority <= 0 {
		return noPriority
	}
	return priority
}
