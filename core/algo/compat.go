// Package algo holds the pure batching math: pairwise compatibility scoring,
// greedy batch assembly and batch ranking.
package algo

import (
	"math"
	"sort"

	"github.com/huangsam/hotswarm/schema"
)

// Compatibility weights. They sum to 1.
const (
	WeightFile       = 0.40
	WeightLayer      = 0.25
	WeightComplexity = 0.15
	WeightPriority   = 0.10
	WeightHistory    = 0.10
)

// Risk bucket floors for a compatibility total.
const (
	LowRiskFloor    = 0.7
	MediumRiskFloor = 0.5
)

// maxPriorityGap is the widest distance between two priorities (0 to 4).
const maxPriorityGap = 4.0

// ConflictHistory looks up the recorded conflict rate of a file pair.
type ConflictHistory interface {
	LookupConflictRisk(fileA, fileB string) (float64, bool)
}

// CalculateCompatibility scores how safely two predicted items can run in parallel.
// Every sub-score is symmetric, so swapping the arguments yields the same result.
func CalculateCompatibility(a, b schema.ItemPrediction, history ConflictHistory) schema.CompatibilityScore {
	shared, union := overlap(a.Files, b.Files)

	breakdown := schema.ScoreBreakdown{
		File:       1,
		Layer:      layerScore(a.Layers, b.Layers),
		Complexity: 1 - math.Abs(a.Complexity.Value()-b.Complexity.Value())/10,
		Priority:   clamp01(1 - math.Abs(float64(a.Item.Priority-b.Item.Priority))/maxPriorityGap),
		History:    historyScore(a.Files, b.Files, history),
	}
	if union > 0 {
		breakdown.File = 1 - float64(len(shared))/float64(union)
	}

	total := WeightFile*breakdown.File +
		WeightLayer*breakdown.Layer +
		WeightComplexity*breakdown.Complexity +
		WeightPriority*breakdown.Priority +
		WeightHistory*breakdown.History

	idA, idB := a.Item.ID, b.Item.ID
	if idB < idA {
		idA, idB = idB, idA
	}
	return schema.CompatibilityScore{
		ItemA:       idA,
		ItemB:       idB,
		Total:       total,
		Breakdown:   breakdown,
		SharedFiles: shared,
		Risk:        RiskFor(total),
	}
}

// RiskFor buckets a compatibility total.
func RiskFor(total float64) schema.RiskLevel {
	switch {
	case total >= LowRiskFloor:
		return schema.RiskLow
	case total >= MediumRiskFloor:
		return schema.RiskMedium
	default:
		return schema.RiskHigh
	}
}

// overlap returns the sorted shared entries and the size of the union.
func overlap(a, b []string) ([]string, int) {
	setA := toSet(a)
	setB := toSet(b)
	var shared []string
	for f := range setA {
		if _, ok := setB[f]; ok {
			shared = append(shared, f)
		}
	}
	sort.Strings(shared)
	return shared, len(setA) + len(setB) - len(shared)
}

func layerScore(a, b []string) float64 {
	shared, _ := overlap(a, b)
	denom := max(len(toSet(a)), len(toSet(b)), 1)
	return 1 - float64(len(shared))/float64(denom)
}

// historyScore is 1 minus the mean recorded risk over every cross pair with history.
// Risks are summed in sorted order so the result does not depend on argument order.
func historyScore(a, b []string, history ConflictHistory) float64 {
	if history == nil {
		return 1
	}
	var risks []float64
	for _, fa := range a {
		for _, fb := range b {
			if risk, ok := history.LookupConflictRisk(fa, fb); ok {
				risks = append(risks, risk)
			}
		}
	}
	if len(risks) == 0 {
		return 1
	}
	sort.Float64s(risks)
	var sum float64
	for _, r := range risks {
		sum += r
	}
	return clamp01(1 - sum/float64(len(risks)))
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
