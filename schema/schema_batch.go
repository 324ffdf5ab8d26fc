package schema

// ItemPrediction is the per-item footprint used for batching.
type ItemPrediction struct {
	Item       Item       `json:"item"`
	Files      []string   `json:"files"`
	Layers     []string   `json:"layers"`
	Complexity Complexity `json:"complexity"`
	Minutes    int        `json:"minutes"`
	Confidence Confidence `json:"confidence"`
	Affinity   Affinity   `json:"affinity"`
}

// ScoreBreakdown holds the five sub-scores of a compatibility score.
type ScoreBreakdown struct {
	File       float64 `json:"file"`
	Layer      float64 `json:"layer"`
	Complexity float64 `json:"complexity"`
	Priority   float64 `json:"priority"`
	History    float64 `json:"history"`
}

// CompatibilityScore measures how safely two items can run in parallel.
type CompatibilityScore struct {
	ItemA       string         `json:"item_a"`
	ItemB       string         `json:"item_b"`
	Total       float64        `json:"total"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	SharedFiles []string       `json:"shared_files,omitempty"`
	Risk        RiskLevel      `json:"risk"`
}

// SwarmBatch is a group of items suggested for parallel execution.
type SwarmBatch struct {
	Rank         int                  `json:"rank"`
	Items        []ItemPrediction     `json:"items"`
	AvgScore     float64              `json:"avg_score"`
	MinScore     float64              `json:"min_score"`
	TotalMinutes int                  `json:"total_minutes"`
	MaxMinutes   int                  `json:"max_minutes"`
	Risk         RiskLevel            `json:"risk"`
	Reasons      []string             `json:"reasons,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
	PairScores   []CompatibilityScore `json:"pair_scores,omitempty"`
}

// ItemIDs returns the ids of the batch members in order.
func (b SwarmBatch) ItemIDs() []string {
	ids := make([]string, len(b.Items))
	for i, p := range b.Items {
		ids[i] = p.Item.ID
	}
	return ids
}
