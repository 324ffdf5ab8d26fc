package schema

import (
	"sort"
	"time"
)

// PatternScope holds the coarse scope signals inferred from an item title.
type PatternScope struct {
	IsNewFeature bool `json:"is_new_feature"`
	IsBugFix     bool `json:"is_bug_fix"`
	IsRefactor   bool `json:"is_refactor"`
}

// PatternInput is the textual input that produced a pattern.
type PatternInput struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Keywords    []string     `json:"keywords"`
	Labels      []string     `json:"labels,omitempty"`
	Scope       PatternScope `json:"scope"`
}

// PatternPredictions is what was predicted before the work started.
type PatternPredictions struct {
	Files            []string   `json:"files"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Complexity       Complexity `json:"complexity"`
	ConflictRisk     float64    `json:"conflict_risk"`
	Confidence       Confidence `json:"confidence"`
}

// PatternOutcome is what actually happened once the work was merged.
type PatternOutcome struct {
	ActualFiles   []string `json:"actual_files"`
	ActualMinutes int      `json:"actual_minutes"`
	Conflicts     int      `json:"conflicts"`
	Success       bool     `json:"success"`
}

// PatternScores grades the predictions against the outcome.
type PatternScores struct {
	FilePrecision         float64 `json:"file_precision"`
	FileRecall            float64 `json:"file_recall"`
	TimeAccuracy          float64 `json:"time_accuracy"`
	ConflictPredictionHit bool    `json:"conflict_prediction_hit"`
}

// IssuePattern is one historical record linking an item to its file footprint.
type IssuePattern struct {
	ID          string             `json:"id"`
	ItemID      string             `json:"item_id"`
	Timestamp   time.Time          `json:"timestamp"`
	Input       PatternInput       `json:"input"`
	Predictions PatternPredictions `json:"predictions"`
	Outcome     *PatternOutcome    `json:"outcome,omitempty"`
	Scores      *PatternScores     `json:"scores,omitempty"`
}

// FileUsage is a single (file, frequency, last-seen) entry under a keyword.
type FileUsage struct {
	Path      string    `json:"path"`
	Frequency int       `json:"frequency"`
	LastSeen  time.Time `json:"last_seen"`
}

// FileAssociation maps a keyword to the files touched in its context.
type FileAssociation struct {
	Keyword string      `json:"keyword"`
	Files   []FileUsage `json:"files"`
}

// ConflictPair tracks how often two files were changed together and conflicted.
type ConflictPair struct {
	FileA               string    `json:"file_a"`
	FileB               string    `json:"file_b"`
	ConflictCount       int       `json:"conflict_count"`
	CoModificationCount int       `json:"co_modification_count"`
	ConflictRate        float64   `json:"conflict_rate"`
	LastSeen            time.Time `json:"last_seen"`
}

// Key returns the canonical key of the pair.
func (c ConflictPair) Key() string {
	return PairKey(c.FileA, c.FileB)
}

// InvertedIndex maps keywords and files to the ids of patterns containing them.
type InvertedIndex struct {
	Keywords map[string][]string `json:"keywords"`
	Files    map[string][]string `json:"files"`
}

// NewInvertedIndex returns an empty index.
func NewInvertedIndex() InvertedIndex {
	return InvertedIndex{
		Keywords: make(map[string][]string),
		Files:    make(map[string][]string),
	}
}

// TierMetrics aggregates scores for one confidence tier.
type TierMetrics struct {
	Samples         int     `json:"samples"`
	AvgPrecision    float64 `json:"avg_precision"`
	AvgRecall       float64 `json:"avg_recall"`
	AvgTimeAccuracy float64 `json:"avg_time_accuracy"`
	ConflictHitRate float64 `json:"conflict_hit_rate"`
}

// LearningMetrics aggregates prediction quality across all scored patterns.
type LearningMetrics struct {
	ColdStart       TierMetrics `json:"cold_start"`
	Learned         TierMetrics `json:"learned"`
	ImprovementRate float64     `json:"improvement_rate"`
	LastUpdated     time.Time   `json:"last_updated"`
}

// KnowledgeStats summarizes the knowledge base contents.
type KnowledgeStats struct {
	TotalPatterns   int             `json:"total_patterns"`
	ScoredPatterns  int             `json:"scored_patterns"`
	TotalKeywords   int             `json:"total_keywords"`
	TotalFiles      int             `json:"total_files"`
	ConflictPairs   int             `json:"conflict_pairs"`
	HighRiskPairs   int             `json:"high_risk_pairs"`
	Metrics         LearningMetrics `json:"metrics"`
	TopConflictPair *ConflictPair   `json:"top_conflict_pair,omitempty"`
}

// PairKey returns the order-independent key for two file paths.
func PairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "::" + pair[1]
}
