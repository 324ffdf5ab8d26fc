package knowledge

import (
	"fmt"
	"math"
	"path"
	"regexp"
	"strings"

	"github.com/huangsam/hotswarm/schema"
)

// ScoreOutcome grades predictions against an outcome.
// Predicted entries may be globs; a glob counts as a hit when it matches an actual file.
func ScoreOutcome(pred schema.PatternPredictions, outcome schema.PatternOutcome) schema.PatternScores {
	var predictedHits, actualHits int
	for _, p := range pred.Files {
		for _, a := range outcome.ActualFiles {
			if MatchFile(p, a) {
				predictedHits++
				break
			}
		}
	}
	for _, a := range outcome.ActualFiles {
		for _, p := range pred.Files {
			if MatchFile(p, a) {
				actualHits++
				break
			}
		}
	}

	scores := schema.PatternScores{
		ConflictPredictionHit: (pred.ConflictRisk >= HighRiskConflictRate) == (outcome.Conflicts > 0),
	}
	if len(pred.Files) > 0 {
		scores.FilePrecision = float64(predictedHits) / float64(len(pred.Files))
	}
	if len(outcome.ActualFiles) > 0 {
		scores.FileRecall = float64(actualHits) / float64(len(outcome.ActualFiles))
	}
	if pred.EstimatedMinutes > 0 && outcome.ActualMinutes > 0 {
		est, act := float64(pred.EstimatedMinutes), float64(outcome.ActualMinutes)
		scores.TimeAccuracy = math.Max(0, 1-math.Abs(act-est)/math.Max(act, est))
	}
	return scores
}

// RecordOutcome stores the outcome and scores of a pattern and rewrites the pattern log.
// Successful outcomes also feed the pattern keywords into the file associations.
func (kb *KnowledgeBase) RecordOutcome(patternID string, outcome schema.PatternOutcome) (schema.PatternScores, error) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	p, ok := kb.patterns[patternID]
	if !ok {
		return schema.PatternScores{}, fmt.Errorf("pattern %s not found", patternID)
	}
	scores := ScoreOutcome(p.Predictions, outcome)
	p.Outcome = &outcome
	p.Scores = &scores

	if outcome.Success {
		for _, kw := range p.Input.Keywords {
			for _, f := range outcome.ActualFiles {
				kb.updateAssociationLocked(kw, f)
			}
		}
	}
	for _, f := range outcome.ActualFiles {
		kb.index.Files[f] = appendUnique(kb.index.Files[f], p.ID)
	}
	if err := kb.rewritePatternsLocked(); err != nil {
		return scores, err
	}
	return scores, nil
}

// UpdateMetrics recomputes the learning metrics from every scored pattern.
func (kb *KnowledgeBase) UpdateMetrics() schema.LearningMetrics {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	var cold, learned tierAccumulator
	for _, id := range kb.order {
		p := kb.patterns[id]
		if p.Scores == nil {
			continue
		}
		if p.Predictions.Confidence == schema.Learned {
			learned.add(*p.Scores)
		} else {
			cold.add(*p.Scores)
		}
	}
	m := schema.LearningMetrics{
		ColdStart:   cold.metrics(),
		Learned:     learned.metrics(),
		LastUpdated: kb.now().UTC(),
	}
	if m.ColdStart.Samples > 0 && m.Learned.Samples > 0 {
		coldF := (m.ColdStart.AvgPrecision + m.ColdStart.AvgRecall) / 2
		learnedF := (m.Learned.AvgPrecision + m.Learned.AvgRecall) / 2
		m.ImprovementRate = learnedF - coldF
	}
	kb.metrics = m
	return m
}

// Metrics returns the last computed learning metrics.
func (kb *KnowledgeBase) Metrics() schema.LearningMetrics {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.metrics
}

// GetStats summarizes the knowledge base contents.
func (kb *KnowledgeBase) GetStats() schema.KnowledgeStats {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	stats := schema.KnowledgeStats{
		TotalPatterns: len(kb.order),
		TotalKeywords: len(kb.index.Keywords),
		ConflictPairs: len(kb.conflicts),
		Metrics:       kb.metrics,
	}
	files := make(map[string]struct{})
	for _, assoc := range kb.associations {
		for f := range assoc {
			files[f] = struct{}{}
		}
	}
	stats.TotalFiles = len(files)
	for _, id := range kb.order {
		if kb.patterns[id].Scores != nil {
			stats.ScoredPatterns++
		}
	}
	for _, pair := range kb.conflictRecords() {
		if pair.ConflictRate >= HighRiskConflictRate {
			stats.HighRiskPairs++
		}
		if pair.ConflictCount > 0 && (stats.TopConflictPair == nil || pair.ConflictRate > stats.TopConflictPair.ConflictRate) {
			top := pair
			stats.TopConflictPair = &top
		}
	}
	return stats
}

// tierAccumulator sums scores for one confidence tier.
type tierAccumulator struct {
	n         int
	precision float64
	recall    float64
	timeAcc   float64
	hit       float64
}

func (a *tierAccumulator) add(s schema.PatternScores) {
	a.n++
	a.precision += s.FilePrecision
	a.recall += s.FileRecall
	a.timeAcc += s.TimeAccuracy
	if s.ConflictPredictionHit {
		a.hit++
	}
}

func (a *tierAccumulator) metrics() schema.TierMetrics {
	if a.n == 0 {
		return schema.TierMetrics{}
	}
	n := float64(a.n)
	return schema.TierMetrics{
		Samples:         a.n,
		AvgPrecision:    a.precision / n,
		AvgRecall:       a.recall / n,
		AvgTimeAccuracy: a.timeAcc / n,
		ConflictHitRate: a.hit / n,
	}
}

// MatchFile reports whether a predicted entry covers an actual file.
// Entries without wildcards must match exactly; "**" spans directories.
func MatchFile(pattern, file string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern == file
	}
	if !strings.Contains(pattern, "**") {
		ok, err := path.Match(pattern, file)
		return err == nil && ok
	}
	re, err := globRegexp(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(file)
}

// globRegexp translates a glob with "**" into an anchored regular expression.
func globRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '*' && i+1 < len(pattern) && pattern[i+1] == '*':
			i++
			if i+1 < len(pattern) && pattern[i+1] == '/' {
				i++
				b.WriteString("(?:.*/)?") // "**/" matches zero or more directories
			} else {
				b.WriteString(".*")
			}
		case c == '*':
			b.WriteString("[^/]*")
		case c == '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
