package knowledge

import (
	"sort"

	"github.com/huangsam/hotswarm/schema"
)

// HighRiskConflictRate marks a pair as high risk in stats and predictions.
const HighRiskConflictRate = 0.5

// RecordConflict counts one merge conflict between two files.
// A file may be paired with itself to record that two parallel changes to it collided.
func (kb *KnowledgeBase) RecordConflict(fileA, fileB string) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	pair := kb.pairLocked(fileA, fileB)
	pair.ConflictCount++
	pair.LastSeen = kb.now().UTC()
	pair.ConflictRate = conflictRate(pair)
}

// RecordCoModification counts one co-modification for every unordered pair of distinct files.
func (kb *KnowledgeBase) RecordCoModification(files []string) {
	unique := dedupeSorted(files)
	kb.mu.Lock()
	defer kb.mu.Unlock()
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			kb.bumpCoModificationLocked(unique[i], unique[j])
		}
	}
}

// RecordPairCoModification counts one co-modification of a single pair, which may be a self pair.
func (kb *KnowledgeBase) RecordPairCoModification(fileA, fileB string) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.bumpCoModificationLocked(fileA, fileB)
}

func (kb *KnowledgeBase) bumpCoModificationLocked(fileA, fileB string) {
	pair := kb.pairLocked(fileA, fileB)
	pair.CoModificationCount++
	pair.LastSeen = kb.now().UTC()
	pair.ConflictRate = conflictRate(pair)
}

// GetConflictRisk returns the conflict rate of the pair, or 0 if it was never observed.
// The result does not depend on argument order.
func (kb *KnowledgeBase) GetConflictRisk(fileA, fileB string) float64 {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	if pair, ok := kb.conflicts[schema.PairKey(fileA, fileB)]; ok {
		return pair.ConflictRate
	}
	return 0
}

// LookupConflictRisk returns the conflict rate and whether the pair was ever observed.
func (kb *KnowledgeBase) LookupConflictRisk(fileA, fileB string) (float64, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	pair, ok := kb.conflicts[schema.PairKey(fileA, fileB)]
	if !ok {
		return 0, false
	}
	return pair.ConflictRate, true
}

// ConflictPairs returns copies of all pairs, highest rate first.
func (kb *KnowledgeBase) ConflictPairs() []schema.ConflictPair {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	out := kb.conflictRecords()
	sort.SliceStable(out, func(i, j int) bool { return out[i].ConflictRate > out[j].ConflictRate })
	return out
}

// pairLocked returns the canonical pair record, creating it if absent.
func (kb *KnowledgeBase) pairLocked(fileA, fileB string) *schema.ConflictPair {
	key := schema.PairKey(fileA, fileB)
	pair, ok := kb.conflicts[key]
	if !ok {
		a, b := fileA, fileB
		if b < a {
			a, b = b, a
		}
		pair = &schema.ConflictPair{FileA: a, FileB: b}
		kb.conflicts[key] = pair
	}
	return pair
}

// conflictRate is conflicts / co-modifications, clamped to [0,1], and 0 without co-modifications.
func conflictRate(pair *schema.ConflictPair) float64 {
	if pair.CoModificationCount == 0 {
		return 0
	}
	return min(1, float64(pair.ConflictCount)/float64(pair.CoModificationCount))
}

// dedupeSorted returns the distinct values of files in sorted order.
func dedupeSorted(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if _, dup := seen[f]; dup || f == "" {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
