package knowledge

import (
	"fmt"
	"sort"

	"github.com/huangsam/hotswarm/internal/docstore"
	"github.com/huangsam/hotswarm/schema"
)

// SearchResult is a pattern id scored by the number of matched query keywords.
type SearchResult struct {
	PatternID string `json:"pattern_id"`
	Score     int    `json:"score"`
}

// RebuildIndex reconstructs the keyword and file index from the pattern log and persists it.
func (kb *KnowledgeBase) RebuildIndex() error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.rebuildIndexLocked()
	if err := docstore.WriteJSONAtomic(kb.path(IndexFile), kb.index); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func (kb *KnowledgeBase) rebuildIndexLocked() {
	index := schema.NewInvertedIndex()
	for _, id := range kb.order {
		p := kb.patterns[id]
		for _, kw := range p.Input.Keywords {
			index.Keywords[kw] = appendUnique(index.Keywords[kw], id)
		}
		for _, f := range p.Predictions.Files {
			index.Files[f] = appendUnique(index.Files[f], id)
		}
		if p.Outcome != nil {
			for _, f := range p.Outcome.ActualFiles {
				index.Files[f] = appendUnique(index.Files[f], id)
			}
		}
	}
	kb.index = index
}

// Index returns a deep copy of the inverted index.
func (kb *KnowledgeBase) Index() schema.InvertedIndex {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	out := schema.NewInvertedIndex()
	for k, ids := range kb.index.Keywords {
		out.Keywords[k] = append([]string(nil), ids...)
	}
	for f, ids := range kb.index.Files {
		out.Files[f] = append([]string(nil), ids...)
	}
	return out
}

// SearchByKeywords scores indexed patterns by how many query keywords they match
// and returns the top k, highest score first. Ties keep pattern insertion order.
func (kb *KnowledgeBase) SearchByKeywords(keywords []string, k int) []SearchResult {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.searchLocked(keywords, k)
}

func (kb *KnowledgeBase) searchLocked(keywords []string, k int) []SearchResult {
	scores := make(map[string]int)
	queried := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if _, dup := queried[kw]; dup {
			continue
		}
		queried[kw] = struct{}{}
		for _, id := range kb.index.Keywords[kw] {
			scores[id]++
		}
	}

	results := make([]SearchResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, SearchResult{PatternID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return kb.rank(results[i].PatternID) < kb.rank(results[j].PatternID)
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// rank returns the insertion position of a pattern; unknown ids sort last.
func (kb *KnowledgeBase) rank(id string) int {
	if pos, ok := kb.position[id]; ok {
		return pos
	}
	return len(kb.order)
}

// FindSimilarPatterns extracts keywords from the text and returns the top k matching patterns.
func (kb *KnowledgeBase) FindSimilarPatterns(title, description string, k int) []schema.IssuePattern {
	keywords := ExtractKeywords(title + " " + description)
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	var out []schema.IssuePattern
	for _, r := range kb.searchLocked(keywords, k) {
		if p, ok := kb.patterns[r.PatternID]; ok {
			out = append(out, *p)
		}
	}
	return out
}
