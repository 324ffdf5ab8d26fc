// Package knowledge implements the learning knowledge base: pattern storage, keyword
// indexing, file and conflict statistics, and outcome-driven prediction updates.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/hotswarm/internal/docstore"
	"github.com/huangsam/hotswarm/schema"
)

// Persisted file names under the knowledge base directory.
const (
	PatternsFile     = "patterns.jsonl"
	AssociationsFile = "file-associations.jsonl"
	ConflictsFile    = "conflict-pairs.jsonl"
	IndexFile        = "index.json"
	MetricsFile      = "metrics.json"
)

// KnowledgeBase holds learned patterns and statistics for one repository.
// It assumes a single writer process; concurrent use within a process is safe.
type KnowledgeBase struct {
	mu  sync.RWMutex
	dir string
	now func() time.Time

	patterns     map[string]*schema.IssuePattern
	order        []string       // pattern ids in insertion order
	position     map[string]int // pattern id -> index in order
	associations map[string]map[string]*schema.FileUsage
	conflicts    map[string]*schema.ConflictPair
	index        schema.InvertedIndex
	metrics      schema.LearningMetrics
}

// Option customizes a KnowledgeBase.
type Option func(*KnowledgeBase)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(kb *KnowledgeBase) { kb.now = now }
}

// Open loads the knowledge base stored in dir. Missing files are treated as empty
// state; malformed records are returned as errors.
func Open(dir string, opts ...Option) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{
		dir:          dir,
		now:          time.Now,
		patterns:     make(map[string]*schema.IssuePattern),
		position:     make(map[string]int),
		associations: make(map[string]map[string]*schema.FileUsage),
		conflicts:    make(map[string]*schema.ConflictPair),
		index:        schema.NewInvertedIndex(),
	}
	for _, opt := range opts {
		opt(kb)
	}
	if err := kb.load(); err != nil {
		return nil, err
	}
	return kb, nil
}

// Dir returns the directory backing the knowledge base.
func (kb *KnowledgeBase) Dir() string { return kb.dir }

func (kb *KnowledgeBase) path(name string) string { return filepath.Join(kb.dir, name) }

// load reads every persisted document into memory.
func (kb *KnowledgeBase) load() error {
	patterns, err := docstore.ReadJSONL[schema.IssuePattern](kb.path(PatternsFile))
	if err != nil {
		return fmt.Errorf("load patterns: %w", err)
	}
	for i := range patterns {
		kb.putPattern(&patterns[i])
	}

	associations, err := docstore.ReadJSONL[schema.FileAssociation](kb.path(AssociationsFile))
	if err != nil {
		return fmt.Errorf("load file associations: %w", err)
	}
	for _, assoc := range associations {
		files := make(map[string]*schema.FileUsage, len(assoc.Files))
		for _, usage := range assoc.Files {
			files[usage.Path] = &usage
		}
		kb.associations[assoc.Keyword] = files // Later records supersede earlier ones
	}

	pairs, err := docstore.ReadJSONL[schema.ConflictPair](kb.path(ConflictsFile))
	if err != nil {
		return fmt.Errorf("load conflict pairs: %w", err)
	}
	for _, pair := range pairs {
		kb.conflicts[pair.Key()] = &pair
	}

	found, err := docstore.ReadJSON(kb.path(IndexFile), &kb.index)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	if !found || kb.index.Keywords == nil || kb.index.Files == nil || kb.indexStaleLocked() {
		kb.rebuildIndexLocked()
	}

	if _, err := docstore.ReadJSON(kb.path(MetricsFile), &kb.metrics); err != nil {
		return fmt.Errorf("load metrics: %w", err)
	}
	return nil
}

// indexStaleLocked reports whether the loaded index disagrees with the pattern log
// about which patterns are indexed, as after a crash between append and index write.
func (kb *KnowledgeBase) indexStaleLocked() bool {
	indexed := make(map[string]struct{})
	for _, ids := range kb.index.Keywords {
		for _, id := range ids {
			indexed[id] = struct{}{}
		}
	}
	for _, ids := range kb.index.Files {
		for _, id := range ids {
			indexed[id] = struct{}{}
		}
	}
	want := 0
	for _, id := range kb.order {
		p := kb.patterns[id]
		if len(p.Input.Keywords) == 0 && len(p.Predictions.Files) == 0 && (p.Outcome == nil || len(p.Outcome.ActualFiles) == 0) {
			continue
		}
		if _, ok := indexed[id]; !ok {
			return true
		}
		want++
	}
	return want != len(indexed)
}

// putPattern inserts or replaces a pattern in memory, keeping first-seen order.
func (kb *KnowledgeBase) putPattern(p *schema.IssuePattern) {
	if _, ok := kb.patterns[p.ID]; !ok {
		kb.position[p.ID] = len(kb.order)
		kb.order = append(kb.order, p.ID)
	}
	kb.patterns[p.ID] = p
}

// --- Patterns ---

// AddPattern appends a pattern to the log and updates the inverted index.
// Missing ids, timestamps and keywords are filled in.
func (kb *KnowledgeBase) AddPattern(p schema.IssuePattern) (schema.IssuePattern, error) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = kb.now().UTC()
	}
	if len(p.Input.Keywords) == 0 {
		p.Input.Keywords = ExtractKeywords(p.Input.Title + " " + p.Input.Description)
	}
	if _, exists := kb.patterns[p.ID]; exists {
		return schema.IssuePattern{}, fmt.Errorf("pattern %s already exists", p.ID)
	}
	if err := docstore.AppendJSONL(kb.path(PatternsFile), p); err != nil {
		return schema.IssuePattern{}, fmt.Errorf("append pattern: %w", err)
	}
	stored := p
	kb.putPattern(&stored)
	for _, kw := range stored.Input.Keywords {
		kb.index.Keywords[kw] = appendUnique(kb.index.Keywords[kw], stored.ID)
	}
	for _, f := range stored.Predictions.Files {
		kb.index.Files[f] = appendUnique(kb.index.Files[f], stored.ID)
	}
	if err := docstore.WriteJSONAtomic(kb.path(IndexFile), kb.index); err != nil {
		return stored, fmt.Errorf("write index: %w", err)
	}
	return stored, nil
}

// GetPattern returns a copy of the pattern with the given id.
func (kb *KnowledgeBase) GetPattern(id string) (schema.IssuePattern, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	p, ok := kb.patterns[id]
	if !ok {
		return schema.IssuePattern{}, false
	}
	return *p, true
}

// Patterns returns copies of all patterns in insertion order.
func (kb *KnowledgeBase) Patterns() []schema.IssuePattern {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	out := make([]schema.IssuePattern, 0, len(kb.order))
	for _, id := range kb.order {
		out = append(out, *kb.patterns[id])
	}
	return out
}

// HasLearnedData reports whether any keyword has file associations.
func (kb *KnowledgeBase) HasLearnedData() bool {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.associations) > 0
}

// --- Persistence ---

// Save rewrites the association and conflict logs and the derived caches.
func (kb *KnowledgeBase) Save() error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.saveLocked()
}

func (kb *KnowledgeBase) saveLocked() error {
	if err := os.MkdirAll(kb.dir, 0o755); err != nil {
		return fmt.Errorf("create knowledge dir: %w", err)
	}
	if err := docstore.RewriteJSONL(kb.path(AssociationsFile), kb.associationRecords()); err != nil {
		return fmt.Errorf("write file associations: %w", err)
	}
	if err := docstore.RewriteJSONL(kb.path(ConflictsFile), kb.conflictRecords()); err != nil {
		return fmt.Errorf("write conflict pairs: %w", err)
	}
	if err := docstore.WriteJSONAtomic(kb.path(IndexFile), kb.index); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := docstore.WriteJSONAtomic(kb.path(MetricsFile), kb.metrics); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// Compact rewrites every log wholesale from memory, dropping superseded records.
func (kb *KnowledgeBase) Compact() error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if err := kb.rewritePatternsLocked(); err != nil {
		return err
	}
	return kb.saveLocked()
}

func (kb *KnowledgeBase) rewritePatternsLocked() error {
	records := make([]schema.IssuePattern, 0, len(kb.order))
	for _, id := range kb.order {
		records = append(records, *kb.patterns[id])
	}
	if err := docstore.RewriteJSONL(kb.path(PatternsFile), records); err != nil {
		return fmt.Errorf("write patterns: %w", err)
	}
	return nil
}

// associationRecords flattens the association map in a stable order.
func (kb *KnowledgeBase) associationRecords() []schema.FileAssociation {
	keywords := make([]string, 0, len(kb.associations))
	for kw := range kb.associations {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	records := make([]schema.FileAssociation, 0, len(keywords))
	for _, kw := range keywords {
		files := make([]schema.FileUsage, 0, len(kb.associations[kw]))
		for _, usage := range kb.associations[kw] {
			files = append(files, *usage)
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		records = append(records, schema.FileAssociation{Keyword: kw, Files: files})
	}
	return records
}

// conflictRecords flattens the conflict map in a stable order.
func (kb *KnowledgeBase) conflictRecords() []schema.ConflictPair {
	keys := make([]string, 0, len(kb.conflicts))
	for key := range kb.conflicts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	records := make([]schema.ConflictPair, 0, len(keys))
	for _, key := range keys {
		records = append(records, *kb.conflicts[key])
	}
	return records
}

// appendUnique appends v unless it is already present.
func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
