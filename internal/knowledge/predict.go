package knowledge

import (
	"math"
	"sort"
	"strings"

	"github.com/huangsam/hotswarm/schema"
)

// Prediction tuning.
const (
	RecencyDecayDays   = 90.0 // e-folding time of association weight
	MinPredictionScore = 0.5  // cumulative score a file must exceed to be predicted
)

// ScoredFile is a predicted file with its cumulative association score.
type ScoredFile struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// ColdStart is a heuristic prediction made without learned data.
type ColdStart struct {
	Keywords   []string          `json:"keywords"`
	Globs      []string          `json:"globs"`
	Complexity schema.Complexity `json:"complexity"`
	Minutes    int               `json:"minutes"`
}

// keywordGlobs maps a keyword to the file globs it usually touches.
var keywordGlobs = map[string][]string{
	"button":         {"src/components/**/*Button*", "src/components/**/*button*"},
	"component":      {"src/components/**/*"},
	"modal":          {"src/components/**/*Modal*"},
	"form":           {"src/components/**/*Form*", "src/forms/**/*"},
	"page":           {"src/pages/**/*"},
	"layout":         {"src/layouts/**/*", "src/components/**/*Layout*"},
	"login":          {"src/auth/**/*", "**/*login*"},
	"logout":         {"src/auth/**/*"},
	"auth":           {"src/auth/**/*", "**/*auth*"},
	"authentication": {"src/auth/**/*", "**/*auth*"},
	"session":        {"src/auth/**/*", "**/*session*"},
	"password":       {"src/auth/**/*"},
	"api":            {"src/api/**/*", "api/**/*"},
	"endpoint":       {"src/api/**/*", "**/routes/**/*"},
	"route":          {"**/routes/**/*", "**/router*"},
	"database":       {"**/db/**/*", "**/models/**/*"},
	"migration":      {"**/migrations/**/*"},
	"schema":         {"**/schema/**/*", "**/migrations/**/*"},
	"query":          {"**/db/**/*", "**/queries/**/*"},
	"model":          {"**/models/**/*"},
	"test":           {"**/*_test.*", "**/*.test.*", "**/tests/**/*"},
	"tests":          {"**/*_test.*", "**/*.test.*", "**/tests/**/*"},
	"style":          {"**/*.css", "**/styles/**/*"},
	"css":            {"**/*.css", "**/*.scss"},
	"theme":          {"**/theme/**/*", "**/styles/**/*"},
	"hook":           {"src/hooks/**/*"},
	"hooks":          {"src/hooks/**/*"},
	"state":          {"src/store/**/*", "src/state/**/*"},
	"store":          {"src/store/**/*"},
	"config":         {"**/config/**/*", "**/*.config.*"},
	"settings":       {"**/settings/**/*", "**/config/**/*"},
	"docs":           {"docs/**/*", "README*"},
	"readme":         {"README*"},
	"cli":            {"cmd/**/*"},
	"command":        {"cmd/**/*"},
	"build":          {"Makefile", "**/Dockerfile", ".github/workflows/*"},
	"deploy":         {".github/workflows/*", "deploy/**/*"},
	"i18n":           {"**/locales/**/*", "**/i18n/**/*"},
}

// complexitySignals are title substrings checked from high to low.
var complexitySignals = []struct {
	tier    schema.Complexity
	signals []string
}{
	{schema.ComplexityHigh, []string{"refactor", "migrat", "architecture", "redesign", "rewrite", "overhaul", "security", "performance"}},
	{schema.ComplexityMedium, []string{"implement", "feature", "integrate", "support", "new"}},
	{schema.ComplexityLow, []string{"fix", "typo", "bug", "tweak", "rename", "style", "docs"}},
}

// UpdateFileAssociation counts one more sighting of file under keyword.
func (kb *KnowledgeBase) UpdateFileAssociation(keyword, file string) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.updateAssociationLocked(keyword, file)
}

func (kb *KnowledgeBase) updateAssociationLocked(keyword, file string) {
	files, ok := kb.associations[keyword]
	if !ok {
		files = make(map[string]*schema.FileUsage)
		kb.associations[keyword] = files
	}
	usage, ok := files[file]
	if !ok {
		usage = &schema.FileUsage{Path: file}
		files[file] = usage
	}
	usage.Frequency++
	usage.LastSeen = kb.now().UTC()
}

// PredictFilesFromKeywords sums frequency * exp(-days/90) per file across keywords
// and returns files scoring above the threshold, best first.
func (kb *KnowledgeBase) PredictFilesFromKeywords(keywords []string) []ScoredFile {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	now := kb.now()
	scores := make(map[string]float64)
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		for path, usage := range kb.associations[kw] {
			days := now.Sub(usage.LastSeen).Hours() / 24
			if days < 0 {
				days = 0
			}
			scores[path] += float64(usage.Frequency) * math.Exp(-days/RecencyDecayDays)
		}
	}

	var out []ScoredFile
	for path, score := range scores {
		if score > MinPredictionScore {
			out = append(out, ScoredFile{Path: path, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// ColdStartPrediction maps keywords to file globs and the title to a complexity tier.
func ColdStartPrediction(title, description string) ColdStart {
	keywords := ExtractKeywords(title + " " + description)
	var globs []string
	seen := make(map[string]struct{})
	for _, kw := range keywords {
		for _, g := range keywordGlobs[kw] {
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			globs = append(globs, g)
		}
	}
	tier := ComplexityFromText(title)
	return ColdStart{
		Keywords:   keywords,
		Globs:      globs,
		Complexity: tier,
		Minutes:    tier.Minutes(),
	}
}

// ComplexityFromText matches text against the complexity signal table,
// defaulting to medium when nothing matches.
func ComplexityFromText(text string) schema.Complexity {
	lower := strings.ToLower(text)
	for _, level := range complexitySignals {
		for _, signal := range level.signals {
			if strings.Contains(lower, signal) {
				return level.tier
			}
		}
	}
	return schema.ComplexityMedium
}

// InferScope derives coarse scope signals from a title.
func InferScope(title string) schema.PatternScope {
	lower := strings.ToLower(title)
	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	return schema.PatternScope{
		IsNewFeature: containsAny("add", "new", "feature", "implement", "support", "create"),
		IsBugFix:     containsAny("fix", "bug", "broken", "crash", "error", "issue"),
		IsRefactor:   containsAny("refactor", "cleanup", "clean up", "restructure", "rewrite", "simplify"),
	}
}
