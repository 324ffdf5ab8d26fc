package core

import (
	"slices"

	"github.com/huangsam/hotswarm/core/algo"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/schema"
)

// GeneralLayer is reported for items that match no layer keyword.
const GeneralLayer = "general"

// layerKeywords maps architectural layers to the keywords that signal them, in report order.
var layerKeywords = []struct {
	layer    string
	keywords []string
}{
	{"ui", []string{"button", "component", "modal", "form", "page", "layout", "style", "css", "theme", "view", "dialog", "menu"}},
	{"hooks", []string{"hook", "hooks", "state", "store", "context", "reducer"}},
	{"api", []string{"api", "endpoint", "route", "request", "client", "server", "graphql", "rest", "handler"}},
	{"database", []string{"database", "migration", "schema", "query", "model", "sql", "table", "index"}},
	{"auth", []string{"login", "logout", "auth", "authentication", "session", "password", "token", "permission"}},
	{"test", []string{"test", "tests", "spec", "coverage", "e2e", "fixture"}},
	{"config", []string{"config", "settings", "build", "deploy", "pipeline", "docker"}},
	{"docs", []string{"docs", "readme", "documentation", "guide", "changelog"}},
}

// Engine predicts item footprints and assembles compatible batches.
type Engine struct {
	kb   *knowledge.KnowledgeBase
	user string
}

// NewEngine builds an engine backed by the given knowledge base.
// The user decides the assignee affinity of each item.
func NewEngine(kb *knowledge.KnowledgeBase, user string) *Engine {
	return &Engine{kb: kb, user: user}
}

// PredictFiles returns learned predictions when the knowledge base has any for the
// item text, otherwise the cold-start globs. The result is capped.
func (e *Engine) PredictFiles(item schema.Item) ([]string, schema.Confidence) {
	var files []string
	for _, sf := range e.kb.PredictFilesFromKeywords(knowledge.ExtractKeywords(item.Text())) {
		files = append(files, sf.Path)
	}
	confidence := schema.Learned
	if len(files) == 0 {
		files = knowledge.ColdStartPrediction(item.Title, item.Description).Globs
		confidence = schema.ColdStart
	}
	if len(files) > contract.MaxPredictedFiles {
		files = files[:contract.MaxPredictedFiles]
	}
	return files, confidence
}

// DetectLayers returns every layer whose keywords appear in the item text.
func DetectLayers(item schema.Item) []string {
	keywords := knowledge.ExtractKeywords(item.Text())
	var layers []string
	for _, entry := range layerKeywords {
		for _, kw := range entry.keywords {
			if slices.Contains(keywords, kw) {
				layers = append(layers, entry.layer)
				break
			}
		}
	}
	if len(layers) == 0 {
		return []string{GeneralLayer}
	}
	return layers
}

// EstimateComplexity returns the tier and its default minutes.
// Priority 1 items are always treated as high complexity.
func EstimateComplexity(item schema.Item) (schema.Complexity, int) {
	tier := knowledge.ComplexityFromText(item.Text())
	if item.Priority == 1 {
		tier = schema.ComplexityHigh
	}
	return tier, tier.Minutes()
}

// Predict builds the full footprint of one item.
func (e *Engine) Predict(item schema.Item) schema.ItemPrediction {
	files, confidence := e.PredictFiles(item)
	tier, minutes := EstimateComplexity(item)
	return schema.ItemPrediction{
		Item:       item,
		Files:      files,
		Layers:     DetectLayers(item),
		Complexity: tier,
		Minutes:    minutes,
		Confidence: confidence,
		Affinity:   item.AffinityFor(e.user),
	}
}

// SuggestBatches predicts every item, scores every pair and greedily assembles up to
// numBatches batches. Batches with fewer than two members are discarded and their seed
// is not offered again. Results are ranked by average pairwise score.
func (e *Engine) SuggestBatches(items []schema.Item, numBatches, maxBatchSize int, minCompatibility float64) []schema.SwarmBatch {
	preds := make([]schema.ItemPrediction, len(items))
	for i, item := range items {
		preds[i] = e.Predict(item)
	}
	matrix := algo.BuildMatrix(preds, e.kb)

	excluded := make(map[string]bool)
	var batches []schema.SwarmBatch
	for len(batches) < numBatches {
		members := algo.GreedyBatchSelection(preds, matrix, maxBatchSize, minCompatibility, excluded)
		if len(members) == 0 {
			break
		}
		if len(members) < 2 {
			excluded[members[0].Item.ID] = true
			continue
		}
		for _, m := range members {
			excluded[m.Item.ID] = true
		}
		batch := algo.SummarizeBatch(members, matrix)
		batch.Reasons, batch.Warnings = GenerateReasoning(batch)
		batches = append(batches, batch)
	}
	return algo.RankBatches(batches)
}
