package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/internal/parquet"
	"github.com/huangsam/hotswarm/schema"
)

// ExecuteKBStats prints the knowledge base summary.
func ExecuteKBStats(_ context.Context, cfg *contract.Config, deps *Deps) error {
	return ow.WriteKnowledgeStats(deps.KB.GetStats(), cfg)
}

// ExecuteKBBootstrap seeds the knowledge base from the repository's commit history.
func ExecuteKBBootstrap(ctx context.Context, cfg *contract.Config, deps *Deps) error {
	logHeader(ctx, cfg, "🌱 Learning from the last %d commits (min %d files changed)", cfg.MaxCommits, cfg.MinFilesChanged)
	result, err := deps.KB.ColdStartFromGitHistory(ctx, deps.Git, cfg.RepoPath, cfg.MaxCommits, cfg.MinFilesChanged, cfg.Excludes)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(progressWriter(ctx), "📖 Read %d commits, learned from %d: %d associations, %d file pairs\n",
		result.CommitsRead, result.CommitsUsed, result.AssociationsAdded, result.PairsTouched)
	return ow.WriteKnowledgeStats(deps.KB.GetStats(), cfg)
}

// ExecuteKBRebuild rebuilds the index, recomputes metrics and compacts every log.
func ExecuteKBRebuild(ctx context.Context, cfg *contract.Config, deps *Deps) error {
	if err := deps.KB.RebuildIndex(); err != nil {
		return err
	}
	deps.KB.UpdateMetrics()
	if err := deps.KB.Compact(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(progressWriter(ctx), "🧹 Knowledge base rebuilt")
	return ow.WriteKnowledgeStats(deps.KB.GetStats(), cfg)
}

// SearchPatterns returns the best matching patterns for the query text.
func SearchPatterns(deps *Deps, query string, limit int) ([]knowledge.SearchResult, []schema.IssuePattern) {
	results := deps.KB.SearchByKeywords(knowledge.ExtractKeywords(query), limit)
	patterns := make([]schema.IssuePattern, 0, len(results))
	for _, r := range results {
		p, _ := deps.KB.GetPattern(r.PatternID)
		patterns = append(patterns, p)
	}
	return results, patterns
}

// ExecuteKBSearch prints the patterns matching the query text.
func ExecuteKBSearch(_ context.Context, cfg *contract.Config, deps *Deps, query string, limit int) error {
	if strings.TrimSpace(query) == "" {
		return errors.New("a search query is required")
	}
	results, patterns := SearchPatterns(deps, query, limit)
	return ow.WriteSearchResults(results, patterns, cfg)
}

// PredictItems predicts the footprint of each item. Items are fetched from the tracker
// by id; a non-empty title adds an ad-hoc item.
func PredictItems(ctx context.Context, cfg *contract.Config, deps *Deps, ids []string, title, description string) ([]schema.ItemPrediction, error) {
	for _, id := range ids {
		if err := contract.ValidateIdentifier("item id", id); err != nil {
			return nil, err
		}
	}
	var items []schema.Item
	if len(ids) > 0 {
		items = deps.Tracker.FetchItems(ctx, ids)
	}
	if title != "" {
		items = append(items, schema.Item{ID: "adhoc", Title: title, Description: description})
	}
	if len(items) == 0 {
		return nil, errors.New("nothing to predict: pass item ids the tracker knows or --title")
	}
	engine := NewEngine(deps.KB, cfg.User)
	preds := make([]schema.ItemPrediction, len(items))
	for i, item := range items {
		preds[i] = engine.Predict(item)
	}
	return preds, nil
}

// ExecuteKBPredict prints the predicted footprint of items.
func ExecuteKBPredict(ctx context.Context, cfg *contract.Config, deps *Deps, ids []string, title, description string) error {
	preds, err := PredictItems(ctx, cfg, deps, ids, title, description)
	if err != nil {
		return err
	}
	return ow.WritePredictions(preds, cfg)
}

// ExecuteKBExport writes the patterns and conflict pairs to <prefix>.patterns.parquet
// and <prefix>.conflict_pairs.parquet.
func ExecuteKBExport(ctx context.Context, _ *contract.Config, deps *Deps, prefix string) error {
	if prefix == "" {
		return errors.New("--output-file is required for export command")
	}
	w := progressWriter(ctx)

	patterns := parquet.ConvertPatterns(deps.KB.Patterns())
	patternsFile := prefix + ".patterns.parquet"
	if err := parquet.WritePatternsParquet(patterns, patternsFile); err != nil {
		return fmt.Errorf("failed to write patterns: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d patterns to: %s\n", len(patterns), patternsFile)

	pairs := parquet.ConvertConflictPairs(deps.KB.ConflictPairs())
	pairsFile := prefix + ".conflict_pairs.parquet"
	if err := parquet.WriteConflictPairsParquet(pairs, pairsFile); err != nil {
		return fmt.Errorf("failed to write conflict pairs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d conflict pairs to: %s\n", len(pairs), pairsFile)
	return nil
}
