package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/hotswarm/core"
	"github.com/huangsam/hotswarm/core/swarm"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultSearchLimit caps search_patterns results when no limit is given.
const defaultSearchLimit = 10

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	deps    *core.Deps
}

// swarmStatus is the get_swarm_status payload.
type swarmStatus struct {
	Swarm *schema.SwarmState `json:"swarm"`
	Stale []int              `json:"stale_workers"`
}

// patternMatch is one search_patterns hit.
type patternMatch struct {
	Score   int                 `json:"score"`
	Pattern schema.IssuePattern `json:"pattern"`
}

func (h *toolHandler) handleSuggestBatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if n := request.GetInt("batches", 0); n != 0 {
		cfg.NumBatches = n
	}
	if n := request.GetInt("batch_size", 0); n != 0 {
		cfg.MaxBatchSize = n
	}
	cfg.MinCompatibility = request.GetFloat("min_compatibility", cfg.MinCompatibility)

	if cfg.NumBatches < 1 {
		return mcp.NewToolResultError("batches must be at least 1"), nil
	}
	if cfg.MaxBatchSize < 2 {
		return mcp.NewToolResultError("batch_size must be at least 2"), nil
	}
	if cfg.MinCompatibility < 0 || cfg.MinCompatibility > 1 {
		return mcp.NewToolResultError("min_compatibility must be between 0 and 1"), nil
	}

	batches, err := core.GetSuggestResults(core.WithSuppressHeader(ctx), cfg, h.deps, splitIDs(request.GetString("item_ids", "")))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("suggestion failed: %v", err)), nil
	}
	if batches == nil {
		batches = []schema.SwarmBatch{}
	}
	return jsonResult(batches)
}

func (h *toolHandler) handlePredictFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := strings.TrimSpace(request.GetString("title", ""))
	if title == "" {
		return mcp.NewToolResultError("title is required"), nil
	}
	preds, err := core.PredictItems(core.WithSuppressHeader(ctx), h.baseCfg, h.deps, nil, title, request.GetString("description", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("prediction failed: %v", err)), nil
	}
	return jsonResult(preds[0])
}

func (h *toolHandler) handleGetSwarmStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, stale, err := core.GetSwarmStatus(h.baseCfg, h.deps)
	if errors.Is(err, swarm.ErrNoSwarm) {
		return mcp.NewToolResultError("no swarm found; start one with `hotswarm start`"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}
	if stale == nil {
		stale = []int{}
	}
	return jsonResult(swarmStatus{Swarm: state, Stale: stale})
}

func (h *toolHandler) handleGetKnowledgeStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.deps.KB.GetStats())
}

func (h *toolHandler) handleSearchPatterns(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	if len(knowledge.ExtractKeywords(query)) == 0 {
		return mcp.NewToolResultError("query has no searchable keywords"), nil
	}
	limit := request.GetInt("limit", defaultSearchLimit)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be at least 1"), nil
	}
	results, patterns := core.SearchPatterns(h.deps, query, limit)
	matches := make([]patternMatch, len(results))
	for i, r := range results {
		matches[i] = patternMatch{Score: r.Score, Pattern: patterns[i]}
	}
	return jsonResult(matches)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// splitIDs parses a comma-separated id list, dropping blanks.
func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
