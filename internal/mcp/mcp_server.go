// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/hotswarm/core"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Hotswarm MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, deps *core.Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"Hotswarm Orchestration Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		deps:    deps,
	}

	// --- 1. Tool: suggest_batches ---
	s.AddTool(mcp.NewTool("suggest_batches",
		mcp.WithDescription("Group work items into batches that can safely run in parallel."),
		mcp.WithString("item_ids", mcp.Description("Comma-separated item ids. Defaults to the open items of the tracker.")),
		mcp.WithNumber("batches", mcp.Description("Maximum number of batches to suggest.")),
		mcp.WithNumber("batch_size", mcp.Description("Maximum number of items per batch.")),
		mcp.WithNumber("min_compatibility", mcp.Description("Minimum average compatibility (0 to 1) for an item to join a batch.")),
	), h.handleSuggestBatches)

	// --- 2. Tool: predict_files ---
	s.AddTool(mcp.NewTool("predict_files",
		mcp.WithDescription("Predict the files, layers and complexity of a work item from its text."),
		mcp.WithString("title", mcp.Description("Title of the work item."), mcp.Required()),
		mcp.WithString("description", mcp.Description("Optional description of the work item.")),
	), h.handlePredictFiles)

	// --- 3. Tool: get_swarm_status ---
	s.AddTool(mcp.NewTool("get_swarm_status",
		mcp.WithDescription("Report the current swarm and flag workers that missed their heartbeat."),
	), h.handleGetSwarmStatus)

	// --- 4. Tool: get_knowledge_stats ---
	s.AddTool(mcp.NewTool("get_knowledge_stats",
		mcp.WithDescription("Summarize the learned patterns, file associations and conflict pairs."),
	), h.handleGetKnowledgeStats)

	// --- 5. Tool: search_patterns ---
	s.AddTool(mcp.NewTool("search_patterns",
		mcp.WithDescription("Find past work items similar to the query text."),
		mcp.WithString("query", mcp.Description("Free text to match against pattern keywords."), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results.")),
	), h.handleSearchPatterns)

	return s
}

// StartMCPServer starts the Hotswarm MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, deps *core.Deps) error {
	s := NewMCPServer(baseCfg, deps)
	return server.ServeStdio(s)
}
