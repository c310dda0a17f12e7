package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ryumin/askd/internal/retrieval"
)

// Searcher abstracts scored corpus retrieval for the MCP layer.
type Searcher interface {
	GetScored(ctx context.Context, question string, k int) ([]retrieval.ScoredDocument, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	QA      QAService
	Corpus  Searcher
	Version string
}

// NewMCPServer creates an MCP server exposing the QA surface as tools.
// Tool failures are reported as IsError results, never protocol errors.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"askd",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("askd answers questions from a curated document corpus, backed by a similarity-matched answer cache."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Answer a question, preferring cached answers and falling back to corpus-grounded generation."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("search",
			mcp.WithDescription("Search the document corpus and return the most similar passages with scores."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of passages (default 5)")),
		),
		mcpSearch(deps),
	)

	s.AddTool(
		mcp.NewTool("remember",
			mcp.WithDescription("Store a question/answer pair in the answer cache for future lookups."),
			mcp.WithString("question", mcp.Description("The question as users would ask it"), mcp.Required()),
			mcp.WithString("answer", mcp.Description("The answer to return for similar questions"), mcp.Required()),
		),
		mcpRemember(deps),
	)

	return s
}

// mcpAsk mirrors the /ask endpoint: cache first, generation as fallback.
func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		answers, err := deps.QA.CachedAnswer(ctx, question, 1)
		if err != nil {
			return mcpError(fmt.Sprintf("cache lookup failed: %v", err)), nil
		}
		if len(answers) > 0 {
			return mcpText(strings.Join(answers, "\n")), nil
		}

		answer, err := deps.QA.Answer(ctx, question)
		if err != nil {
			return mcpError(fmt.Sprintf("generation failed: %v", err)), nil
		}
		return mcpText(answer), nil
	}
}

func mcpSearch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 20 {
			limit = 20
		}

		docs, err := deps.Corpus.GetScored(ctx, query, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(docs) == 0 {
			return mcpText("[]"), nil
		}

		type passageResult struct {
			ID       string            `json:"id"`
			Text     string            `json:"text"`
			Score    float32           `json:"score"`
			Metadata map[string]string `json:"metadata,omitempty"`
		}

		results := make([]passageResult, len(docs))
		for i, d := range docs {
			results[i] = passageResult{
				ID:       d.ID,
				Text:     d.Content,
				Score:    d.Score,
				Metadata: d.Metadata,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRemember(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		answer, err := req.RequireString("answer")
		if err != nil {
			return mcpError("answer is required"), nil
		}

		if err := deps.QA.SetCache(ctx, map[string]string{question: answer}); err != nil {
			return mcpError(fmt.Sprintf("failed to store answer: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Stored answer for %q", question)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
