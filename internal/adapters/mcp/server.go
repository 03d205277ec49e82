package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/core/ports"
)

// NewServer exposes the ask and retrieve operations as MCP tools so agent
// hosts can query the spec corpus directly.
func NewServer(askUC ports.AskService, retrieval ports.RetrievalService, version string) *server.MCPServer {
	srv := server.NewMCPServer("specqa", version, server.WithToolCapabilities(false))

	askTool := mcp.NewTool("ask_specs",
		mcp.WithDescription("Answer a question from the versioned specification corpus, with source attribution"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
		mcp.WithString("filter",
			mcp.Description("Optional metadata filter as a JSON object, e.g. {\"equals\":{\"key\":\"version\",\"value\":\"2024\"}}"),
		))
	srv.AddTool(askTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter, err := parseFilterArg(request.GetString("filter", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		answer, err := askUC.Ask(ctx, domain.AskRequest{Question: question, Filter: filter})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		raw, err := json.Marshal(struct {
			Answer       string                  `json:"answer"`
			Verification string                  `json:"verification,omitempty"`
			Sources      []domain.CombinedChunks `json:"sources"`
		}{
			Answer:       answer.Text,
			Verification: answer.Verification,
			Sources:      answer.Sources,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(raw)), nil
	})

	retrieveTool := mcp.NewTool("retrieve_spec_chunks",
		mcp.WithDescription("Retrieve raw specification chunks for a query without answer generation"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The search query"),
		),
		mcp.WithString("filter",
			mcp.Description("Optional metadata filter as a JSON object"),
		))
	srv.AddTool(retrieveTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter, err := parseFilterArg(request.GetString("filter", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		chunks, err := retrieval.Retrieve(ctx, question, filter)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response string
		for _, chunk := range chunks {
			raw, err := json.Marshal(struct {
				Score   float64 `json:"score"`
				DocID   string  `json:"doc_id"`
				ChunkID string  `json:"chunk_id"`
				Text    string  `json:"text"`
			}{
				Score:   chunk.Score,
				DocID:   chunk.DocID,
				ChunkID: chunk.ChunkID,
				Text:    chunk.Text,
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			response += fmt.Sprintf("%s\n", string(raw))
		}
		return mcp.NewToolResultText(response), nil
	})

	return srv
}

func parseFilterArg(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var filter map[string]any
	if err := json.Unmarshal([]byte(raw), &filter); err != nil {
		return nil, fmt.Errorf("filter must be a JSON object: %w", err)
	}
	return filter, nil
}
