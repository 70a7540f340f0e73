package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/retrieval"
	"github.com/flemzord/mindcanvas/pkg/app"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// searcher is the retrieval entry point exposed as an MCP tool.
type searcher interface {
	PerformSearch(ctx context.Context, query string, history []memory.Turn, pinnedIDs []string) retrieval.Result
}

func mcpCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the search_memories tool over MCP (stdio)",
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := app.Build(g.params("gateway", "backfill"))
			if err != nil {
				return err
			}
			defer rt.Close()

			svc, ok := core.ServiceAs[*retrieval.Service](rt.Context, retrieval.ServiceName)
			if !ok {
				return errNoPipeline
			}
			return server.ServeStdio(newMCPServer(svc))
		},
	}
}

func newMCPServer(s searcher) *server.MCPServer {
	srv := server.NewMCPServer("mindcanvas", version, server.WithToolCapabilities(false))
	srv.AddTool(searchMemoriesTool(), searchMemoriesHandler(s))
	return srv
}

func searchMemoriesTool() mcp.Tool {
	return mcp.NewTool(
		"search_memories",
		mcp.WithDescription("Answers a question from the user's saved canvas memories and returns the answer, the memories it drew on and the IDs to pin for a follow-up."),
		mcp.WithString("query",
			mcp.Description("The question to answer. May be empty for a follow-up over pinned memories."),
		),
		mcp.WithArray("pinned_memory_ids",
			mcp.Description("Memory IDs from a previous result. When set, no new search happens."),
			mcp.WithStringItems(),
		),
		mcp.WithArray("conversation_history",
			mcp.Description("Earlier turns of this conversation, oldest first. Used with pinned_memory_ids to resolve references like \"it\" or \"that one\"."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"role":    map[string]any{"type": "string", "enum": []string{"user", "assistant"}},
					"content": map[string]any{"type": "string"},
				},
				"required": []string{"role", "content"},
			}),
		),
	)
}

// historyArg decodes the conversation_history argument.
func historyArg(req mcp.CallToolRequest) ([]memory.Turn, error) {
	raw, ok := req.GetArguments()["conversation_history"]
	if !ok || raw == nil {
		return nil, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var turns []memory.Turn
	if err := json.Unmarshal(b, &turns); err != nil {
		return nil, fmt.Errorf("conversation_history: %w", err)
	}
	if err := validateTurns(turns); err != nil {
		return nil, fmt.Errorf("conversation_history: %w", err)
	}
	return turns, nil
}

func searchMemoriesHandler(s searcher) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		pins := req.GetStringSlice("pinned_memory_ids", nil)
		if query == "" && len(pins) == 0 {
			return mcp.NewToolResultError("query or pinned_memory_ids is required"), nil
		}

		history, err := historyArg(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res := s.PerformSearch(ctx, query, history, pins).WithoutEmbeddings()
		b, err := json.Marshal(res)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}
