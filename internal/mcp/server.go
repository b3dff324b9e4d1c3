// Package mcp exposes the assistant as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tjfontaine/uda/internal/core/domain"
	"github.com/tjfontaine/uda/internal/core/ports"
	"github.com/tjfontaine/uda/internal/dlq"
	"github.com/tjfontaine/uda/internal/server"
)

// Server wraps the MCP SDK server with the assistant's tools.
type Server struct {
	MCPServer *sdkmcp.Server

	asker server.Asker
	queue ports.DeadLetterQueue
}

// NewServer registers the ask and dlq_items tools. queue may be nil.
func NewServer(asker server.Asker, queue ports.DeadLetterQueue, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{asker: asker, queue: queue}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "uda", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed corpus with citations, uncertainty and a faithfulness verdict. Ungrounded answers are escalated to the dead-letter queue.",
	}, s.handleAsk)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "dlq_items",
		Description: "List escalated requests waiting for human review, oldest first.",
	}, s.handleDLQItems)
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

type askInput struct {
	Query string `json:"query" jsonschema:"the question to answer"`
}

type askOutput struct {
	RunID       string                   `json:"run_id"`
	Answer      string                   `json:"answer"`
	Citations   []string                 `json:"citations"`
	Uncertainty *domain.Uncertainty      `json:"uncertainty,omitempty"`
	Validation  *domain.ValidationReport `json:"validation,omitempty"`
	Decision    domain.Decision          `json:"decision"`
}

func (s *Server) handleAsk(ctx context.Context, _ *sdkmcp.CallToolRequest, input askInput) (*sdkmcp.CallToolResult, askOutput, error) {
	res, err := s.asker.Ask(ctx, input.Query)
	if err != nil {
		return nil, askOutput{}, fmt.Errorf("ask: %w", err)
	}
	p := res.Payload
	return nil, askOutput{
		RunID:       res.RunID,
		Answer:      p.Answer,
		Citations:   p.Citations,
		Uncertainty: p.Uncertainty,
		Validation:  p.Validation,
		Decision:    p.Decision,
	}, nil
}

type dlqItemsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of items to return (0 = all)"`
}

type dlqItemsOutput struct {
	Items []map[string]any `json:"items"`
	Count int              `json:"count"`
}

func (s *Server) handleDLQItems(ctx context.Context, _ *sdkmcp.CallToolRequest, input dlqItemsInput) (*sdkmcp.CallToolResult, dlqItemsOutput, error) {
	out := dlqItemsOutput{Items: []map[string]any{}}
	if s.queue == nil {
		return nil, out, nil
	}
	items, err := dlq.Collect(ctx, s.queue, input.Limit)
	if err != nil {
		return nil, dlqItemsOutput{}, fmt.Errorf("dlq_items: %w", err)
	}
	out.Items = items
	out.Count = len(items)
	return nil, out, nil
}
