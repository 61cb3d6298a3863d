// Package mcpserver exposes the eywa retrieval engine over the Model
// Context Protocol: search, similar_docs, list_sources, list_documents,
// and get_document (spec.md §6 "MCP surface").
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ShankarKakumani/eywa/internal/engine"
)

const serverName = "eywa"

// Server bridges an engine.Engine to MCP tool calls over stdio.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	logger *slog.Logger
}

// New builds an MCP server over eng and registers every tool.
func New(eng *engine.Engine) *Server {
	s := &Server{
		engine: eng,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: "0.1.0"}, nil)
	s.registerTools()

	return s
}

// Serve runs the server over stdio until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting mcp server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp server stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid lexical+semantic search over ingested documents, returning the top-scoring chunks.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "similar_docs",
		Description: "Find chunks from documents similar to a given document id.",
	}, s.handleSimilarDocs)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_sources",
		Description: "List every source id known to the content store, with document and chunk counts.",
	}, s.handleListSources)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_documents",
		Description: "List documents, optionally restricted to one source id.",
	}, s.handleListDocuments)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_document",
		Description: "Fetch a single document's full content and metadata by id.",
	}, s.handleGetDocument)
}
