package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ShankarKakumani/eywa/internal/search"
)

// SearchInput is the search tool's argument schema.
type SearchInput struct {
	Query    string `json:"query" jsonschema:"the search query"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	SourceID string `json:"source_id,omitempty" jsonschema:"restrict results to this source id"`
}

// SearchResultOutput is one hydrated, scored chunk.
type SearchResultOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	SourceID   string  `json:"source_id"`
	Title      string  `json:"title,omitempty"`
	FilePath   string  `json:"file_path,omitempty"`
	StartLine  int     `json:"start_line,omitempty"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// SearchOutput is the search tool's return schema.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	results, err := s.engine.Search.Search(ctx, input.Query, limit, input.SourceID)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	return nil, SearchOutput{Results: toSearchResultOutputs(results)}, nil
}

// SimilarDocsInput is the similar_docs tool's argument schema.
type SimilarDocsInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document id to find similar documents for"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

func (s *Server) handleSimilarDocs(ctx context.Context, _ *mcp.CallToolRequest, input SimilarDocsInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.DocumentID == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("document_id is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	results, err := s.engine.Search.Similar(ctx, input.DocumentID, limit)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	return nil, SearchOutput{Results: toSearchResultOutputs(results)}, nil
}

// ListSourcesInput is the (argument-less) list_sources tool's schema.
type ListSourcesInput struct{}

// SourceOutput is one source's aggregate stats.
type SourceOutput struct {
	SourceID      string `json:"source_id"`
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
}

// ListSourcesOutput is the list_sources tool's return schema.
type ListSourcesOutput struct {
	Sources []SourceOutput `json:"sources"`
}

func (s *Server) handleListSources(ctx context.Context, _ *mcp.CallToolRequest, _ ListSourcesInput) (*mcp.CallToolResult, ListSourcesOutput, error) {
	stats, err := s.engine.Content.SourceStats(ctx)
	if err != nil {
		return nil, ListSourcesOutput{}, MapError(err)
	}

	// The content store does not track chunks; take per-source chunk
	// counts from the vector index.
	chunkCounts := make(map[string]int)
	for _, vs := range s.engine.Vectors.ListSources() {
		chunkCounts[vs.SourceID] = vs.ChunkCount
	}

	out := make([]SourceOutput, len(stats))
	for i, st := range stats {
		out[i] = SourceOutput{SourceID: st.SourceID, DocumentCount: st.DocumentCount, ChunkCount: chunkCounts[st.SourceID]}
	}
	return nil, ListSourcesOutput{Sources: out}, nil
}

// ListDocumentsInput is the list_documents tool's argument schema.
type ListDocumentsInput struct {
	SourceID string `json:"source_id,omitempty" jsonschema:"restrict to this source id; empty lists all sources"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of documents, default 50"`
	Offset   int    `json:"offset,omitempty" jsonschema:"pagination offset"`
}

// DocumentSummaryOutput is one document's listing metadata, without content.
type DocumentSummaryOutput struct {
	DocumentID    string `json:"document_id"`
	SourceID      string `json:"source_id"`
	Title         string `json:"title,omitempty"`
	FilePath      string `json:"file_path,omitempty"`
	ContentLength int    `json:"content_length"`
}

// ListDocumentsOutput is the list_documents tool's return schema.
type ListDocumentsOutput struct {
	Documents []DocumentSummaryOutput `json:"documents"`
	Total     int                     `json:"total"`
}

func (s *Server) handleListDocuments(ctx context.Context, _ *mcp.CallToolRequest, input ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}

	items, total, err := s.engine.Content.ListDocuments(ctx, input.SourceID, limit, input.Offset)
	if err != nil {
		return nil, ListDocumentsOutput{}, MapError(err)
	}

	out := make([]DocumentSummaryOutput, len(items))
	for i, it := range items {
		out[i] = DocumentSummaryOutput{
			DocumentID:    it.ID,
			SourceID:      it.SourceID,
			Title:         it.Title,
			FilePath:      it.FilePath,
			ContentLength: it.ContentLength,
		}
	}
	return nil, ListDocumentsOutput{Documents: out, Total: total}, nil
}

// GetDocumentInput is the get_document tool's argument schema.
type GetDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document id to fetch"`
}

// DocumentOutput is a document's full content plus metadata.
type DocumentOutput struct {
	DocumentID string `json:"document_id"`
	SourceID   string `json:"source_id"`
	Title      string `json:"title,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	Content    string `json:"content"`
}

func (s *Server) handleGetDocument(ctx context.Context, _ *mcp.CallToolRequest, input GetDocumentInput) (*mcp.CallToolResult, *DocumentOutput, error) {
	if input.DocumentID == "" {
		return nil, nil, NewInvalidParamsError("document_id is required")
	}

	doc, err := s.engine.Content.GetDocument(ctx, input.DocumentID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	if doc == nil {
		return nil, nil, NewNotFoundError("document", input.DocumentID)
	}

	return nil, &DocumentOutput{
		DocumentID: doc.ID,
		SourceID:   doc.SourceID,
		Title:      doc.Title,
		FilePath:   doc.FilePath,
		Content:    doc.Content,
	}, nil
}

func toSearchResultOutputs(results []search.Result) []SearchResultOutput {
	out := make([]SearchResultOutput, len(results))
	for i, r := range results {
		out[i] = SearchResultOutput{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			SourceID:   r.SourceID,
			Title:      r.Title,
			FilePath:   r.FilePath,
			StartLine:  r.StartLine,
			Content:    r.Content,
			Score:      r.Score,
		}
	}
	return out
}
