// Package mcp exposes the searchmix index to AI clients over the Model
// Context Protocol: search with navigable snippets, document retrieval,
// heading lookup, and index status.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/searchmix/searchmix/internal/document"
	"github.com/searchmix/searchmix/internal/index"
	"github.com/searchmix/searchmix/internal/search"
	"github.com/searchmix/searchmix/pkg/version"
)

// Server is the MCP server for searchmix.
type Server struct {
	mcp     *mcp.Server
	manager *index.Manager
	logger  *slog.Logger
}

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query    string   `json:"query" jsonschema:"the search query; supports AND/OR/NOT, quoted phrases, field: prefixes, and trailing * for prefix match"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of documents, default 10"`
	Tags     []string `json:"tags,omitempty" jsonschema:"restrict to documents carrying any of these tags"`
	Snippets bool     `json:"snippets,omitempty" jsonschema:"include in-context match snippets"`
}

// SnippetOutput is one snippet in a search response.
type SnippetOutput struct {
	Text          string   `json:"text"`
	SectionType   string   `json:"section_type,omitempty"`
	Position      int      `json:"position"`
	DocumentPath  string   `json:"document_path"`
	DocumentTitle string   `json:"document_title,omitempty"`
	Rank          float64  `json:"rank"`
	SectionID     string   `json:"section_id,omitempty"`
	Breadcrumbs   string   `json:"breadcrumbs,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results       []SnippetOutput `json:"results"`
	TotalCount    *int            `json:"total_count,omitempty"`
	TotalSnippets int             `json:"total_snippets"`
}

// GetDocumentInput defines the input schema for the get_document tool.
type GetDocumentInput struct {
	Path     string `json:"path" jsonschema:"the document path"`
	Position int    `json:"position,omitempty" jsonschema:"byte offset to start the body window at"`
	Length   int    `json:"length,omitempty" jsonschema:"body window size, default 5000"`
}

// GetDocumentOutput defines the output schema for the get_document tool.
type GetDocumentOutput struct {
	Path  string   `json:"path"`
	Title string   `json:"title,omitempty"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
}

// GetHeadingInput defines the input schema for the get_heading tool.
type GetHeadingInput struct {
	Path      string `json:"path" jsonschema:"the document path"`
	HeadingID string `json:"heading_id" jsonschema:"the section id from a search snippet"`
}

// GetHeadingOutput defines the output schema for the get_heading tool.
type GetHeadingOutput struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Text         string `json:"text"`
	Depth        int    `json:"depth"`
	ContentCount int    `json:"content_count"`
	Markdown     string `json:"markdown,omitempty"`
}

// IndexStatusInput defines the input schema for the index_status tool.
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	DocumentCount int    `json:"document_count"`
	IndexPath     string `json:"index_path,omitempty"`
	SizeBytes     int64  `json:"size_bytes,omitempty"`
	Version       string `json:"version"`
}

// NewServer creates the MCP server over an open index manager.
func NewServer(manager *index.Manager) (*Server, error) {
	if manager == nil {
		return nil, errors.New("index manager is required")
	}

	s := &Server{
		manager: manager,
		logger:  slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "searchmix",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Full-text search over the indexed documents. Accent and case insensitive, ranked by weighted BM25. Returns match snippets with section ids for navigation.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_document",
		Description: "Retrieve a stored document by path, optionally windowing the body to a byte range.",
	}, s.handleGetDocument)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_heading",
		Description: "Look up one heading section by id and return it rendered as Markdown with its content.",
	}, s.handleGetHeading)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report how many documents are indexed and where the index lives.",
	}, s.handleIndexStatus)

	s.logger.Info("mcp_tools_registered", slog.Int("count", 4))
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, errors.New("query parameter is required")
	}

	res, err := s.manager.Search(ctx, input.Query, index.SearchOptions{
		Limit:    input.Limit,
		Tags:     input.Tags,
		Snippets: input.Snippets,
		Count:    true,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{
		Results:       make([]SnippetOutput, 0, len(res.Results)),
		TotalCount:    res.TotalCount,
		TotalSnippets: res.TotalSnippets,
	}
	for _, sn := range res.Results {
		out.Results = append(out.Results, SnippetOutput{
			Text:          sn.Text,
			SectionType:   string(sn.SectionType),
			Position:      sn.Position,
			DocumentPath:  sn.DocumentPath,
			DocumentTitle: sn.DocumentTitle,
			Rank:          sn.Rank,
			SectionID:     sn.SectionID,
			Breadcrumbs:   sn.GetBreadcrumbsText(""),
			Tags:          sn.Tags,
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetDocument(ctx context.Context, _ *mcp.CallToolRequest, input GetDocumentInput) (
	*mcp.CallToolResult,
	GetDocumentOutput,
	error,
) {
	if input.Path == "" {
		return nil, GetDocumentOutput{}, errors.New("path parameter is required")
	}

	var opts *index.GetOptions
	if input.Position > 0 || input.Length > 0 {
		opts = &index.GetOptions{Position: input.Position, Length: input.Length}
	}
	doc, err := s.manager.Get(ctx, input.Path, opts)
	if err != nil {
		return nil, GetDocumentOutput{}, err
	}
	if doc == nil {
		return nil, GetDocumentOutput{}, fmt.Errorf("document not found: %s", input.Path)
	}

	return nil, GetDocumentOutput{
		Path:  doc.Path,
		Title: doc.Title,
		Body:  doc.Body,
		Tags:  doc.Tags,
	}, nil
}

func (s *Server) handleGetHeading(ctx context.Context, _ *mcp.CallToolRequest, input GetHeadingInput) (
	*mcp.CallToolResult,
	GetHeadingOutput,
	error,
) {
	if input.Path == "" || input.HeadingID == "" {
		return nil, GetHeadingOutput{}, errors.New("path and heading_id parameters are required")
	}

	details, err := s.manager.GetHeadingByID(ctx, input.Path, input.HeadingID)
	if err != nil {
		return nil, GetHeadingOutput{}, err
	}
	if details == nil {
		return nil, GetHeadingOutput{}, fmt.Errorf("heading not found: %s#%s", input.Path, input.HeadingID)
	}

	rendered := search.RenderSection(&document.Section{
		Type:    details.Type,
		Depth:   details.Depth,
		Text:    details.Text,
		Content: details.Content,
	})

	return nil, GetHeadingOutput{
		ID:           details.ID,
		Type:         string(details.Type),
		Text:         details.Text,
		Depth:        details.Depth,
		ContentCount: details.ContentCount,
		Markdown:     rendered,
	}, nil
}

func (s *Server) handleIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	IndexStatusOutput,
	error,
) {
	stats, err := s.manager.GetStats(ctx, "")
	if err != nil {
		return nil, IndexStatusOutput{}, err
	}
	return nil, IndexStatusOutput{
		DocumentCount: stats.DocumentCount,
		IndexPath:     stats.Path,
		SizeBytes:     stats.SizeBytes,
		Version:       version.Version,
	}, nil
}

// Serve runs the server over the stdio transport until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}
