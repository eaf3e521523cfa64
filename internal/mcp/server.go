// Package mcp exposes the documentation library to MCP clients over stdio.
package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tableclothml/odocsite/internal/db"
	"github.com/tableclothml/odocsite/internal/library"
	"github.com/tableclothml/odocsite/internal/markdown"
)

//go:embed instructions.md
var instructions string

const uriScheme = "odoc://"

type Server struct {
	mcpServer *server.MCPServer
	lib       *library.Library
	db        *db.DB
}

// NewServer wires lib into a new MCP server. database may be nil.
func NewServer(lib *library.Library, database *db.DB, version string) *Server {
	s := &Server{lib: lib, db: database}

	mcpServer := server.NewMCPServer(
		"odocsite",
		version,
		server.WithInstructions(instructions),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("search_docs",
			mcp.WithDescription("Search documented values, types and modules by name. Returns odoc:// URIs that can be read as resources."),
			mcp.WithString("query",
				mcp.Description("Name or dotted path fragment, e.g. \"String.toL\""),
				mcp.Required(),
			),
			mcp.WithString("variant",
				mcp.Description("Variant to search (default: all variants)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results per variant (default 20)"),
			),
		),
		s.handleSearchDocs,
	)

	mcpServer.AddTool(
		mcp.NewTool("list_modules",
			mcp.WithDescription("List the modules, module types and functors documented in a variant."),
			mcp.WithString("variant",
				mcp.Description("Variant name"),
				mcp.Required(),
			),
		),
		s.handleListModules,
	)
}

func (s *Server) registerResources(mcpServer *server.MCPServer) {
	mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			uriScheme+"{variant}/{anchor}",
			"Documented declaration",
			mcp.WithTemplateDescription("Read one declaration, or a whole module, as markdown. Search results return these URIs."),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		s.handleReadResource,
	)
}

type searchHit struct {
	URI       string `json:"uri"`
	Kind      string `json:"kind"`
	Module    string `json:"module,omitempty"`
	Signature string `json:"signature,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

func (s *Server) handleSearchDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	query, _ := args["query"].(string)
	if query == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	limit := 20
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	var variants []string
	if v, _ := args["variant"].(string); v != "" {
		variants = []string{v}
	} else {
		for _, src := range s.lib.Variants() {
			variants = append(variants, src.Name)
		}
	}

	hits := []searchHit{}
	for _, v := range variants {
		p, err := s.lib.Page(ctx, v)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading %s: %v", v, err)), nil
		}
		rows, err := p.Search(s.db, query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		for _, a := range rows {
			hits = append(hits, searchHit{
				URI:       uriScheme + v + "/" + a.Anchor,
				Kind:      a.Kind,
				Module:    a.Module,
				Signature: a.Signature,
				Summary:   a.Summary,
			})
		}
	}

	resultJSON, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (s *Server) handleListModules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	variant, _ := req.GetArguments()["variant"].(string)
	if variant == "" {
		return mcp.NewToolResultError("missing required parameter: variant"), nil
	}
	p, err := s.lib.Page(ctx, variant)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type module struct {
		URI       string `json:"uri"`
		Kind      string `json:"kind"`
		Name      string `json:"name"`
		Signature string `json:"signature,omitempty"`
	}
	out := []module{}
	for _, b := range p.Modules() {
		out = append(out, module{
			URI:       uriScheme + variant + "/" + b.Anchor,
			Kind:      string(b.Kind),
			Name:      b.Name,
			Signature: b.Signature,
		})
	}
	resultJSON, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

// ParseURI splits an odoc://{variant}/{anchor} URI.
func ParseURI(uri string) (variant, anchor string, err error) {
	trimmed, ok := strings.CutPrefix(uri, uriScheme)
	if !ok {
		return "", "", fmt.Errorf("invalid resource URI: %s", uri)
	}
	variant, anchor, ok = strings.Cut(trimmed, "/")
	if !ok || variant == "" || anchor == "" {
		return "", "", fmt.Errorf("invalid resource URI: %s", uri)
	}
	return variant, anchor, nil
}

func (s *Server) handleReadResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	text, err := s.read(ctx, uri)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}, nil
}

var errAnchorNotFound = errors.New("anchor not found")

// read renders the section behind uri, pointing in-page links at sibling
// resources of the same variant.
func (s *Server) read(ctx context.Context, uri string) (string, error) {
	variant, anchor, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	p, err := s.lib.Page(ctx, variant)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", variant, err)
	}
	b, _, ok := p.Document.Lookup(anchor)
	if !ok {
		return "", fmt.Errorf("%s in %s: %w", anchor, variant, errAnchorNotFound)
	}
	section, _ := p.Section(anchor)
	section = markdown.RewriteLinks(section, markdown.AnchorRewriter(uriScheme+variant+"/"))
	return markdown.AddFrontMatter(section, map[string]string{
		"variant": variant,
		"anchor":  anchor,
		"kind":    string(b.Kind),
	}), nil
}

func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}
