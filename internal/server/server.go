// Package server serves rendered documentation pages and a JSON API over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/tableclothml/odocsite/internal/db"
	"github.com/tableclothml/odocsite/internal/library"
	"github.com/tableclothml/odocsite/internal/render"
	"github.com/tableclothml/odocsite/internal/rpc"
	"github.com/tableclothml/odocsite/internal/site"
)

type Server struct {
	lib   *library.Library
	db    *db.DB
	title string
	addr  string

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a server for lib. database may be nil, in which case
// search falls back to the sidebar filter.
func NewServer(lib *library.Library, database *db.DB, title, addr string) *Server {
	return &Server{lib: lib, db: database, title: title, addr: addr}
}

// Navigator links anchors to the variant's page on this server.
func Navigator(variant string) render.Navigator {
	return render.PageNavigator{Base: "/docs/" + variant}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /docs/{variant}", s.handlePage)
	mux.HandleFunc("GET /docs/{variant}/{$}", s.handlePage)
	mux.HandleFunc("GET /docs/{variant}/index.html", s.handlePage)
	mux.HandleFunc("GET /api/variants", s.handleVariants)
	mux.HandleFunc("GET /api/{variant}/blocks", s.handleBlocks)
	mux.HandleFunc("GET /api/{variant}/anchors", s.handleAnchors)
	mux.HandleFunc("GET /api/{variant}/sidebar", s.handleSidebar)
	mux.HandleFunc("GET /api/{variant}/anchor/{anchor}", s.handleAnchor)
	mux.HandleFunc("GET /api/{variant}/search", s.handleSearch)
	mux.HandleFunc("POST /api/reload", s.handleReload)
	mux.HandleFunc("GET /status", s.handleStatus)
	return mux
}

// Start listens on the configured address and serves until Stop is called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	slog.Info("serving documentation", "addr", listener.Addr().String(), "variants", len(s.lib.Variants()))

	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
			errs = append(errs, err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("db close error", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// page loads the variant named in the request path, writing an error
// response and returning nil when it cannot.
func (s *Server) page(w http.ResponseWriter, r *http.Request) *library.Page {
	p, err := s.lib.Page(r.Context(), r.PathValue("variant"))
	if err == nil {
		return p
	}
	var unknown *library.ErrUnknownVariant
	switch {
	case errors.As(err, &unknown), errors.Is(err, os.ErrNotExist):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("loading page", "variant", r.PathValue("variant"), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := site.WriteIndex(w, s.title, "/", s.lib.Variants()); err != nil {
		slog.Error("rendering index", "error", err)
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p := s.page(w, r)
	if p == nil {
		return
	}
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := site.WritePage(w, p, site.PageOptions{
		Title:     s.title,
		Root:      "/",
		Variants:  s.lib.Variants(),
		Search:    render.ParseSearch(q.Get("q")),
		Collapsed: render.ParseCollapsed(q.Get("collapsed")),
	})
	if err != nil {
		slog.Error("rendering page", "variant", p.Source.Name, "error", err)
	}
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	var resp rpc.VariantsResponse
	for _, v := range s.lib.Variants() {
		resp.Variants = append(resp.Variants, rpc.Variant{Name: v.Name, Language: v.Language})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	p := s.page(w, r)
	if p == nil {
		return
	}
	writeJSON(w, http.StatusOK, rpc.BlocksResponse{
		Variant:   p.Source.Name,
		ModelHash: p.ModelHash,
		Blocks:    p.Document.Blocks,
	})
}

func (s *Server) handleAnchors(w http.ResponseWriter, r *http.Request) {
	p := s.page(w, r)
	if p == nil {
		return
	}
	writeJSON(w, http.StatusOK, rpc.AnchorsResponse{Variant: p.Source.Name, Anchors: p.Document.Anchors})
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	p := s.page(w, r)
	if p == nil {
		return
	}
	q := r.URL.Query()
	search := render.ParseSearch(q.Get("q"))
	collapsed := render.ParseCollapsed(q.Get("collapsed"))

	nodes, err := p.Sidebar(search, collapsed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rpc.SidebarResponse{
		Variant:   p.Source.Name,
		Search:    search.String(),
		Collapsed: collapsed.Names(),
		Nodes:     nodes,
	})
}

func (s *Server) handleAnchor(w http.ResponseWriter, r *http.Request) {
	p := s.page(w, r)
	if p == nil {
		return
	}
	anchor := r.PathValue("anchor")
	b, i, ok := p.Document.Lookup(anchor)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("anchor %s not found in %s", anchor, p.Source.Name))
		return
	}
	md, _ := p.Section(anchor)
	writeJSON(w, http.StatusOK, rpc.AnchorResponse{
		Variant:  p.Source.Name,
		Anchor:   anchor,
		Index:    i,
		Block:    b,
		Markdown: md,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}

	p := s.page(w, r)
	if p == nil {
		return
	}

	rows, err := p.Search(s.db, q, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := rpc.SearchResponse{Results: make([]rpc.SearchResult, 0, len(rows))}
	for _, a := range rows {
		resp.Results = append(resp.Results, rpc.SearchResult{
			Anchor:    a.Anchor,
			Kind:      a.Kind,
			Name:      a.Name,
			Module:    a.Module,
			Signature: a.Signature,
			Summary:   a.Summary,
			URL:       p.Renderer.Href(a.Anchor),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	n := s.lib.Cached()
	s.lib.Purge()
	slog.Info("purged page cache", "pages", n)
	writeJSON(w, http.StatusOK, rpc.ReloadResponse{Purged: n})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := rpc.StatusResponse{Cached: s.lib.Cached()}
	indexed := make(map[string]db.Variant)
	if s.db != nil {
		variants, err := s.db.ListVariants()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, v := range variants {
			indexed[v.Name] = v
		}
	}
	for _, src := range s.lib.Variants() {
		st := rpc.VariantStatus{Name: src.Name}
		if v, ok := indexed[src.Name]; ok {
			st.Indexed = true
			st.Anchors = v.Anchors
			st.IndexedAt = v.IndexedAt
		}
		resp.Variants = append(resp.Variants, st)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
