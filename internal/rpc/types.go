package rpc

import (
	"time"

	"github.com/tableclothml/odocsite/internal/render"
)

type Variant struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

// VariantsResponse is the response body for GET /api/variants.
type VariantsResponse struct {
	Variants []Variant `json:"variants"`
}

// BlocksResponse is the response body for GET /api/{variant}/blocks.
type BlocksResponse struct {
	Variant   string         `json:"variant"`
	ModelHash string         `json:"model_hash"`
	Blocks    []render.Block `json:"blocks"`
}

// AnchorsResponse is the response body for GET /api/{variant}/anchors.
type AnchorsResponse struct {
	Variant string         `json:"variant"`
	Anchors map[string]int `json:"anchors"`
}

// SidebarResponse is the response body for GET /api/{variant}/sidebar.
type SidebarResponse struct {
	Variant   string                `json:"variant"`
	Search    string                `json:"search,omitempty"`
	Collapsed []string              `json:"collapsed,omitempty"`
	Nodes     []*render.SidebarNode `json:"nodes"`
}

// AnchorResponse is the response body for GET /api/{variant}/anchor/{anchor}.
type AnchorResponse struct {
	Variant  string       `json:"variant"`
	Anchor   string       `json:"anchor"`
	Index    int          `json:"index"`
	Block    render.Block `json:"block"`
	Markdown string       `json:"markdown"`
}

// SearchResponse is the response body for GET /api/{variant}/search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

type SearchResult struct {
	Anchor    string `json:"anchor"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Module    string `json:"module,omitempty"`
	Signature string `json:"signature,omitempty"`
	Summary   string `json:"summary,omitempty"`
	URL       string `json:"url"`
}

// ReloadResponse is the response body for POST /api/reload.
type ReloadResponse struct {
	Purged int `json:"purged"`
}

// StatusResponse is the response body for GET /status.
type StatusResponse struct {
	Cached   int             `json:"cached"`
	Variants []VariantStatus `json:"variants"`
}

type VariantStatus struct {
	Name      string     `json:"name"`
	Indexed   bool       `json:"indexed"`
	Anchors   int        `json:"anchors,omitempty"`
	IndexedAt *time.Time `json:"indexed_at,omitempty"`
}
