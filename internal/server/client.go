package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tableclothml/odocsite/internal/rpc"
)

// Client talks to a running documentation server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// IsAvailable reports whether something is listening at the server address.
func (c *Client) IsAvailable() bool {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	conn, err := net.DialTimeout("tcp", u.Host, 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (c *Client) Variants(ctx context.Context) (*rpc.VariantsResponse, error) {
	var resp rpc.VariantsResponse
	err := c.do(ctx, http.MethodGet, "/api/variants", &resp)
	return &resp, err
}

func (c *Client) Anchor(ctx context.Context, variant, anchor string) (*rpc.AnchorResponse, error) {
	var resp rpc.AnchorResponse
	err := c.do(ctx, http.MethodGet, "/api/"+url.PathEscape(variant)+"/anchor/"+url.PathEscape(anchor), &resp)
	return &resp, err
}

func (c *Client) Search(ctx context.Context, variant, query string, limit int) (*rpc.SearchResponse, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp rpc.SearchResponse
	err := c.do(ctx, http.MethodGet, "/api/"+url.PathEscape(variant)+"/search?"+q.Encode(), &resp)
	return &resp, err
}

func (c *Client) Sidebar(ctx context.Context, variant, search, collapsed string) (*rpc.SidebarResponse, error) {
	q := url.Values{}
	if search != "" {
		q.Set("q", search)
	}
	if collapsed != "" {
		q.Set("collapsed", collapsed)
	}
	var resp rpc.SidebarResponse
	err := c.do(ctx, http.MethodGet, "/api/"+url.PathEscape(variant)+"/sidebar?"+q.Encode(), &resp)
	return &resp, err
}

func (c *Client) Reload(ctx context.Context) (*rpc.ReloadResponse, error) {
	var resp rpc.ReloadResponse
	err := c.do(ctx, http.MethodPost, "/api/reload", &resp)
	return &resp, err
}

func (c *Client) Status(ctx context.Context) (*rpc.StatusResponse, error) {
	var resp rpc.StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", &resp)
	return &resp, err
}

func (c *Client) do(ctx context.Context, method, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			return &StatusError{Code: resp.StatusCode, Message: e.Error}
		}
		return &StatusError{Code: resp.StatusCode, Message: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// StatusError is a non-200 reply from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}
