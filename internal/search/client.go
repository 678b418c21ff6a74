// Package search is a small HTTP client for a web search upstream that returns
// text hits and image references, plus a size-capped image downloader.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atlanticdynamic/builtinmcp/internal/orchestrator"
	"github.com/atlanticdynamic/builtinmcp/internal/result"
)

// maxResponseBytes caps the primary search response body.
const maxResponseBytes = 4 << 20

// Client talks to the search upstream. Timeouts come from the request context,
// never from the http.Client.
type Client struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	Headers      map[string]string

	HTTP   *http.Client
	logger *slog.Logger
}

// Query is one search request.
type Query struct {
	Text       string
	MaxResults int
	ImageCount int
}

// Hit is one text result.
type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ImageRef is an image the upstream associated with the query.
type ImageRef struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Response is the normalised upstream answer.
type Response struct {
	Hits   []Hit
	Images []ImageRef
}

// Image is a downloaded image payload.
type Image struct {
	Ref  ImageRef
	MIME string
	Data []byte
}

// New returns a client for baseURL using http.DefaultClient unless WithHTTPClient
// is given.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		APIKeyHeader: "X-API-Key",
		HTTP:         http.DefaultClient,
		logger:       slog.Default().WithGroup("search.Client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs the query against the upstream. A non-2xx status is
// result.ErrUpstream, an undecodable body result.ErrInvalidPayload, and a
// failed round trip result.ErrNetwork.
func (c *Client) Search(ctx context.Context, q Query) (*Response, error) {
	reqURL, err := c.buildSearchURL(q)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", result.ErrInternal, err)
	}
	req.Header.Set("Accept", "application/json")
	c.decorate(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, roundTripError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: search status %d", result.ErrUpstream, resp.StatusCode)
	}

	body, err := orchestrator.ReadLimited(resp.Body, maxResponseBytes)
	if err != nil {
		if errors.Is(err, result.ErrPayloadTooLarge) {
			return nil, fmt.Errorf("%w: %w", result.ErrInvalidPayload, err)
		}
		return nil, roundTripError(ctx, err)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", result.ErrInvalidPayload, err)
	}
	out := &Response{
		Hits:   normalizeHits(extractList(raw, "results", "web", "items", "data")),
		Images: normalizeImages(extractList(raw, "images", "image_results")),
	}
	if q.MaxResults > 0 && len(out.Hits) > q.MaxResults {
		out.Hits = out.Hits[:q.MaxResults]
	}
	c.logger.Debug("Search finished", "hits", len(out.Hits), "images", len(out.Images))
	return out, nil
}

// Download fetches one image, refusing bodies larger than limit bytes and
// responses that are not images.
func (c *Client) Download(ctx context.Context, ref ImageRef, limit int64) (*Image, error) {
	u, err := url.Parse(ref.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: bad image url %q", result.ErrInvalidPayload, ref.URL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", result.ErrInternal, err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, roundTripError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: image status %d", result.ErrUpstream, resp.StatusCode)
	}
	if err := orchestrator.CheckDeclaredSize(resp.ContentLength, limit); err != nil {
		return nil, err
	}

	mimeType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: content type %q is not an image", result.ErrInvalidPayload, resp.Header.Get("Content-Type"))
	}

	data, err := orchestrator.ReadLimited(resp.Body, limit)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image body", result.ErrInvalidPayload)
	}
	return &Image{Ref: ref, MIME: mimeType, Data: data}, nil
}

func (c *Client) buildSearchURL(q Query) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base url: %w", result.ErrInternal, err)
	}
	v := u.Query()
	v.Set("q", q.Text)
	if q.MaxResults > 0 {
		v.Set("count", strconv.Itoa(q.MaxResults))
	}
	if q.ImageCount > 0 {
		v.Set("images", strconv.Itoa(q.ImageCount))
	}
	u.RawQuery = v.Encode()
	return u.String(), nil
}

func (c *Client) decorate(req *http.Request) {
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	if c.APIKey != "" && c.APIKeyHeader != "" {
		req.Header.Set(c.APIKeyHeader, c.APIKey)
	}
}

// roundTripError keeps context errors visible to the caller and classes
// everything else as a network failure.
func roundTripError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", context.Cause(ctx), err)
	}
	if errors.Is(err, result.ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %w", result.ErrNetwork, err)
}

// extractList returns the first array found under one of keys, or the root
// itself when it is an array.
func extractList(body any, keys ...string) []any {
	if arr, ok := body.([]any); ok && keys[0] == "results" {
		return arr
	}
	m, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any:
			return v
		case map[string]any:
			// {"web": {"results": [...]}}
			if arr, ok := v["results"].([]any); ok {
				return arr
			}
		}
	}
	return nil
}

func normalizeHits(items []any) []Hit {
	out := make([]Hit, 0, len(items))
	for _, it := range items {
		m, _ := it.(map[string]any)
		h := Hit{
			Title:   firstNonEmpty(getString(m, "title"), getString(m, "name")),
			URL:     firstNonEmpty(getString(m, "url"), getString(m, "link")),
			Snippet: firstNonEmpty(getString(m, "snippet"), getString(m, "description"), getString(m, "content")),
		}
		if h.URL == "" {
			continue
		}
		out = append(out, h)
	}
	return out
}

func normalizeImages(items []any) []ImageRef {
	out := make([]ImageRef, 0, len(items))
	for _, it := range items {
		var ref ImageRef
		switch v := it.(type) {
		case string:
			ref.URL = v
		case map[string]any:
			ref.URL = firstNonEmpty(getString(v, "url"), getString(v, "image"), getString(v, "src"))
			ref.Title = firstNonEmpty(getString(v, "title"), getString(v, "description"))
		}
		if ref.URL == "" {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func getString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
