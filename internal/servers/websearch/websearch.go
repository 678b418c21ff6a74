// Package websearch is the builtin web search server: one primary search
// raced against a timeout, then an optional all-settled image fan-out.
package websearch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atlanticdynamic/builtinmcp/internal/config"
	"github.com/atlanticdynamic/builtinmcp/internal/orchestrator"
	"github.com/atlanticdynamic/builtinmcp/internal/result"
	"github.com/atlanticdynamic/builtinmcp/internal/search"
	"github.com/atlanticdynamic/builtinmcp/internal/toolset"
)

const (
	ToolName   = "websearch"
	Capability = "websearch"

	Instructions = "Use websearch for current information from the web. " +
		"Restrict sources with includeDomains or excludeDomains and request up to 5 images with imageCount."

	maxDomains = 10
)

// Searcher is the upstream the tool calls. *search.Client implements it.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Response, error)
	Download(ctx context.Context, ref search.ImageRef, limit int64) (*search.Image, error)
}

// Args is the validated tool input.
type Args struct {
	Query          string   `json:"query"`
	IncludeDomains []string `json:"includeDomains"`
	ExcludeDomains []string `json:"excludeDomains"`
	MaxResults     int      `json:"maxResults"`
	ImageCount     int      `json:"imageCount"`
}

// Output is the structured tool result.
type Output struct {
	Query   string       `json:"query"`
	Results []search.Hit `json:"results"`
	Images  []ImageMeta  `json:"images"`
}

// ImageMeta describes one attached image.
type ImageMeta struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	MIME  string `json:"mime"`
	Bytes int    `json:"bytes"`
}

// Server holds the upstream and the per-call limits.
type Server struct {
	searcher Searcher
	settings config.WebSearch
	logger   *slog.Logger
}

// New creates the websearch server.
func New(searcher Searcher, settings config.WebSearch, handler slog.Handler) *Server {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &Server{
		searcher: searcher,
		settings: settings,
		logger:   slog.New(handler).WithGroup("websearch.Server"),
	}
}

// NewClient builds the upstream search client from settings.
func NewClient(settings config.WebSearch, handler slog.Handler) *search.Client {
	opts := []search.Option{
		search.WithAPIKeyHeader(settings.APIKeyHeader),
		search.WithHeaders(settings.Headers),
	}
	if handler != nil {
		opts = append(opts, search.WithLogHandler(handler))
	}
	return search.New(settings.BaseURL, settings.APIKey, opts...)
}

// Definitions returns the tools this server registers.
func (s *Server) Definitions() []toolset.Definition {
	return []toolset.Definition{{
		Name:        ToolName,
		Title:       "Web search",
		Description: "Search the web. Returns ranked text results and, when imageCount is set, up to that many images as attachments.",
		Capability:  Capability,
		Input: toolset.Schema{Fields: []toolset.Field{
			{
				Name: "query", Type: toolset.FieldString, Required: true,
				Description: "Search query",
				MinLength:   toolset.Count(1),
			},
			{
				Name: "includeDomains", Type: toolset.FieldStringList,
				Description: "Only return results from these domains",
				MaxItems:    toolset.Count(maxDomains),
			},
			{
				Name: "excludeDomains", Type: toolset.FieldStringList,
				Description: "Never return results from these domains",
				MaxItems:    toolset.Count(maxDomains),
			},
			{
				Name: "maxResults", Type: toolset.FieldInteger,
				Description: "Maximum number of text results",
				Min:         toolset.Bound(1),
				Max:         toolset.Bound(config.MaxResultsLimit),
				Default:     s.settings.MaxResults,
			},
			{
				Name: "imageCount", Type: toolset.FieldInteger,
				Description: "Number of images to download and attach",
				Min:         toolset.Bound(0),
				Max:         toolset.Bound(config.MaxImagesLimit),
				Default:     0,
			},
		}},
		Output: &toolset.Schema{Fields: []toolset.Field{
			{Name: "query", Type: toolset.FieldString, Required: true},
			{Name: "results", Type: toolset.FieldObjectList, Required: true, Fields: []toolset.Field{
				{Name: "title", Type: toolset.FieldString},
				{Name: "url", Type: toolset.FieldString, Required: true},
				{Name: "snippet", Type: toolset.FieldString},
			}},
			{Name: "images", Type: toolset.FieldObjectList, Required: true, Fields: []toolset.Field{
				{Name: "id", Type: toolset.FieldString, Required: true},
				{Name: "url", Type: toolset.FieldString, Required: true},
				{Name: "title", Type: toolset.FieldString},
				{Name: "mime", Type: toolset.FieldString, Required: true},
				{Name: "bytes", Type: toolset.FieldInteger, Required: true},
			}},
		}},
		Handler: toolset.Bind(s.handle),
	}}
}

func (s *Server) handle(ctx context.Context, inv *toolset.Invocation, args Args) (*result.Result, error) {
	query := orchestrator.BuildQuery(args.Query, args.IncludeDomains, args.ExcludeDomains)
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is blank", result.ErrValidation)
	}

	imageCount := min(args.ImageCount, s.settings.MaxImages)
	plan := orchestrator.Plan[*search.Response, search.ImageRef, *search.Image]{
		Spec: orchestrator.Spec{
			Query:           query,
			Timeout:         s.settings.Timeout.AsDuration(),
			ItemTimeout:     s.settings.ImageTimeout.AsDuration(),
			MaxSubCalls:     imageCount,
			MaxPayloadBytes: s.settings.MaxImageBytes,
		},
		Primary: func(ctx context.Context, spec orchestrator.Spec) (*search.Response, error) {
			return s.searcher.Search(ctx, search.Query{
				Text:       spec.Query,
				MaxResults: args.MaxResults,
				ImageCount: spec.MaxSubCalls,
			})
		},
		Empty: func(r *search.Response) bool {
			return r == nil || len(r.Hits) == 0
		},
		Derive: func(r *search.Response) []search.ImageRef {
			return r.Images
		},
		Fetch: func(ctx context.Context, spec orchestrator.Spec, ref search.ImageRef) (*search.Image, error) {
			return s.searcher.Download(ctx, ref, spec.MaxPayloadBytes)
		},
	}

	start := time.Now()
	report, err := orchestrator.Execute(ctx, plan)
	if err != nil {
		if src := orchestrator.AbortSource(err); src != "" {
			inv.Logger.Info("Search aborted", "source", src, "elapsed", time.Since(start))
		}
		return nil, err
	}

	return s.assemble(inv, query, report), nil
}

func (s *Server) assemble(
	inv *toolset.Invocation,
	query string,
	report *orchestrator.Report[*search.Response, *search.Image],
) *result.Result {
	out := Output{
		Query:   query,
		Results: report.Primary.Hits,
		Images:  []ImageMeta{},
	}

	var attachments []result.Attachment
	for _, o := range report.Secondary {
		if !o.OK() {
			inv.Logger.Debug("Image dropped", "index", o.Index, "error", o.Err)
			continue
		}
		att := inv.Attachment(o.Value.MIME, o.Value.Data)
		attachments = append(attachments, att)
		out.Images = append(out.Images, ImageMeta{
			ID:    att.ID,
			URL:   o.Value.Ref.URL,
			Title: o.Value.Ref.Title,
			MIME:  o.Value.MIME,
			Bytes: len(o.Value.Data),
		})
	}
	if short := report.Shortfall(); short > 0 {
		inv.Logger.Info("Image fan-out degraded", "requested", report.Requested, "missing", short)
	}

	return result.Success(summarize(out), out, attachments)
}

// summarize renders the results as a numbered plain text list.
func summarize(out Output) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search results for %q:\n", out.Query)
	for i, h := range out.Results {
		title := h.Title
		if title == "" {
			title = h.URL
		}
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n", i+1, title, h.URL)
		if h.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", h.Snippet)
		}
	}
	if n := len(out.Images); n > 0 {
		fmt.Fprintf(&b, "\n%d image(s) attached.\n", n)
	}
	return strings.TrimRight(b.String(), "\n")
}
