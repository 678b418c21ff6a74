package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/atlanticdynamic/builtinmcp/internal/result"
	"github.com/atlanticdynamic/builtinmcp/internal/search"
)

// Searcher is an in-memory search upstream. Images are keyed by URL; an unknown
// URL fails the download as an upstream 404 would.
type Searcher struct {
	Response *search.Response
	Err      error
	Images   map[string]*search.Image

	mu        sync.Mutex
	queries   []search.Query
	downloads []string
}

// Search records the query and returns the canned response.
func (s *Searcher) Search(ctx context.Context, q search.Query) (*search.Response, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, context.Cause(ctx)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Response, nil
}

// Download records the URL and returns the matching image.
func (s *Searcher) Download(ctx context.Context, ref search.ImageRef, limit int64) (*search.Image, error) {
	s.mu.Lock()
	s.downloads = append(s.downloads, ref.URL)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, context.Cause(ctx)
	}
	img, ok := s.Images[ref.URL]
	if !ok {
		return nil, fmt.Errorf("%w: image status 404", result.ErrUpstream)
	}
	if int64(len(img.Data)) > limit {
		return nil, fmt.Errorf("%w: %d bytes", result.ErrPayloadTooLarge, len(img.Data))
	}
	return img, nil
}

// Queries returns the queries seen so far.
func (s *Searcher) Queries() []search.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]search.Query(nil), s.queries...)
}

// Downloads returns the image URLs requested so far.
func (s *Searcher) Downloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.downloads...)
}
