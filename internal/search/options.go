package search

import (
	"log/slog"
	"maps"
	"net/http"
)

type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.HTTP = hc
		}
	}
}

// WithAPIKeyHeader sets the header that carries the API key.
func WithAPIKeyHeader(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.APIKeyHeader = name
		}
	}
}

// WithHeaders adds static headers to search requests.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.Headers = maps.Clone(headers)
	}
}

// WithLogHandler sets a custom log handler for the Client.
func WithLogHandler(handler slog.Handler) Option {
	return func(c *Client) {
		c.logger = slog.New(handler).WithGroup("search.Client")
	}
}
