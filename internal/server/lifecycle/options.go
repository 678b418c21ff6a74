package lifecycle

import (
	"context"
	"log/slog"
	"time"
)

// Option represents a functional option for configuring a Controller.
type Option func(*Controller)

// WithLogHandler sets a custom slog handler for the Controller.
func WithLogHandler(handler slog.Handler) Option {
	return func(c *Controller) {
		if handler != nil {
			c.logger = slog.New(handler).WithGroup("lifecycle.Controller")
		}
	}
}

// WithLogger sets a logger for the Controller.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContext sets a parent context whose cancellation also shuts the server down.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.parentCtx = ctx
		}
	}
}

// WithCloseTimeout bounds the wait for the session to drain after Close.
func WithCloseTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.closeTimeout = d
		}
	}
}
