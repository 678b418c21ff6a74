package toolset

import "log/slog"

type Option func(*Registry)

// WithLogger sets a custom logger for the Registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithLogHandler sets a custom log handler for the Registry.
func WithLogHandler(handler slog.Handler) Option {
	return func(r *Registry) {
		r.logger = slog.New(handler)
	}
}

// WithGate installs an access gate consulted before every handler.
func WithGate(gate Gate) Option {
	return func(r *Registry) {
		r.gate = gate
	}
}

// WithObserver installs an observer notified after every call.
func WithObserver(observer Observer) Option {
	return func(r *Registry) {
		r.observer = observer
	}
}
