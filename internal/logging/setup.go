// Package logging builds the process log handler. All log output goes to
// stderr or a file: stdout belongs to the MCP protocol stream.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/atlanticdynamic/builtinmcp/internal/logging/writers"
	"github.com/charmbracelet/log"
)

// Format selects the log encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a configured format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown log format: %q", s)
	}
}

// ValidLevel reports whether the level name is understood.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// SetupHandlerText configures a text slog handler with the provided writer and log level
func SetupHandlerText(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	reportCaller := false
	reportTimestamp := true
	lvl := log.InfoLevel
	switch strings.ToLower(logLevel) {
	case "trace":
		reportCaller = true
		lvl = log.DebugLevel
	case "debug":
		lvl = log.DebugLevel
	case "warn", "warning":
		lvl = log.WarnLevel
	case "error":
		lvl = log.ErrorLevel
	}

	return log.NewWithOptions(writer, log.Options{
		ReportTimestamp: reportTimestamp,
		ReportCaller:    reportCaller,
		Level:           lvl,
		Prefix:          "builtinmcp",
	})
}

// SetupHandlerJSON configures a JSON slog handler with the provided writer and log level
func SetupHandlerJSON(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "trace", "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level:     level,
		AddSource: strings.EqualFold(logLevel, "trace"),
	})
}

// NewHandler returns the handler for the given format.
func NewHandler(format Format, logLevel string, writer io.Writer) slog.Handler {
	if format == FormatJSON {
		return SetupHandlerJSON(logLevel, writer)
	}
	return SetupHandlerText(logLevel, writer)
}

// SetupLogger resolves the output, installs the default logger and returns
// its handler. The returned closer releases a log file, if one was opened.
func SetupLogger(logLevel, format, output string) (slog.Handler, io.Closer, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, nil, err
	}
	if !ValidLevel(logLevel) {
		return nil, nil, fmt.Errorf("unknown log level: %q", logLevel)
	}
	w, err := writers.CreateWriter(output)
	if err != nil {
		return nil, nil, err
	}

	handler := NewHandler(f, logLevel, w)
	slog.SetDefault(slog.New(handler))
	return handler, w, nil
}
