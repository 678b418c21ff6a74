// Package writers resolves a --log-output value into a writer. Standard output
// carries the MCP protocol stream, so it is never a valid log destination.
package writers

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrStdoutReserved is returned when a log destination would share the
// protocol stream.
var ErrStdoutReserved = errors.New("stdout is reserved for the protocol stream")

// WriterType represents the type of writer to create
type WriterType string

const (
	WriterTypeStderr WriterType = "stderr"
	WriterTypeFile   WriterType = "file"
	WriterTypeStdout WriterType = "stdout"
)

// CreateWriter creates an io.Writer based on the output specification
// Supported formats:
//   - "stderr" or "" - writes to os.Stderr
//   - "file:///path/to/file" - appends to file (creates directories if needed)
//   - "/path/to/file" - appends to file (creates directories if needed)
//
// The returned closer is a no-op for stderr.
func CreateWriter(output string) (io.WriteCloser, error) {
	output = strings.TrimSpace(output)
	switch ParseWriterType(output) {
	case WriterTypeStderr:
		return nopCloser{os.Stderr}, nil
	case WriterTypeStdout:
		return nil, ErrStdoutReserved
	}

	switch {
	case strings.HasPrefix(output, "file://"):
		return createFileWriter(strings.TrimPrefix(output, "file://"))
	case isFilePath(output):
		return createFileWriter(output)
	default:
		return nil, fmt.Errorf("unsupported log output: %s", output)
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// isFilePath determines if the string represents a local file path
func isFilePath(path string) bool {
	if strings.Contains(path, "://") {
		return false
	}
	return strings.ContainsAny(path, `/\`) || strings.HasSuffix(path, ".log")
}

func createFileWriter(filePath string) (io.WriteCloser, error) {
	if filePath == "" {
		return nil, errors.New("empty log file path")
	}
	dir := filepath.Dir(filePath)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	return file, nil
}

// ParseWriterType determines the writer type from an output string
func ParseWriterType(output string) WriterType {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stderr":
		return WriterTypeStderr
	case "stdout", "-":
		return WriterTypeStdout
	default:
		return WriterTypeFile
	}
}
