package testutil

import (
	"bytes"
	"strings"
	"sync"
)

// LogBuffer collects log output written from several goroutines, such as a
// charmbracelet/log handler shared by concurrent tool calls.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the non-empty lines written so far.
func (b *LogBuffer) Lines() []string {
	var out []string
	for line := range strings.SplitSeq(b.String(), "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// Matching returns the lines that contain substr.
func (b *LogBuffer) Matching(substr string) []string {
	var out []string
	for _, line := range b.Lines() {
		if strings.Contains(line, substr) {
			out = append(out, line)
		}
	}
	return out
}
