package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atlanticdynamic/builtinmcp/internal/config"
	"github.com/atlanticdynamic/builtinmcp/internal/server/lifecycle"
	"github.com/atlanticdynamic/builtinmcp/internal/server/transport"
	"github.com/atlanticdynamic/builtinmcp/internal/testutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	var stdout, stderr bytes.Buffer
	code := run(t.Context(), append([]string{"builtinmcp", "--log-level", "error"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "builtinmcp version dev\n", stdout)
}

func TestServeArguments(t *testing.T) {
	t.Run("missing server", func(t *testing.T) {
		code, stdout, stderr := runCLI(t)
		assert.Equal(t, 1, code)
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "Usage:")
		assert.Contains(t, stderr, "websearch, sequential, planner")
		assert.Contains(t, stderr, "server name required")
	})

	t.Run("unknown server", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "nonexistent")
		assert.Equal(t, 1, code)
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "unknown server")
		assert.Contains(t, stderr, "nonexistent")
	})

	t.Run("disabled server", func(t *testing.T) {
		path := writeConfig(t, "cfg.toml", "[servers.planner]\nenabled = false\n")
		code, _, stderr := runCLI(t, "--config", path, "planner")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "disabled")
	})

	t.Run("stdout log output refused", func(t *testing.T) {
		code, _, stderr := runCLI(t, "--log-output", "stdout", "planner")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "failed to set up logging")
	})

	t.Run("missing config file", func(t *testing.T) {
		code, _, stderr := runCLI(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "planner")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "failed to load config")
	})
}

func TestList(t *testing.T) {
	path := writeConfig(t, "cfg.yaml", "servers:\n  sequential:\n    enabled: false\n")
	code, stdout, _ := runCLI(t, "--config", path, "list")
	require.Equal(t, 0, code)

	for _, want := range []string{"websearch", "sequentialthinking", "plan", "ascii_box", "disabled"} {
		assert.Contains(t, stdout, want)
	}
}

func TestStatus(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	path := writeConfig(t, "cfg.toml", "[servers.planner]\nenabled = false\n\n[servers.github]\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	a := newApp(&bytes.Buffer{}, &bytes.Buffer{})
	a.cfg = cfg
	a.handler = slog.DiscardHandler

	assert.Equal(t, map[string]config.Status{
		"websearch":  config.StatusConnected,
		"sequential": config.StatusConnected,
		"planner":    config.StatusDisabled,
		"github":     config.StatusFailed,
	}, a.probeAll(t.Context()))

	code, stdout, _ := runCLI(t, "--config", path, "status")
	require.Equal(t, 0, code)
	for _, want := range []string{"github", "planner", "connected", "disabled", "failed"} {
		assert.Contains(t, stdout, want)
	}
}

func TestServeInMemory(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	st, ct := mcp.NewInMemoryTransports()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.connect = func(srv *mcp.Server, _ string, _ slog.Handler) lifecycle.Connector {
		return transport.NewStream(srv, st)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- a.command().Run(ctx, []string{"builtinmcp", "--log-level", "error", "sequential"})
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name: "sequentialthinking",
		Arguments: map[string]any{
			"thought": "first", "thoughtNumber": 1, "totalThoughts": 2, "nextThoughtNeeded": true,
		},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
	assert.Empty(t, stdout.String())
}

func TestServeHTTP(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	addr := testutil.GetRandomListeningAddr(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var stdout, stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"builtinmcp", "--log-level", "error", "--listen", addr, "planner"}, &stdout, &stderr)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: "http://" + addr + transport.DefaultPath}, nil)
	require.NoError(t, err)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "plan",
		Arguments: map[string]any{"title": "t", "steps": []map[string]any{{"text": "one"}}},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.NoError(t, cs.Close())

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code, stderr.String())
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return")
	}
	assert.Empty(t, stdout.String())
}
