package toolset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/atlanticdynamic/builtinmcp/internal/result"
	"github.com/atlanticdynamic/builtinmcp/internal/testutil"
	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Message string `json:"message"`
	Repeat  int    `json:"repeat"`
}

func echoDefinition(calls *atomic.Int32) Definition {
	return Definition{
		Name:        "echo",
		Description: "Echoes a message",
		Capability:  "echo",
		Input: Schema{Fields: []Field{
			{Name: "message", Type: FieldString, Required: true, MinLength: Count(1)},
			{Name: "repeat", Type: FieldInteger, Min: Bound(1), Max: Bound(3), Default: 1},
		}},
		Handler: Bind(func(_ context.Context, _ *Invocation, in echoArgs) (*result.Result, error) {
			calls.Add(1)
			out := ""
			for range in.Repeat {
				out += in.Message
			}
			return result.Success(out, map[string]any{"repeat": in.Repeat}, nil), nil
		}),
	}
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []Observation
}

func (o *recordingObserver) ObserveInvoke(_ context.Context, obs Observation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, obs)
}

func (o *recordingObserver) last() Observation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.obs[len(o.obs)-1]
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry("")
	require.ErrorIs(t, err, ErrMissingServerName)

	r, err := NewRegistry("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", r.Name())
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Closed())
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicates", func(t *testing.T) {
		var calls atomic.Int32
		r, err := NewRegistry("demo")
		require.NoError(t, err)

		require.NoError(t, r.Register(echoDefinition(&calls)))
		err = r.Register(echoDefinition(&calls))
		require.ErrorIs(t, err, ErrDuplicateTool)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("rejects incomplete definitions", func(t *testing.T) {
		r, err := NewRegistry("demo")
		require.NoError(t, err)

		require.ErrorIs(t, r.Register(Definition{}), ErrMissingToolName)
		require.ErrorIs(t, r.Register(Definition{Name: "x"}), ErrMissingHandler)
	})

	t.Run("rejects invalid schema", func(t *testing.T) {
		r, err := NewRegistry("demo")
		require.NoError(t, err)

		err = r.Register(Definition{
			Name:    "bad",
			Input:   Schema{Fields: []Field{{Name: "n", Type: FieldBoolean, Enum: []string{"x"}}}},
			Handler: func(context.Context, *Invocation, json.RawMessage) (*result.Result, error) { return nil, nil },
		})
		require.ErrorIs(t, err, ErrInvalidSchema)
		require.ErrorIs(t, err, ErrEnumOnNonString)
	})

	t.Run("closed after compile", func(t *testing.T) {
		var calls atomic.Int32
		r, err := NewRegistry("demo")
		require.NoError(t, err)

		_, err = r.Compile(&mcp.Implementation{Name: "demo", Version: "test"}, nil)
		require.NoError(t, err)
		assert.True(t, r.Closed())
		require.ErrorIs(t, r.Register(echoDefinition(&calls)), ErrRegistryClosed)
	})

	t.Run("closed wins over incomplete definitions", func(t *testing.T) {
		r, err := NewRegistry("demo")
		require.NoError(t, err)
		_, err = r.Compile(&mcp.Implementation{Name: "demo", Version: "test"}, nil)
		require.NoError(t, err)

		for name, def := range map[string]Definition{
			"no name":    {},
			"no handler": {Name: "late"},
		} {
			t.Run(name, func(t *testing.T) {
				err := r.Register(def)
				require.ErrorIs(t, err, ErrRegistryClosed)
				assert.NotErrorIs(t, err, ErrMissingToolName)
				assert.NotErrorIs(t, err, ErrMissingHandler)
			})
		}
		assert.Equal(t, 0, r.Len())
	})

	t.Run("register all joins errors", func(t *testing.T) {
		var calls atomic.Int32
		r, err := NewRegistry("demo")
		require.NoError(t, err)

		err = r.RegisterAll(echoDefinition(&calls), echoDefinition(&calls), Definition{})
		require.ErrorIs(t, err, ErrDuplicateTool)
		require.ErrorIs(t, err, ErrMissingToolName)
		assert.Equal(t, 1, r.Len())
	})
}

func TestRegistryCall(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("applies defaults", func(t *testing.T) {
		var calls atomic.Int32
		r, err := NewRegistry("demo")
		require.NoError(t, err)
		require.NoError(t, r.Register(echoDefinition(&calls)))

		res, err := r.Call(ctx, "echo", map[string]any{"message": "hi"}, nil)
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, "hi", textOf(t, res))
		assert.Equal(t, map[string]any{"repeat": 1}, res.StructuredContent)
	})

	t.Run("validation failure never reaches handler", func(t *testing.T) {
		var calls atomic.Int32
		r, err := NewRegistry("demo")
		require.NoError(t, err)
		require.NoError(t, r.Register(echoDefinition(&calls)))

		for name, args := range map[string]any{
			"missing required": map[string]any{},
			"out of range":     map[string]any{"message": "hi", "repeat": 9},
			"wrong type":       map[string]any{"message": 12},
			"not an object":    []string{"hi"},
		} {
			res, err := r.Call(ctx, "echo", args, nil)
			require.NoError(t, err, name)
			assert.True(t, res.IsError, name)
			assert.Contains(t, textOf(t, res), "Validation error", name)
			assert.Nil(t, res.StructuredContent, name)
		}
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("handler error becomes error result", func(t *testing.T) {
		obs := &recordingObserver{}
		r, err := NewRegistry("demo", WithObserver(obs))
		require.NoError(t, err)
		require.NoError(t, r.Register(Definition{
			Name: "fails",
			Handler: func(context.Context, *Invocation, json.RawMessage) (*result.Result, error) {
				return nil, fmt.Errorf("%w: status 502", result.ErrUpstream)
			},
		}))

		res, err := r.Call(ctx, "fails", nil, nil)
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Equal(t, "Upstream error: upstream request failed: status 502", textOf(t, res))
		assert.Equal(t, result.ClassUpstream, obs.last().Class)
		assert.False(t, obs.last().Success())
	})

	t.Run("panic becomes internal error", func(t *testing.T) {
		buf := &testutil.LogBuffer{}
		r, err := NewRegistry("demo", WithLogHandler(log.New(buf)))
		require.NoError(t, err)
		require.NoError(t, r.Register(Definition{
			Name: "boom",
			Handler: func(context.Context, *Invocation, json.RawMessage) (*result.Result, error) {
				panic("kaboom")
			},
		}))

		res, err := r.Call(ctx, "boom", nil, nil)
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "Internal error")
		assert.Contains(t, textOf(t, res), "kaboom")
		assert.Len(t, buf.Matching("Tool handler panicked"), 1)
	})

	t.Run("nil result becomes internal error", func(t *testing.T) {
		r, err := NewRegistry("demo")
		require.NoError(t, err)
		require.NoError(t, r.Register(Definition{
			Name: "empty",
			Handler: func(context.Context, *Invocation, json.RawMessage) (*result.Result, error) {
				return nil, nil
			},
		}))

		res, err := r.Call(ctx, "empty", nil, nil)
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("unknown tool", func(t *testing.T) {
		r, err := NewRegistry("demo")
		require.NoError(t, err)
		_, err = r.Call(ctx, "nope", nil, nil)
		require.ErrorIs(t, err, ErrToolNotFound)
	})

	t.Run("gate denies before handler", func(t *testing.T) {
		var calls atomic.Int32
		gate := &PolicyGate{Policies: map[string]Policy{"echo": PolicyDeny}}
		r, err := NewRegistry("demo", WithGate(gate))
		require.NoError(t, err)
		require.NoError(t, r.Register(echoDefinition(&calls)))

		res, err := r.Call(ctx, "echo", map[string]any{"message": "hi"}, nil)
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "Permission denied")
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("gate ask honours meta approval", func(t *testing.T) {
		var calls atomic.Int32
		gate := &PolicyGate{Policies: map[string]Policy{"echo": PolicyAsk}}
		r, err := NewRegistry("demo", WithGate(gate))
		require.NoError(t, err)
		require.NoError(t, r.Register(echoDefinition(&calls)))

		res, err := r.Call(ctx, "echo", map[string]any{"message": "hi"}, map[string]any{MetaPermission: "granted"})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("invocation carries meta identifiers", func(t *testing.T) {
		var seen *Invocation
		r, err := NewRegistry("demo")
		require.NoError(t, err)
		require.NoError(t, r.Register(Definition{
			Name: "ids",
			Handler: func(_ context.Context, inv *Invocation, _ json.RawMessage) (*result.Result, error) {
				seen = inv
				return result.Success("", nil, []result.Attachment{inv.Attachment("image/png", []byte{1})}), nil
			},
		}))

		res, err := r.Call(ctx, "ids", nil, map[string]any{MetaSessionID: "ses_1", MetaMessageID: "msg_1"})
		require.NoError(t, err)
		require.NotNil(t, seen)
		assert.Equal(t, "ses_1", seen.SessionID)
		assert.Equal(t, "msg_1", seen.MessageID)
		assert.Contains(t, seen.CallID, "call_")

		parts, ok := res.Meta[result.MetaAttachments].([]map[string]any)
		require.True(t, ok)
		require.Len(t, parts, 1)
		assert.Equal(t, "ses_1", parts[0]["sessionID"])
		assert.Equal(t, "msg_1", parts[0]["messageID"])
	})

	t.Run("handler sees cancelled context", func(t *testing.T) {
		r, err := NewRegistry("demo")
		require.NoError(t, err)
		require.NoError(t, r.Register(Definition{
			Name: "wait",
			Handler: func(ctx context.Context, _ *Invocation, _ json.RawMessage) (*result.Result, error) {
				<-ctx.Done()
				return nil, fmt.Errorf("%w: %w", result.ErrCancelled, ctx.Err())
			},
		}))

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		res, err := r.Call(cctx, "wait", nil, nil)
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "Cancelled")
	})
}

func TestRegistryCompileServesTools(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	var calls atomic.Int32
	r, err := NewRegistry("demo")
	require.NoError(t, err)
	require.NoError(t, r.Register(echoDefinition(&calls)))

	server, err := r.Compile(&mcp.Implementation{Name: "demo", Version: "test"}, nil)
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, ss.Close()) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() {
		if err := cs.Close(); err != nil && !errors.Is(err, context.Canceled) {
			t.Logf("client close: %v", err)
		}
	}()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, "echo", tools.Tools[0].Name)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "echo",
		Arguments: map[string]any{"message": "ab", "repeat": 2},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "abab", textOf(t, res))

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "echo",
		Arguments: map[string]any{"repeat": 2},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, int32(1), calls.Load())
}
