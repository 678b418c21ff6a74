package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atlanticdynamic/builtinmcp/internal/server/finitestate"
	"github.com/robbyt/go-loglater"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) Connect(ctx context.Context) (Session, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(Session)
	return s, args.Error(1)
}

// fakeSession ends when closed locally or when the test pushes a result on end.
type fakeSession struct {
	closes   atomic.Int32
	closeErr error
	done     chan struct{}
	once     sync.Once
	end      chan error
}

func newFakeSession() *fakeSession {
	return &fakeSession{done: make(chan struct{}), end: make(chan error, 1)}
}

func (s *fakeSession) Wait() error {
	select {
	case <-s.done:
		return nil
	case err := <-s.end:
		return err
	}
}

func (s *fakeSession) Close() error {
	s.closes.Add(1)
	s.once.Do(func() { close(s.done) })
	return s.closeErr
}

type harness struct {
	ctrl    *Controller
	conn    *mockConnector
	session *fakeSession
	logs    *loglater.LogCollector
	runErr  chan error
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		conn:    new(mockConnector),
		session: newFakeSession(),
		logs:    loglater.NewLogCollector(nil),
		runErr:  make(chan error, 1),
	}
	h.conn.On("Connect", mock.Anything).Return(h.session, nil)

	ctrl, err := New("websearch", h.conn, append([]Option{WithLogHandler(h.logs)}, opts...)...)
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func (h *harness) start(t *testing.T, ctx context.Context) {
	t.Helper()
	go func() { h.runErr <- h.ctrl.Run(ctx) }()
	require.Eventually(t, h.ctrl.IsRunning, time.Second, 5*time.Millisecond)
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.runErr:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func (h *harness) logged(msg string) bool {
	for _, r := range h.logs.GetLogs() {
		if r.Message == msg {
			return true
		}
	}
	return false
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New("", new(mockConnector))
	require.ErrorIs(t, err, ErrMissingName)

	_, err = New("planner", nil)
	require.ErrorIs(t, err, ErrMissingConnector)

	c, err := New("planner", new(mockConnector))
	require.NoError(t, err)
	assert.Equal(t, "lifecycle.Controller[planner]", c.String())
	assert.Equal(t, finitestate.StatusCreated, c.GetState())
	assert.False(t, c.IsRunning())
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.start(t, t.Context())
	assert.True(t, h.logged("Server ready"))

	h.ctrl.Stop()
	h.ctrl.Stop()

	require.NoError(t, h.wait(t))
	assert.Equal(t, int32(1), h.session.closes.Load())
	assert.Equal(t, 0, h.ctrl.ExitCode())
	assert.Equal(t, TriggerStop, h.ctrl.Trigger())
	assert.Equal(t, finitestate.StatusClosed, h.ctrl.GetState())
	assert.True(t, h.logged("Shutdown already in progress"))
}

func TestConcurrentTriggersCloseOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx, cancel := context.WithCancel(t.Context())
	h.start(t, ctx)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ctrl.Stop()
		}()
	}
	cancel()
	h.session.end <- nil
	wg.Wait()

	require.NoError(t, h.wait(t))
	assert.Equal(t, int32(1), h.session.closes.Load())
	assert.Equal(t, 0, h.ctrl.ExitCode())
}

func TestShutdownTriggers(t *testing.T) {
	t.Parallel()

	t.Run("peer closed", func(t *testing.T) {
		h := newHarness(t)
		h.start(t, t.Context())

		h.session.end <- nil

		require.NoError(t, h.wait(t))
		assert.Equal(t, TriggerClosed, h.ctrl.Trigger())
		assert.Equal(t, 0, h.ctrl.ExitCode())
		assert.Equal(t, finitestate.StatusClosed, h.ctrl.GetState())
	})

	t.Run("transport error", func(t *testing.T) {
		h := newHarness(t)
		h.start(t, t.Context())

		h.session.end <- errors.New("broken pipe")

		err := h.wait(t)
		require.ErrorIs(t, err, ErrTransport)
		assert.Contains(t, err.Error(), "broken pipe")
		assert.Equal(t, TriggerTransport, h.ctrl.Trigger())
		assert.Equal(t, 1, h.ctrl.ExitCode())
		assert.Equal(t, finitestate.StatusClosed, h.ctrl.GetState())
		assert.True(t, h.logged("Transport failed"))
	})

	t.Run("run context cancelled", func(t *testing.T) {
		h := newHarness(t)
		ctx, cancel := context.WithCancel(t.Context())
		h.start(t, ctx)

		cancel()

		require.NoError(t, h.wait(t))
		assert.Equal(t, TriggerContext, h.ctrl.Trigger())
		assert.Equal(t, int32(1), h.session.closes.Load())
	})

	t.Run("parent context cancelled", func(t *testing.T) {
		parent, cancel := context.WithCancel(t.Context())
		h := newHarness(t, WithContext(parent))
		h.start(t, t.Context())

		cancel()

		require.NoError(t, h.wait(t))
		assert.Equal(t, TriggerContext, h.ctrl.Trigger())
	})

	t.Run("close error is swallowed", func(t *testing.T) {
		h := newHarness(t)
		h.session.closeErr = errors.New("already closed")
		h.start(t, t.Context())

		h.ctrl.Stop()

		require.NoError(t, h.wait(t))
		assert.Equal(t, 0, h.ctrl.ExitCode())
		assert.True(t, h.logged("Failed to close session"))
	})
}

func TestConnectFailure(t *testing.T) {
	t.Parallel()

	conn := new(mockConnector)
	conn.On("Connect", mock.Anything).Return(nil, errors.New("stdin closed"))

	c, err := New("sequential", conn, WithLogHandler(loglater.NewLogCollector(nil)))
	require.NoError(t, err)

	err = c.Run(t.Context())
	require.ErrorIs(t, err, ErrConnect)
	assert.Equal(t, 1, c.ExitCode())
	assert.Equal(t, finitestate.StatusError, c.GetState())
	conn.AssertExpectations(t)
}

func TestStopDuringFailedConnect(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	conn := new(mockConnector)
	conn.On("Connect", mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(nil, errors.New("stdin closed"))

	logs := loglater.NewLogCollector(nil)
	c, err := New("websearch", conn, WithLogHandler(logs))
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(t.Context()) }()

	<-entered
	c.Stop()
	assert.Equal(t, finitestate.StatusShuttingDown, c.GetState())
	close(release)

	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 0, c.ExitCode())
	assert.Equal(t, TriggerStop, c.Trigger())
	assert.Equal(t, finitestate.StatusClosed, c.GetState())
	conn.AssertExpectations(t)
}

func TestStopBeforeRun(t *testing.T) {
	t.Parallel()

	conn := new(mockConnector)
	c, err := New("planner", conn)
	require.NoError(t, err)

	c.Stop()
	require.NoError(t, c.Run(t.Context()))

	assert.Equal(t, finitestate.StatusClosed, c.GetState())
	conn.AssertNotCalled(t, "Connect", mock.Anything)
}

func TestRunTwice(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.start(t, t.Context())

	require.ErrorIs(t, h.ctrl.Run(t.Context()), ErrAlreadyStarted)

	h.ctrl.Stop()
	require.NoError(t, h.wait(t))
}

func TestStateChanReportsLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	states := h.ctrl.GetStateChan(t.Context())
	assert.Equal(t, finitestate.StatusCreated, <-states)

	go func() { h.runErr <- h.ctrl.Run(t.Context()) }()

	var seen []string
	deadline := time.After(2 * time.Second)
	for len(seen) < 4 {
		select {
		case s := <-states:
			seen = append(seen, s)
			if s == finitestate.StatusReady {
				go h.ctrl.Stop()
			}
		case <-deadline:
			t.Fatalf("saw only %v", seen)
		}
	}
	require.NoError(t, h.wait(t))
	assert.Equal(t, []string{
		finitestate.StatusConnecting,
		finitestate.StatusReady,
		finitestate.StatusShuttingDown,
		finitestate.StatusClosed,
	}, seen)
}
