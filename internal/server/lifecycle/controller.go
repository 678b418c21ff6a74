// Package lifecycle owns the run loop of one hosted MCP server: connect a
// transport, serve until something asks it to stop, and close exactly once.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atlanticdynamic/builtinmcp/internal/server/finitestate"
	"github.com/robbyt/go-supervisor/supervisor"
)

var (
	_ supervisor.Runnable  = (*Controller)(nil)
	_ supervisor.Stateable = (*Controller)(nil)
)

// DefaultCloseTimeout bounds how long Run waits for the session to drain after
// Close.
const DefaultCloseTimeout = 5 * time.Second

// Shutdown triggers, as they appear in logs.
const (
	TriggerStop      = "stop"
	TriggerContext   = "context"
	TriggerClosed    = "transport closed"
	TriggerTransport = "transport error"
)

// Session is a connected transport serving the MCP server.
type Session interface {
	// Wait blocks until the session ends. A nil error means the peer closed it.
	Wait() error
	Close() error
}

// Connector establishes a Session.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// Controller drives one server through created, connecting, ready,
// shutting_down and closed.
type Controller struct {
	name      string
	connector Connector
	logger    *slog.Logger
	fsm       finitestate.Machine

	parentCtx    context.Context
	closeTimeout time.Duration

	mu      sync.Mutex
	session Session
	cancel  context.CancelFunc

	started      atomic.Bool
	shuttingDown atomic.Bool
	exitCode     atomic.Int32
	trigger      atomic.Value

	// stopped is closed when the shutdown routine has finished closing.
	stopped chan struct{}
}

// New creates a controller for the named server.
func New(name string, connector Connector, opts ...Option) (*Controller, error) {
	if name == "" {
		return nil, ErrMissingName
	}
	if connector == nil {
		return nil, ErrMissingConnector
	}

	c := &Controller{
		name:         name,
		connector:    connector,
		logger:       slog.Default().WithGroup("lifecycle.Controller"),
		parentCtx:    context.Background(),
		closeTimeout: DefaultCloseTimeout,
		stopped:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("server", name)

	fsm, err := finitestate.New(c.logger.WithGroup("fsm").Handler())
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}
	c.fsm = fsm
	return c, nil
}

func (c *Controller) String() string {
	return fmt.Sprintf("lifecycle.Controller[%s]", c.name)
}

// Run connects the transport and blocks until the server has shut down. It
// returns an error only when connecting fails or the transport fails.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if c.shuttingDown.Load() {
		c.logger.Debug("Stopped before start")
		c.finish()
		return nil
	}

	if err := c.fsm.Transition(finitestate.StatusConnecting); err != nil {
		if c.shuttingDown.Load() {
			<-c.stopped
			c.finish()
			return nil
		}
		return fmt.Errorf("failed to transition to connecting state: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	session, err := c.connector.Connect(runCtx)
	if err != nil {
		if c.shuttingDown.Load() {
			// Stop arrived while connecting; the failure is a consequence of it.
			c.logger.Debug("Connect aborted by shutdown", "error", err)
			<-c.stopped
			c.finish()
			return nil
		}
		c.exitCode.Store(1)
		if stateErr := c.fsm.Transition(finitestate.StatusError); stateErr != nil {
			c.logger.Error("Failed to transition to error state", "error", stateErr)
		}
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	if !c.attach(session, cancel) {
		// Stop won the race with Connect; nobody else will close this session.
		c.closeSession(session)
		c.finish()
		return nil
	}

	if err := c.fsm.Transition(finitestate.StatusReady); err != nil {
		c.logger.Debug("Not entering ready state", "state", c.fsm.GetState(), "error", err)
	} else {
		c.logger.Info("Server ready")
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- session.Wait() }()

	var waitErr error
	waited := false
	select {
	case <-c.stopped:
	case <-ctx.Done():
		c.shutdown(TriggerContext, nil)
	case <-c.parentCtx.Done():
		c.shutdown(TriggerContext, nil)
	case waitErr = <-waitCh:
		waited = true
		if waitErr != nil {
			c.shutdown(TriggerTransport, waitErr)
		} else {
			c.shutdown(TriggerClosed, nil)
		}
	}

	// A losing trigger returns immediately, so wait for the winner to finish.
	<-c.stopped

	if !waited {
		select {
		case <-waitCh:
		case <-time.After(c.closeTimeout):
			c.logger.Warn("Session did not finish after close", "timeout", c.closeTimeout)
		}
	}

	c.finish()

	if c.ExitCode() != 0 && waitErr != nil {
		return fmt.Errorf("%w: %w", ErrTransport, waitErr)
	}
	return nil
}

// Stop begins shutdown. It is safe to call any number of times from any
// goroutine; only the first call closes the session.
func (c *Controller) Stop() {
	c.shutdown(TriggerStop, nil)
}

// ExitCode is 0 after a stop, context or peer-close shutdown and 1 after a
// transport or connect failure.
func (c *Controller) ExitCode() int {
	return int(c.exitCode.Load())
}

// Trigger returns what started the shutdown, or "" while still serving.
func (c *Controller) Trigger() string {
	v, _ := c.trigger.Load().(string)
	return v
}

// attach records the connected session unless shutdown already began.
func (c *Controller) attach(session Session, cancel context.CancelFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shuttingDown.Load() {
		return false
	}
	c.session = session
	c.cancel = cancel
	return true
}

// shutdown is the single convergence point for every stop route.
func (c *Controller) shutdown(trigger string, cause error) {
	if !c.shuttingDown.CompareAndSwap(false, true) {
		c.logger.Debug("Shutdown already in progress", "trigger", trigger)
		return
	}
	c.trigger.Store(trigger)
	if cause != nil {
		c.exitCode.Store(1)
		c.logger.Error("Transport failed", "error", cause)
	} else {
		c.logger.Info("Shutting down", "trigger", trigger)
	}

	if !c.fsm.TransitionBool(finitestate.StatusShuttingDown) {
		c.logger.Debug("Shutdown from unexpected state", "state", c.fsm.GetState())
	}

	c.mu.Lock()
	session, cancel := c.session, c.cancel
	c.mu.Unlock()

	if session != nil {
		c.closeSession(session)
	}
	if cancel != nil {
		cancel()
	}
	close(c.stopped)
}

// closeSession logs and swallows close errors.
func (c *Controller) closeSession(session Session) {
	if err := session.Close(); err != nil {
		c.logger.Warn("Failed to close session", "error", err)
	}
}

func (c *Controller) finish() {
	if err := c.fsm.TransitionIfCurrentState(finitestate.StatusShuttingDown, finitestate.StatusClosed); err != nil {
		c.logger.Debug("Not entering closed state", "state", c.fsm.GetState(), "error", err)
		return
	}
	c.logger.Debug("Server closed")
}
