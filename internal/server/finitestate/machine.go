// Package finitestate holds the lifecycle state machine of a hosted MCP server.
package finitestate

import (
	"context"
	"log/slog"
	"time"

	"github.com/robbyt/go-fsm"
)

const (
	StatusCreated      = "created"
	StatusConnecting   = "connecting"
	StatusReady        = "ready"
	StatusShuttingDown = "shutting_down"
	StatusClosed       = "closed"
	StatusError        = "error"
)

// LifecycleTransitions is the transition table for a hosted server. Closed and
// error are terminal.
var LifecycleTransitions = map[string][]string{
	StatusCreated:      {StatusConnecting, StatusShuttingDown, StatusError},
	StatusConnecting:   {StatusReady, StatusShuttingDown, StatusError},
	StatusReady:        {StatusShuttingDown},
	StatusShuttingDown: {StatusClosed, StatusError},
	StatusClosed:       {},
	StatusError:        {},
}

// SubscriberOption is a functional option for configuring state channel behavior
type SubscriberOption = fsm.SubscriberOption

// WithSyncTimeout sets a timeout for synchronous broadcast operations
var WithSyncTimeout = fsm.WithSyncTimeout

// Machine is the subset of the state machine the lifecycle controller uses.
type Machine interface {
	// Transition attempts to transition the state machine to the specified state.
	Transition(state string) error

	// TransitionBool attempts to transition the state machine to the specified state.
	TransitionBool(state string) bool

	// TransitionIfCurrentState transitions only when the machine is in currentState.
	TransitionIfCurrentState(currentState, newState string) error

	// SetState sets the state of the state machine to the specified state.
	SetState(state string) error

	// GetState returns the current state of the state machine.
	GetState() string

	// GetStateChan returns a channel that emits the state machine's state whenever it changes.
	// The channel is closed when the provided context is canceled.
	GetStateChan(ctx context.Context) <-chan string

	// GetStateChanWithOptions returns a channel with custom configuration options.
	GetStateChanWithOptions(ctx context.Context, opts ...SubscriberOption) <-chan string
}

// ServerFSM embeds fsm.Machine and overrides GetStateChan for sync broadcast
type ServerFSM struct {
	*fsm.Machine
}

// GetStateChan returns a sync broadcast channel so the final closed state is
// delivered to subscribers during shutdown.
func (m *ServerFSM) GetStateChan(ctx context.Context) <-chan string {
	return m.GetStateChanWithOptions(ctx, WithSyncTimeout(5*time.Second))
}

// IsTerminal reports whether no transition leaves state.
func IsTerminal(state string) bool {
	next, ok := LifecycleTransitions[state]
	return ok && len(next) == 0
}

// New creates a lifecycle machine in the created state.
func New(handler slog.Handler) (Machine, error) {
	machine, err := fsm.New(handler, StatusCreated, LifecycleTransitions)
	if err != nil {
		return nil, err
	}
	return &ServerFSM{Machine: machine}, nil
}
