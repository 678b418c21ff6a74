package lifecycle

import (
	"context"

	"github.com/atlanticdynamic/builtinmcp/internal/server/finitestate"
)

// IsRunning returns true while the server is ready to serve calls.
func (c *Controller) IsRunning() bool {
	return c.fsm.GetState() == finitestate.StatusReady
}

// GetState returns the current lifecycle state.
func (c *Controller) GetState() string {
	return c.fsm.GetState()
}

// GetStateChan returns a channel that emits the lifecycle state whenever it changes.
func (c *Controller) GetStateChan(ctx context.Context) <-chan string {
	return c.fsm.GetStateChan(ctx)
}
