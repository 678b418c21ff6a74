package lifecycle

import "errors"

var (
	ErrMissingName      = errors.New("server name is required")
	ErrMissingConnector = errors.New("connector is required")
	ErrConnect          = errors.New("failed to connect transport")
	ErrTransport        = errors.New("transport failed")
	ErrAlreadyStarted   = errors.New("controller already started")
)
