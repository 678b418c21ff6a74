package servers

import "errors"

var (
	ErrUnknownServer  = errors.New("unknown server")
	ErrServerDisabled = errors.New("server is disabled by configuration")
	ErrBuildFailed    = errors.New("failed to build server")
)
