package config

import "errors"

var (
	ErrConfigNotFound       = errors.New("config file does not exist")
	ErrUnsupportedExtension = errors.New("unsupported config file extension")
	ErrParse                = errors.New("failed to parse config")
	ErrInvalidDuration      = errors.New("invalid duration")
	ErrInvalidLogLevel      = errors.New("invalid log level")
	ErrInvalidLogFormat     = errors.New("invalid log format")
	ErrInvalidWebSearch     = errors.New("invalid websearch settings")
	ErrInvalidPermission    = errors.New("invalid permission policy")
	ErrInterpolation        = errors.New("environment interpolation failed")
)
