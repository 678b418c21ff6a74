package toolset

import "errors"

// Registration errors. These are programming errors and surface at startup.
var (
	ErrDuplicateTool     = errors.New("duplicate tool name")
	ErrMissingToolName   = errors.New("tool name is required")
	ErrMissingHandler    = errors.New("tool handler is required")
	ErrInvalidSchema     = errors.New("invalid tool schema")
	ErrRegistryClosed    = errors.New("tool registry is closed")
	ErrToolNotFound      = errors.New("tool not found")
	ErrMissingServerName = errors.New("server name is required")
)

// Schema construction errors.
var (
	ErrMissingFieldName   = errors.New("field name is required")
	ErrDuplicateField     = errors.New("duplicate field name")
	ErrUnknownFieldType   = errors.New("unknown field type")
	ErrEnumOnNonString    = errors.New("enum is only supported on string fields")
	ErrNestedFieldsNeeded = errors.New("object list field requires nested fields")
)
