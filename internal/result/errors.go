package result

import "errors"

// Failure classes for a single tool invocation. None of these are fatal to the
// server process; they are always converted into an IsError result.
var (
	ErrValidation       = errors.New("invalid tool arguments")
	ErrUpstream         = errors.New("upstream request failed")
	ErrTimeout          = errors.New("operation timed out")
	ErrCancelled        = errors.New("operation cancelled by caller")
	ErrPayloadTooLarge  = errors.New("payload exceeds size limit")
	ErrEmptyResult      = errors.New("upstream returned no results")
	ErrNetwork          = errors.New("network failure")
	ErrInvalidPayload   = errors.New("invalid upstream payload")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInternal         = errors.New("internal tool error")
)

// Class is a short, stable label for a failure, used in diagnostics and metrics.
type Class string

const (
	ClassNone             Class = ""
	ClassValidation       Class = "validation"
	ClassUpstream         Class = "upstream"
	ClassTimeout          Class = "timeout"
	ClassCancelled        Class = "cancelled"
	ClassPayloadTooLarge  Class = "payload_too_large"
	ClassEmptyResult      Class = "empty_result"
	ClassNetwork          Class = "network"
	ClassInvalidPayload   Class = "invalid_payload"
	ClassPermissionDenied Class = "permission_denied"
	ClassInternal         Class = "internal"
)

// Classify maps an error onto its failure class. Unrecognised errors are internal.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrCancelled):
		return ClassCancelled
	case errors.Is(err, ErrTimeout):
		return ClassTimeout
	case errors.Is(err, ErrPayloadTooLarge):
		return ClassPayloadTooLarge
	case errors.Is(err, ErrEmptyResult):
		return ClassEmptyResult
	case errors.Is(err, ErrInvalidPayload):
		return ClassInvalidPayload
	case errors.Is(err, ErrNetwork):
		return ClassNetwork
	case errors.Is(err, ErrUpstream):
		return ClassUpstream
	case errors.Is(err, ErrPermissionDenied):
		return ClassPermissionDenied
	default:
		return ClassInternal
	}
}

// String returns the class label.
func (c Class) String() string {
	return string(c)
}

// Title returns a human readable prefix for diagnostic text.
func (c Class) Title() string {
	switch c {
	case ClassValidation:
		return "Validation error"
	case ClassUpstream:
		return "Upstream error"
	case ClassTimeout:
		return "Timeout"
	case ClassCancelled:
		return "Cancelled"
	case ClassPayloadTooLarge:
		return "Payload too large"
	case ClassEmptyResult:
		return "No results"
	case ClassNetwork:
		return "Network error"
	case ClassInvalidPayload:
		return "Invalid payload"
	case ClassPermissionDenied:
		return "Permission denied"
	case ClassNone:
		return "OK"
	default:
		return "Internal error"
	}
}
