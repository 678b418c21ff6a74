package orchestrator

import (
	"fmt"
	"io"

	"github.com/atlanticdynamic/builtinmcp/internal/result"
)

// ReadLimited reads r fully unless it holds more than limit bytes, in which
// case it stops reading and returns result.ErrPayloadTooLarge. A non-positive
// limit disables the check.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", result.ErrNetwork, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", result.ErrPayloadTooLarge, limit)
	}
	return data, nil
}

// CheckDeclaredSize rejects a payload whose declared length already exceeds
// limit. Unknown (negative) lengths pass and are checked while reading.
func CheckDeclaredSize(declared, limit int64) error {
	if limit > 0 && declared > limit {
		return fmt.Errorf("%w: declared %d bytes, limit %d", result.ErrPayloadTooLarge, declared, limit)
	}
	return nil
}
