package broadcast

import (
	"errors"
	"fmt"
)

// ErrEncoderNotFound means no ffmpeg binary could be located.
var ErrEncoderNotFound = errors.New("encoder binary not found")

// ErrStartThrottled is returned when a start is attempted sooner than the
// minimum restart interval allows.
var ErrStartThrottled = errors.New("encoder start throttled")

// ExitError describes an encoder process that exited.
type ExitError struct {
	Code   int
	Stderr string // most recent stderr lines
	Err    error
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("encoder exited with code %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("encoder exited with code %d: %v\n%s", e.Code, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ConnectionError means the ingest endpoint did not accept a connection.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ingest %s unreachable: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
