package sim

import (
	"errors"
	"fmt"
)

// Sentinel errors for the simulation core. Every failure is fatal for the run;
// callers distinguish categories with errors.Is.
var (
	// ErrMalformedInput covers bad headers, out-of-range node ids, out-of-order
	// edge heads and node-count mismatches between the graph and rat inputs.
	ErrMalformedInput = errors.New("malformed input")

	// ErrAllocation is returned when header sizes cannot be allocated.
	ErrAllocation = errors.New("allocation failure")

	// ErrZoneMismatch is returned when the file zone count is not a multiple of
	// the requested zone count, or a zone id is out of range.
	ErrZoneMismatch = errors.New("zone mismatch")

	// ErrCommunication wraps every failure of a zone exchange call.
	ErrCommunication = errors.New("communication failure")
)

// InputError reports malformed input together with the line that caused it.
// Line is 1-based; 0 means the record carried no line information.
type InputError struct {
	Line int
	Msg  string
}

func (e *InputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Unwrap lets errors.Is(err, ErrMalformedInput) match.
func (e *InputError) Unwrap() error { return ErrMalformedInput }

// inputErrorf builds an *InputError for the given line.
func inputErrorf(line int, format string, args ...any) error {
	return &InputError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
