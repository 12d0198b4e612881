package recovery

import (
	"fmt"
)

// ValidationError reports a date bound that cannot be sent as-is.
type ValidationError struct {
	// Field is "start" or "end".
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s bound: %s", e.Field, e.Message)
}

// ProjectionError reports a page or record that does not match the
// recovery collection shape.
type ProjectionError struct {
	// Record is the zero-based position of the offending record in arrival
	// order, or -1 when the whole page was malformed.
	Record int
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ProjectionError) Error() string {
	msg := "projection error"
	if e.Record >= 0 {
		msg = fmt.Sprintf("projection error at record %d", e.Record)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", msg, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", msg, e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ProjectionError) Unwrap() error {
	return e.Err
}

const msgTimezoneRequired = "timezone information required"
