package errors

import "github.com/pkg/errors"

// StackTracer is satisfied by errors carrying a pkg/errors stack trace.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorTracer pairs an error with a stack trace so the logger can emit
// the trace alongside the structured fields.
type ErrorTracer struct {
	Message string
	Err     error
}

// TracerFromError wraps err into an ErrorTracer, capturing a stack
// trace here unless err already carries one.
func TracerFromError(err error) *ErrorTracer {
	return &ErrorTracer{
		Message: err.Error(),
		Err:     ensureStack(err),
	}
}

func (e *ErrorTracer) Error() string {
	return e.Message
}

func (e *ErrorTracer) Unwrap() error {
	return e.Err
}

// StackTrace returns the underlying error's stack trace, or nil when it
// has none.
func (e *ErrorTracer) StackTrace() errors.StackTrace {
	if withStack, ok := e.Err.(StackTracer); ok {
		return withStack.StackTrace()
	}
	return nil
}

func ensureStack(err error) error {
	if _, ok := err.(StackTracer); ok {
		return err
	}
	return errors.WithStack(err)
}
