package plan

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrComposition matches every *CompositionError.
	ErrComposition = errors.New("composition violation")
	// ErrType matches every *TypeError.
	ErrType = errors.New("type violation")
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("resource not found")
	// ErrExecution matches every *ExecutionError.
	ErrExecution = errors.New("execution failed")
	// ErrInvalidArgument is returned for out-of-range constructor arguments.
	ErrInvalidArgument = errors.New("invalid argument")
)

// CompositionError reports an illegal tree shape: either a child lacking the
// container's required capability or any attempt to attach children to a terminal kind.
type CompositionError struct {
	Container Kind
	Required  Capability
	Child     Kind
	// Index of the offending candidate in the Children call, -1 for terminal kinds.
	Index int
	// Cycle is set when the candidate already contains the container.
	Cycle bool
}

func (e *CompositionError) Error() string {
	if e.Container.Terminal() {
		return fmt.Sprintf("cannot append children to %s", e.Container.Noun())
	}
	if e.Cycle {
		return fmt.Sprintf("%s at position %d already contains this %s", e.Child, e.Index, e.Container)
	}
	child := "nil"
	if e.Child.valid() {
		child = e.Child.String()
	}
	return fmt.Sprintf("%s only takes children of type %s, got %s at position %d",
		e.Container, e.Required, child, e.Index)
}

func (e *CompositionError) Is(target error) bool { return target == ErrComposition }

// TypeError reports a value of the wrong runtime type handed to a mutator.
type TypeError struct {
	Param string
	Got   string
	Msg   string
}

func (e *TypeError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: unexpected type %s", e.Param, e.Got)
}

func (e *TypeError) Is(target error) bool { return target == ErrType }

func typeErrorf(param string, value any, format string, args ...any) *TypeError {
	return &TypeError{Param: param, Got: typeName(value), Msg: fmt.Sprintf(format, args...)}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

// NotFoundError reports a referenced file that does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("couldn't find file %s", e.Path) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Unwrap() error { return e.Err }

// ExecutionError is returned by a Delegate whose run failed internally. Trace holds the
// delegate's diagnostic frames, outermost first.
type ExecutionError struct {
	Err   error
	Trace []string
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return "test plan execution failed"
	}
	return "test plan execution failed: " + e.Err.Error()
}

func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }

func (e *ExecutionError) Unwrap() error { return e.Err }

// Format prints the trace after the message for %+v, so callers that never
// configured a logger can still surface it.
func (e *ExecutionError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') && len(e.Trace) > 0 {
			fmt.Fprintf(s, "%s\n\t at %s", e.Error(), e.StackTrace())
			return
		}
		_, _ = io.WriteString(s, e.Error())
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// StackTrace renders Trace the way it is logged.
func (e *ExecutionError) StackTrace() string {
	return strings.Join(e.Trace, "\n\t at ")
}
