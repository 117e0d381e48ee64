package engine

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/torosent/crankplan/pkg/plan"
)

// StatusError marks an HTTP sample whose response code is 400 or above.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string { return "unexpected response status " + e.Status }

// Reason groups status failures in reports.
func (e *StatusError) Reason() string { return "HTTP " + strconv.Itoa(e.Code) }

// AssertionError marks a sample whose body lacks substrings a response
// assertion requires.
type AssertionError struct {
	Missing []string
}

func (e *AssertionError) Error() string {
	quoted := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		quoted[i] = strconv.Quote(s)
	}
	return "response does not contain " + strings.Join(quoted, ", ")
}

func (e *AssertionError) Reason() string { return "Assertion failure" }

// checkAssertions returns an *AssertionError listing every required substring
// missing from body, or nil.
func checkAssertions(body []byte, assertions [][]string) *AssertionError {
	var missing []string
	text := string(body)
	for _, substrings := range assertions {
		for _, s := range substrings {
			if !strings.Contains(text, s) {
				missing = append(missing, s)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &AssertionError{Missing: missing}
}

// panicValue is a recovered panic carrying the stack of the goroutine that
// raised it.
type panicValue struct {
	value any
	stack []string
}

func (p *panicValue) Error() string { return fmt.Sprintf("panic: %v", p.value) }

func panicError(v any) error {
	return &panicValue{value: v, stack: stackLines(debug.Stack())}
}

func stackLines(stack []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(stack), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// executionError wraps err for the caller of Run. The trace is the panic
// stack when there is one, otherwise the chain of wrapped error messages.
func executionError(err error) error {
	if err == nil {
		return nil
	}
	var existing *plan.ExecutionError
	if errors.As(err, &existing) {
		return existing
	}
	var pv *panicValue
	if errors.As(err, &pv) {
		return &plan.ExecutionError{Err: err, Trace: pv.stack}
	}

	var trace []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		trace = append(trace, e.Error())
	}
	return &plan.ExecutionError{Err: err, Trace: trace}
}
