package metrics

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
)

// Reasoned is implemented by sample failures that carry their own
// human-friendly category, such as assertion or status failures.
type Reasoned interface {
	Reason() string
}

// ClassifyError returns a human-friendly failure category for the error
// breakdown of a report.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	var r Reasoned
	if errors.As(err, &r) {
		if reason := strings.TrimSpace(r.Reason()); reason != "" {
			return reason
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Context deadline exceeded"
	case errors.Is(err, context.Canceled):
		return "Context canceled"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Request timeout"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "Request URL error"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "Connection error"
	}
	return "Other error"
}
