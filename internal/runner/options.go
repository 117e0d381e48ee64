package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Iteration executes one pass of a virtual user over its samplers.
// vu is the zero-based virtual user index and iteration the zero-based
// iteration number of that user.
type Iteration interface {
	Do(ctx context.Context, vu, iteration int) error
}

// IterationFunc adapts a function to the Iteration interface.
type IterationFunc func(ctx context.Context, vu, iteration int) error

func (f IterationFunc) Do(ctx context.Context, vu, iteration int) error {
	return f(ctx, vu, iteration)
}

// Options configure the Runner.
type Options struct {
	Threads    int           // number of virtual users
	Iterations int           // iterations per virtual user (0 means loop until Duration ends)
	RampUp     time.Duration // time over which all virtual users are started
	Duration   time.Duration // overall time limit for starting iterations (0 means no cap)
	Iteration  Iteration     // per-iteration work (required)
	// StopOnError aborts the whole run on the first iteration error.
	StopOnError bool
	// LimiterFactory paces virtual user starts; injectable for tests.
	LimiterFactory func(interval time.Duration) *rate.Limiter
}

func (o *Options) normalize() {
	if o.Threads <= 0 {
		o.Threads = 1
	}
	if o.Iterations < 0 {
		o.Iterations = 0
	}
	if o.RampUp < 0 {
		o.RampUp = 0
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	if o.Iterations == 0 && o.Duration == 0 {
		// An unbounded group would never finish.
		o.Iterations = 1
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(interval time.Duration) *rate.Limiter {
			if interval <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			return rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// startInterval is the gap between two consecutive virtual user starts.
func (o Options) startInterval() time.Duration {
	if o.RampUp <= 0 || o.Threads <= 1 {
		return 0
	}
	return o.RampUp / time.Duration(o.Threads)
}
