package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Result captures execution summary.
type Result struct {
	Started    int64 // virtual users started
	Iterations int64 // iterations completed
	Errors     int64 // iterations that returned an error
	Duration   time.Duration
	// Err is the first iteration error when StopOnError aborted the run.
	Err error
}

// Runner starts virtual users, paced over the ramp-up period, and drives each
// through its iterations.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Run blocks until every virtual user finished. Once Duration has elapsed no
// new iterations start, while iterations in flight run to completion unless
// ctx itself is cancelled.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var started, iterations, errs int64

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// window only gates new work; iterations keep the parent ctx.
	window := ctx
	if r.opt.Duration > 0 {
		deadlineCtx, deadlineCancel := context.WithTimeout(ctx, r.opt.Duration)
		window = deadlineCtx
		defer deadlineCancel()
	}

	var (
		firstErr error
		errOnce  sync.Once
	)
	fail := func(err error) {
		atomic.AddInt64(&errs, 1)
		if r.opt.StopOnError {
			errOnce.Do(func() {
				firstErr = err
				cancel()
			})
		}
	}

	limiter := r.opt.LimiterFactory(r.opt.startInterval())

	var wg sync.WaitGroup
	for vu := 0; vu < r.opt.Threads; vu++ {
		if err := limiter.Wait(window); err != nil {
			break
		}
		atomic.AddInt64(&started, 1)
		wg.Add(1)
		go func(vu int) {
			defer wg.Done()
			if r.opt.Iteration == nil && r.opt.Iterations == 0 {
				// Nothing to run; just hold the user for the window.
				<-window.Done()
				return
			}
			for i := 0; r.opt.Iterations == 0 || i < r.opt.Iterations; i++ {
				if window.Err() != nil {
					return
				}
				if r.opt.Iteration != nil {
					if err := r.opt.Iteration.Do(ctx, vu, i); err != nil {
						fail(err)
					}
				}
				atomic.AddInt64(&iterations, 1)
			}
		}(vu)
	}
	wg.Wait()

	return Result{
		Started:    atomic.LoadInt64(&started),
		Iterations: atomic.LoadInt64(&iterations),
		Errors:     atomic.LoadInt64(&errs),
		Duration:   time.Since(start),
		Err:        firstErr,
	}
}
