// Package runner drives the virtual users of a single thread group.
//
// A thread group has a number of threads (virtual users), an optional ramp-up
// period over which they are started, and either an iteration count or a
// duration:
//
//	r := runner.New(runner.Options{
//		Threads:   10,
//		RampUp:    5 * time.Second,
//		Duration:  time.Minute,
//		Iteration: runner.IterationFunc(func(ctx context.Context, vu, i int) error {
//			return nil
//		}),
//	})
//	res := r.Run(ctx)
//
// Virtual user starts are paced by a golang.org/x/time/rate limiter with one
// token every RampUp/Threads, so the last user starts close to the end of the
// ramp-up period.
//
// When Duration elapses no new iteration starts; iterations already running are
// allowed to finish. Cancelling the context passed to Run aborts everything.
package runner
