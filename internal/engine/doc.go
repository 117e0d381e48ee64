// Package engine is the default execution delegate for package plan.
//
// The engine keeps an immutable element tree as its native handle. On Run it
// compiles the tree into thread groups and sampler steps, then drives each
// group's virtual users with package runner:
//
//	eng := engine.New(engine.WithLogger(logger))
//	b, _ := plan.NewBuilder(eng, plan.WithLogger(logger))
//
// # Scheduling
//
// Setup groups run first, then the regular groups, then teardown groups. The
// groups of one phase run concurrently. A thread group with ramp-up and hold
// starts its users evenly over the ramp-up period and keeps them iterating
// until ramp-up plus hold has elapsed.
//
// # Scope
//
// Timers, JSON extractors and response assertions apply to every sampler at
// their level and below. For each sample the engine sleeps for the sum of the
// timers in scope, sends the request, runs extractors, then assertions.
//
// CSV data sets are shared by every thread of their scope and hand out rows
// round-robin, wrapping after the last row. A plan level data set advances once
// per thread iteration in any group, a group level one once per iteration of
// that group, and a sampler level one before each execution of the sampler.
//
// # Results
//
// Every sample is recorded into a metrics.Collector, written to any JTL
// writers and to report.jtl of each HTML reporter directory, and reported to
// registered listeners. HTML dashboards are written once the run finished.
package engine
