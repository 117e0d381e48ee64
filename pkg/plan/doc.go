// Package plan builds load-test plans as a validated tree of elements and exposes the
// statistics of a finished run.
//
// # Building a plan
//
// Elements are created through a [Builder], which binds them to a [Delegate]:
//
//	b, _ := plan.NewBuilder(engine.New())
//	timer, _ := b.ConstantTimer(100 * time.Millisecond)
//	sampler, _ := b.HTTPSampler("echo", "https://postman-echo.com/get?var=1", timer)
//	group, _ := b.ThreadGroupSimple(10, 5, sampler)
//	tp, _ := b.TestPlan(group)
//	stats, err := tp.Run(ctx)
//
// # Composition rules
//
// Every [Kind] carries two independent properties: the capability tags that say where
// it may appear ([TestPlanChild], [ThreadGroupChild]) and the tag its own children
// must hold. Samplers are both: they live under thread groups and accept timers,
// assertions, extractors and datasets. Timers, assertions, extractors, datasets,
// variables and reporters are terminal.
//
// Children attaches atomically. A candidate without the required tag fails the whole
// call with a [*CompositionError] and leaves the container untouched.
//
// # Fluent mutators
//
// Methods such as [HTTPSampler.Header] return a new value that shares the node ID of
// the receiver and wraps a refreshed delegate handle; the receiver is not modified.
//
// # Errors
//
// All failures are typed and match a sentinel with errors.Is:
//   - [ErrComposition]: illegal tree shape
//   - [ErrType]: wrong runtime type for a body, header or variable key
//   - [ErrNotFound]: missing CSV or multipart file
//   - [ErrExecution]: the delegate failed while running
package plan
