package plan

import (
	"fmt"
	"time"
)

const (
	defaultThreadGroupName   = "Thread Group"
	defaultSetupGroupName    = "setUp Thread Group"
	defaultTeardownGroupName = "tearDown Thread Group"
)

// ThreadGroup is a scoped set of virtual users. All four thread group kinds share this
// type and differ only in Kind and schedule.
type ThreadGroup struct{ node }

// SetupThreadGroup runs its children once, on a single thread, before any other group.
func (b *Builder) SetupThreadGroup(children ...Element) (*ThreadGroup, error) {
	args := ThreadGroupArgs{Name: defaultSetupGroupName, Threads: 1, Iterations: 1}
	return b.threadGroup(KindSetupThreadGroup, args, children)
}

// TeardownThreadGroup runs its children once, on a single thread, after every other
// group finished.
func (b *Builder) TeardownThreadGroup(children ...Element) (*ThreadGroup, error) {
	args := ThreadGroupArgs{Name: defaultTeardownGroupName, Threads: 1, Iterations: 1}
	return b.threadGroup(KindTeardownThreadGroup, args, children)
}

// ThreadGroupSimple starts threads virtual users at once, each running iterations
// loops over the children.
func (b *Builder) ThreadGroupSimple(threads, iterations int, children ...Element) (*ThreadGroup, error) {
	if threads <= 0 {
		return nil, fmt.Errorf("thread group: threads must be positive, got %d: %w", threads, ErrInvalidArgument)
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("thread group: iterations must be positive, got %d: %w", iterations, ErrInvalidArgument)
	}
	args := ThreadGroupArgs{Name: defaultThreadGroupName, Threads: threads, Iterations: iterations}
	return b.threadGroup(KindThreadGroupSimple, args, children)
}

// ThreadGroupWithRampUpAndHold starts threads virtual users evenly over rampUp and
// keeps every one of them looping until rampUp+hold has elapsed.
func (b *Builder) ThreadGroupWithRampUpAndHold(threads int, rampUp, hold time.Duration, children ...Element) (*ThreadGroup, error) {
	if threads <= 0 {
		return nil, fmt.Errorf("thread group: threads must be positive, got %d: %w", threads, ErrInvalidArgument)
	}
	if rampUp < 0 || hold < 0 {
		return nil, fmt.Errorf("thread group: negative ramp-up %s or hold %s: %w", rampUp, hold, ErrInvalidArgument)
	}
	args := ThreadGroupArgs{Name: defaultThreadGroupName, Threads: threads, RampUp: rampUp, Hold: hold}
	return b.threadGroup(KindThreadGroupWithRampUpAndHold, args, children)
}

func (b *Builder) threadGroup(kind Kind, args ThreadGroupArgs, children []Element) (*ThreadGroup, error) {
	n, err := b.newNode(kind, args, children)
	if err != nil {
		return nil, err
	}
	return &ThreadGroup{node: n}, nil
}

// Named returns a group reported under name.
func (g *ThreadGroup) Named(name string) (*ThreadGroup, error) {
	n, err := g.mutate(Rename{Name: name})
	if err != nil {
		return nil, err
	}
	return &ThreadGroup{node: n}, nil
}
