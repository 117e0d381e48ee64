package plan

import (
	"fmt"
	"time"
)

// Timer pauses a thread before every sampler in its scope. Timers are terminal.
type Timer struct{ node }

// ConstantTimer waits d before each sampler in scope.
func (b *Builder) ConstantTimer(d time.Duration) (*Timer, error) {
	if d < 0 {
		return nil, fmt.Errorf("constant timer %s: %w", d, ErrInvalidArgument)
	}
	return b.timer(KindConstantTimer, TimerArgs{Min: d, Max: d})
}

// UniformRandomTimer waits a uniformly distributed time in [min, max] before each
// sampler in scope.
func (b *Builder) UniformRandomTimer(min, max time.Duration) (*Timer, error) {
	if min < 0 || max < min {
		return nil, fmt.Errorf("uniform random timer [%s, %s]: %w", min, max, ErrInvalidArgument)
	}
	return b.timer(KindUniformRandomTimer, TimerArgs{Min: min, Max: max})
}

func (b *Builder) timer(kind Kind, args TimerArgs) (*Timer, error) {
	n, err := b.newNode(kind, args, nil)
	if err != nil {
		return nil, err
	}
	return &Timer{node: n}, nil
}
