package plan

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// TestPlan is the root of a load test. Its children are thread groups, datasets,
// variables and reporters.
type TestPlan struct{ node }

func (b *Builder) TestPlan(children ...Element) (*TestPlan, error) {
	n, err := b.newNode(KindTestPlan, TestPlanArgs{}, children)
	if err != nil {
		return nil, err
	}
	return &TestPlan{node: n}, nil
}

// Run hands the plan to the delegate and blocks until every thread group has
// finished: setup groups first, then the main groups, then teardown groups.
//
// Children attached to nested elements after their parent was built are
// handed to the delegate first.
//
// When the delegate fails with an *ExecutionError its trace is logged before the error
// is returned unchanged.
func (p *TestPlan) Run(ctx context.Context) (*Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := p.b.logger.With(zap.Stringer("plan", p.id))
	log.Info("test plan started", zap.Int("children", len(p.children)))

	if err := p.resolve(); err != nil {
		return nil, err
	}
	result, err := p.b.delegate.Run(ctx, p.native)
	if err != nil {
		var execErr *ExecutionError
		if errors.As(err, &execErr) {
			log.Error("test plan execution failed",
				zap.Error(execErr.Err),
				zap.String("trace", execErr.StackTrace()),
			)
		}
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("delegate returned no result")
	}

	stats := NewStats(result)
	log.Info("test plan finished",
		zap.Int64("samples", stats.SampleCount()),
		zap.Int64("errors", stats.ErrorCount()),
		zap.Int64("duration_ms", stats.DurationMillis()),
	)
	return stats, nil
}
