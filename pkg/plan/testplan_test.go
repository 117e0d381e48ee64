package plan_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/torosent/crankplan/pkg/plan"
)

func sampleResult() *fakeResult {
	return &fakeResult{
		overall: plan.SampleTimes{
			Count:  10,
			Errors: 2,
			Min:    1500 * time.Microsecond,
			Mean:   20*time.Millisecond + 700*time.Microsecond,
			Median: 18 * time.Millisecond,
			P90:    40 * time.Millisecond,
			P95:    45 * time.Millisecond,
			P99:    49 * time.Millisecond,
			Max:    49*time.Millisecond + 900*time.Microsecond,
		},
		labels: map[string]plan.SampleTimes{
			"a": {Count: 4, Min: 2 * time.Millisecond, Max: 3 * time.Millisecond},
		},
		order:    []string{"a", "b"},
		duration: 2*time.Second + 5*time.Millisecond,
	}
}

func TestStatsProjection(t *testing.T) {
	res := sampleResult()
	stats := plan.NewStats(res)

	assert.EqualValues(t, 1, stats.MinMillis())
	assert.EqualValues(t, 20, stats.MeanMillis())
	assert.EqualValues(t, 18, stats.MedianMillis())
	assert.EqualValues(t, 40, stats.P90Millis())
	assert.EqualValues(t, 45, stats.P95Millis())
	assert.EqualValues(t, 49, stats.P99Millis())
	assert.EqualValues(t, 49, stats.MaxMillis())
	assert.EqualValues(t, 2005, stats.DurationMillis())
	assert.EqualValues(t, 2, stats.ErrorCount())
	assert.EqualValues(t, 10, stats.SampleCount())
	assert.Equal(t, []string{"a", "b"}, stats.Labels())

	a, ok := stats.Label("a")
	require.True(t, ok)
	assert.EqualValues(t, 4, a.SampleCount())
	assert.EqualValues(t, 2, a.MinMillis())
	_, ok = stats.Label("missing")
	assert.False(t, ok)
}

func TestStatsReadsAreIdempotent(t *testing.T) {
	res := sampleResult()
	stats := plan.NewStats(res)
	before := res.overall

	for i := 0; i < 3; i++ {
		assert.EqualValues(t, 40, stats.P90Millis())
		assert.EqualValues(t, 20, stats.MeanMillis())
	}
	assert.Equal(t, before, res.overall)
	assert.Equal(t, 6, res.reads)
}

func TestRunWrapsResult(t *testing.T) {
	d := &fakeDelegate{result: sampleResult()}
	b, err := plan.NewBuilder(d)
	require.NoError(t, err)
	group, err := b.ThreadGroupSimple(1, 1)
	require.NoError(t, err)
	tp, err := b.TestPlan(group)
	require.NoError(t, err)

	stats, err := tp.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 49, stats.P99Millis())
	assert.Equal(t, 1, d.runs)
}

func TestRunLogsTraceAndReturnsSameError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	runErr := &plan.ExecutionError{
		Err:   errors.New("worker panicked"),
		Trace: []string{"engine.(*Engine).Run", "engine.runGroup", "engine.sample"},
	}
	d := &fakeDelegate{runErr: runErr}
	b, err := plan.NewBuilder(d, plan.WithLogger(zap.New(core)))
	require.NoError(t, err)
	tp, err := b.TestPlan()
	require.NoError(t, err)

	stats, err := tp.Run(context.Background())
	assert.Nil(t, stats)
	require.Error(t, err)
	assert.True(t, err == error(runErr), "error must be returned unchanged")
	assert.ErrorIs(t, err, plan.ErrExecution)

	entries := logs.FilterMessage("test plan execution failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "engine.(*Engine).Run\n\t at engine.runGroup\n\t at engine.sample", entries[0].ContextMap()["trace"])
}

func TestExecutionErrorFormatsTrace(t *testing.T) {
	err := &plan.ExecutionError{
		Err:   errors.New("worker panicked"),
		Trace: []string{"engine.runGroup", "engine.sample"},
	}
	assert.Equal(t, "test plan execution failed: worker panicked", fmt.Sprintf("%v", err))
	assert.Equal(t, "test plan execution failed: worker panicked\n\t at engine.runGroup\n\t at engine.sample", fmt.Sprintf("%+v", err))

	wrapped := fmt.Errorf("run: %w", err)
	assert.Equal(t, "run: test plan execution failed: worker panicked", wrapped.Error())
}

func TestRunPassesThroughOtherErrors(t *testing.T) {
	plain := errors.New("boom")
	d := &fakeDelegate{runErr: plain}
	b, err := plan.NewBuilder(d)
	require.NoError(t, err)
	tp, err := b.TestPlan()
	require.NoError(t, err)

	_, err = tp.Run(context.Background())
	assert.Same(t, plain, err)
}

func TestRunResolvesLateChildren(t *testing.T) {
	d := &fakeDelegate{result: sampleResult()}
	b, err := plan.NewBuilder(d)
	require.NoError(t, err)

	sampler, err := b.DummySampler("s", "ok")
	require.NoError(t, err)
	group, err := b.ThreadGroupSimple(1, 1, sampler)
	require.NoError(t, err)
	tp, err := b.TestPlan(group)
	require.NoError(t, err)

	late, err := b.DummySampler("late", "")
	require.NoError(t, err)
	require.NoError(t, group.Children(late))
	timer, err := b.ConstantTimer(time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, sampler.Children(timer))

	_, err = tp.Run(context.Background())
	require.NoError(t, err)

	root := d.root.(*fakeNative)
	require.Len(t, root.children, 1)
	g := root.children[0].(*fakeNative)
	require.Len(t, g.children, 2)
	assert.Equal(t, plan.KindDummySampler, g.children[1].(*fakeNative).kind)
	s := g.children[0].(*fakeNative)
	require.Len(t, s.children, 1)
	assert.Equal(t, plan.KindConstantTimer, s.children[0].(*fakeNative).kind)
	assert.Same(t, root, tp.Native())
}

func TestRunWithoutLateChildrenMakesNoExtraCalls(t *testing.T) {
	d := &fakeDelegate{result: sampleResult()}
	b, err := plan.NewBuilder(d)
	require.NoError(t, err)

	sampler, err := b.DummySampler("s", "ok")
	require.NoError(t, err)
	group, err := b.ThreadGroupSimple(1, 1, sampler)
	require.NoError(t, err)
	tp, err := b.TestPlan(group)
	require.NoError(t, err)
	before := d.setChildren

	_, err = tp.Run(context.Background())
	require.NoError(t, err)
	_, err = tp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, d.setChildren)
	assert.Same(t, tp.Native(), d.root)
}
