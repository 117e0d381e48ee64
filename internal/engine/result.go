package engine

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/crankplan/internal/metrics"
	"github.com/torosent/crankplan/pkg/plan"
)

// Result is the immutable outcome of one run.
type Result struct {
	id       ulid.ULID
	started  time.Time
	snapshot metrics.Snapshot
}

var _ plan.Result = (*Result)(nil)

func newResult(id ulid.ULID, started time.Time, snap metrics.Snapshot) *Result {
	return &Result{id: id, started: started, snapshot: snap}
}

// ID identifies the run in logs and reports.
func (r *Result) ID() ulid.ULID { return r.id }

// Started is the wall-clock start of the run.
func (r *Result) Started() time.Time { return r.started }

// Snapshot returns the full metrics snapshot, including the error breakdown
// and the timeline.
func (r *Result) Snapshot() metrics.Snapshot { return r.snapshot }

func (r *Result) Overall() plan.SampleTimes { return sampleTimes(r.snapshot.Overall) }

func (r *Result) Label(name string) (plan.SampleTimes, bool) {
	s, ok := r.snapshot.Labels[name]
	if !ok {
		return plan.SampleTimes{}, false
	}
	return sampleTimes(s), true
}

func (r *Result) Labels() []string { return slices.Clone(r.snapshot.LabelOrder) }

func (r *Result) Duration() time.Duration { return r.snapshot.Duration }

func sampleTimes(s metrics.Summary) plan.SampleTimes {
	return plan.SampleTimes{
		Count:  s.Total,
		Errors: s.Failures,
		Mean:   s.Mean,
		Min:    s.Min,
		Median: s.P50,
		P90:    s.P90,
		P95:    s.P95,
		P99:    s.P99,
		Max:    s.Max,
	}
}
