package plan

import "time"

// Stats is a read-only view over a Result. Every accessor is a pure projection of
// the underlying snapshot, so repeated reads return identical values.
type Stats struct {
	result Result
}

// NewStats wraps r.
func NewStats(r Result) *Stats { return &Stats{result: r} }

// Result returns the wrapped handle.
func (s *Stats) Result() Result { return s.result }

func (s *Stats) overall() LabelStats { return LabelStats{times: s.result.Overall()} }

func (s *Stats) MeanMillis() int64   { return s.overall().MeanMillis() }
func (s *Stats) MinMillis() int64    { return s.overall().MinMillis() }
func (s *Stats) MedianMillis() int64 { return s.overall().MedianMillis() }
func (s *Stats) P90Millis() int64    { return s.overall().P90Millis() }
func (s *Stats) P95Millis() int64    { return s.overall().P95Millis() }
func (s *Stats) P99Millis() int64    { return s.overall().P99Millis() }
func (s *Stats) MaxMillis() int64    { return s.overall().MaxMillis() }
func (s *Stats) SampleCount() int64  { return s.overall().SampleCount() }
func (s *Stats) ErrorCount() int64   { return s.overall().ErrorCount() }

// DurationMillis is the wall-clock length of the whole run.
func (s *Stats) DurationMillis() int64 { return millis(s.result.Duration()) }

// Labels lists the sampler names seen during the run.
func (s *Stats) Labels() []string { return s.result.Labels() }

// Label returns the statistics of the samples named name.
func (s *Stats) Label(name string) (LabelStats, bool) {
	t, ok := s.result.Label(name)
	if !ok {
		return LabelStats{}, false
	}
	return LabelStats{times: t}, true
}

// LabelStats exposes the same fields as Stats for a subset of samples.
type LabelStats struct {
	times SampleTimes
}

func (l LabelStats) MeanMillis() int64   { return millis(l.times.Mean) }
func (l LabelStats) MinMillis() int64    { return millis(l.times.Min) }
func (l LabelStats) MedianMillis() int64 { return millis(l.times.Median) }
func (l LabelStats) P90Millis() int64    { return millis(l.times.P90) }
func (l LabelStats) P95Millis() int64    { return millis(l.times.P95) }
func (l LabelStats) P99Millis() int64    { return millis(l.times.P99) }
func (l LabelStats) MaxMillis() int64    { return millis(l.times.Max) }
func (l LabelStats) SampleCount() int64  { return l.times.Count }
func (l LabelStats) ErrorCount() int64   { return l.times.Errors }

// millis truncates toward zero, which keeps the ordering of its inputs.
func millis(d time.Duration) int64 { return d.Milliseconds() }
