package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Sample is a single sampler execution.
type Sample struct {
	Label   string
	Elapsed time.Duration
	// Code is the response code, "200" for HTTP or "OK" for dummy samplers.
	Code    string
	Message string
	Err     error
	// At is the wall-clock start of the sample; zero means "now".
	At time.Time

	// Reporting details used by result files.
	ThreadName   string
	URL          string
	Bytes        int64
	SentBytes    int64
	GroupThreads int
	AllThreads   int
	Latency      time.Duration
}

// Success reports whether the sample passed its status check and assertions.
func (s Sample) Success() bool { return s.Err == nil }

// Collector records per-sample metrics in a thread-safe manner, both overall
// and broken down by sampler label.
type Collector struct {
	mu       sync.Mutex
	overall  *series
	labels   map[string]*series
	order    []string
	failures map[string]int64
	codes    map[string]map[string]int
	timeline map[int64]*bucket
	start    time.Time
	now      func() time.Time
}

type series struct {
	hist      *hdrhistogram.Histogram
	successes int64
	failures  int64
	min       time.Duration
	max       time.Duration
	sum       time.Duration
}

type bucket struct {
	samples int64
	errors  int64
	sum     time.Duration
}

// Summary represents aggregated metrics for one label or for the whole run.
type Summary struct {
	Total     int64         `json:"total"`
	Successes int64         `json:"successes"`
	Failures  int64         `json:"failures"`
	Min       time.Duration `json:"-"`
	Max       time.Duration `json:"-"`
	Mean      time.Duration `json:"-"`
	P50       time.Duration `json:"-"`
	P90       time.Duration `json:"-"`
	P95       time.Duration `json:"-"`
	P99       time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P90Ms  float64 `json:"p90_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Snapshot is an immutable copy of everything the collector has seen.
type Snapshot struct {
	Overall        Summary                   `json:"overall"`
	Labels         map[string]Summary        `json:"labels,omitempty"`
	LabelOrder     []string                  `json:"-"`
	Errors         map[string]int            `json:"errors,omitempty"`
	Codes          map[string]map[string]int `json:"codes,omitempty"`
	Timeline       []DataPoint               `json:"timeline,omitempty"`
	Duration       time.Duration             `json:"-"`
	DurationMs     float64                   `json:"duration_ms"`
	RequestsPerSec float64                   `json:"requests_per_sec"`
}

// DataPoint aggregates the samples started within one second of the run.
type DataPoint struct {
	Second  int64   `json:"second"`
	Samples int64   `json:"samples"`
	Errors  int64   `json:"errors"`
	MeanMs  float64 `json:"mean_ms"`
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock overrides the clock used for the run start and timeline buckets.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		overall:  newSeries(),
		labels:   make(map[string]*series),
		failures: make(map[string]int64),
		codes:    make(map[string]map[string]int),
		timeline: make(map[int64]*bucket),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.start = c.now()
	return c
}

func newSeries() *series {
	// Track latencies from 1µs up to 1h with 3 significant figures.
	return &series{hist: hdrhistogram.New(1, 3_600_000_000, 3)}
}

// Start resets the run start used for throughput and timeline buckets.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = c.now()
	c.mu.Unlock()
}

// Record adds a sample to the overall and per-label series.
func (c *Collector) Record(s Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.Elapsed < 0 {
		s.Elapsed = 0
	}
	c.overall.record(s)
	ls, ok := c.labels[s.Label]
	if !ok {
		ls = newSeries()
		c.labels[s.Label] = ls
		c.order = append(c.order, s.Label)
	}
	ls.record(s)

	if !s.Success() {
		c.failures[ClassifyError(s.Err)]++
		code := s.Code
		if code == "" {
			code = "none"
		}
		byCode, ok := c.codes[s.Label]
		if !ok {
			byCode = make(map[string]int)
			c.codes[s.Label] = byCode
		}
		byCode[code]++
	}

	at := s.At
	if at.IsZero() {
		at = c.now()
	}
	sec := int64(at.Sub(c.start) / time.Second)
	if sec < 0 {
		sec = 0
	}
	b, ok := c.timeline[sec]
	if !ok {
		b = &bucket{}
		c.timeline[sec] = b
	}
	b.samples++
	b.sum += s.Elapsed
	if !s.Success() {
		b.errors++
	}
}

func (s *series) record(sample Sample) {
	us := sample.Elapsed.Microseconds()
	if us < s.hist.LowestTrackableValue() {
		us = s.hist.LowestTrackableValue()
	}
	if us > s.hist.HighestTrackableValue() {
		us = s.hist.HighestTrackableValue()
	}
	_ = s.hist.RecordValue(us)

	total := s.successes + s.failures
	if total == 0 || sample.Elapsed < s.min {
		s.min = sample.Elapsed
	}
	if sample.Elapsed > s.max {
		s.max = sample.Elapsed
	}
	s.sum += sample.Elapsed
	if sample.Success() {
		s.successes++
	} else {
		s.failures++
	}
}

// summary computes the aggregate. Histogram percentiles are bucketed, so they
// are clamped into the exact [min, max] range and forced to be monotone.
func (s *series) summary() Summary {
	total := s.successes + s.failures
	out := Summary{
		Total:     total,
		Successes: s.successes,
		Failures:  s.failures,
		Min:       s.min,
		Max:       s.max,
	}
	if total == 0 {
		return out
	}
	out.Mean = clamp(time.Duration(int64(s.sum)/total), s.min, s.max)

	prev := s.min
	quantile := func(q float64) time.Duration {
		v := time.Duration(s.hist.ValueAtQuantile(q)) * time.Microsecond
		v = clamp(v, prev, s.max)
		prev = v
		return v
	}
	out.P50 = quantile(50)
	out.P90 = quantile(90)
	out.P95 = quantile(95)
	out.P99 = quantile(99)

	out.MinMs = toMillis(out.Min)
	out.MaxMs = toMillis(out.Max)
	out.MeanMs = toMillis(out.Mean)
	out.P50Ms = toMillis(out.P50)
	out.P90Ms = toMillis(out.P90)
	out.P95Ms = toMillis(out.P95)
	out.P99Ms = toMillis(out.P99)
	return out
}

func clamp(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Snapshot computes the current aggregates. A zero elapsed falls back to the
// time since Start.
func (c *Collector) Snapshot(elapsed time.Duration) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elapsed <= 0 {
		elapsed = c.now().Sub(c.start)
	}
	snap := Snapshot{
		Overall:    c.overall.summary(),
		Labels:     make(map[string]Summary, len(c.labels)),
		LabelOrder: append([]string(nil), c.order...),
		Duration:   elapsed,
		DurationMs: toMillis(elapsed),
	}
	for name, ls := range c.labels {
		snap.Labels[name] = ls.summary()
	}
	if elapsed > 0 && snap.Overall.Total > 0 {
		snap.RequestsPerSec = float64(snap.Overall.Total) / elapsed.Seconds()
	}
	if len(c.failures) > 0 {
		snap.Errors = make(map[string]int, len(c.failures))
		for k, v := range c.failures {
			snap.Errors[k] = int(v)
		}
	}
	if len(c.codes) > 0 {
		snap.Codes = make(map[string]map[string]int, len(c.codes))
		for label, byCode := range c.codes {
			cp := make(map[string]int, len(byCode))
			for code, n := range byCode {
				cp[code] = n
			}
			snap.Codes[label] = cp
		}
	}
	snap.Timeline = c.timelineLocked()
	return snap
}

func (c *Collector) timelineLocked() []DataPoint {
	if len(c.timeline) == 0 {
		return nil
	}
	var last int64
	for sec := range c.timeline {
		if sec > last {
			last = sec
		}
	}
	points := make([]DataPoint, 0, last+1)
	for sec := int64(0); sec <= last; sec++ {
		p := DataPoint{Second: sec}
		if b, ok := c.timeline[sec]; ok {
			p.Samples = b.samples
			p.Errors = b.errors
			if b.samples > 0 {
				p.MeanMs = toMillis(b.sum / time.Duration(b.samples))
			}
		}
		points = append(points, p)
	}
	return points
}
