package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/crankplan/internal/metrics"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	start     time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		start:     time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and terminates the line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, "\r"+progressLine(p.collector.Snapshot(time.Since(p.start))))
		case <-p.done:
			return
		}
	}
}

func progressLine(snap metrics.Snapshot) string {
	line := fmt.Sprintf("Samples: %d | Successes: %d | Failures: %d | Rate: %.1f/s",
		snap.Overall.Total, snap.Overall.Successes, snap.Overall.Failures, snap.RequestsPerSec)
	if name, ls, ok := topLabel(snap); ok && snap.Overall.Total > 0 {
		share := (float64(ls.Total) / float64(snap.Overall.Total)) * 100
		line += fmt.Sprintf(" | Top Sampler: %s (%.0f%%, P99 %.1fms)", name, share, ls.P99Ms)
	}
	return line
}

// topLabel picks the busiest label; ties keep first-seen order.
func topLabel(snap metrics.Snapshot) (string, metrics.Summary, bool) {
	var (
		best  string
		top   metrics.Summary
		found bool
	)
	for _, name := range snap.LabelOrder {
		ls := snap.Labels[name]
		if !found || ls.Total > top.Total {
			best, top, found = name, ls, true
		}
	}
	return best, top, found
}
