package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/torosent/crankplan/internal/metrics"
	"github.com/torosent/crankplan/internal/threshold"
)

// Report is everything the summary writers render for one run.
type Report struct {
	RunID       string                `json:"run_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Snapshot    metrics.Snapshot      `json:"stats"`
	Thresholds  []threshold.Result    `json:"-"`
	Checks      []ThresholdResultJSON `json:"thresholds,omitempty"`
}

// ThresholdResultJSON is the serialized form of a threshold outcome.
type ThresholdResultJSON struct {
	Threshold string  `json:"threshold"`
	Metric    string  `json:"metric"`
	Label     string  `json:"label,omitempty"`
	Operator  string  `json:"operator"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

// ThresholdSummary counts passing and failing thresholds.
type ThresholdSummary struct {
	Total   int
	Passed  int
	Failed  int
	Results []ThresholdResultJSON
}

func summarizeThresholds(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	sum := &ThresholdSummary{Total: len(results), Results: make([]ThresholdResultJSON, len(results))}
	for i, tr := range results {
		sum.Results[i] = ThresholdResultJSON{
			Threshold: tr.Threshold.Raw,
			Metric:    tr.Threshold.Metric,
			Label:     tr.Threshold.Label,
			Operator:  tr.Threshold.Operator,
			Expected:  tr.Threshold.Value,
			Actual:    tr.Actual,
			Pass:      tr.Pass,
		}
		if tr.Pass {
			sum.Passed++
		} else {
			sum.Failed++
		}
	}
	return sum
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, rep Report) {
	stats := rep.Snapshot.Overall
	fmt.Fprintln(w, "\n--- Test Plan Results ---")
	if rep.RunID != "" {
		fmt.Fprintf(w, "Run:               %s\n", rep.RunID)
	}
	fmt.Fprintf(w, "Samples:           %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", rep.Snapshot.Duration)
	fmt.Fprintf(w, "Samples/sec:       %.2f\n", rep.Snapshot.RequestsPerSec)
	fmt.Fprintln(w, "\nResponse Times:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.Min)
	fmt.Fprintf(w, "  Max:             %s\n", stats.Max)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.Mean)
	fmt.Fprintf(w, "  Median:          %s\n", stats.P50)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90)
	fmt.Fprintf(w, "  P95:             %s\n", stats.P95)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99)

	if len(rep.Snapshot.LabelOrder) > 0 {
		fmt.Fprintln(w, "\nSampler Breakdown:")
		for _, name := range rep.Snapshot.LabelOrder {
			label := rep.Snapshot.Labels[name]
			share := 0.0
			if stats.Total > 0 {
				share = (float64(label.Total) / float64(stats.Total)) * 100
			}
			fmt.Fprintf(
				w,
				"  - %s: total=%d (%.1f%%), failures=%d, mean=%s, p95=%s, max=%s\n",
				name,
				label.Total,
				share,
				label.Failures,
				label.Mean,
				label.P95,
				label.Max,
			)
		}
	}

	if len(rep.Snapshot.Codes) > 0 {
		fmt.Fprintln(w, "\nFailing Response Codes:")
		for _, row := range metrics.FlattenCodes(rep.Snapshot.Codes) {
			fmt.Fprintf(w, "  %s %s: %d\n", row.Label, row.Code, row.Count)
		}
	}

	if len(rep.Snapshot.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, row := range sortedCounts(rep.Snapshot.Errors) {
			fmt.Fprintf(w, "  %s: %d\n", row.Name, row.Count)
		}
	}

	if sum := summarizeThresholds(rep.Thresholds); sum != nil {
		fmt.Fprintf(w, "\nThresholds (%d/%d passed):\n", sum.Passed, sum.Total)
		for _, tr := range rep.Thresholds {
			fmt.Fprintf(w, "  %s\n", tr.Message)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, rep Report) error {
	if sum := summarizeThresholds(rep.Thresholds); sum != nil {
		rep.Checks = sum.Results
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
