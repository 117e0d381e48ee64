package threshold

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/torosent/crankplan/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "sample_duration", "sample_failed"
	Label     string  // sampler label, empty for the whole run
	Aggregate string  // e.g., "p95", "p99", "avg", "max", "rate"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against collected metrics.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided snapshot.
func (e *Evaluator) Evaluate(snap metrics.Snapshot) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, e.evaluateOne(t, snap))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return true
		}
	}
	return false
}

func (e *Evaluator) evaluateOne(t Threshold, snap metrics.Snapshot) Result {
	actual, err := extractMetricValue(t, snap)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("✗ %s: error: %v", t.Raw, err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

// Pattern: metric[{label=name}]:aggregate operator value
var thresholdPattern = regexp.MustCompile(`^([a-z_]+)(?:\{label=("[^"]*"|[^}]*)\})?:([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "sample_duration:p95 < 500"              (elapsed percentile in ms)
//   - "sample_duration{label=Home}:avg < 200"  (single sampler label)
//   - "sample_duration:max < 1000"             (max elapsed in ms)
//   - "sample_failed:rate < 0.01"              (failure rate as decimal)
//   - "sample_failed:count < 10"               (failure count)
//   - "samples:rate > 100"                     (samples per second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'sample_duration:p95 < 500')", s)
	}

	metric := matches[1]
	label := strings.TrimSpace(matches[2])
	if unquoted, err := strconv.Unquote(label); err == nil {
		label = unquoted
	}
	aggregate := matches[3]
	operator := matches[4]
	valueStr := matches[5]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: sample_duration, sample_failed, samples)", metric)
	}
	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: p50, p90, p95, p99, avg, min, max, rate, count)", aggregate)
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Label:     label,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

func isValidMetric(metric string) bool {
	return slices.Contains([]string{"sample_duration", "sample_failed", "samples"}, metric)
}

func isValidAggregate(aggregate string) bool {
	return slices.Contains([]string{"p50", "p90", "p95", "p99", "avg", "min", "max", "rate", "count"}, aggregate)
}

func isValidOperator(operator string) bool {
	return slices.Contains([]string{"<", "<=", ">", ">=", "=="}, operator)
}

func extractMetricValue(t Threshold, snap metrics.Snapshot) (float64, error) {
	sum := snap.Overall
	if t.Label != "" {
		ls, ok := snap.Labels[t.Label]
		if !ok {
			return 0, fmt.Errorf("no samples recorded for label %q", t.Label)
		}
		sum = ls
	}

	switch t.Metric {
	case "sample_duration":
		return extractElapsedMetric(t.Aggregate, sum)
	case "sample_failed":
		return extractFailureMetric(t.Aggregate, sum)
	case "samples":
		return extractSampleMetric(t.Aggregate, sum, snap)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractElapsedMetric(aggregate string, sum metrics.Summary) (float64, error) {
	switch aggregate {
	case "p50":
		return sum.P50Ms, nil
	case "p90":
		return sum.P90Ms, nil
	case "p95":
		return sum.P95Ms, nil
	case "p99":
		return sum.P99Ms, nil
	case "avg", "mean":
		return sum.MeanMs, nil
	case "min":
		return sum.MinMs, nil
	case "max":
		return sum.MaxMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for sample_duration", aggregate)
	}
}

func extractFailureMetric(aggregate string, sum metrics.Summary) (float64, error) {
	switch aggregate {
	case "count":
		return float64(sum.Failures), nil
	case "rate":
		if sum.Total == 0 {
			return 0, nil
		}
		return float64(sum.Failures) / float64(sum.Total), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for sample_failed (use 'count' or 'rate')", aggregate)
	}
}

func extractSampleMetric(aggregate string, sum metrics.Summary, snap metrics.Snapshot) (float64, error) {
	switch aggregate {
	case "count":
		return float64(sum.Total), nil
	case "rate":
		if snap.Duration <= 0 {
			return 0, nil
		}
		return float64(sum.Total) / snap.Duration.Seconds(), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for samples (use 'count' or 'rate')", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
