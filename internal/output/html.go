package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DashboardName is the HTML file written into a reporter directory.
const DashboardName = "index.html"

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	Report
	GeneratedAt      string
	ThresholdSummary *ThresholdSummary
	TimelineJSON     string
	ErrorRows        []countRow
}

// GenerateHTMLReport generates a standalone HTML report with embedded charts.
func GenerateHTMLReport(w io.Writer, rep Report) error {
	timelineJSON, err := json.Marshal(rep.Snapshot.Timeline)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}

	generated := rep.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	data := HTMLReportData{
		Report:           rep,
		GeneratedAt:      generated.Format(time.RFC3339),
		ThresholdSummary: summarizeThresholds(rep.Thresholds),
		TimelineJSON:     string(timelineJSON),
		ErrorRows:        sortedCounts(rep.Snapshot.Errors),
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.Round(time.Microsecond).String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(part, total int64) string {
			if total == 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

// WriteHTMLDashboard renders rep into dir/index.html. The directory is
// created if needed and locked while the file is written.
func WriteHTMLDashboard(dir string, rep Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, ".crankplan.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", dir, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", dir, ErrLocked)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	f, err := os.Create(filepath.Join(dir, DashboardName))
	if err != nil {
		return fmt.Errorf("create dashboard: %w", err)
	}
	if err := GenerateHTMLReport(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Crankplan Test Plan Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container { max-width: 1400px; margin: 0 auto; background: white; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,0.1); overflow: hidden; }
        header { background: linear-gradient(135deg, #1f6feb 0%, #0b3d91 100%); color: white; padding: 30px 40px; }
        header h1 { font-size: 2rem; margin-bottom: 10px; }
        header .meta { opacity: 0.9; font-size: 0.9rem; }
        .content { padding: 40px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(220px, 1fr)); gap: 20px; margin-bottom: 40px; }
        .card { background: #f8f9fa; border-radius: 8px; padding: 20px; border-left: 4px solid #1f6feb; }
        .card h3 { font-size: 0.9rem; color: #6c757d; text-transform: uppercase; letter-spacing: 0.5px; margin-bottom: 10px; }
        .card .value { font-size: 2rem; font-weight: bold; }
        .card .subvalue { font-size: 0.85rem; color: #6c757d; margin-top: 5px; }
        .card.success { border-left-color: #10b981; }
        .card.error { border-left-color: #ef4444; }
        .section { margin-bottom: 40px; }
        .section h2 { font-size: 1.5rem; margin-bottom: 20px; padding-bottom: 10px; border-bottom: 2px solid #e5e7eb; }
        .chart-container { padding: 20px; margin-bottom: 30px; border: 1px solid #e5e7eb; border-radius: 8px; }
        .chart { width: 100%; height: 300px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 12px; border-bottom: 1px solid #e5e7eb; }
        th { background: #f8f9fa; font-weight: 600; color: #4b5563; font-size: 0.9rem; text-transform: uppercase; }
        .badge { display: inline-block; padding: 4px 12px; border-radius: 12px; font-size: 0.85rem; font-weight: 600; }
        .badge-success { background: #d1fae5; color: #065f46; }
        .badge-error { background: #fee2e2; color: #991b1b; }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>Test Plan Report</h1>
            {{if .RunID}}<div class="meta">Run: {{.RunID}}</div>{{end}}
            <div class="meta">Generated: {{.GeneratedAt}} | Duration: {{formatDuration .Snapshot.Duration}}</div>
        </header>

        <div class="content">
            <div class="grid">
                <div class="card">
                    <h3>Samples</h3>
                    <div class="value">{{.Snapshot.Overall.Total}}</div>
                </div>
                <div class="card success">
                    <h3>Successful</h3>
                    <div class="value">{{.Snapshot.Overall.Successes}}</div>
                    <div class="subvalue">{{formatPercent .Snapshot.Overall.Successes .Snapshot.Overall.Total}}%</div>
                </div>
                <div class="card error">
                    <h3>Failed</h3>
                    <div class="value">{{.Snapshot.Overall.Failures}}</div>
                    <div class="subvalue">{{formatPercent .Snapshot.Overall.Failures .Snapshot.Overall.Total}}%</div>
                </div>
                <div class="card">
                    <h3>Samples/sec</h3>
                    <div class="value">{{formatFloat .Snapshot.RequestsPerSec}}</div>
                </div>
            </div>

            {{if .Snapshot.Timeline}}
            <div class="section">
                <h2>Over Time</h2>
                <div class="chart-container"><div id="throughput-chart" class="chart"></div></div>
                <div class="chart-container"><div id="elapsed-chart" class="chart"></div></div>
            </div>
            {{end}}

            <div class="section">
                <h2>Statistics</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Label</th><th>Samples</th><th>Errors</th><th>Mean</th><th>Min</th>
                            <th>Median</th><th>P90</th><th>P95</th><th>P99</th><th>Max</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Snapshot.LabelOrder}}
                        {{$s := index $.Snapshot.Labels .}}
                        <tr>
                            <td><strong>{{.}}</strong></td>
                            <td>{{$s.Total}}</td>
                            <td>{{$s.Failures}} ({{formatPercent $s.Failures $s.Total}}%)</td>
                            <td>{{formatDuration $s.Mean}}</td>
                            <td>{{formatDuration $s.Min}}</td>
                            <td>{{formatDuration $s.P50}}</td>
                            <td>{{formatDuration $s.P90}}</td>
                            <td>{{formatDuration $s.P95}}</td>
                            <td>{{formatDuration $s.P99}}</td>
                            <td>{{formatDuration $s.Max}}</td>
                        </tr>
                        {{end}}
                        {{with .Snapshot.Overall}}
                        <tr>
                            <td><em>Total</em></td>
                            <td>{{.Total}}</td>
                            <td>{{.Failures}}</td>
                            <td>{{formatDuration .Mean}}</td>
                            <td>{{formatDuration .Min}}</td>
                            <td>{{formatDuration .P50}}</td>
                            <td>{{formatDuration .P90}}</td>
                            <td>{{formatDuration .P95}}</td>
                            <td>{{formatDuration .P99}}</td>
                            <td>{{formatDuration .Max}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>

            {{if .ErrorRows}}
            <div class="section">
                <h2>Errors</h2>
                <table>
                    <thead><tr><th>Type</th><th>Count</th></tr></thead>
                    <tbody>
                        {{range .ErrorRows}}<tr><td>{{.Name}}</td><td>{{.Count}}</td></tr>{{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead><tr><th>Threshold</th><th>Expected</th><th>Actual</th><th>Status</th></tr></thead>
                    <tbody>
                        {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{.Operator}} {{formatFloat .Expected}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>{{if .Pass}}<span class="badge badge-success">PASS</span>{{else}}<span class="badge badge-error">FAIL</span>{{end}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>

    {{if .Snapshot.Timeline}}
    <script>
        const timeline = JSON.parse({{.TimelineJSON}});
        if (timeline && timeline.length > 0) {
            const seconds = timeline.map(d => d.second);
            const chart = (id, title, series, data) => new uPlot({
                title: title,
                width: document.getElementById(id).offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [{ label: "Time (s)" }].concat(series),
            }, [seconds].concat(data), document.getElementById(id));

            chart('throughput-chart', 'Samples per second',
                [{ label: "Samples", stroke: "#1f6feb", width: 2 }, { label: "Errors", stroke: "#ef4444", width: 2 }],
                [timeline.map(d => d.samples), timeline.map(d => d.errors)]);
            chart('elapsed-chart', 'Mean elapsed (ms)',
                [{ label: "Mean", stroke: "#10b981", width: 2 }],
                [timeline.map(d => d.mean_ms)]);
        }
    </script>
    {{end}}
</body>
</html>
`
