package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gofrs/flock"

	"github.com/torosent/crankplan/internal/metrics"
)

// ReportJTLName is the results file written next to an HTML dashboard.
const ReportJTLName = "report.jtl"

// ErrLocked is returned when another run holds the output file or directory.
var ErrLocked = errors.New("output is locked by another run")

var jtlHeader = []string{
	"timeStamp", "elapsed", "label", "responseCode", "responseMessage",
	"threadName", "dataType", "success", "failureMessage", "bytes",
	"sentBytes", "grpThreads", "allThreads", "URL", "Latency", "IdleTime", "Connect",
}

// JTLWriter writes one CSV line per sample in JMeter's JTL column layout. It
// is safe for concurrent use.
type JTLWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	csv  *csv.Writer
	lock *flock.Flock
}

// OpenJTL creates (or truncates) the results file at path, creating parent
// directories as needed. The file stays locked until Close.
func OpenJTL(path string) (*JTLWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("results dir: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	file, err := os.Create(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("create results file: %w", err)
	}

	w := &JTLWriter{path: path, file: file, csv: csv.NewWriter(file), lock: lock}
	if err := w.csv.Write(jtlHeader); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write results header: %w", err)
	}
	return w, nil
}

// Path returns the results file path.
func (w *JTLWriter) Path() string { return w.path }

// Write appends one sample.
func (w *JTLWriter) Write(s metrics.Sample) error {
	failure := ""
	if s.Err != nil {
		failure = s.Err.Error()
	}
	row := []string{
		strconv.FormatInt(s.At.UnixMilli(), 10),
		strconv.FormatInt(s.Elapsed.Milliseconds(), 10),
		s.Label,
		s.Code,
		s.Message,
		s.ThreadName,
		"text",
		strconv.FormatBool(s.Success()),
		failure,
		strconv.FormatInt(s.Bytes, 10),
		strconv.FormatInt(s.SentBytes, 10),
		strconv.Itoa(s.GroupThreads),
		strconv.Itoa(s.AllThreads),
		s.URL,
		strconv.FormatInt(s.Latency.Milliseconds(), 10),
		"0",
		"0",
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.csv == nil {
		return fmt.Errorf("results file %s is closed", w.path)
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}
	return nil
}

// Close flushes buffered rows, closes the file and releases the lock.
func (w *JTLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.csv == nil {
		return nil
	}

	w.csv.Flush()
	errs := []error{w.csv.Error(), w.file.Close(), w.lock.Unlock()}
	_ = os.Remove(w.lock.Path())
	w.csv = nil
	return errors.Join(errs...)
}
