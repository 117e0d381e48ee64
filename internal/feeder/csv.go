package feeder

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Record is one dataset row keyed by header name.
type Record map[string]string

// CSVFeeder reads records from a CSV file and hands them out round-robin,
// wrapping to the first row after the last. It is safe for concurrent access.
type CSVFeeder struct {
	path    string
	records []Record
	index   int
	mu      sync.Mutex
}

// NewCSVFeeder creates a new CSV feeder from the given file path.
// The first row is treated as the header containing field names.
func NewCSVFeeder(path string) (*CSVFeeder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV %s: %w", path, err)
	}

	if len(rows) == 0 {
		return nil, errors.New("CSV file is empty")
	}
	if len(rows) < 2 {
		return nil, errors.New("CSV file must have at least one header row and one data row")
	}

	header := make([]string, len(rows[0]))
	for i, field := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(field, "\ufeff"))
	}
	dataRows := rows[1:]

	records := make([]Record, 0, len(dataRows))
	for i, row := range dataRows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+2, len(row), len(header))
		}

		record := make(Record, len(header))
		for j, field := range header {
			record[field] = row[j]
		}
		records = append(records, record)
	}

	return &CSVFeeder{path: path, records: records}, nil
}

// Next returns the next record in round-robin order. The returned record is a
// copy and may be modified by the caller.
func (f *CSVFeeder) Next(ctx context.Context) (Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index >= len(f.records) {
		f.index = 0
	}

	record := f.records[f.index]
	f.index++

	out := make(Record, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out, nil
}

// Path returns the file the feeder was loaded from.
func (f *CSVFeeder) Path() string {
	return f.path
}
