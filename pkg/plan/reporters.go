package plan

import (
	"fmt"
	"path/filepath"
	"strings"
)

// HTMLReporter writes an HTML dashboard of the run into a directory.
type HTMLReporter struct {
	node
	dir string
}

// HTMLReporter writes into dir, or into output/html-report-<MMDDYYYYHHMMSS> when dir
// is empty.
func (b *Builder) HTMLReporter(dir string) (*HTMLReporter, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = filepath.Join("output", "html-report-"+b.now().Format("01022006150405"))
	}
	n, err := b.newNode(KindHTMLReporter, HTMLReporterArgs{Dir: dir}, nil)
	if err != nil {
		return nil, err
	}
	return &HTMLReporter{node: n, dir: dir}, nil
}

// Dir is the directory the dashboard is written to.
func (r *HTMLReporter) Dir() string { return r.dir }

// JTLWriter appends one CSV line per sample to a results file.
type JTLWriter struct{ node }

func (b *Builder) JTLWriter(path string) (*JTLWriter, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("jtl writer: path is required: %w", ErrInvalidArgument)
	}
	n, err := b.newNode(KindJTLWriter, JTLWriterArgs{Path: path}, nil)
	if err != nil {
		return nil, err
	}
	return &JTLWriter{node: n}, nil
}
