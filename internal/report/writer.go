package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/phishguard/internal/model"
)

// dateLayout is used for timestamps in human-readable output.
const dateLayout = "2006-01-02 15:04:05 MST"

// Writer defines the interface for report output.
// Implementations write scan results in various formats.
type Writer interface {
	// Write outputs a single report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.ScanReport) (int, error)

	// WriteBatch outputs several reports followed by a summary.
	// Nil entries (scans that never started) are skipped.
	WriteBatch(reports []*model.ScanReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.ScanReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteBatch outputs the reports to all configured Writers.
func (m *MultiWriter) WriteBatch(reports []*model.ScanReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// nonNil drops nil entries from reports.
func nonNil(reports []*model.ScanReport) []*model.ScanReport {
	out := make([]*model.ScanReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// describeLocal renders the local classifier result on one line.
func describeLocal(l model.LocalResult) string {
	s := l.Label.String()
	if l.Uncertain {
		s += " (uncertain)"
	}
	if l.Model != "" {
		s += " [" + l.Model + "]"
	}
	return s
}

// describeHeuristic renders the matched patterns on one line.
func describeHeuristic(h model.HeuristicFinding) string {
	if !h.Hit() {
		return "no pattern matched"
	}
	return strings.Join(h.Matches, ", ")
}

// describeDomain renders WHOIS data on one line.
func describeDomain(d *model.DomainInfo) string {
	if d == nil {
		return ""
	}
	s := d.Domain
	if !d.CreatedOn.IsZero() {
		s += fmt.Sprintf(", registered %s (%d days ago)", d.CreatedOn.Format("2006-01-02"), d.AgeDays)
	}
	if !d.ExpiresOn.IsZero() {
		s += ", expires " + d.ExpiresOn.Format("2006-01-02")
	}
	if d.Registrar != "" {
		s += ", registrar " + d.Registrar
	}
	return s
}

// statusText describes whether the scan completed.
func statusText(r *model.ScanReport) string {
	if r.ErrorMessage != "" {
		return "Error - " + r.ErrorMessage
	}
	return "Complete"
}
