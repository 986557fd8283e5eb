package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/nao1215/phishguard/internal/model"
)

// ruleWidth is the width of the horizontal rules in text output.
const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
// The verdict is colored red for Phishing and green for Safe when color
// output is enabled.
//
// Design decision: Color is decided per writer rather than through the
// global color.NoColor flag, so that a report written to a file never
// contains escape codes while the terminal output still does.
type SimpleWriter struct {
	baseWriter

	// verbose enables additional detail in the output.
	verbose bool

	phishing *color.Color
	safe     *color.Color
	faint    *color.Color
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor forces color output on or off.
// Without this option the writer follows color.NoColor, which is set when
// stdout is not a terminal or NO_COLOR is present.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		for _, c := range []*color.Color{w.phishing, w.safe, w.faint} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		phishing:   color.New(color.FgRed, color.Bold),
		safe:       color.New(color.FgGreen, color.Bold),
		faint:      color.New(color.Faint),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder
	w.writeReport(&sb, report)
	return io.WriteString(w.output, sb.String())
}

// WriteBatch outputs every report followed by a summary.
func (w *SimpleWriter) WriteBatch(reports []*model.ScanReport) (int, error) {
	reports = nonNil(reports)

	var sb strings.Builder
	for _, r := range reports {
		w.writeReport(&sb, r)
	}
	w.writeSummary(&sb, model.Summarize(reports))
	return io.WriteString(w.output, sb.String())
}

// writeReport writes a single report block.
func (w *SimpleWriter) writeReport(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	fmt.Fprintf(sb, "URL:        %s\n", report.URL)
	fmt.Fprintf(sb, "Verdict:    %s\n", w.colorLabel(report.Verdict.Label))
	fmt.Fprintf(sb, "Decided by: %s\n", report.Verdict.Decider)
	fmt.Fprintf(sb, "Rationale:  %s\n", report.Verdict.Rationale)
	if report.ErrorMessage != "" {
		fmt.Fprintf(sb, "Status:     %s\n", statusText(report))
	}
	sb.WriteString("\n")

	sb.WriteString("Signals\n")
	fmt.Fprintf(sb, "  Local classifier: %s\n", describeLocal(report.Local))
	fmt.Fprintf(sb, "  Heuristics:       %s\n", describeHeuristic(report.Heuristic))
	fmt.Fprintf(sb, "  Advisory:         %s\n", report.Advisory.Display())
	if report.DomainInfo != nil {
		fmt.Fprintf(sb, "  Domain:           %s\n", describeDomain(report.DomainInfo))
	}

	if w.verbose {
		sb.WriteString("\n")
		sb.WriteString(w.faint.Sprintf("Scan ID:    %s\n", report.ID))
		sb.WriteString(w.faint.Sprintf("Scan Date:  %s\n", report.DateScanned.Format(dateLayout)))
		sb.WriteString(w.faint.Sprintf("Duration:   %s\n", report.Duration))
		sb.WriteString(w.faint.Sprintf("Steps:      %s\n", strings.Join(report.PerformedSteps, ", ")))
	}
	sb.WriteString("\n")
}

// writeSummary writes the batch summary block.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary model.BatchSummary) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  Scanned:  %d\n", summary.Total)
	fmt.Fprintf(sb, "  %s %d\n", w.phishing.Sprint("Phishing:"), summary.Phishing)
	fmt.Fprintf(sb, "  %s     %d\n", w.safe.Sprint("Safe:"), summary.Safe)
	if summary.Failed > 0 {
		fmt.Fprintf(sb, "  Failed:   %d\n", summary.Failed)
	}

	if len(summary.ByDecider) > 0 {
		sb.WriteString("\n  Decided by:\n")
		for _, d := range summary.Deciders() {
			fmt.Fprintf(sb, "    %-18s %d\n", d, summary.ByDecider[d])
		}
	}
	sb.WriteString("\n")
}

// colorLabel renders a verdict label in its color.
func (w *SimpleWriter) colorLabel(label model.Label) string {
	text := strings.ToUpper(label.String())
	if label.IsPhishing() {
		return w.phishing.Sprint(text)
	}
	return w.safe.Sprint(text)
}
