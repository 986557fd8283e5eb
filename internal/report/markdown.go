package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/phishguard/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs a single report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("PhishGuard Report")
	md.PlainText("")
	w.writeReport(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs a summary with a verdict chart, a results table and
// the details of every report.
func (w *MarkdownWriter) WriteBatch(reports []*model.ScanReport) (int, error) {
	reports = nonNil(reports)
	summary := model.Summarize(reports)
	md := markdown.NewMarkdown(w.output)

	md.H1("PhishGuard Batch Report")
	md.PlainText("")

	w.writeSummary(md, summary)
	w.writeResultsTable(md, reports)

	md.H2("Details")
	md.PlainText("")
	for _, r := range reports {
		md.PlainText("### `" + r.URL + "`")
		md.PlainText("")
		w.writeReport(md, r)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeReport writes the property table, the alert and the signals table.
func (w *MarkdownWriter) writeReport(md *markdown.Markdown, report *model.ScanReport) {
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + report.URL + "`"},
			{"Verdict", "**" + report.Verdict.Label.String() + "**"},
			{"Decided By", string(report.Verdict.Decider)},
			{"Rationale", escapeCell(report.Verdict.Rationale)},
			{"Scan Date", report.DateScanned.Format(dateLayout)},
			{"Duration", report.Duration.String()},
			{"Status", escapeCell(statusText(report))},
		},
	})
	md.PlainText("")

	w.writeAlert(md, report)

	rows := [][]string{
		{"Local classifier", escapeCell(describeLocal(report.Local))},
		{"Heuristics", escapeCell(describeHeuristic(report.Heuristic))},
		{"Advisory", escapeCell(report.Advisory.Display())},
	}
	if report.DomainInfo != nil {
		rows = append(rows, []string{"Domain", escapeCell(describeDomain(report.DomainInfo))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Signal", "Result"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAlert writes a caution for phishing verdicts and a tip otherwise.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ScanReport) {
	if report.Verdict.Label.IsPhishing() {
		md.Cautionf("Phishing suspected: %s. Do not enter credentials on this site.", report.Verdict.Rationale)
	} else {
		md.Tip("No phishing indicators decided the verdict.")
	}
	md.PlainText("")
}

// writeSummary writes the batch counters and the verdict pie chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary model.BatchSummary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Verdict", "Count"},
		Rows: [][]string{
			{"🔴 Phishing", strconv.Itoa(summary.Phishing)},
			{"🟢 Safe", strconv.Itoa(summary.Safe)},
			{"⚠️ Failed", strconv.Itoa(summary.Failed)},
			{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"},
		},
	})
	md.PlainText("")

	if summary.Total > 0 {
		w.writePieChart(md, summary)
	}

	if len(summary.ByDecider) > 0 {
		rows := make([][]string, 0, len(summary.ByDecider))
		for _, d := range summary.Deciders() {
			rows = append(rows, []string{string(d), strconv.Itoa(summary.ByDecider[d])})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Decided By", "Count"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if summary.Phishing > 0 {
		md.Cautionf("%d of %d URL(s) look like phishing.", summary.Phishing, summary.Total)
		md.PlainText("")
	}
}

// writePieChart writes a mermaid pie chart for the verdict distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary model.BatchSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Verdict Distribution"),
		piechart.WithShowData(true),
	)

	if summary.Phishing > 0 {
		chart.LabelAndIntValue("Phishing", uint64(summary.Phishing))
	}
	if summary.Safe > 0 {
		chart.LabelAndIntValue("Safe", uint64(summary.Safe))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeResultsTable writes one row per scanned URL.
func (w *MarkdownWriter) writeResultsTable(md *markdown.Markdown, reports []*model.ScanReport) {
	md.H2("Results")
	md.PlainText("")

	if len(reports) == 0 {
		md.PlainText("No URLs were scanned.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			"`" + truncateString(r.URL, 60) + "`",
			r.Verdict.Label.String(),
			string(r.Verdict.Decider),
			escapeCell(truncateString(r.Verdict.Rationale, 80)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Verdict", "Decided By", "Rationale"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [PhishGuard](https://github.com/nao1215/phishguard)*")
}

// escapeCell keeps pipes in free text from breaking table rows.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
