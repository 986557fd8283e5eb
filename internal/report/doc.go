// Package report provides report generation and output functionality.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display, with
//     the verdict colored red or green (github.com/fatih/color)
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown for sharing, with a mermaid pie chart for
//     batch scans (github.com/nao1215/markdown)
//
// Design decision: We separate report writing from report data structures
// (which are in the model package) so that new output formats don't touch
// the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
