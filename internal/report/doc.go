// Package report provides run report generation and output.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown output for documentation and sharing
//
// A RunReport bundles the run summary with the results of the run.
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
