package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display.
type SimpleWriter struct {
	baseWriter

	// showResults controls whether the per-domain table is written.
	showResults bool

	// verbose adds the raw timings to the header.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithResults configures the writer to list every result.
func WithResults(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showResults = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeStats(&sb, report)
	if w.showResults {
		w.writeResults(&sb, report)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the run accounting.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *RunReport) {
	s := report.Summary

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        DOMAINRECON REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:     %s\n", s.RunID)
	fmt.Fprintf(sb, "Started:    %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Submitted:  %d\n", s.Submitted)
	fmt.Fprintf(sb, "Completed:  %d\n", s.Completed)
	fmt.Fprintf(sb, "Cancelled:  %d\n", s.Cancelled)
	fmt.Fprintf(sb, "Status:     %s\n", statusText(s))
	if w.verbose {
		fmt.Fprintf(sb, "Elapsed:    %s\n", s.Elapsed())
		fmt.Fprintf(sb, "Finished:   %s\n", s.FinishedAt.Format("2006-01-02 15:04:05 MST"))
	}
	sb.WriteString("\n")
}

// writeStats writes the aggregated field states.
func (w *SimpleWriter) writeStats(sb *strings.Builder, report *RunReport) {
	st := report.Stats

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  RESOLVED:     %d\n", st.Resolved)
	fmt.Fprintf(sb, "  NO RECORDS:   %d\n", st.NoRecords)
	fmt.Fprintf(sb, "  DNS UNKNOWN:  %d\n", st.DNSUnknown)
	fmt.Fprintf(sb, "  TLS:          %d\n", st.TLSComplete)
	fmt.Fprintf(sb, "  REACHABLE:    %d\n", st.Reachable)
	fmt.Fprintf(sb, "  ENRICHED:     %d\n", st.Enriched)
	sb.WriteString("\n")

	if len(st.TLSVersions) > 0 {
		sb.WriteString("  TLS versions:\n")
		for _, c := range sortedCounts(st.TLSVersions) {
			fmt.Fprintf(sb, "    %-10s %d\n", c.key, c.count)
		}
		sb.WriteString("\n")
	}
}

// writeResults writes one block per domain.
func (w *SimpleWriter) writeResults(sb *strings.Builder, report *RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RESULTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Results) == 0 {
		sb.WriteString("  No results\n\n")
		return
	}

	for _, r := range report.Results {
		fmt.Fprintf(sb, "  [+] %s\n", r.Domain)
		fmt.Fprintf(sb, "      IPv4:    %s\n", addrsText(r.IPv4))
		fmt.Fprintf(sb, "      IPv6:    %s\n", addrsText(r.IPv6))
		fmt.Fprintf(sb, "      TLS:     %s %s\n", fieldText(r.TLSVersion, plain), fieldText(r.CipherSuite, plain))
		fmt.Fprintf(sb, "      Issuer:  %s\n", fieldText(r.CertIssuerOrg, plain))
		fmt.Fprintf(sb, "      Latency: %s\n", latencyText(r.LatencyMs))
		fmt.Fprintf(sb, "      Network: %s %s (%s)\n",
			asnText(r.ASN), fieldText(r.ASNOrg, plain), fieldText(r.CountryName, plain))
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  %s = no value, %s = unknown\n\n", textEmpty, textUnknown)
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by domainrecon\n")
	sb.WriteString("https://github.com/nao1215/domainrecon\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
