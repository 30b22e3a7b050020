package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeStats(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *RunReport) {
	s := report.Summary

	md.H1("domainrecon Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + s.RunID + "`"},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", s.Elapsed().String()},
			{"Submitted", strconv.Itoa(s.Submitted)},
			{"Completed", strconv.Itoa(s.Completed)},
			{"Cancelled", strconv.Itoa(s.Cancelled)},
			{"Status", statusText(s)},
		},
	})
	md.PlainText("")

	if s.Interrupted {
		md.Warningf("The run was interrupted: %d of %d domains were cancelled.", s.Cancelled, s.Submitted)
		md.PlainText("")
	}
}

// writeStats writes the aggregated field states.
func (w *MarkdownWriter) writeStats(md *markdown.Markdown, report *RunReport) {
	st := report.Stats

	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Measure", "Domains"},
		Rows: [][]string{
			{"Resolved", strconv.Itoa(st.Resolved)},
			{"No records", strconv.Itoa(st.NoRecords)},
			{"DNS unknown", strconv.Itoa(st.DNSUnknown)},
			{"TLS handshake", strconv.Itoa(st.TLSComplete)},
			{"Reachable", strconv.Itoa(st.Reachable)},
			{"Geo enriched", strconv.Itoa(st.Enriched)},
		},
	})
	md.PlainText("")

	if len(st.TLSVersions) > 0 {
		w.writePieChart(md, "TLS Versions", st.TLSVersions)
	}
	if len(st.Countries) > 0 {
		w.writePieChart(md, "Countries", st.Countries)
	}
}

// writePieChart writes a mermaid pie chart of a count map.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, title string, counts map[string]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle(title),
		piechart.WithShowData(true),
	)

	for _, c := range sortedCounts(counts) {
		chart.LabelAndIntValue(c.key, uint64(c.count)) //nolint:gosec // counts are non-negative
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeResults writes one table row per domain.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *RunReport) {
	md.H2("Results")
	md.PlainText("")

	if len(report.Results) == 0 {
		md.PlainText("No results.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Results))
	for i, r := range report.Results {
		rows[i] = []string{
			"`" + r.Domain + "`",
			addrsText(r.IPv4),
			addrsText(r.IPv6),
			fieldText(r.TLSVersion, plain),
			fieldText(r.CipherSuite, plain),
			fieldText(r.CertIssuerOrg, plain),
			latencyText(r.LatencyMs),
			asnText(r.ASN),
			fieldText(r.CountryISOCode, plain),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Domain", "IPv4", "IPv6", "TLS", "Cipher", "Issuer", "Latency", "ASN", "Country"},
		Rows:   rows,
	})
	md.PlainText("")
	md.Note("`" + textEmpty + "` means the query returned no value; `" + textUnknown + "` means it failed or timed out.")
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [domainrecon](https://github.com/nao1215/domainrecon)*")
}
