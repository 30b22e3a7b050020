package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/domainrecon/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *RunReport {
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	ok := model.NewProbeResult("example.com")
	ok.IPv4 = model.Known([]netip.Addr{netip.MustParseAddr("192.0.2.10")})
	ok.IPv6 = model.Empty[[]netip.Addr]()
	ok.TLSVersion = model.Known("TLSv1.3")
	ok.CipherSuite = model.Known("TLS_AES_128_GCM_SHA256")
	ok.CertIssuerOrg = model.Known("Acme Co")
	ok.LatencyMs = model.Known(8.5)
	ok.ASN = model.Known(uint(64500))
	ok.ASNOrg = model.Known("EXAMPLE-NET")
	ok.CountryISOCode = model.Known("JP")
	ok.CountryName = model.Known("Japan")

	nodata := model.NewProbeResult("nodata.example")
	nodata.IPv4 = model.Empty[[]netip.Addr]()
	nodata.IPv6 = model.Empty[[]netip.Addr]()

	failed := model.NewProbeResult("definitely-invalid.invalid")

	summary := model.RunSummary{
		RunID:      "3f1c9f4e-run",
		Submitted:  4,
		Completed:  3,
		Cancelled:  1,
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
	}
	return NewRunReport("v0.1.0", summary, []model.ProbeResult{ok, nodata, failed})
}

// TestNewRunReport tests the aggregated statistics.
func TestNewRunReport(t *testing.T) {
	t.Parallel()

	st := createTestReport().Stats
	if st.Resolved != 1 || st.NoRecords != 1 || st.DNSUnknown != 1 {
		t.Errorf("unexpected dns stats: %+v", st)
	}
	if st.TLSComplete != 1 || st.TLSVersions["TLSv1.3"] != 1 {
		t.Errorf("unexpected tls stats: %+v", st)
	}
	if st.Reachable != 1 || st.Enriched != 1 || st.Countries["JP"] != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes run header and summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"DOMAINRECON REPORT", "3f1c9f4e-run", "Completed:  3", "RESOLVED:     1", "TLSv1.3", "Status:     Complete"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "RESULTS") {
			t.Error("results must be hidden by default")
		}
	})

	t.Run("lists results with placeholders", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithResults(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"[+] example.com", "192.0.2.10", "AS64500", "8.5 ms", "IPv6:    -", "Issuer:  ?"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("verbose mode includes elapsed time", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Elapsed:    3s") {
			t.Error("expected elapsed time")
		}
	})

	t.Run("shows interruption", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Summary.Interrupted = true
		report.Summary.Reason = "interrupt"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Interrupted (interrupt)") {
			t.Error("expected interrupted status")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON with tri-state fields", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded RunReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "v0.1.0" || len(decoded.Results) != 3 {
			t.Errorf("unexpected report: %+v", decoded)
		}
		if !decoded.Results[1].IPv4.IsEmpty() {
			t.Error("expected empty ipv4 to survive")
		}
		if !decoded.Results[2].IPv4.IsUnknown() {
			t.Error("expected unknown ipv4 to survive")
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected a single line")
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"version\"") {
			t.Error("expected indented output")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and charts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"# domainrecon Report", "## Summary", "## Results", "`example.com`", "pie", "TLS Versions", "[NOTE]"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("warns about interrupted run", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Summary.Interrupted = true
		report.Summary.Reason = "terminated"

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Error("expected warning alert")
		}
	})

	t.Run("handles empty run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		report := NewRunReport("dev", model.RunSummary{RunID: "empty"}, nil)
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No results.") {
			t.Error("expected empty results text")
		}
		if strings.Contains(buf.String(), "pie") {
			t.Error("expected no chart without data")
		}
	})
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

	n, err := mw.Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected output in both writers")
	}
}

// failingWriter always fails.
type failingWriter struct{ err error }

func (f failingWriter) Write(*RunReport) (int, error) { return 0, f.err }

// TestMultiWriterKeepsGoing tests that one failing writer does not stop
// the others.
func TestMultiWriterKeepsGoing(t *testing.T) {
	t.Parallel()

	errDisk := errors.New("disk full")
	var text bytes.Buffer
	mw := NewMultiWriter(failingWriter{err: errDisk}, NewSimpleWriter(&text))

	n, err := mw.Write(createTestReport())
	if !errors.Is(err, errDisk) {
		t.Errorf("expected the writer error, got %v", err)
	}
	if text.Len() == 0 || n != text.Len() {
		t.Errorf("expected the text writer to run, got %d bytes (n=%d)", text.Len(), n)
	}
}

// TestSortedCounts tests count ordering.
func TestSortedCounts(t *testing.T) {
	t.Parallel()

	got := sortedCounts(map[string]int{"b": 2, "a": 2, "c": 5})
	want := []string{"c", "a", "b"}
	for i, w := range want {
		if got[i].key != w {
			t.Errorf("position %d: expected %s, got %s", i, w, got[i].key)
		}
	}
}
