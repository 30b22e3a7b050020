package report

import (
	"cmp"
	"fmt"
	"maps"
	"net/netip"
	"slices"
	"strconv"

	"github.com/nao1215/domainrecon/internal/model"
)

// RunReport is the data rendered by every Writer.
type RunReport struct {
	// Version is the domainrecon version that produced the run.
	Version string `json:"version"`

	// Summary is the accounting of the run.
	Summary model.RunSummary `json:"summary"`

	// Stats aggregates the results.
	Stats Stats `json:"stats"`

	// Results are the emitted results, in the order given to NewRunReport.
	Results []model.ProbeResult `json:"results"`
}

// Stats counts result fields by state.
type Stats struct {
	Resolved    int `json:"resolved"`
	NoRecords   int `json:"no_records"`
	DNSUnknown  int `json:"dns_unknown"`
	TLSComplete int `json:"tls_complete"`
	Reachable   int `json:"reachable"`
	Enriched    int `json:"enriched"`

	// TLSVersions counts negotiated protocol versions.
	TLSVersions map[string]int `json:"tls_versions,omitempty"`

	// Countries counts registered country ISO codes.
	Countries map[string]int `json:"countries,omitempty"`
}

// NewRunReport builds a report from a finished run.
func NewRunReport(version string, summary model.RunSummary, results []model.ProbeResult) *RunReport {
	return &RunReport{
		Version: version,
		Summary: summary,
		Stats:   computeStats(results),
		Results: results,
	}
}

func computeStats(results []model.ProbeResult) Stats {
	s := Stats{
		TLSVersions: make(map[string]int),
		Countries:   make(map[string]int),
	}
	for _, r := range results {
		switch {
		case hasAddrs(r.IPv4) || hasAddrs(r.IPv6):
			s.Resolved++
		case r.IPv4.IsUnknown() || r.IPv6.IsUnknown():
			s.DNSUnknown++
		default:
			s.NoRecords++
		}
		if r.TLSComplete() {
			s.TLSComplete++
			v, _ := r.TLSVersion.Get()
			s.TLSVersions[v]++
		}
		if r.LatencyMs.IsPresent() {
			s.Reachable++
		}
		if r.ASN.IsPresent() {
			s.Enriched++
		}
		if iso, ok := r.CountryISOCode.Get(); ok {
			s.Countries[iso]++
		}
	}
	return s
}

func hasAddrs(f model.Field[[]netip.Addr]) bool {
	addrs, ok := f.Get()
	return ok && len(addrs) > 0
}

// counted is one entry of a count map.
type counted struct {
	key   string
	count int
}

// sortedCounts orders a count map by descending count, then key.
func sortedCounts(m map[string]int) []counted {
	out := make([]counted, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, counted{key: k, count: m[k]})
	}
	slices.SortStableFunc(out, func(a, b counted) int {
		return cmp.Compare(b.count, a.count)
	})
	return out
}

// Placeholders for fields without a value.
const (
	textEmpty   = "-"
	textUnknown = "?"
)

// fieldText renders a field, using placeholders for empty and unknown.
func fieldText[T any](f model.Field[T], format func(T) string) string {
	switch f.State() {
	case model.StatePresent:
		v, _ := f.Get()
		return format(v)
	case model.StateEmpty:
		return textEmpty
	default:
		return textUnknown
	}
}

func plain(s string) string { return s }

func addrsText(f model.Field[[]netip.Addr]) string {
	return fieldText(f, model.JoinAddrs)
}

func asnText(f model.Field[uint]) string {
	return fieldText(f, func(v uint) string { return "AS" + strconv.FormatUint(uint64(v), 10) })
}

func latencyText(f model.Field[float64]) string {
	return fieldText(f, func(v float64) string { return model.FormatLatency(v) + " ms" })
}

func statusText(s model.RunSummary) string {
	if s.Interrupted {
		return fmt.Sprintf("Interrupted (%s)", s.Reason)
	}
	return "Complete"
}
