package model

import (
	"net/netip"
	"testing"
)

// TestProbeResultFirstIPv4 tests the enrichment key selection.
func TestProbeResultFirstIPv4(t *testing.T) {
	t.Parallel()

	t.Run("returns first address in resolver order", func(t *testing.T) {
		t.Parallel()

		r := NewProbeResult("example.com")
		r.IPv4 = Known([]netip.Addr{
			netip.MustParseAddr("93.184.216.34"),
			netip.MustParseAddr("93.184.216.35"),
		})

		addr, ok := r.FirstIPv4()
		if !ok {
			t.Fatal("expected an address")
		}
		if addr.String() != "93.184.216.34" {
			t.Errorf("expected first address, got %s", addr)
		}
	})

	t.Run("empty list has no address", func(t *testing.T) {
		t.Parallel()

		r := NewProbeResult("example.com")
		r.IPv4 = Empty[[]netip.Addr]()

		if _, ok := r.FirstIPv4(); ok {
			t.Error("expected no address for empty field")
		}
	})

	t.Run("unknown has no address", func(t *testing.T) {
		t.Parallel()

		r := NewProbeResult("example.com")
		if _, ok := r.FirstIPv4(); ok {
			t.Error("expected no address for unknown field")
		}
	})
}

// TestProbeResultWithGeo tests that WithGeo returns a modified copy.
func TestProbeResultWithGeo(t *testing.T) {
	t.Parallel()

	r := NewProbeResult("example.com")
	g := GeoInfo{
		ASN:            Known(uint(15133)),
		ASNOrg:         Known("EDGECAST"),
		CountryISOCode: Known("US"),
		CountryName:    Known("United States"),
	}

	enriched := r.WithGeo(g)

	if !r.ASN.IsUnknown() {
		t.Error("expected original result to stay untouched")
	}
	if asn, _ := enriched.ASN.Get(); asn != 15133 {
		t.Errorf("expected ASN 15133, got %d", asn)
	}
	if name, _ := enriched.CountryName.Get(); name != "United States" {
		t.Errorf("expected United States, got %q", name)
	}
}

// TestAddrsRoundTrip tests the comma-joined storage format.
func TestAddrsRoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("joins in order", func(t *testing.T) {
		t.Parallel()

		got := JoinAddrs([]netip.Addr{
			netip.MustParseAddr("10.0.0.2"),
			netip.MustParseAddr("10.0.0.1"),
		})
		if got != "10.0.0.2,10.0.0.1" {
			t.Errorf("unexpected join: %q", got)
		}
	})

	t.Run("empty string splits to empty slice", func(t *testing.T) {
		t.Parallel()

		addrs, err := SplitAddrs("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if addrs == nil || len(addrs) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", addrs)
		}
	})

	t.Run("invalid address is an error", func(t *testing.T) {
		t.Parallel()

		if _, err := SplitAddrs("10.0.0.1,nope"); err == nil {
			t.Error("expected parse error")
		}
	})
}

// TestFormatLatency tests the four significant digit rendering.
func TestFormatLatency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{12.34567, "12.35"},
		{1.5, "1.5"},
		{250, "250"},
		{4999.9, "5000"},
	}

	for _, tt := range tests {
		if got := FormatLatency(tt.in); got != tt.want {
			t.Errorf("FormatLatency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestRunSummaryBalanced tests the accounting invariant helper.
func TestRunSummaryBalanced(t *testing.T) {
	t.Parallel()

	s := RunSummary{Submitted: 50, Completed: 12, Cancelled: 38}
	if !s.Balanced() {
		t.Error("expected balanced summary")
	}

	s.Cancelled = 37
	if s.Balanced() {
		t.Error("expected unbalanced summary")
	}
}
