package geo

import (
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"path/filepath"
	"testing"
)

// fakeLookuper returns fixed records per address.
type fakeLookuper struct {
	records map[string]Record
	err     error
}

func (f *fakeLookuper) Lookup(addr netip.Addr) (Record, error) {
	if f.err != nil {
		return Record{}, f.err
	}
	rec, ok := f.records[addr.String()]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestEnricherEnrich tests the mapping from records to GeoInfo.
func TestEnricherEnrich(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookuper{records: map[string]Record{
		"93.184.216.34": {ASN: 15133, ASNOrg: "EDGECAST", ISOCode: "US", CountryName: "United States"},
		"203.0.113.9":   {ASN: 64500, ASNOrg: "Example", ISOCode: "JP"},
		"198.51.100.1":  {ASN: 64501},
	}}
	e := NewEnricher(lookup, WithLogger(quietLogger()))

	t.Run("full record", func(t *testing.T) {
		t.Parallel()

		info := e.Enrich(netip.MustParseAddr("93.184.216.34"))
		if asn, _ := info.ASN.Get(); asn != 15133 {
			t.Errorf("expected ASN 15133, got %d", asn)
		}
		if org, _ := info.ASNOrg.Get(); org != "EDGECAST" {
			t.Errorf("unexpected org %q", org)
		}
		if iso, _ := info.CountryISOCode.Get(); iso != "US" {
			t.Errorf("unexpected iso %q", iso)
		}
		if name, _ := info.CountryName.Get(); name != "United States" {
			t.Errorf("unexpected country %q", name)
		}
	})

	t.Run("country name falls back to iso code", func(t *testing.T) {
		t.Parallel()

		info := e.Enrich(netip.MustParseAddr("203.0.113.9"))
		if name, _ := info.CountryName.Get(); name != "Japan" {
			t.Errorf("expected Japan, got %q", name)
		}
	})

	t.Run("missing attributes stay unknown", func(t *testing.T) {
		t.Parallel()

		info := e.Enrich(netip.MustParseAddr("198.51.100.1"))
		if !info.ASN.IsPresent() {
			t.Error("expected ASN present")
		}
		if !info.ASNOrg.IsUnknown() || !info.CountryISOCode.IsUnknown() || !info.CountryName.IsUnknown() {
			t.Errorf("expected remaining fields unknown: %+v", info)
		}
	})

	t.Run("not found is all unknown", func(t *testing.T) {
		t.Parallel()

		info := e.Enrich(netip.MustParseAddr("192.0.2.1"))
		if !info.ASN.IsUnknown() || !info.ASNOrg.IsUnknown() || !info.CountryISOCode.IsUnknown() || !info.CountryName.IsUnknown() {
			t.Errorf("expected all unknown, got %+v", info)
		}
	})
}

// TestEnricherLookupError tests that lookup errors never escape.
func TestEnricherLookupError(t *testing.T) {
	t.Parallel()

	e := NewEnricher(&fakeLookuper{err: errors.New("corrupt database")}, WithLogger(quietLogger()))
	info := e.Enrich(netip.MustParseAddr("192.0.2.1"))

	if !info.ASN.IsUnknown() || !info.CountryName.IsUnknown() {
		t.Errorf("expected unknown fields, got %+v", info)
	}
}

// TestOpenEnricherMissingDatasets tests the fallback when files are absent.
func TestOpenEnricherMissingDatasets(t *testing.T) {
	t.Parallel()

	e := OpenEnricher(filepath.Join(t.TempDir(), "missing"), WithLogger(quietLogger()))
	t.Cleanup(func() { _ = e.Close() }) //nolint:errcheck // test cleanup

	info := e.Enrich(netip.MustParseAddr("93.184.216.34"))
	if !info.ASN.IsUnknown() {
		t.Errorf("expected unknown, got %+v", info)
	}
}

// TestOpenMissingDatasets tests that Open reports missing files.
func TestOpenMissingDatasets(t *testing.T) {
	t.Parallel()

	if _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}
