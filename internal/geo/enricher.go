package geo

import (
	"errors"
	"log/slog"
	"net/netip"

	"github.com/nao1215/domainrecon/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Enricher turns dataset lookups into GeoInfo values. It never fails: any
// miss or error yields Unknown fields.
type Enricher struct {
	lookup Lookuper
	closer func() error
	logger *slog.Logger
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EnricherOption {
	return func(e *Enricher) {
		e.logger = logger
	}
}

// NewEnricher creates an Enricher over lookup.
func NewEnricher(lookup Lookuper, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		lookup: lookup,
		closer: func() error { return nil },
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.lookup == nil {
		e.lookup = nopDB{}
	}

	return e
}

// OpenEnricher opens the datasets in dir. When they cannot be opened, the
// returned Enricher reports every address as not found and a warning is
// logged; scanning still proceeds.
func OpenEnricher(dir string, opts ...EnricherOption) *Enricher {
	e := NewEnricher(nil, opts...)

	db, err := Open(dir)
	if err != nil {
		e.logger.Warn("geo datasets unavailable, enrichment disabled",
			"dir", dir,
			"error", err,
		)
		return e
	}

	e.lookup = db
	e.closer = db.Close
	return e
}

// Enrich returns the ownership and country data of addr.
func (e *Enricher) Enrich(addr netip.Addr) model.GeoInfo {
	rec, err := e.lookup.Lookup(addr)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.logger.Debug("geo lookup failed", "addr", addr.String(), "error", err)
		}
		return model.UnknownGeo()
	}

	info := model.UnknownGeo()
	if rec.ASN != 0 {
		info.ASN = model.Known(rec.ASN)
	}
	if rec.ASNOrg != "" {
		info.ASNOrg = model.Known(rec.ASNOrg)
	}
	if rec.ISOCode != "" {
		info.CountryISOCode = model.Known(rec.ISOCode)
	}
	if name := countryName(rec); name != "" {
		info.CountryName = model.Known(name)
	}
	return info
}

// Close releases the datasets.
func (e *Enricher) Close() error {
	return e.closer()
}

// countryName prefers the dataset name and falls back to the English
// region name of the ISO code.
func countryName(rec Record) string {
	if rec.CountryName != "" {
		return rec.CountryName
	}
	if rec.ISOCode == "" {
		return ""
	}
	region, err := language.ParseRegion(rec.ISOCode)
	if err != nil {
		return ""
	}
	return display.English.Regions().Name(region)
}
