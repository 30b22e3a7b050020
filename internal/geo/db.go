package geo

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"path/filepath"

	"github.com/oschwald/geoip2-golang"
)

// Dataset file names in the data directory.
const (
	ASNDatabase     = "GeoLite2-ASN.mmdb"
	CityDatabase    = "GeoLite2-City.mmdb"
	CountryDatabase = "GeoLite2-Country.mmdb"
)

// Record is the raw lookup result for one address.
// Zero values mean the dataset had no data for that attribute.
type Record struct {
	ASN         uint
	ASNOrg      string
	ISOCode     string
	CountryName string
}

// Lookuper finds the Record of an address. It returns ErrNotFound when the
// address is not in the datasets.
type Lookuper interface {
	Lookup(addr netip.Addr) (Record, error)
}

// DB reads the ASN and City datasets. It is safe for concurrent use.
type DB struct {
	asn  *geoip2.Reader
	city *geoip2.Reader
}

// Open opens both datasets in dir.
func Open(dir string) (*DB, error) {
	asn, err := geoip2.Open(filepath.Join(dir, ASNDatabase))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", ASNDatabase, err)
	}

	city, err := geoip2.Open(filepath.Join(dir, CityDatabase))
	if err != nil {
		_ = asn.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to open %s: %w", CityDatabase, err)
	}

	return &DB{asn: asn, city: city}, nil
}

// Lookup returns the Record for an IPv4 address.
// An address present in neither dataset yields ErrNotFound.
func (db *DB) Lookup(addr netip.Addr) (Record, error) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return Record{}, ErrNotIPv4
	}
	ip := net.IP(addr.AsSlice())

	asn, err := db.asn.ASN(ip)
	if err != nil {
		return Record{}, fmt.Errorf("asn lookup %s: %w", addr, err)
	}
	city, err := db.city.City(ip)
	if err != nil {
		return Record{}, fmt.Errorf("city lookup %s: %w", addr, err)
	}

	rec := Record{
		ASN:         asn.AutonomousSystemNumber,
		ASNOrg:      asn.AutonomousSystemOrganization,
		ISOCode:     city.RegisteredCountry.IsoCode,
		CountryName: city.RegisteredCountry.Names["en"],
	}
	if rec == (Record{}) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Close closes both datasets.
func (db *DB) Close() error {
	return errors.Join(db.asn.Close(), db.city.Close())
}

// nopDB is used when the datasets are not installed.
type nopDB struct{}

func (nopDB) Lookup(netip.Addr) (Record, error) { return Record{}, ErrNotFound }
