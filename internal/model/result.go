package model

import (
	"net/netip"
	"strconv"
	"strings"
	"time"
)

// ProbeResult is the merged record for one domain.
// It is produced once by the per-domain pipeline and then handed to the
// result sink by value; nothing mutates it afterwards.
//
// Design decision: every probe field is a Field so that "the query returned
// nothing" (Empty) and "the query failed" (Unknown) never collapse into the
// same representation, in memory, in JSON, or in the database.
type ProbeResult struct {
	// Domain is the probed host name. It is the primary key in storage.
	Domain string `json:"domain"`

	// IPv4 holds the A records in the order the resolver returned them.
	IPv4 Field[[]netip.Addr] `json:"ipv4"`

	// IPv6 holds the AAAA records in the order the resolver returned them.
	IPv6 Field[[]netip.Addr] `json:"ipv6"`

	// TLSVersion is the negotiated protocol version, e.g. "TLSv1.3".
	TLSVersion Field[string] `json:"tls_version"`

	// CipherSuite is the negotiated cipher suite name.
	CipherSuite Field[string] `json:"cipher_suite"`

	// CertIssuerOrg is the first issuer organization of the leaf certificate.
	CertIssuerOrg Field[string] `json:"cert_issuer_org"`

	// LatencyMs is the round-trip time of one echo probe in milliseconds.
	LatencyMs Field[float64] `json:"latency_ms"`

	// ASN is the autonomous system number of the first IPv4 address.
	ASN Field[uint] `json:"asn"`

	// ASNOrg is the organization owning ASN.
	ASNOrg Field[string] `json:"asn_org"`

	// CountryISOCode is the registered country ISO 3166-1 alpha-2 code.
	CountryISOCode Field[string] `json:"country_iso_code"`

	// CountryName is the English name of the registered country.
	CountryName Field[string] `json:"country_name"`

	// ScannedAt is when the pipeline finished assembling this record.
	ScannedAt time.Time `json:"scanned_at"`
}

// NewProbeResult returns a result for domain with every field Unknown.
func NewProbeResult(domain string) ProbeResult {
	return ProbeResult{Domain: domain}
}

// FirstIPv4 returns the first resolved IPv4 address, if any.
// Enrichment is keyed on this address, so the choice must be deterministic.
func (r ProbeResult) FirstIPv4() (netip.Addr, bool) {
	addrs, ok := r.IPv4.Get()
	if !ok || len(addrs) == 0 {
		return netip.Addr{}, false
	}
	return addrs[0], true
}

// WithGeo returns a copy of r with the four geo fields taken from g.
func (r ProbeResult) WithGeo(g GeoInfo) ProbeResult {
	r.ASN = g.ASN
	r.ASNOrg = g.ASNOrg
	r.CountryISOCode = g.CountryISOCode
	r.CountryName = g.CountryName
	return r
}

// TLSComplete reports whether all three TLS fields are present.
// The TLS stage reports all of them or none of them.
func (r ProbeResult) TLSComplete() bool {
	return r.TLSVersion.IsPresent() && r.CipherSuite.IsPresent() && r.CertIssuerOrg.IsPresent()
}

// JoinAddrs renders addresses as a comma-joined string, the storage format
// for the ipv4 and ipv6 columns.
func JoinAddrs(addrs []netip.Addr) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}

// SplitAddrs parses the storage format written by JoinAddrs.
// An empty string yields an empty, non-nil slice.
func SplitAddrs(s string) ([]netip.Addr, error) {
	if s == "" {
		return []netip.Addr{}, nil
	}
	parts := strings.Split(s, ",")
	addrs := make([]netip.Addr, 0, len(parts))
	for _, p := range parts {
		a, err := netip.ParseAddr(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}

// FormatLatency renders a millisecond value with four significant digits.
func FormatLatency(ms float64) string {
	return strconv.FormatFloat(ms, 'g', 4, 64)
}
