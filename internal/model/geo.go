package model

// GeoInfo is the enrichment record for one IPv4 address.
type GeoInfo struct {
	ASN            Field[uint]
	ASNOrg         Field[string]
	CountryISOCode Field[string]
	CountryName    Field[string]
}

// UnknownGeo returns a GeoInfo with all four fields Unknown.
// It is used when no IPv4 address exists or the address is not in the dataset.
func UnknownGeo() GeoInfo {
	return GeoInfo{}
}
