// Package geo enriches IPv4 addresses with ownership and country data and
// keeps the local GeoLite2 datasets up to date.
//
// Lookups read two MaxMind databases from the data directory:
// GeoLite2-ASN.mmdb for the autonomous system and GeoLite2-City.mmdb for the
// registered country. An address missing from the datasets is not an error;
// it yields a GeoInfo whose four fields are Unknown.
//
// Updater downloads fresh copies of the databases from the latest release of
// a GitHub repository.
package geo
