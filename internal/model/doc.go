// Package model defines the core data structures used throughout domainrecon.
//
// This package contains the following main types:
//   - Field: a tri-state value (present, explicit empty, unknown)
//   - ProbeResult: the merged record produced for one domain
//   - GeoInfo: network-ownership and country metadata for an IPv4 address
//   - RunSummary: accounting for one orchestrated run
//
// Every ProbeResult field is a Field. The zero value of a Field is Unknown,
// so a stage that never reports leaves its fields Unknown without any extra
// bookkeeping. Empty means the query succeeded and returned nothing; it is
// never produced by a failure.
package model
