// Package main provides the entry point for the domainrecon CLI.
//
// domainrecon probes a list of domains concurrently: it resolves their A and
// AAAA records, inspects their TLS handshake, measures latency and enriches
// the first IPv4 address with ASN and country data. Results are stored in a
// local SQLite database and exported as CSV.
//
// Usage:
//
//	domainrecon scan <domain-file>
//	domainrecon show
//	domainrecon export
//
// See --help for all available options.
package main

// main is the entry point for domainrecon.
func main() {
	Execute()
}
