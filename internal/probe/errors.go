package probe

import "errors"

var (
	// ErrNoIssuerOrg is returned when the peer certificate carries no issuer
	// organization attribute. The TLS stage reports nothing in that case.
	ErrNoIssuerOrg = errors.New("certificate has no issuer organization")

	// ErrNoPeerCertificate is returned when the handshake completed without
	// a peer certificate.
	ErrNoPeerCertificate = errors.New("no peer certificate")

	// ErrDNSResponse is returned for DNS answers that are neither a record
	// set nor a definitive "no such record" (SERVFAIL, REFUSED, ...).
	ErrDNSResponse = errors.New("unusable dns response")

	// ErrNoServers is returned when the resolver has no server to ask.
	ErrNoServers = errors.New("no dns servers configured")

	// ErrNoAddress is returned by the latency stage when the host name does
	// not resolve to any address.
	ErrNoAddress = errors.New("host has no address")

	// ErrICMPUnavailable is returned when an ICMP socket cannot be opened.
	ErrICMPUnavailable = errors.New("icmp socket unavailable")
)
