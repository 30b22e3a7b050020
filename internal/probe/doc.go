// Package probe implements the network probe stages run for every domain.
//
// Each stage is stateless and safe for concurrent use:
//   - DNSResolver issues A and AAAA queries with github.com/miekg/dns.
//   - TLSProber performs a full TLS handshake on port 443 and reports the
//     negotiated version, cipher suite and certificate issuer organization.
//   - Pinger measures one round trip with an ICMP echo, falling back to a
//     TCP connect when the host does not allow unprivileged ICMP sockets.
//
// Stages return plain errors. Turning an error into an Unknown field is the
// job of the pipeline, so the stages stay easy to test in isolation.
//
// Pool bounds how many blocking stage calls run at the same time. It is sized
// independently from the number of domains in flight.
package probe
