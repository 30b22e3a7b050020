package probe

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/nao1215/domainrecon/internal/model"
)

// ResolvConfPath is where system resolvers are read from.
const ResolvConfPath = "/etc/resolv.conf"

// DefaultServers is used when no server is configured and the system
// resolver configuration cannot be read.
var DefaultServers = []string{
	"1.1.1.1:53",
	"8.8.8.8:53",
	"1.0.0.1:53",
	"8.8.4.4:53",
}

// DNSResolver queries A and AAAA records.
// A single DNSResolver is shared by every pipeline; it holds no per-query
// state and is safe for concurrent use.
type DNSResolver struct {
	servers []string
	timeout time.Duration
	udp     *dns.Client
	tcp     *dns.Client
}

// NewDNSResolver creates a resolver asking servers in order.
// Servers without a port get port 53. An empty list means SystemServers.
func NewDNSResolver(servers []string, timeout time.Duration) *DNSResolver {
	if len(servers) == 0 {
		servers = SystemServers(ResolvConfPath)
	}

	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		normalized = append(normalized, withDefaultPort(s, "53"))
	}

	return &DNSResolver{
		servers: normalized,
		timeout: timeout,
		udp:     &dns.Client{Net: "udp", Timeout: timeout},
		tcp:     &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

// SystemServers returns the name servers listed in a resolv.conf file,
// or DefaultServers when the file cannot be read or lists none.
func SystemServers(path string) []string {
	cfg, err := dns.ClientConfigFromFile(path)
	if err != nil || len(cfg.Servers) == 0 {
		return append([]string(nil), DefaultServers...)
	}

	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return servers
}

// Servers returns the servers the resolver asks, in order.
func (r *DNSResolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

// LookupA resolves the IPv4 addresses of domain.
func (r *DNSResolver) LookupA(ctx context.Context, domain string) (model.Field[[]netip.Addr], error) {
	return r.lookup(ctx, domain, dns.TypeA)
}

// LookupAAAA resolves the IPv6 addresses of domain.
func (r *DNSResolver) LookupAAAA(ctx context.Context, domain string) (model.Field[[]netip.Addr], error) {
	return r.lookup(ctx, domain, dns.TypeAAAA)
}

// lookup returns a present field for one or more records, an empty field
// for NOERROR without records or NXDOMAIN, and an unknown field with an
// error otherwise.
func (r *DNSResolver) lookup(ctx context.Context, domain string, qtype uint16) (model.Field[[]netip.Addr], error) {
	resp, err := r.exchange(ctx, domain, qtype)
	if err != nil {
		return model.Unknown[[]netip.Addr](), err
	}

	switch resp.Rcode {
	case dns.RcodeNameError:
		return model.Empty[[]netip.Addr](), nil
	case dns.RcodeSuccess:
	default:
		return model.Unknown[[]netip.Addr](), fmt.Errorf("%w: %s %s: %s",
			ErrDNSResponse, dns.TypeToString[qtype], domain, dns.RcodeToString[resp.Rcode])
	}

	addrs := extractAddrs(resp.Answer, qtype)
	if len(addrs) == 0 {
		return model.Empty[[]netip.Addr](), nil
	}
	return model.Known(addrs), nil
}

// exchange sends the query to each server in turn until one answers.
// A truncated UDP answer is repeated over TCP against the same server.
func (r *DNSResolver) exchange(ctx context.Context, domain string, qtype uint16) (*dns.Msg, error) {
	if len(r.servers) == 0 {
		return nil, ErrNoServers
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := r.exchangeOne(ctx, msg, server)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%s %s: %w", dns.TypeToString[qtype], domain, lastErr)
}

func (r *DNSResolver) exchangeOne(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, _, err := r.udp.ExchangeContext(qctx, msg, server)
	if err != nil {
		return nil, err
	}
	if resp.Truncated {
		resp, _, err = r.tcp.ExchangeContext(qctx, msg, server)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// extractAddrs keeps the answer order and skips CNAMEs and other types.
func extractAddrs(answer []dns.RR, qtype uint16) []netip.Addr {
	addrs := make([]netip.Addr, 0, len(answer))
	for _, rr := range answer {
		var ip net.IP
		switch v := rr.(type) {
		case *dns.A:
			if qtype != dns.TypeA {
				continue
			}
			ip = v.A
		case *dns.AAAA:
			if qtype != dns.TypeAAAA {
				continue
			}
			ip = v.AAAA
		default:
			continue
		}

		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			continue
		}
		if qtype == dns.TypeA {
			addr = addr.Unmap()
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

// withDefaultPort appends port to host when it has none.
func withDefaultPort(server, port string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), port)
}
