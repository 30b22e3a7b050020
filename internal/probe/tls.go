package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"
)

// DefaultTLSPort is the port the TLS stage connects to.
const DefaultTLSPort = "443"

// TLSInfo is what the TLS stage reports for one handshake.
type TLSInfo struct {
	// Version is the negotiated protocol version, e.g. "TLSv1.3".
	Version string

	// CipherSuite is the IANA name of the negotiated cipher suite.
	CipherSuite string

	// IssuerOrg is the first organization of the leaf certificate issuer.
	IssuerOrg string
}

// TLSProber performs a TLS handshake and inspects the session.
//
// The *tls.Config is built once and shared read-only by every handshake.
// The server name is set per connection by tls.Dialer from the dialed host.
type TLSProber struct {
	config  *tls.Config
	timeout time.Duration
	port    string
}

// TLSOption configures a TLSProber.
type TLSOption func(*TLSProber)

// WithTLSPort overrides the port the prober connects to.
func WithTLSPort(port string) TLSOption {
	return func(p *TLSProber) {
		p.port = port
	}
}

// WithRootCAs sets the certificate pool used to verify peers.
// By default the system pool is used.
func WithRootCAs(pool *x509.CertPool) TLSOption {
	return func(p *TLSProber) {
		p.config.RootCAs = pool
	}
}

// NewTLSProber creates a prober whose connect and handshake together are
// bounded by timeout.
func NewTLSProber(timeout time.Duration, opts ...TLSOption) *TLSProber {
	p := &TLSProber{
		config: &tls.Config{
			MinVersion: tls.VersionTLS10, //nolint:gosec // legacy hosts are reported, not trusted
		},
		timeout: timeout,
		port:    DefaultTLSPort,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Probe connects to domain, completes a handshake using domain as SNI and
// returns the session parameters. Any failure returns an error and a zero
// TLSInfo; partial data is never reported.
func (p *TLSProber) Probe(ctx context.Context, domain string) (TLSInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: p.timeout},
		Config:    p.config,
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(domain, p.port))
	if err != nil {
		return TLSInfo{}, fmt.Errorf("tls handshake with %s: %w", domain, err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return TLSInfo{}, fmt.Errorf("tls handshake with %s: unexpected connection type %T", domain, conn)
	}

	return inspectState(tlsConn.ConnectionState())
}

// inspectState extracts the three reported values from a finished handshake.
func inspectState(state tls.ConnectionState) (TLSInfo, error) {
	if len(state.PeerCertificates) == 0 {
		return TLSInfo{}, ErrNoPeerCertificate
	}

	orgs := state.PeerCertificates[0].Issuer.Organization
	if len(orgs) == 0 || orgs[0] == "" {
		return TLSInfo{}, ErrNoIssuerOrg
	}

	return TLSInfo{
		Version:     VersionName(state.Version),
		CipherSuite: tls.CipherSuiteName(state.CipherSuite),
		IssuerOrg:   orgs[0],
	}, nil
}

// VersionName returns the conventional name of a TLS protocol version,
// e.g. "TLSv1.2".
func VersionName(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLSv1"
	case tls.VersionTLS11:
		return "TLSv1.1"
	case tls.VersionTLS12:
		return "TLSv1.2"
	case tls.VersionTLS13:
		return "TLSv1.3"
	default:
		return fmt.Sprintf("0x%04X", version)
	}
}
