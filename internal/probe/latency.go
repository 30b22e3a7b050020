package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// Protocol numbers used by icmp.ParseMessage.
const (
	protocolICMP     = 1
	protocolIPv6ICMP = 58
)

// LatencyMode selects how the round trip is measured.
type LatencyMode string

const (
	// LatencyAuto uses ICMP and falls back to TCP when no ICMP socket can
	// be opened.
	LatencyAuto LatencyMode = "auto"

	// LatencyICMP only uses ICMP echo.
	LatencyICMP LatencyMode = "icmp"

	// LatencyTCP times a TCP connect to the fallback port.
	LatencyTCP LatencyMode = "tcp"
)

// echoPayload is sent in every echo request.
var echoPayload = []byte("domainrecon-latency")

// Pinger measures one round trip to a host.
type Pinger struct {
	timeout  time.Duration
	mode     LatencyMode
	tcpPort  string
	resolver *net.Resolver
	seq      atomic.Uint32
}

// PingerOption configures a Pinger.
type PingerOption func(*Pinger)

// WithLatencyMode sets the measuring mode. Default is LatencyAuto.
func WithLatencyMode(mode LatencyMode) PingerOption {
	return func(p *Pinger) {
		p.mode = mode
	}
}

// WithFallbackPort sets the port used by TCP connect timing.
func WithFallbackPort(port string) PingerOption {
	return func(p *Pinger) {
		p.tcpPort = port
	}
}

// WithHostResolver sets the resolver used to find the address to ping.
func WithHostResolver(r *net.Resolver) PingerOption {
	return func(p *Pinger) {
		p.resolver = r
	}
}

// NewPinger creates a Pinger bounded by timeout per measurement.
func NewPinger(timeout time.Duration, opts ...PingerOption) *Pinger {
	p := &Pinger{
		timeout:  timeout,
		mode:     LatencyAuto,
		tcpPort:  DefaultTLSPort,
		resolver: net.DefaultResolver,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Ping resolves host and returns one round-trip time.
// IPv4 addresses are preferred over IPv6.
func (p *Pinger) Ping(ctx context.Context, host string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	addr, err := p.resolve(ctx, host)
	if err != nil {
		return 0, err
	}

	switch p.mode {
	case LatencyTCP:
		return p.connect(ctx, addr)
	case LatencyICMP:
		return p.echo(ctx, addr)
	default:
		rtt, err := p.echo(ctx, addr)
		if errors.Is(err, ErrICMPUnavailable) {
			return p.connect(ctx, addr)
		}
		return rtt, err
	}
}

func (p *Pinger) resolve(ctx context.Context, host string) (netip.Addr, error) {
	addrs, err := p.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, fmt.Errorf("%w: %s", ErrNoAddress, host)
	}

	for _, a := range addrs {
		if a.Unmap().Is4() {
			return a.Unmap(), nil
		}
	}
	return addrs[0], nil
}

// echo sends one ICMP echo request over an unprivileged datagram socket.
// The kernel rewrites the echo identifier on such sockets, so replies are
// matched on the sequence number only.
func (p *Pinger) echo(ctx context.Context, addr netip.Addr) (time.Duration, error) {
	network, listen, proto := "udp4", "0.0.0.0", protocolICMP
	var reqType, replyType icmp.Type = ipv4.ICMPTypeEcho, ipv4.ICMPTypeEchoReply
	if addr.Is6() {
		network, listen, proto = "udp6", "::", protocolIPv6ICMP
		reqType, replyType = ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply
	}

	conn, err := icmp.ListenPacket(network, listen)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrICMPUnavailable, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return 0, err
		}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now()) //nolint:errcheck // unblocks ReadFrom
	})
	defer stop()

	seq := int(p.seq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: reqType,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  seq,
			Data: echoPayload,
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return 0, err
	}

	dst := &net.UDPAddr{IP: addr.AsSlice(), Zone: addr.Zone()}
	start := time.Now()
	if _, err := conn.WriteTo(wb, dst); err != nil {
		return 0, fmt.Errorf("echo to %s: %w", addr, err)
	}

	rb := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(rb)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, fmt.Errorf("echo to %s: %w", addr, ctxErr)
			}
			return 0, fmt.Errorf("echo to %s: %w", addr, err)
		}

		reply, err := icmp.ParseMessage(proto, rb[:n])
		if err != nil || reply.Type != replyType {
			continue
		}
		if body, ok := reply.Body.(*icmp.Echo); ok && body.Seq == seq {
			return time.Since(start), nil
		}
	}
}

// connect times a TCP handshake to the fallback port.
func (p *Pinger) connect(ctx context.Context, addr netip.Addr) (time.Duration, error) {
	var d net.Dialer

	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", netip.AddrPortFrom(addr, portNumber(p.tcpPort)).String())
	if err != nil {
		return 0, fmt.Errorf("connect to %s: %w", addr, err)
	}
	rtt := time.Since(start)
	_ = conn.Close() //nolint:errcheck // measurement already taken

	return rtt, nil
}

// Milliseconds converts a duration to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func portNumber(port string) uint16 {
	p, err := net.LookupPort("tcp", port)
	if err != nil || p < 0 || p > 0xffff {
		return 443
	}
	return uint16(p)
}
