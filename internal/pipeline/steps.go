package pipeline

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	"github.com/nao1215/domainrecon/internal/model"
	"github.com/nao1215/domainrecon/internal/probe"
)

// Stage names used in logs and metrics.
const (
	StageDNSA    = "dns_a"
	StageDNSAAAA = "dns_aaaa"
	StageTLS     = "tls"
	StageLatency = "latency"
)

// DNSLookup resolves address records. probe.DNSResolver implements it.
type DNSLookup interface {
	LookupA(ctx context.Context, domain string) (model.Field[[]netip.Addr], error)
	LookupAAAA(ctx context.Context, domain string) (model.Field[[]netip.Addr], error)
}

// TLSInspector performs a TLS handshake. probe.TLSProber implements it.
type TLSInspector interface {
	Probe(ctx context.Context, domain string) (probe.TLSInfo, error)
}

// LatencyProber measures a round trip. probe.Pinger implements it.
type LatencyProber interface {
	Ping(ctx context.Context, host string) (time.Duration, error)
}

// DNSAStep resolves the IPv4 addresses of a domain.
type DNSAStep struct {
	resolver DNSLookup
}

// NewDNSAStep creates a new A record step.
func NewDNSAStep(resolver DNSLookup) *DNSAStep {
	return &DNSAStep{resolver: resolver}
}

// Name returns the step name.
func (s *DNSAStep) Name() string { return StageDNSA }

// Do sets IPv4 to the lookup result, which may be explicitly empty.
func (s *DNSAStep) Do(ctx context.Context, domain string) (Patch, error) {
	f, err := s.resolver.LookupA(ctx, domain)
	if err != nil {
		return nil, err
	}
	return func(r *model.ProbeResult) { r.IPv4 = f }, nil
}

// DNSAAAAStep resolves the IPv6 addresses of a domain.
type DNSAAAAStep struct {
	resolver DNSLookup
}

// NewDNSAAAAStep creates a new AAAA record step.
func NewDNSAAAAStep(resolver DNSLookup) *DNSAAAAStep {
	return &DNSAAAAStep{resolver: resolver}
}

// Name returns the step name.
func (s *DNSAAAAStep) Name() string { return StageDNSAAAA }

// Do sets IPv6 to the lookup result, which may be explicitly empty.
func (s *DNSAAAAStep) Do(ctx context.Context, domain string) (Patch, error) {
	f, err := s.resolver.LookupAAAA(ctx, domain)
	if err != nil {
		return nil, err
	}
	return func(r *model.ProbeResult) { r.IPv6 = f }, nil
}

// TLSStep inspects the TLS session of a domain.
// The three TLS fields are set together or not at all.
type TLSStep struct {
	inspector TLSInspector
}

// NewTLSStep creates a new TLS handshake step.
func NewTLSStep(inspector TLSInspector) *TLSStep {
	return &TLSStep{inspector: inspector}
}

// Name returns the step name.
func (s *TLSStep) Name() string { return StageTLS }

// Do performs the handshake.
func (s *TLSStep) Do(ctx context.Context, domain string) (Patch, error) {
	info, err := s.inspector.Probe(ctx, domain)
	if err != nil {
		return nil, err
	}
	return func(r *model.ProbeResult) {
		r.TLSVersion = model.Known(info.Version)
		r.CipherSuite = model.Known(info.CipherSuite)
		r.CertIssuerOrg = model.Known(info.IssuerOrg)
	}, nil
}

// LatencyStep measures one round trip to a domain.
type LatencyStep struct {
	prober LatencyProber
}

// NewLatencyStep creates a new latency step.
func NewLatencyStep(prober LatencyProber) *LatencyStep {
	return &LatencyStep{prober: prober}
}

// Name returns the step name.
func (s *LatencyStep) Name() string { return StageLatency }

// Do measures the round trip in milliseconds.
func (s *LatencyStep) Do(ctx context.Context, domain string) (Patch, error) {
	rtt, err := s.prober.Ping(ctx, domain)
	if err != nil {
		return nil, err
	}
	ms := probe.Milliseconds(rtt)
	return func(r *model.ProbeResult) { r.LatencyMs = model.Known(ms) }, nil
}

// Timeouts holds the per-stage time budgets.
type Timeouts struct {
	DNS     time.Duration
	TLS     time.Duration
	Latency time.Duration
}

// Stages groups the collaborators of the standard pipeline.
type Stages struct {
	Resolver DNSLookup
	TLS      TLSInspector
	Latency  LatencyProber
}

// NewStandard builds the pipeline used by scans: A and AAAA lookups run
// directly, the TLS handshake and the latency probe run on the worker pool.
func NewStandard(stages Stages, timeouts Timeouts, logger *slog.Logger, opts ...Option) *Pipeline {
	p := New(append([]Option{WithLogger(logger)}, opts...)...)

	p.AddStep(NewDNSAStep(stages.Resolver), WithStepTimeout(timeouts.DNS))
	p.AddStep(NewDNSAAAAStep(stages.Resolver), WithStepTimeout(timeouts.DNS))
	p.AddStep(NewTLSStep(stages.TLS), WithStepTimeout(timeouts.TLS), Blocking())
	p.AddStep(NewLatencyStep(stages.Latency), WithStepTimeout(timeouts.Latency), Blocking())

	return p
}
