package pipeline

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/nao1215/domainrecon/internal/model"
	"github.com/nao1215/domainrecon/internal/probe"
)

// fakeResolver returns fixed lookup outcomes.
type fakeResolver struct {
	a, aaaa       model.Field[[]netip.Addr]
	aErr, aaaaErr error
}

func (f *fakeResolver) LookupA(context.Context, string) (model.Field[[]netip.Addr], error) {
	return f.a, f.aErr
}

func (f *fakeResolver) LookupAAAA(context.Context, string) (model.Field[[]netip.Addr], error) {
	return f.aaaa, f.aaaaErr
}

// fakeTLS returns a fixed handshake outcome.
type fakeTLS struct {
	info probe.TLSInfo
	err  error
}

func (f *fakeTLS) Probe(context.Context, string) (probe.TLSInfo, error) {
	return f.info, f.err
}

// fakePinger returns a fixed round trip.
type fakePinger struct {
	rtt time.Duration
	err error
}

func (f *fakePinger) Ping(context.Context, string) (time.Duration, error) {
	return f.rtt, f.err
}

// TestDNSSteps tests the A and AAAA steps.
func TestDNSSteps(t *testing.T) {
	t.Parallel()

	t.Run("empty answer is kept empty", func(t *testing.T) {
		t.Parallel()

		r := &fakeResolver{a: model.Empty[[]netip.Addr]()}
		patch, err := NewDNSAStep(r).Do(context.Background(), "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		res := model.NewProbeResult("example.com")
		patch(&res)
		if !res.IPv4.IsEmpty() {
			t.Errorf("expected empty, got %s", res.IPv4.State())
		}
	})

	t.Run("aaaa records set ipv6 only", func(t *testing.T) {
		t.Parallel()

		r := &fakeResolver{aaaa: model.Known([]netip.Addr{netip.MustParseAddr("2001:db8::1")})}
		patch, err := NewDNSAAAAStep(r).Do(context.Background(), "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		res := model.NewProbeResult("example.com")
		patch(&res)
		if !res.IPv6.IsPresent() {
			t.Errorf("expected present, got %s", res.IPv6.State())
		}
		if !res.IPv4.IsUnknown() {
			t.Error("expected ipv4 untouched")
		}
	})

	t.Run("lookup error returns no patch", func(t *testing.T) {
		t.Parallel()

		r := &fakeResolver{aErr: errStage}
		patch, err := NewDNSAStep(r).Do(context.Background(), "example.com")
		if !errors.Is(err, errStage) {
			t.Errorf("expected errStage, got %v", err)
		}
		if patch != nil {
			t.Error("expected nil patch")
		}
	})
}

// TestTLSStep tests the TLS step.
func TestTLSStep(t *testing.T) {
	t.Parallel()

	t.Run("sets all three fields", func(t *testing.T) {
		t.Parallel()

		s := NewTLSStep(&fakeTLS{info: probe.TLSInfo{
			Version:     "TLSv1.2",
			CipherSuite: "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256",
			IssuerOrg:   "DigiCert Inc",
		}})
		patch, err := s.Do(context.Background(), "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		res := model.NewProbeResult("example.com")
		patch(&res)
		if v, _ := res.TLSVersion.Get(); v != "TLSv1.2" {
			t.Errorf("unexpected version %q", v)
		}
		if v, _ := res.CertIssuerOrg.Get(); v != "DigiCert Inc" {
			t.Errorf("unexpected issuer %q", v)
		}
	})

	t.Run("missing issuer reports nothing", func(t *testing.T) {
		t.Parallel()

		s := NewTLSStep(&fakeTLS{err: probe.ErrNoIssuerOrg})
		patch, err := s.Do(context.Background(), "example.com")
		if !errors.Is(err, probe.ErrNoIssuerOrg) {
			t.Errorf("expected ErrNoIssuerOrg, got %v", err)
		}
		if patch != nil {
			t.Error("expected nil patch")
		}
	})
}

// TestLatencyStep tests the latency step.
func TestLatencyStep(t *testing.T) {
	t.Parallel()

	s := NewLatencyStep(&fakePinger{rtt: 2500 * time.Microsecond})
	patch, err := s.Do(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := model.NewProbeResult("example.com")
	patch(&res)
	if v, _ := res.LatencyMs.Get(); v != 2.5 {
		t.Errorf("expected 2.5ms, got %v", v)
	}
}

// TestNewStandard tests the standard stage layout.
func TestNewStandard(t *testing.T) {
	t.Parallel()

	stages := Stages{
		Resolver: &fakeResolver{
			a:    model.Known([]netip.Addr{netip.MustParseAddr("192.0.2.1")}),
			aaaa: model.Empty[[]netip.Addr](),
		},
		TLS:     &fakeTLS{err: errStage},
		Latency: &fakePinger{rtt: time.Millisecond},
	}
	timeouts := Timeouts{DNS: time.Second, TLS: time.Second, Latency: time.Second}

	p := NewStandard(stages, timeouts, nil, WithPool(probe.NewPool(2)))

	want := []string{StageDNSA, StageDNSAAAA, StageTLS, StageLatency}
	got := p.StepNames()
	if len(got) != len(want) {
		t.Fatalf("expected %d steps, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if p.stages[0].blocking || !p.stages[2].blocking || !p.stages[3].blocking {
		t.Error("expected tls and latency to be blocking, dns not")
	}

	res, err := p.Probe(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IPv4.IsPresent() || !res.IPv6.IsEmpty() || !res.LatencyMs.IsPresent() {
		t.Errorf("unexpected result: %+v", res)
	}
	if !res.TLSVersion.IsUnknown() {
		t.Error("expected tls unknown")
	}
}
