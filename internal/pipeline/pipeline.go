package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"github.com/nao1215/domainrecon/internal/model"
	"github.com/nao1215/domainrecon/internal/probe"
)

// Patch applies the outcome of one stage to a result.
// A patch must only touch the fields its stage owns.
type Patch func(result *model.ProbeResult)

// Step defines the interface that all probe stages must implement.
//
// Do performs the stage for domain and returns the patch to apply. An error
// means the stage could not determine its fields; the pipeline then leaves
// them Unknown. Steps must not share mutable state with other steps.
type Step interface {
	// Do executes the stage.
	Do(ctx context.Context, domain string) (Patch, error)

	// Name returns the stage name for logging and metrics.
	Name() string
}

// Enricher adds ownership and country data for an IPv4 address.
type Enricher interface {
	Enrich(addr netip.Addr) model.GeoInfo
}

// stage is a Step together with how the pipeline runs it.
type stage struct {
	step     Step
	timeout  time.Duration
	blocking bool
}

// StepOption configures how a step is run.
type StepOption func(*stage)

// WithStepTimeout bounds the step call. The bound starts when the call
// starts, not while it waits for a worker.
func WithStepTimeout(d time.Duration) StepOption {
	return func(s *stage) {
		s.timeout = d
	}
}

// Blocking dispatches the step to the pipeline's worker pool.
func Blocking() StepOption {
	return func(s *stage) {
		s.blocking = true
	}
}

// Pipeline probes one domain with a set of stages.
// A Pipeline is safe for concurrent use once all steps have been added.
type Pipeline struct {
	// stages contains the stages in the order their patches are applied.
	stages []stage

	// pool bounds blocking stage calls across every domain.
	pool *probe.Pool

	// enricher is consulted with the first IPv4 address, if any.
	enricher Enricher

	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithPool sets the worker pool used by blocking steps.
// Without a pool, blocking steps run directly in their own goroutine.
func WithPool(pool *probe.Pool) Option {
	return func(p *Pipeline) {
		p.pool = pool
	}
}

// WithEnricher sets the geo enrichment lookup.
func WithEnricher(e Enricher) Option {
	return func(p *Pipeline) {
		p.enricher = e
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: make([]stage, 0),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step, opts ...StepOption) {
	s := stage{step: step}
	for _, opt := range opts {
		opt(&s)
	}
	p.stages = append(p.stages, s)
}

// Probe runs every stage for domain and merges their outcomes.
//
// Stage failures never fail the probe: they leave the stage's fields
// Unknown. The only error returned is ctx.Err() when ctx is done before all
// stages have settled; the stages still running are abandoned and their
// outcomes dropped.
func (p *Pipeline) Probe(ctx context.Context, domain string) (model.ProbeResult, error) {
	result := model.NewProbeResult(domain)

	type settled struct {
		index int
		patch Patch
	}
	// Buffered so abandoned stages can always deliver and exit.
	ch := make(chan settled, len(p.stages))

	for i, s := range p.stages {
		go func() {
			ch <- settled{index: i, patch: p.runStage(ctx, domain, s)}
		}()
	}

	patches := make([]Patch, len(p.stages))
	for range p.stages {
		select {
		case s := <-ch:
			patches[s.index] = s.patch
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	for _, patch := range patches {
		if patch != nil {
			patch(&result)
		}
	}

	if p.enricher != nil {
		if addr, ok := result.FirstIPv4(); ok {
			result = result.WithGeo(p.enricher.Enrich(addr))
		}
	}

	result.ScannedAt = p.now()
	return result, nil
}

// runStage runs one stage and returns its patch, or nil when it failed.
func (p *Pipeline) runStage(ctx context.Context, domain string, s stage) Patch {
	name := s.step.Name()

	// A cancelled task starts no new stage.
	if ctx.Err() != nil {
		p.recorder.ObserveStage(name, OutcomeCancelled, 0)
		return nil
	}

	call := func(ctx context.Context) (timedPatch, error) {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		start := time.Now()
		patch, err := s.step.Do(ctx, domain)
		return timedPatch{patch: patch, elapsed: time.Since(start)}, err
	}

	var (
		out timedPatch
		err error
	)
	if s.blocking && p.pool != nil {
		out, err = probe.Run(ctx, p.pool, call)
	} else {
		out, err = call(ctx)
	}

	if err != nil {
		outcome := OutcomeError
		switch {
		case ctx.Err() != nil:
			outcome = OutcomeCancelled
		case errors.Is(err, context.DeadlineExceeded):
			outcome = OutcomeTimeout
		}
		p.logger.Debug("stage failed",
			"domain", domain,
			"stage", name,
			"outcome", outcome,
			"error", err,
		)
		p.recorder.ObserveStage(name, outcome, out.elapsed)
		return nil
	}

	p.recorder.ObserveStage(name, OutcomeOK, out.elapsed)
	return out.patch
}

// timedPatch carries a stage outcome out of a worker goroutine.
type timedPatch struct {
	patch   Patch
	elapsed time.Duration
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.stages)
}

// StepNames returns the names of all steps in the order they are applied.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.step.Name()
	}
	return names
}
