package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/domainrecon/internal/model"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultLimit is the number of domains probed at the same time when no
// limit is configured.
const DefaultLimit = 100

// Prober probes one domain. *Pipeline implements it.
//
// Probe must return ctx.Err() promptly once ctx is done; any other outcome
// is reported through the result fields.
type Prober interface {
	Probe(ctx context.Context, domain string) (model.ProbeResult, error)
}

// ProgressFunc is called each time a result is emitted, with the number of
// results emitted so far and the number of submitted domains. Calls are
// serialized and done is strictly increasing. It must not block.
type ProgressFunc func(done, total int)

// Orchestrator probes many domains under a concurrency limit.
//
// An Orchestrator can start any number of runs; each Run owns its own gate
// and Scope, so nothing leaks from one run to the next.
type Orchestrator struct {
	prober   Prober
	limit    int
	limiter  *rate.Limiter
	progress ProgressFunc
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLimit sets the maximum number of domains probed at the same time.
// Non-positive values are ignored.
func WithLimit(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithStartRate limits how many domain probes start per second.
// Zero or negative means unlimited.
func WithStartRate(perSecond float64) OrchestratorOption {
	return func(o *Orchestrator) {
		if perSecond > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) OrchestratorOption {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// WithTaskRecorder sets the metrics recorder for task lifecycle events.
func WithTaskRecorder(r Recorder) OrchestratorOption {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithOrchestratorLogger sets a custom logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates a new Orchestrator around prober.
func NewOrchestrator(prober Prober, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		prober: prober,
		limit:  DefaultLimit,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	if o.progress == nil {
		o.progress = func(int, int) {}
	}

	return o
}

// Limit returns the concurrency limit.
func (o *Orchestrator) Limit() int {
	return o.limit
}

// Run is one execution of an Orchestrator over a list of domains.
type Run struct {
	id      string
	scope   *Scope
	owner   TaskID
	results chan model.ProbeResult
	done    chan struct{}

	// summary is written once before done is closed.
	summary model.RunSummary
}

// Start submits one task per domain and returns immediately.
//
// The caller becomes the run owner: it is protected in the run's Scope and
// is expected to drain Results until the channel is closed. Results arrive
// in completion order. Cancelling ctx has the same effect as shutting the
// scope down with the context error as reason.
func (o *Orchestrator) Start(ctx context.Context, domains []string) *Run {
	r := &Run{
		id:    uuid.NewString(),
		scope: NewScope(),
		// One slot per domain, so emitting never blocks a task.
		results: make(chan model.ProbeResult, len(domains)),
		done:    make(chan struct{}),
	}
	r.summary = model.RunSummary{
		RunID:     r.id,
		Submitted: len(domains),
		StartedAt: o.now(),
	}

	ownerCtx, ownerCancel := context.WithCancel(ctx)
	r.owner = r.scope.Add(ownerCancel)
	r.scope.Protect(r.owner)

	gate := semaphore.NewWeighted(int64(o.limit))
	total := len(domains)

	o.logger.Info("starting run",
		"run_id", r.id,
		"domains", total,
		"limit", o.limit,
	)

	var wg sync.WaitGroup
	for _, domain := range domains {
		taskCtx, cancel := context.WithCancel(ownerCtx)
		id := r.scope.Add(cancel)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			o.runTask(taskCtx, r, gate, id, domain, total)
		}()
	}

	// Parent cancellation is a shutdown request.
	go func() {
		select {
		case <-ctx.Done():
			cancelled, active := r.scope.Shutdown(ctx.Err().Error())
			o.logger.Warn("run context done",
				"run_id", r.id,
				"reason", ctx.Err(),
				"cancelled", cancelled,
				"active", active,
			)
		case <-r.done:
		}
	}()

	go func() {
		wg.Wait()
		// Tasks may all have observed ctx before the watcher did.
		if err := ctx.Err(); err != nil {
			r.scope.Shutdown(err.Error())
		}
		r.finish(o.now())
		ownerCancel()
		o.logger.Info("run finished",
			"run_id", r.id,
			"completed", r.summary.Completed,
			"cancelled", r.summary.Cancelled,
			"elapsed", r.summary.Elapsed(),
		)
	}()

	return r
}

// runTask holds a gate permit from before the first stage until the task
// has been finalized.
func (o *Orchestrator) runTask(ctx context.Context, r *Run, gate *semaphore.Weighted, id TaskID, domain string, total int) {
	if err := gate.Acquire(ctx, 1); err != nil {
		r.scope.Abandon(id)
		return
	}
	defer gate.Release(1)

	o.recorder.TaskStarted()

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			r.scope.Abandon(id)
			o.recorder.TaskFinished(OutcomeCancelled)
			return
		}
	}

	result, err := o.prober.Probe(ctx, domain)
	if err != nil {
		o.logger.Debug("task cancelled",
			"run_id", r.id,
			"domain", domain,
			"error", err,
		)
		r.scope.Abandon(id)
		o.recorder.TaskFinished(OutcomeCancelled)
		return
	}

	emitted := r.scope.Complete(id, func(done int) {
		r.results <- result
		o.progress(done, total)
	})
	if !emitted {
		o.logger.Debug("discarding result of cancelled task",
			"run_id", r.id,
			"domain", domain,
		)
		o.recorder.TaskFinished(OutcomeCancelled)
		return
	}
	o.recorder.TaskFinished(OutcomeCompleted)
}

// finish records the summary and closes the result stream.
func (r *Run) finish(at time.Time) {
	_, completed, cancelled := r.scope.Counts()
	reason, interrupted := r.scope.ShutdownReason()

	r.summary.Completed = completed
	r.summary.Cancelled = cancelled
	r.summary.Interrupted = interrupted
	r.summary.Reason = reason
	r.summary.FinishedAt = at

	r.scope.Release(r.owner)
	close(r.results)
	close(r.done)
}

// ID returns the run identifier.
func (r *Run) ID() string {
	return r.id
}

// Results returns the completion-ordered result stream.
// It is closed once every task has been finalized.
func (r *Run) Results() <-chan model.ProbeResult {
	return r.results
}

// Scope returns the cancellation scope of the run.
func (r *Run) Scope() *Scope {
	return r.scope
}

// Owner returns the protected task that represents the run owner.
func (r *Run) Owner() TaskID {
	return r.owner
}

// Shutdown cancels every outstanding task of the run.
// It does not wait for them; drain Results to observe the end of the run.
func (r *Run) Shutdown(reason string) (cancelled, total int) {
	return r.scope.Shutdown(reason)
}

// Done is closed once the run has finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run has finished and returns its summary.
func (r *Run) Wait() model.RunSummary {
	<-r.done
	return r.summary
}

// Collect drains the result stream and returns every result with the
// run summary.
func (r *Run) Collect() ([]model.ProbeResult, model.RunSummary) {
	results := make([]model.ProbeResult, 0, cap(r.results))
	for res := range r.results {
		results = append(results, res)
	}
	return results, r.Wait()
}
