package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "domainrecon"

// Recorder collects stage and task metrics into its own registry.
// It is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	tasksInFlight prometheus.Gauge
	tasksTotal    *prometheus.CounterVec
}

// NewRecorder creates a Recorder with a fresh registry. Go runtime and
// process collectors are registered alongside the probe metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in one probe stage of one domain.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5, 10},
		}, []string{"stage", "outcome"}),
		tasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_in_flight",
			Help:      "Domains currently holding a concurrency permit.",
		}),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Domains finalized, by outcome.",
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(
		r.stageDuration,
		r.tasksInFlight,
		r.tasksTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveStage records how one stage of one domain settled.
func (r *Recorder) ObserveStage(stage, outcome string, elapsed time.Duration) {
	r.stageDuration.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}

// TaskStarted marks a domain as in flight.
func (r *Recorder) TaskStarted() {
	r.tasksInFlight.Inc()
}

// TaskFinished marks a started domain as finalized.
func (r *Recorder) TaskFinished(outcome string) {
	r.tasksInFlight.Dec()
	r.tasksTotal.WithLabelValues(outcome).Inc()
}

// Registry returns the registry the Recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the /metrics handler for the Recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve publishes the registry on addr under /metrics until ctx is done.
// The listener is opened before Serve returns, so a bad address is
// reported at once; serving errors are logged.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) (net.Addr, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx) //nolint:errcheck // best effort on exit
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	logger.Info("serving metrics", "addr", ln.Addr().String())
	return ln.Addr(), nil
}
