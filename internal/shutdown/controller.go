package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// State is the lifecycle state of a Controller.
type State int

const (
	// Running means no termination request has been received.
	Running State = iota

	// ShuttingDown means outstanding tasks have been cancelled and the
	// owner is finishing its cleanup.
	ShuttingDown

	// Stopped means the owner has finished.
	Stopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Signals are the termination requests a Controller watches by default.
var Signals = []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}

// Target is what a Controller cancels on shutdown.
// pipeline.Run and pipeline.Scope implement it.
type Target interface {
	Shutdown(reason string) (cancelled, total int)
}

// Summary records the outcome of the shutdown transition.
type Summary struct {
	// Signal is the name of the request that triggered the shutdown.
	Signal string

	// Cancelled is the number of tasks cancelled.
	Cancelled int

	// Total is the number of tasks active at that moment, protected ones
	// included.
	Total int
}

// Controller is the cancellation state machine.
type Controller struct {
	mu       sync.Mutex
	state    State
	target   Target
	summary  Summary
	signals  []os.Signal
	sigCh    chan os.Signal
	watching bool
	stopping chan struct{}
	quit     chan struct{}
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithSignals overrides the watched signals.
func WithSignals(signals ...os.Signal) Option {
	return func(c *Controller) {
		c.signals = signals
	}
}

// New creates a Running controller for target.
func New(target Target, opts ...Option) *Controller {
	c := &Controller{
		state:    Running,
		target:   target,
		signals:  Signals,
		stopping: make(chan struct{}),
		quit:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// Watch starts listening for termination signals until ctx is done or Stop
// is called. It returns immediately. Calling it more than once has no
// further effect.
func (c *Controller) Watch(ctx context.Context) {
	c.mu.Lock()
	if c.watching || c.state == Stopped {
		c.mu.Unlock()
		return
	}
	c.watching = true
	c.sigCh = make(chan os.Signal, 1)
	signal.Notify(c.sigCh, c.signals...)
	c.mu.Unlock()

	go func() {
		defer signal.Stop(c.sigCh)
		for {
			select {
			case sig := <-c.sigCh:
				c.Trigger(sig)
			case <-ctx.Done():
				return
			case <-c.quit:
				return
			}
		}
	}()
}

// Trigger performs the Running to ShuttingDown transition as if sig had
// been received. It reports whether the transition happened; requests in
// any other state are logged and ignored.
func (c *Controller) Trigger(sig os.Signal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := signalName(sig)
	if c.state != Running {
		c.logger.Warn("termination request ignored",
			"signal", name,
			"state", c.state.String(),
		)
		return false
	}

	c.logger.Warn("received termination request", "signal", name)

	cancelled, total := c.target.Shutdown(name)
	c.summary = Summary{Signal: name, Cancelled: cancelled, Total: total}
	c.state = ShuttingDown
	close(c.stopping)

	c.logger.Warn("cancelled outstanding tasks",
		"cancelled", cancelled,
		"total", total,
	)
	return true
}

// ShuttingDown is closed when the controller leaves Running.
func (c *Controller) ShuttingDown() <-chan struct{} {
	return c.stopping
}

// Stop moves the controller to Stopped and stops watching signals.
// It is called by the owner once its cleanup is done.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Stopped {
		return
	}
	c.state = Stopped
	close(c.quit)
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Summary returns the shutdown outcome and whether a shutdown happened.
func (c *Controller) Summary() (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.summary, c.summary.Signal != ""
}

// signalName returns the conventional upper-case name, e.g. "SIGINT".
func signalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		switch s {
		case syscall.SIGHUP:
			return "SIGHUP"
		case syscall.SIGINT:
			return "SIGINT"
		case syscall.SIGTERM:
			return "SIGTERM"
		}
	}
	if sig == nil {
		return "unknown"
	}
	return sig.String()
}
