// Package shutdown turns termination signals into a cancellation of the
// running scan.
//
// A Controller moves through three states: Running, ShuttingDown and
// Stopped. The first SIGHUP, SIGINT or SIGTERM (or a call to Trigger) moves
// it to ShuttingDown and cancels every outstanding task of its Target. The
// owner calls Stop once it has flushed what completed before the signal.
package shutdown
