// Package pipeline runs the probe stages for many domains.
//
// Pipeline probes a single domain. Its stages run in parallel, each under
// its own timeout, and each returns a Patch that sets only the fields the
// stage owns. A stage that fails returns no patch, so its fields stay
// Unknown while every other stage still contributes. Once all stages have
// settled, the first IPv4 address is enriched with ownership and country
// data.
//
// Orchestrator fans out one Pipeline execution per domain under a
// concurrency gate and streams results in completion order. Every run owns
// a Scope that tracks its in-flight tasks; shutting the scope down cancels
// all of them except the protected run owner, and every submitted domain
// ends up counted exactly once as completed or cancelled.
package pipeline
