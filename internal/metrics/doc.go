// Package metrics exposes probe measurements as Prometheus metrics.
//
// A Recorder is handed to the pipeline and the orchestrator; Serve
// publishes its registry on /metrics while a scan runs.
package metrics
