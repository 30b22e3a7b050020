package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
var (
	// ErrNoInput is returned when no domain list file is specified.
	ErrNoInput = errors.New("no input specified: provide a domain list file")

	// ErrInvalidConcurrency is returned when the concurrency limit is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidWorkers is returned when the worker pool size is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidTimeout is returned when a stage timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidSampleSize is returned when the sample size is negative.
	// Zero selects the whole list.
	ErrInvalidSampleSize = errors.New("invalid sample size: must be non-negative")

	// ErrInvalidRate is returned when the start rate is negative.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")

	// ErrInvalidLatencyMode is returned for a latency mode other than auto, icmp or tcp.
	ErrInvalidLatencyMode = errors.New("invalid latency mode: must be auto, icmp or tcp")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
