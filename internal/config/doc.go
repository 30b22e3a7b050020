// Package config provides configuration structures and utilities for
// domainrecon. It defines the scan limits, per-stage timeouts, domain list
// selection, data directory and report preferences.
package config
