// Package input reads the list of domains to scan.
package input
