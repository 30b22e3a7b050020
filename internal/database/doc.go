// Package database provides SQLite-based storage for domainrecon.
//
// The ResultDB keeps:
//   - One row per probed domain in the results table
//   - One row per scan in the runs table
//
// Results are written once per run, after the concurrent scan phase, in a
// single transaction. The connection pool is limited to one connection so
// there is never more than one writer.
//
// Tri-state probe fields map onto columns as follows: a present value is
// stored as text (or an integer for asn), an explicitly empty answer as the
// empty string, and an unknown value as NULL.
//
// We use SQLite via modernc.org/sqlite: the database is a single file and
// the driver is CGO-free.
package database
