package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/domainrecon/internal/model"
)

// FileName is the name of the SQLite file inside the data directory.
const FileName = "domainrecon.db"

// Table names.
const (
	ResultsTable = "results"
	RunsTable    = "runs"
)

// ErrUnknownTable is returned by Rows for a table that does not exist.
var ErrUnknownTable = errors.New("unknown table")

// ResultDB is the SQLite result sink.
//
// Rows are keyed by domain name. Writing the same domain again replaces
// the previous row, so the table always holds the latest value per domain.
type ResultDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResultDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ResultDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a scan first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

// Path returns the database file path.
func (rdb *ResultDB) Path() string {
	return rdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ResultDB) createTables() error {
	schema := `
	-- One row per domain, replaced on every scan of that domain.
	-- NULL means unknown, '' means the query returned nothing.
	CREATE TABLE IF NOT EXISTS results (
		domain_name TEXT PRIMARY KEY,
		ipv4 TEXT,
		ipv6 TEXT,
		asn INTEGER,
		asn_organ TEXT,
		iso_code TEXT,
		country TEXT,
		cipher TEXT,
		tls_version TEXT,
		issuer_organ TEXT,
		ping TEXT
	);

	-- Run history
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		submitted INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		cancelled INTEGER NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

const upsertResult = `
	INSERT INTO results (domain_name, ipv4, ipv6, asn, asn_organ, iso_code, country,
		cipher, tls_version, issuer_organ, ping)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(domain_name) DO UPDATE SET
		ipv4 = excluded.ipv4,
		ipv6 = excluded.ipv6,
		asn = excluded.asn,
		asn_organ = excluded.asn_organ,
		iso_code = excluded.iso_code,
		country = excluded.country,
		cipher = excluded.cipher,
		tls_version = excluded.tls_version,
		issuer_organ = excluded.issuer_organ,
		ping = excluded.ping
`

// Upsert writes results in a single transaction.
// Either every row is written or none is.
func (rdb *ResultDB) Upsert(ctx context.Context, results []model.ProbeResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, upsertResult)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.ExecContext(ctx,
			r.Domain,
			addrsValue(r.IPv4),
			addrsValue(r.IPv6),
			asnValue(r.ASN),
			stringValue(r.ASNOrg),
			stringValue(r.CountryISOCode),
			stringValue(r.CountryName),
			stringValue(r.CipherSuite),
			stringValue(r.TLSVersion),
			stringValue(r.CertIssuerOrg),
			latencyValue(r.LatencyMs),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert %s: %w", r.Domain, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

const selectResult = `
	SELECT domain_name, ipv4, ipv6, asn, asn_organ, iso_code, country,
		cipher, tls_version, issuer_organ, ping
	FROM results`

// Get returns the stored result for domain, or nil if there is none.
func (rdb *ResultDB) Get(ctx context.Context, domain string) (*model.ProbeResult, error) {
	row := rdb.db.QueryRowContext(ctx, selectResult+" WHERE domain_name = ?", domain)

	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result for %s: %w", domain, err)
	}
	return &r, nil
}

// List returns every stored result ordered by domain name.
func (rdb *ResultDB) List(ctx context.Context) ([]model.ProbeResult, error) {
	rows, err := rdb.db.QueryContext(ctx, selectResult+" ORDER BY domain_name")
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []model.ProbeResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Count returns the number of stored results.
func (rdb *ResultDB) Count(ctx context.Context) (int, error) {
	var n int
	if err := rdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}

// SaveRun records the summary of a run.
func (rdb *ResultDB) SaveRun(ctx context.Context, s model.RunSummary) error {
	query := `
		INSERT INTO runs (run_id, started_at, finished_at, submitted, completed, cancelled, interrupted, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			completed = excluded.completed,
			cancelled = excluded.cancelled,
			interrupted = excluded.interrupted,
			reason = excluded.reason
	`

	var finished any
	if !s.FinishedAt.IsZero() {
		finished = s.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	var reason any
	if s.Reason != "" {
		reason = s.Reason
	}

	_, err := rdb.db.ExecContext(ctx, query,
		s.RunID,
		s.StartedAt.UTC().Format(time.RFC3339Nano),
		finished,
		s.Submitted,
		s.Completed,
		s.Cancelled,
		s.Interrupted,
		reason,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", s.RunID, err)
	}
	return nil
}

// ListRuns returns the recorded runs, newest first.
func (rdb *ResultDB) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	query := `
		SELECT run_id, started_at, finished_at, submitted, completed, cancelled, interrupted, reason
		FROM runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var (
			s        model.RunSummary
			started  string
			finished sql.NullString
			reason   sql.NullString
		)
		if err := rows.Scan(&s.RunID, &started, &finished, &s.Submitted, &s.Completed,
			&s.Cancelled, &s.Interrupted, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.StartedAt = parseTimestamp(started)
		if finished.Valid {
			s.FinishedAt = parseTimestamp(finished.String)
		}
		s.Reason = reason.String
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// Tables returns the names of the user tables in schema order.
func (rdb *ResultDB) Tables(ctx context.Context) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// RowFunc receives one row of a table. A value that is not Valid is SQL NULL.
// The values slice is reused between calls.
type RowFunc func(values []sql.NullString) error

// Rows streams every row of table as text, in rowid order.
// header is called once with the column names before the first row.
func (rdb *ResultDB) Rows(ctx context.Context, table string, header func(columns []string) error, fn RowFunc) error {
	tables, err := rdb.Tables(ctx)
	if err != nil {
		return err
	}
	// The name is interpolated into the query, so it must be one we created.
	if !slices.Contains(tables, table) {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	rows, err := rdb.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %q ORDER BY rowid", table))
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	if err := header(columns); err != nil {
		return err
	}

	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	return rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (model.ProbeResult, error) {
	var (
		domain                              string
		ipv4, ipv6                          sql.NullString
		asn                                 sql.NullInt64
		asnOrg, isoCode, country            sql.NullString
		cipher, tlsVersion, issuer, latency sql.NullString
	)
	if err := row.Scan(&domain, &ipv4, &ipv6, &asn, &asnOrg, &isoCode, &country,
		&cipher, &tlsVersion, &issuer, &latency); err != nil {
		return model.ProbeResult{}, err
	}

	r := model.NewProbeResult(domain)

	var err error
	if r.IPv4, err = addrsField(ipv4); err != nil {
		return model.ProbeResult{}, fmt.Errorf("invalid ipv4 column for %s: %w", domain, err)
	}
	if r.IPv6, err = addrsField(ipv6); err != nil {
		return model.ProbeResult{}, fmt.Errorf("invalid ipv6 column for %s: %w", domain, err)
	}
	if asn.Valid && asn.Int64 >= 0 {
		r.ASN = model.Known(uint(asn.Int64))
	}
	r.ASNOrg = stringField(asnOrg)
	r.CountryISOCode = stringField(isoCode)
	r.CountryName = stringField(country)
	r.CipherSuite = stringField(cipher)
	r.TLSVersion = stringField(tlsVersion)
	r.CertIssuerOrg = stringField(issuer)
	if latency.Valid {
		if ms, err := strconv.ParseFloat(latency.String, 64); err == nil {
			r.LatencyMs = model.Known(ms)
		}
	}
	return r, nil
}

// Column encoding: Present is the value, Empty is '', Unknown is NULL.

func stringValue(f model.Field[string]) any {
	switch f.State() {
	case model.StatePresent:
		v, _ := f.Get()
		return v
	case model.StateEmpty:
		return ""
	default:
		return nil
	}
}

func addrsValue(f model.Field[[]netip.Addr]) any {
	switch f.State() {
	case model.StatePresent:
		v, _ := f.Get()
		return model.JoinAddrs(v)
	case model.StateEmpty:
		return ""
	default:
		return nil
	}
}

func asnValue(f model.Field[uint]) any {
	if v, ok := f.Get(); ok {
		return int64(v)
	}
	return nil
}

func latencyValue(f model.Field[float64]) any {
	if v, ok := f.Get(); ok {
		return model.FormatLatency(v)
	}
	return nil
}

func stringField(ns sql.NullString) model.Field[string] {
	switch {
	case !ns.Valid:
		return model.Unknown[string]()
	case ns.String == "":
		return model.Empty[string]()
	default:
		return model.Known(ns.String)
	}
}

func addrsField(ns sql.NullString) (model.Field[[]netip.Addr], error) {
	switch {
	case !ns.Valid:
		return model.Unknown[[]netip.Addr](), nil
	case ns.String == "":
		return model.Empty[[]netip.Addr](), nil
	}
	addrs, err := model.SplitAddrs(ns.String)
	if err != nil {
		return model.Unknown[[]netip.Addr](), err
	}
	return model.Known(addrs), nil
}

// timestampFormats lists the formats SQLite may hand back for DATETIME columns.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
}

// parseTimestamp parses a timestamp string from SQLite.
// It returns the zero time if no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
