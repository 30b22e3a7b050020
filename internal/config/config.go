package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultConcurrency is the number of domains probed at the same time.
	DefaultConcurrency = 100

	// DefaultWorkers bounds the blocking calls (TLS handshakes, echo
	// probes) running at the same time, independently of DefaultConcurrency.
	DefaultWorkers = 32

	// DefaultDNSTimeout applies to one DNS query, including failover.
	DefaultDNSTimeout = 5 * time.Second

	// DefaultTLSTimeout applies to the TCP connect plus the TLS handshake.
	DefaultTLSTimeout = 2 * time.Second

	// DefaultPingTimeout applies to one echo probe.
	DefaultPingTimeout = 5 * time.Second

	// DefaultLatencyMode tries ICMP first and falls back to a TCP connect.
	DefaultLatencyMode = "auto"

	// AppName is the application name used for XDG directory paths.
	AppName = "domainrecon"

	// GeoDirName is the directory, inside the data directory, that holds
	// the GeoLite2 databases.
	GeoDirName = "geoip"
)

// LatencyModes lists the accepted latency modes.
var LatencyModes = []string{"auto", "icmp", "tcp"}

// Config holds all configuration options for domainrecon.
// It is populated from defaults, the optional config file and CLI flags,
// in that order, and passed down explicitly.
type Config struct {
	// InputFile is the domain list. The first field of every record is used.
	InputFile string

	// Concurrency is the maximum number of domains in flight.
	Concurrency int

	// Workers is the size of the pool that runs blocking probe calls.
	Workers int

	// DNSTimeout, TLSTimeout and PingTimeout bound each stage independently.
	DNSTimeout  time.Duration
	TLSTimeout  time.Duration
	PingTimeout time.Duration

	// SampleSize is the number of domains taken from the (optionally
	// shuffled) list. Zero selects every domain.
	SampleSize int

	// Shuffle randomizes the list before the sample is taken.
	Shuffle bool

	// RatePerSecond limits how many domain probes start per second.
	// Zero means unlimited.
	RatePerSecond float64

	// DNSServers are the resolvers to query, in failover order.
	// When empty, /etc/resolv.conf is used.
	DNSServers []string

	// LatencyMode is one of auto, icmp or tcp.
	LatencyMode string

	// DataDir holds the database, the GeoLite2 files and the CSV exports.
	// Defaults to the XDG data directory (~/.local/share/domainrecon on Linux).
	DataDir string

	// GeoDir overrides the directory of the GeoLite2 files.
	// When empty, <DataDir>/geoip is used.
	GeoDir string

	// UpdateGeoIP refreshes the GeoLite2 files before scanning.
	UpdateGeoIP bool

	// GitHubToken authenticates GeoLite2 release queries. Optional.
	GitHubToken string

	// GeoRepository is the owner/name of the repository publishing GeoLite2 releases.
	GeoRepository string

	// NoExport disables the CSV export after a scan.
	NoExport bool

	// MetricsAddr enables the Prometheus endpoint on this address when set.
	MetricsAddr string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONLog switches log output to JSON.
	JSONLog bool

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ShowResults lists every result in the text report.
	ShowResults bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .domainrecon in the current directory
	// and then in the user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Concurrency: DefaultConcurrency,
		Workers:     DefaultWorkers,
		DNSTimeout:  DefaultDNSTimeout,
		TLSTimeout:  DefaultTLSTimeout,
		PingTimeout: DefaultPingTimeout,
		LatencyMode: DefaultLatencyMode,
		DataDir:     XDGDataDir(),
	}
}

// GeoDatabaseDir returns the directory of the GeoLite2 files.
func (c *Config) GeoDatabaseDir() string {
	if c.GeoDir != "" {
		return c.GeoDir
	}
	return filepath.Join(c.DataDir, GeoDirName)
}

// XDGDataDir returns the XDG data directory for domainrecon.
// On Linux: ~/.local/share/domainrecon
// On macOS: ~/Library/Application Support/domainrecon
// On Windows: %LOCALAPPDATA%\domainrecon
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for domainrecon.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return ErrNoInput
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.DNSTimeout <= 0 || c.TLSTimeout <= 0 || c.PingTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.SampleSize < 0 {
		return ErrInvalidSampleSize
	}

	if c.RatePerSecond < 0 {
		return ErrInvalidRate
	}

	if !slices.Contains(LatencyModes, c.LatencyMode) {
		return ErrInvalidLatencyMode
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
