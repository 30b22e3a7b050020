package config

import "time"

// File represents the structure of the .domainrecon configuration file.
// Every key is optional; zero values leave the current setting alone.
type File struct {
	Concurrency   int      `yaml:"concurrency,omitempty"`
	Workers       int      `yaml:"workers,omitempty"`
	SampleSize    int      `yaml:"sample,omitempty"`
	Shuffle       bool     `yaml:"shuffle,omitempty"`
	RatePerSecond float64  `yaml:"rate,omitempty"`
	DNSServers    []string `yaml:"dnsServers,omitempty"`
	LatencyMode   string   `yaml:"latencyMode,omitempty"`
	DataDir       string   `yaml:"dataDir,omitempty"`
	MetricsAddr   string   `yaml:"metricsAddr,omitempty"`

	// Timeouts are written as Go durations, e.g. "2s" or "1500ms".
	Timeouts Timeouts `yaml:"timeouts,omitempty"`

	GeoIP GeoIP `yaml:"geoip,omitempty"`
}

// Timeouts holds the per-stage timeouts of the configuration file.
type Timeouts struct {
	DNS  time.Duration `yaml:"dns,omitempty"`
	TLS  time.Duration `yaml:"tls,omitempty"`
	Ping time.Duration `yaml:"ping,omitempty"`
}

// GeoIP holds the GeoLite2 settings of the configuration file.
type GeoIP struct {
	Dir        string `yaml:"dir,omitempty"`
	Repository string `yaml:"repository,omitempty"`
	Token      string `yaml:"token,omitempty"`
}

// Apply copies every value set in the file onto cfg.
func (f *File) Apply(cfg *Config) {
	if f.Concurrency != 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Workers != 0 {
		cfg.Workers = f.Workers
	}
	if f.SampleSize != 0 {
		cfg.SampleSize = f.SampleSize
	}
	if f.Shuffle {
		cfg.Shuffle = true
	}
	if f.RatePerSecond != 0 {
		cfg.RatePerSecond = f.RatePerSecond
	}
	if len(f.DNSServers) > 0 {
		cfg.DNSServers = f.DNSServers
	}
	if f.LatencyMode != "" {
		cfg.LatencyMode = f.LatencyMode
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.MetricsAddr != "" {
		cfg.MetricsAddr = f.MetricsAddr
	}
	if f.Timeouts.DNS != 0 {
		cfg.DNSTimeout = f.Timeouts.DNS
	}
	if f.Timeouts.TLS != 0 {
		cfg.TLSTimeout = f.Timeouts.TLS
	}
	if f.Timeouts.Ping != 0 {
		cfg.PingTimeout = f.Timeouts.Ping
	}
	if f.GeoIP.Dir != "" {
		cfg.GeoDir = f.GeoIP.Dir
	}
	if f.GeoIP.Repository != "" {
		cfg.GeoRepository = f.GeoIP.Repository
	}
	if f.GeoIP.Token != "" {
		cfg.GitHubToken = f.GeoIP.Token
	}
}
