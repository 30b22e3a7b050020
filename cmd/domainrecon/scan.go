package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/domainrecon/internal/config"
	"github.com/nao1215/domainrecon/internal/database"
	"github.com/nao1215/domainrecon/internal/export"
	"github.com/nao1215/domainrecon/internal/geo"
	"github.com/nao1215/domainrecon/internal/input"
	"github.com/nao1215/domainrecon/internal/metrics"
	"github.com/nao1215/domainrecon/internal/model"
	"github.com/nao1215/domainrecon/internal/pipeline"
	"github.com/nao1215/domainrecon/internal/probe"
	"github.com/nao1215/domainrecon/internal/report"
	"github.com/nao1215/domainrecon/internal/shutdown"
	"github.com/spf13/cobra"
)

// interruptedError is returned by scan when a termination request ended
// the run early. Completed results have been saved when it is returned.
type interruptedError struct {
	summary model.RunSummary
}

func (e *interruptedError) Error() string {
	return fmt.Sprintf("scan interrupted by %s: %d of %d domains completed, %d cancelled",
		e.summary.Reason, e.summary.Completed, e.summary.Submitted, e.summary.Cancelled)
}

// scanStreams are the outputs of a scan.
type scanStreams struct {
	// out receives the report unless a report file is configured.
	out io.Writer

	// status receives progress and status lines.
	status io.Writer

	// progress enables the progress bar on status.
	progress bool
}

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <domain-file>",
		Short: "Probe every domain of a list",
		Long: `Scan reads a list of domains and probes them concurrently.

The first comma-separated field of every line is taken as a domain. Blank
lines and lines starting with # are skipped, duplicates are probed once.

For every domain scan resolves A and AAAA records, performs a TLS handshake
on port 443, measures the round-trip latency and looks up the ASN and
country of the first IPv4 address. A failing stage leaves its fields
unknown without affecting the others.

Results are upserted into the database and exported as CSV files into
<data-dir>/csv. SIGINT, SIGTERM or SIGHUP stop the scan: outstanding
domains are cancelled, completed results are saved and the exit status
is 130.

Examples:
  # Scan every domain of a list
  domainrecon scan domains.csv

  # Scan a random sample of 1000 domains, 200 at a time
  domainrecon scan --shuffle --sample 1000 --concurrency 200 domains.csv

  # Refresh the GeoLite2 databases first, then write a Markdown report
  domainrecon scan --update-geoip --markdown -o report.md domains.csv

  # Use specific DNS servers and TCP latency timing
  domainrecon scan --dns-server 1.1.1.1 --dns-server 9.9.9.9 --latency-mode tcp domains.csv`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	// Scan behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Maximum number of domains probed at the same time")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Maximum number of blocking TLS and latency probes at the same time")
	cmd.Flags().Duration("dns-timeout", config.DefaultDNSTimeout,
		"Timeout of one DNS query")
	cmd.Flags().Duration("tls-timeout", config.DefaultTLSTimeout,
		"Timeout of the TLS connect and handshake")
	cmd.Flags().Duration("ping-timeout", config.DefaultPingTimeout,
		"Timeout of one latency measurement")
	cmd.Flags().IntP("sample", "s", 0,
		"Probe only the first N domains of the list (0 probes all)")
	cmd.Flags().Bool("shuffle", false,
		"Shuffle the domain list before sampling")
	cmd.Flags().Float64("rate", 0,
		"Maximum number of domain probes started per second (0 is unlimited)")
	cmd.Flags().StringSlice("dns-server", nil,
		"DNS server to query, repeatable (default: servers of /etc/resolv.conf)")
	cmd.Flags().String("latency-mode", config.DefaultLatencyMode,
		"Latency measurement: auto, icmp or tcp")

	// Storage and observability flags
	cmd.Flags().Bool("no-export", false,
		"Do not export the database as CSV after the scan")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address during the scan (e.g. 127.0.0.1:9090)")
	cmd.Flags().Bool("no-progress", false,
		"Do not display the progress bar")

	// GeoLite2 flags
	cmd.Flags().Bool("update-geoip", false,
		"Download the latest GeoLite2 databases before scanning")
	addGeoFlags(cmd)

	// Report flags
	addReportFlags(cmd)
	cmd.Flags().BoolP("results", "r", false,
		"List every domain in the text report")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	noProgress, err := cmd.Flags().GetBool("no-progress")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)

	return runScan(cmd.Context(), cfg, logger, scanStreams{
		out:      cmd.OutOrStdout(),
		status:   cmd.ErrOrStderr(),
		progress: !noProgress,
	})
}

// buildScanConfig creates a Config for the scan command. Flags override
// the configuration file only when they were set explicitly.
func buildScanConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("dns-timeout") {
		if cfg.DNSTimeout, err = flags.GetDuration("dns-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("tls-timeout") {
		if cfg.TLSTimeout, err = flags.GetDuration("tls-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("ping-timeout") {
		if cfg.PingTimeout, err = flags.GetDuration("ping-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("sample") {
		if cfg.SampleSize, err = flags.GetInt("sample"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("shuffle") {
		if cfg.Shuffle, err = flags.GetBool("shuffle"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate") {
		if cfg.RatePerSecond, err = flags.GetFloat64("rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("dns-server") {
		if cfg.DNSServers, err = flags.GetStringSlice("dns-server"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("latency-mode") {
		if cfg.LatencyMode, err = flags.GetString("latency-mode"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("metrics-addr") {
		if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
			return nil, err
		}
	}

	cfg.NoExport, err = flags.GetBool("no-export")
	if err != nil {
		return nil, err
	}

	cfg.UpdateGeoIP, err = flags.GetBool("update-geoip")
	if err != nil {
		return nil, err
	}

	if err := applyGeoFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := applyReportFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.ShowResults, err = flags.GetBool("results")
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.InputFile = args[0]
	}

	return cfg, nil
}

// runScan executes the scan: it probes the selected domains, saves what
// completed, exports the database and writes the report.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, streams scanStreams) error {
	if cfg.UpdateGeoIP {
		if err := updateGeoIP(ctx, cfg, logger, streams.status); err != nil {
			return err
		}
	}

	domains, err := input.ReadFile(cfg.InputFile)
	if err != nil {
		return err
	}
	domains = input.Select(domains, cfg.SampleSize, cfg.Shuffle, nil)

	// The store is opened before probing so an unusable data directory
	// fails the scan before any work is done.
	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	logger.Info("starting scan",
		"input", cfg.InputFile,
		"domains", len(domains),
		"concurrency", cfg.Concurrency,
		"workers", cfg.Workers,
		"database", db.Path(),
	)

	enricher := geo.OpenEnricher(cfg.GeoDatabaseDir(), geo.WithLogger(logger))
	defer enricher.Close()

	recorder := metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()

		addr, err := recorder.Serve(metricsCtx, cfg.MetricsAddr, logger)
		if err != nil {
			return fmt.Errorf("failed to serve metrics: %w", err)
		}
		fmt.Fprintf(streams.status, "Serving metrics on http://%s/metrics\n", addr)
	}

	prober := newProber(cfg, logger, enricher, recorder)

	var bar *progressBar
	if streams.progress {
		bar = newProgressBar(ctx, streams.status, len(domains))
	}

	orch := pipeline.NewOrchestrator(prober,
		pipeline.WithLimit(cfg.Concurrency),
		pipeline.WithStartRate(cfg.RatePerSecond),
		pipeline.WithProgress(bar.update),
		pipeline.WithTaskRecorder(recorder),
		pipeline.WithOrchestratorLogger(logger),
	)

	run := orch.Start(ctx, domains)

	// The controller keeps handling signals until the results are saved,
	// so a second request cannot kill the process mid-write.
	ctrl := shutdown.New(run, shutdown.WithLogger(logger))
	ctrl.Watch(ctx)
	defer ctrl.Stop()

	results, summary := run.Collect()
	bar.finish()

	if summary.Interrupted {
		fmt.Fprintf(streams.status, "Scan interrupted (%s): saving %d completed results...\n",
			summary.Reason, summary.Completed)
	}

	// Completed results are saved even when ctx ended the run.
	saveCtx := context.WithoutCancel(ctx)
	if err := saveRun(saveCtx, db, results, summary, logger); err != nil {
		return err
	}

	if !cfg.NoExport {
		dir := filepath.Join(cfg.DataDir, export.DirName)
		paths, err := export.WriteTables(saveCtx, db, dir)
		if err != nil {
			return fmt.Errorf("failed to export results: %w", err)
		}
		logger.Info("exported tables", "dir", dir, "files", len(paths))
	}

	rep := report.NewRunReport(getVersion(), summary, results)
	if err := writeReport(cfg, rep, streams.out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if summary.Interrupted {
		return &interruptedError{summary: summary}
	}
	return nil
}

// newProber assembles the per-domain pipeline from the configuration.
func newProber(cfg *config.Config, logger *slog.Logger, enricher pipeline.Enricher, recorder pipeline.Recorder) *pipeline.Pipeline {
	servers := cfg.DNSServers
	if len(servers) == 0 {
		servers = probe.SystemServers(probe.ResolvConfPath)
	}

	stages := pipeline.Stages{
		Resolver: probe.NewDNSResolver(servers, cfg.DNSTimeout),
		TLS:      probe.NewTLSProber(cfg.TLSTimeout),
		Latency:  probe.NewPinger(cfg.PingTimeout, probe.WithLatencyMode(probe.LatencyMode(cfg.LatencyMode))),
	}
	timeouts := pipeline.Timeouts{
		DNS:     cfg.DNSTimeout,
		TLS:     cfg.TLSTimeout,
		Latency: cfg.PingTimeout,
	}

	return pipeline.NewStandard(stages, timeouts, logger,
		pipeline.WithPool(probe.NewPool(cfg.Workers)),
		pipeline.WithEnricher(enricher),
		pipeline.WithRecorder(recorder),
	)
}

// saveRun upserts the results and records the run summary.
func saveRun(ctx context.Context, db *database.ResultDB, results []model.ProbeResult, summary model.RunSummary, logger *slog.Logger) error {
	if err := db.Upsert(ctx, results); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	if err := db.SaveRun(ctx, summary); err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}

	logger.Info("results saved",
		"run_id", summary.RunID,
		"results", len(results),
		"database", db.Path(),
	)
	return nil
}

// writeReport writes the report in the requested format to stdout. When a
// report file is configured the report goes to the file instead, and a text
// summary is still written to stdout.
func writeReport(cfg *config.Config, rep *report.RunReport, stdout io.Writer) error {
	if cfg.ReportFile == "" {
		_, err := newReportWriter(cfg, stdout).Write(rep)
		return err
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list hosts and addresses; keep them readable by the owner only.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := report.NewMultiWriter(
		newReportWriter(cfg, f),
		report.NewSimpleWriter(stdout),
	)
	_, err = w.Write(rep)
	return err
}

// newReportWriter returns the writer matching the configured format.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w,
			report.WithResults(cfg.ShowResults),
			report.WithVerbose(cfg.Verbose),
		)
	}
}
