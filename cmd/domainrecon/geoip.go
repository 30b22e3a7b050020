package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/domainrecon/internal/config"
	"github.com/nao1215/domainrecon/internal/geo"
	"github.com/spf13/cobra"
)

// defaultGeoRepository is shown in the help of the --repository flag.
const defaultGeoRepository = geo.DefaultRepository

// NewGeoIPCmd creates the geoip command group.
func NewGeoIPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geoip",
		Short: "Manage the GeoLite2 databases used for enrichment",
		Long: `The geoip commands manage the GeoLite2 ASN and City databases used to
enrich the first IPv4 address of every domain with its autonomous system
and country. Without them, scans still run and leave those fields unknown.`,
	}

	cmd.AddCommand(newGeoIPUpdateCmd())

	return cmd
}

func newGeoIPUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download the latest GeoLite2 databases",
		Long: `Update queries the latest release of a GitHub repository publishing the
GeoLite2 databases and downloads its .mmdb assets (except the Country
database) into the GeoLite2 directory.

Rate limits and server errors are retried with a fixed delay until the
download succeeds; other client errors stop the update.

Examples:
  # Download into <data-dir>/geoip
  domainrecon geoip update

  # Authenticate to raise the GitHub API rate limit
  GITHUB_TOKEN=... domainrecon geoip update`,
		Args: cobra.NoArgs,
		RunE: runGeoIPUpdateCmd,
	}

	addGeoFlags(cmd)

	return cmd
}

func runGeoIPUpdateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := applyGeoFlags(cmd, cfg); err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	return updateGeoIP(cmd.Context(), cfg, logger, cmd.OutOrStdout())
}

// updateGeoIP refreshes the GeoLite2 databases of cfg and prints the files
// written. Extra options are applied after the configured ones.
func updateGeoIP(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, extra ...geo.UpdaterOption) error {
	dir := cfg.GeoDatabaseDir()

	opts := []geo.UpdaterOption{geo.WithUpdaterLogger(logger)}
	if cfg.GeoRepository != "" {
		opts = append(opts, geo.WithRepository(cfg.GeoRepository))
	}
	if cfg.GitHubToken != "" {
		opts = append(opts, geo.WithToken(cfg.GitHubToken))
	}
	opts = append(opts, extra...)

	fmt.Fprintf(out, "Updating GeoLite2 databases in %s...\n", dir)

	paths, err := geo.NewUpdater(dir, opts...).Update(ctx)
	if err != nil {
		return fmt.Errorf("failed to update GeoLite2 databases: %w", err)
	}

	for _, path := range paths {
		fmt.Fprintf(out, "  updated %s\n", path)
	}
	return nil
}
