package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/domainrecon/internal/config"
	"github.com/nao1215/domainrecon/internal/log"
	"github.com/spf13/cobra"
)

// tokenEnv is read when no GitHub token is configured.
const tokenEnv = "GITHUB_TOKEN"

// loadConfig builds a Config from defaults, the environment, the
// configuration file and the global flags, in that order.
//
// If the user explicitly gave a config file path, a missing file is an
// error. Otherwise a missing file is silently ignored.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.GitHubToken = os.Getenv(tokenEnv)

	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("data-dir") {
		cfg.DataDir, err = flags.GetString("data-dir")
		if err != nil {
			return nil, err
		}
	}

	cfg.Verbose, err = flags.GetBool("verbose")
	if err != nil {
		return nil, err
	}

	cfg.JSONLog, err = flags.GetBool("json-log")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// newLogger creates the logger for a command and makes it the default one.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.JSONLog)
	slog.SetDefault(logger)
	return logger
}

// addReportFlags registers the report format flags shared by scan and show.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// applyReportFlags copies the report format flags onto cfg.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}
	return nil
}

// addGeoFlags registers the GeoLite2 flags shared by scan and geoip update.
func addGeoFlags(cmd *cobra.Command) {
	cmd.Flags().String("geoip-dir", "",
		"Directory of the GeoLite2 databases (default: <data-dir>/geoip)")
	cmd.Flags().String("repository", "",
		"GitHub repository publishing GeoLite2 release assets (default: "+defaultGeoRepository+")")
	cmd.Flags().String("github-token", "",
		"GitHub token for release queries (default: $"+tokenEnv+")")
}

// applyGeoFlags copies the GeoLite2 flags that were set onto cfg.
func applyGeoFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	var err error
	if flags.Changed("geoip-dir") {
		if cfg.GeoDir, err = flags.GetString("geoip-dir"); err != nil {
			return err
		}
	}
	if flags.Changed("repository") {
		if cfg.GeoRepository, err = flags.GetString("repository"); err != nil {
			return err
		}
	}
	if flags.Changed("github-token") {
		if cfg.GitHubToken, err = flags.GetString("github-token"); err != nil {
			return err
		}
	}
	return nil
}
