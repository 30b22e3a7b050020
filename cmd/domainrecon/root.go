package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nao1215/domainrecon/internal/config"
	"github.com/spf13/cobra"
)

// exitInterrupted is the exit status of a scan ended by a termination request.
const exitInterrupted = 130

// NewRootCmd creates the root command for domainrecon.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domainrecon",
		Short: "Concurrent DNS, TLS and latency reconnaissance for domain lists",
		Long: `domainrecon probes every domain of a list concurrently.

For each domain it resolves A and AAAA records, performs a TLS handshake,
measures the round-trip latency and enriches the first IPv4 address with
ASN and country data from local GeoLite2 databases.

Results are upserted into a SQLite database in the data directory and
exported as CSV files. An interrupted scan keeps every completed result.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON lines")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .domainrecon in the current directory, "+
			"config.yaml in the XDG config directory, then .domainrecon in the home directory)")
	cmd.PersistentFlags().StringP("data-dir", "d", config.XDGDataDir(),
		"Directory holding the database, GeoLite2 files and CSV exports")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewGeoIPCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error returned by a command to the process exit status.
func exitCode(err error) int {
	var interrupted *interruptedError
	if errors.As(err, &interrupted) {
		return exitInterrupted
	}
	return 1
}
