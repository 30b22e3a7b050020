package main

import (
	"fmt"
	"path/filepath"

	"github.com/nao1215/domainrecon/internal/database"
	"github.com/nao1215/domainrecon/internal/export"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored results as CSV files",
		Long: `Export writes every table of the database to <dir>/<table>.csv.

Every field is quoted. Values that are unknown are written as "NULL",
values known to be empty as "". Backslashes are escaped.

scan exports automatically after every run unless --no-export is given.

Examples:
  # Export into <data-dir>/csv
  domainrecon export

  # Export into a specific directory
  domainrecon export --dir ./out`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().String("dir", "",
		"Directory receiving the CSV files (default: <data-dir>/"+export.DirName+")")

	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	newLogger(cmd, cfg)

	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}
	if dir == "" {
		dir = filepath.Join(cfg.DataDir, export.DirName)
	}

	db, err := database.Open(cfg.DataDir, database.Options{EnableWAL: true})
	if err != nil {
		return err
	}
	defer db.Close()

	paths, err := export.WriteTables(cmd.Context(), db, dir)
	if err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, path := range paths {
		fmt.Fprintf(out, "Exported %s\n", path)
	}
	return nil
}
