package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/domainrecon/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/domainrecon.yaml
var configTemplate embed.FS

// templatePath is the path of the template inside configTemplate.
const templatePath = "templates/domainrecon.yaml"

// stdoutPath makes init print the template instead of writing a file.
const stdoutPath = "-"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Init writes a commented configuration file holding the default concurrency,
per-stage timeouts, latency mode and GeoLite2 repository.

Use "-o -" to print the template instead of writing it.

Examples:
  domainrecon init
  domainrecon init -o ~/.config/domainrecon/config.yaml
  domainrecon init -o - > scan.yaml
  domainrecon init -f`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("output")
			force, _ := cmd.Flags().GetBool("force")

			content, err := configTemplate.ReadFile(templatePath)
			if err != nil {
				return fmt.Errorf("read config template: %w", err)
			}
			out := cmd.OutOrStdout()
			if path == stdoutPath {
				_, err := out.Write(content)
				return err
			}
			if err := writeTemplate(path, content, force); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created configuration file: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile, `configuration file to create ("-" for stdout)`)
	cmd.Flags().BoolP("force", "f", false, "overwrite an existing file")
	return cmd
}

// writeTemplate creates path with mode 0600. Without force an existing file
// is left untouched and reported.
func writeTemplate(path string, content []byte, force bool) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0600) //nolint:gosec // user-chosen output path
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("create configuration file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if force {
		// O_TRUNC keeps the old mode of an existing file.
		if err := f.Chmod(0600); err != nil {
			return fmt.Errorf("set configuration file mode: %w", err)
		}
	}
	_, err = f.Write(content)
	return err
}
