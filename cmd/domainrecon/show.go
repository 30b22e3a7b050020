package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nao1215/domainrecon/internal/database"
	"github.com/nao1215/domainrecon/internal/model"
	"github.com/nao1215/domainrecon/internal/report"
	"github.com/spf13/cobra"
)

// defaultRunLimit is the number of runs listed by show --runs.
const defaultRunLimit = 10

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored results or the run history",
		Long: `Show prints the results stored in the database, together with the
accounting of the latest run, in the same formats as scan.

With --runs it lists the most recent runs instead.

Examples:
  # Print every stored result
  domainrecon show

  # Print them as JSON
  domainrecon show --json

  # List the last 20 runs
  domainrecon show --runs --limit 20`,
		Args: cobra.NoArgs,
		RunE: runShowCmd,
	}

	cmd.Flags().Bool("runs", false, "List the run history instead of the results")
	cmd.Flags().Int("limit", defaultRunLimit, "Number of runs listed with --runs")
	addReportFlags(cmd)

	return cmd
}

func runShowCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}
	cfg.ShowResults = true
	newLogger(cmd, cfg)

	runs, err := cmd.Flags().GetBool("runs")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DataDir, database.Options{EnableWAL: true})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()

	if runs {
		history, err := db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		return writeRuns(cmd.OutOrStdout(), history)
	}

	results, err := db.List(ctx)
	if err != nil {
		return err
	}

	var latest model.RunSummary
	history, err := db.ListRuns(ctx, 1)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		latest = history[0]
	}

	return writeReport(cfg, report.NewRunReport(getVersion(), latest, results), cmd.OutOrStdout())
}

// writeRuns prints one line per run, newest first.
func writeRuns(w io.Writer, runs []model.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tELAPSED\tSUBMITTED\tCOMPLETED\tCANCELLED\tSTATUS")
	for _, r := range runs {
		status := "completed"
		if r.Interrupted {
			status = "interrupted (" + r.Reason + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.RunID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Elapsed().Round(time.Millisecond),
			r.Submitted,
			r.Completed,
			r.Cancelled,
			status,
		)
	}
	return tw.Flush()
}
