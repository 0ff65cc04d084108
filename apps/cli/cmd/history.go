package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/chlorine/packages/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs",
	Long: `Show runs recorded with "chlorine run --history".

Without arguments the most recent runs are listed, newest first. With a
run ID the results of each spec in that run are shown.

Examples:
  chlorine history --db runs.db
  chlorine history --db runs.db --limit 5
  chlorine history --db runs.db 0b6f3d0e-...
  chlorine history --db runs.db --keep 100`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

var (
	historyDBFlag    string
	historyLimitFlag int
	historyKeepFlag  int
)

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "db", getEnvString("CHLORINE_HISTORY", ""), "History database (env: CHLORINE_HISTORY)")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", history.DefaultLimit, "Number of runs to show")
	historyCmd.Flags().IntVar(&historyKeepFlag, "keep", 0, "Delete all but the newest N runs before listing")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	if historyDBFlag == "" {
		return fmt.Errorf("--db is required (or set CHLORINE_HISTORY)")
	}

	store, err := history.Open(historyDBFlag)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if historyKeepFlag > 0 {
		removed, err := store.Prune(ctx, historyKeepFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d runs\n", removed)
	}

	if len(args) == 1 {
		return showRun(ctx, cmd.OutOrStdout(), store, args[0])
	}
	return showRecent(ctx, cmd.OutOrStdout(), store, historyLimitFlag)
}

func showRecent(ctx context.Context, w io.Writer, store *history.Store, limit int) error {
	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Bundle", "Started", "Workers", "Duration", "Passed", "Failed", "Exit"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Workers", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Exit", Align: text.AlignRight},
	})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.Bundle,
			r.Started.Local().Format("2006-01-02 15:04:05"),
			r.Workers,
			fmt.Sprintf("%.4fs", r.Duration.Seconds()),
			fmt.Sprintf("%d/%d", r.Passed, r.Total),
			r.Failed,
			r.ExitCode,
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

func showRun(ctx context.Context, w io.Writer, store *history.Store, runID string) error {
	specs, err := store.Specs(ctx, runID)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("run %s not found", runID)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Run: %s", runID))
	t.AppendHeader(table.Row{"#", "Spec", "Options", "Result", "Asserts", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Asserts", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})
	failed := 0
	for _, s := range specs {
		t.AppendRow(table.Row{
			s.Index,
			s.Name,
			s.Options,
			specResult(s),
			fmt.Sprintf("%d/%d", s.AssertsPassed, s.AssertsPassed+s.AssertsFailed),
			fmt.Sprintf("%.4fs", s.Duration.Seconds()),
		})
		if !s.Passed {
			failed++
		}
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d specs", len(specs)), "", fmt.Sprintf("%d failed", failed)})
	t.SetStyle(table.StyleLight)
	t.Render()

	for _, s := range specs {
		if s.Output == "" {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", s.Name)
		for _, line := range strings.Split(strings.TrimRight(s.Output, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}

func specResult(s history.SpecRow) string {
	switch {
	case s.Aborted:
		return "abort"
	case s.Passed:
		return "pass"
	default:
		return "fail"
	}
}
