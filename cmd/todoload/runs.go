package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/studiowebux/todoload/internal/filter"
	"github.com/studiowebux/todoload/internal/report"
	"github.com/studiowebux/todoload/internal/stresstest"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded load test runs",
	Long: `List recorded load test runs, newest first.

With -o json or -o yaml, --query applies a JMESPath expression to the
result, e.g. --query "[?status=='completed'].{id: id, p95: p95_duration_ms}".`,
	Args: cobra.NoArgs,
	RunE: runListRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a run with its per-step breakdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a run and its request metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteRun,
}

// Flags for runs
var (
	runsLimit  int
	runsOutput string
	runsQuery  string
	runsDBPath string
)

func init() {
	runsCmd.PersistentFlags().StringVar(&runsDBPath, "db", "", "SQLite database for run history (default ~/.todoload/todoload.db)")
	runsCmd.PersistentFlags().StringVarP(&runsOutput, "output", "o", report.FormatText, "Output format (text/json/yaml)")
	runsCmd.PersistentFlags().StringVarP(&runsQuery, "query", "q", "", "JMESPath query applied to json/yaml output")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum number of runs (0 = all)")

	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}

// validateRunsFlags rejects bad output flags before the database is opened
func validateRunsFlags() error {
	switch runsOutput {
	case report.FormatText:
		if runsQuery != "" {
			return fmt.Errorf("--query requires -o json or -o yaml")
		}
	case report.FormatJSON, report.FormatYAML:
		if runsQuery != "" && !filter.IsValidJMESPath(runsQuery) {
			return fmt.Errorf("invalid JMESPath expression: %s", runsQuery)
		}
	default:
		return fmt.Errorf("unsupported output format: %s (use text, json or yaml)", runsOutput)
	}
	return nil
}

func runListRuns(cmd *cobra.Command, args []string) error {
	if err := validateRunsFlags(); err != nil {
		return err
	}

	manager, err := openManager(runsDBPath)
	if err != nil {
		return err
	}
	defer manager.Close()

	runs, err := manager.ListRuns(runsLimit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []*stresstest.Run{}
	}

	if runsOutput == report.FormatText {
		fmt.Print(report.RenderRuns(runs))
		return nil
	}

	data, err := report.Encode(runs, runsOutput, runsQuery)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runShowRun(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}
	if err := validateRunsFlags(); err != nil {
		return err
	}

	manager, err := openManager(runsDBPath)
	if err != nil {
		return err
	}
	defer manager.Close()

	run, err := manager.GetRun(id)
	if err != nil {
		return err
	}
	steps, err := manager.GetStepSummaries(id)
	if err != nil {
		return err
	}

	if runsOutput == report.FormatText {
		return printRunResult(run, steps, runsOutput)
	}

	data, err := report.Encode(runResult{Run: run, Steps: steps}, runsOutput, runsQuery)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runDeleteRun(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	manager, err := openManager(runsDBPath)
	if err != nil {
		return err
	}
	defer manager.Close()

	if _, err := manager.GetRun(id); err != nil {
		return err
	}
	if err := manager.DeleteRun(id); err != nil {
		return err
	}
	fmt.Printf("deleted run %d\n", id)
	return nil
}
