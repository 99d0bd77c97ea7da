package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/studiowebux/todoload/internal/logging"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "todoload",
	Short: "Load generator for todo REST APIs",
	Long: `todoload seeds a todo API with a fixed set of records, then drives
virtual users through a read/read/update loop against it and reports
latency and failures per step.

Examples:
  todoload run                                  # 1 VU, 10 iterations against localhost:8000
  todoload run --vus 20 --duration 60s          # 20 VUs for one minute
  todoload run -c load.yaml --metrics-addr :9090
  todoload seed --base-url http://api:8000      # setup phase only
  todoload runs                                 # list past runs
  todoload runs show 3                          # per-step breakdown
  todoload serve --delay-ms 20                  # reference todo server`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Global flags
var (
	flagLogLevel  string
	flagLogFormat string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", logging.FormatConsole, "Log format (console/json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger builds the logger selected by the global flags
func newLogger() (*zap.Logger, error) {
	return logging.New(flagLogLevel, flagLogFormat)
}
