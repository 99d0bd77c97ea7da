package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/studiowebux/todoload/internal/config"
	"github.com/studiowebux/todoload/internal/metrics"
	"github.com/studiowebux/todoload/internal/report"
	"github.com/studiowebux/todoload/internal/seed"
	"github.com/studiowebux/todoload/internal/stresstest"
	"github.com/studiowebux/todoload/internal/types"
	"go.uber.org/zap"
)

const stopTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Seed the target, then run the load test",
	Long: `Run the setup phase once, then repeat the workload iteration across
the configured virtual users until the iteration budget is used or the
duration elapses. Ctrl+C stops the test and keeps the partial results.

Flags override values read from --config.`,
	Args: cobra.NoArgs,
	RunE: runLoadTest,
}

// Flags for run
var (
	runConfigFile  string
	runBaseURL     string
	runName        string
	runVUs         int
	runIterations  int
	runDuration    time.Duration
	runRampUp      time.Duration
	runSleepMs     int
	runTimeout     time.Duration
	runNoSetup     bool
	runSeedFile    string
	runMetricsAddr string
	runDBPath      string
	runNoPersist   bool
	runOutput      string
	runNoProgress  bool
	runInsecure    bool
)

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runConfigFile, "config", "c", "", "Load test config file (.yaml/.json/.jsonc/.toml)")
	f.StringVar(&runBaseURL, "base-url", stresstest.DefaultBaseURL, "Base URL of the todo API")
	f.StringVar(&runName, "name", "", "Run name")
	f.IntVar(&runVUs, "vus", 1, "Number of virtual users")
	f.IntVar(&runIterations, "iterations", 10, "Total iterations shared by all VUs (0 = unlimited)")
	f.DurationVar(&runDuration, "duration", 0, "Test duration after setup (0 = unlimited)")
	f.DurationVar(&runRampUp, "ramp-up", 0, "Spread VU start times over this window")
	f.IntVar(&runSleepMs, "sleep-ms", 500, "Pause at the end of each iteration in milliseconds")
	f.DurationVar(&runTimeout, "timeout", 10*time.Second, "Per-request timeout")
	f.BoolVar(&runNoSetup, "no-setup", false, "Skip the seeding phase")
	f.StringVar(&runSeedFile, "seed-file", "", "Replace the built-in seed records")
	f.StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	f.StringVar(&runDBPath, "db", "", "SQLite database for run history (default ~/.todoload/todoload.db)")
	f.BoolVar(&runNoPersist, "no-persist", false, "Do not record the run in the database")
	f.StringVarP(&runOutput, "output", "o", report.FormatText, "Output format (text/json/yaml)")
	f.BoolVar(&runNoProgress, "no-progress", false, "Hide the progress line")
	f.BoolVar(&runInsecure, "insecure", false, "Skip TLS certificate verification")
}

// buildRunConfig loads the config file, if any, then applies changed flags
func buildRunConfig(cmd *cobra.Command) (*stresstest.Config, error) {
	cfg := stresstest.DefaultConfig()
	if runConfigFile != "" {
		loaded, err := stresstest.LoadConfig(runConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	switch runOutput {
	case report.FormatText, report.FormatJSON, report.FormatYAML:
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use text, json or yaml)", runOutput)
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = runBaseURL
	}
	if flags.Changed("name") {
		cfg.Name = runName
	}
	if flags.Changed("vus") {
		cfg.VUs = runVUs
	}
	if flags.Changed("iterations") {
		cfg.Iterations = runIterations
	}
	if flags.Changed("duration") {
		sec, err := wholeSeconds("duration", runDuration)
		if err != nil {
			return nil, err
		}
		cfg.TestDurationSec = sec
		// A bare --duration bounds the run by time only
		if !flags.Changed("iterations") && runConfigFile == "" {
			cfg.Iterations = 0
		}
	}
	if flags.Changed("ramp-up") {
		sec, err := wholeSeconds("ramp-up", runRampUp)
		if err != nil {
			return nil, err
		}
		cfg.RampUpDurationSec = sec
	}
	if flags.Changed("sleep-ms") {
		cfg.ThinkTimeMs = runSleepMs
	}
	if flags.Changed("timeout") {
		sec, err := wholeSeconds("timeout", runTimeout)
		if err != nil {
			return nil, err
		}
		if sec == 0 {
			return nil, fmt.Errorf("--timeout must be at least 1s")
		}
		cfg.RequestTimeoutSec = sec
	}
	if flags.Changed("no-setup") {
		cfg.SkipSetup = runNoSetup
	}
	if flags.Changed("seed-file") {
		cfg.SeedFile = runSeedFile
	}
	if runInsecure {
		if cfg.TLS == nil {
			cfg.TLS = &types.TLSConfig{}
		}
		cfg.TLS.InsecureSkipVerify = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// wholeSeconds converts a duration flag to the whole seconds the config stores
func wholeSeconds(flag string, d time.Duration) (int, error) {
	if d%time.Second != 0 {
		return 0, fmt.Errorf("--%s must be a whole number of seconds, got %s", flag, d)
	}
	return int(d / time.Second), nil
}

func runLoadTest(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}

	var records []types.TodoRecord
	if cfg.SeedFile != "" {
		records, err = seed.LoadRecords(cfg.SeedFile)
		if err != nil {
			return err
		}
	}

	var recorder *metrics.Recorder
	if runMetricsAddr != "" {
		recorder = metrics.NewRecorder()
		srv := &http.Server{
			Addr:              runMetricsAddr,
			Handler:           metricsMux(recorder),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", zap.String("addr", runMetricsAddr))
	}

	var manager *stresstest.Manager
	if !runNoPersist {
		manager, err = openManager(runDBPath)
		if err != nil {
			return err
		}
		defer manager.Close()
	}

	exec, err := stresstest.NewExecutor(&stresstest.ExecutionConfig{
		Config:  cfg,
		Records: records,
		Logger:  logger,
		Metrics: recorder,
	}, manager)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec.Start()

	done := make(chan struct{})
	go func() {
		exec.Wait()
		close(done)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	started := time.Now()
wait:
	for {
		select {
		case <-done:
			break wait
		case <-ctx.Done():
			logger.Info("interrupt received, stopping load test")
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			err := exec.StopWithContext(stopCtx)
			cancel()
			if err != nil {
				return fmt.Errorf("load test did not stop in time: %w", err)
			}
			break wait
		case <-ticker.C:
			if !runNoProgress && runOutput == report.FormatText {
				fmt.Fprintf(os.Stderr, "\r%s", report.RenderProgress(
					exec.IterationsCompleted(), cfg.Iterations, exec.ActiveVUs(), time.Since(started)))
			}
		}
	}
	if !runNoProgress && runOutput == report.FormatText {
		fmt.Fprintln(os.Stderr)
	}

	return printRunResult(exec.GetRun(), exec.GetStepStats(), runOutput)
}

// runResult is the machine-readable form of a finished run
type runResult struct {
	Run   *stresstest.Run          `json:"run" yaml:"run"`
	Steps []stresstest.StepSummary `json:"steps" yaml:"steps"`
}

func printRunResult(run *stresstest.Run, steps []stresstest.StepSummary, format string) error {
	if format == report.FormatText || format == "" {
		fmt.Println(report.RenderRun(run))
		fmt.Print(report.RenderSteps(steps))
		return nil
	}

	data, err := report.Encode(runResult{Run: run, Steps: steps}, format, "")
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// metricsMux serves the recorder at /metrics
func metricsMux(recorder *metrics.Recorder) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	return mux
}

// openManager opens the run history database
func openManager(override string) (*stresstest.Manager, error) {
	if override == "" {
		if err := config.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize config: %w", err)
		}
	}
	dbPath, err := config.ResolveDatabasePath(override)
	if err != nil {
		return nil, err
	}
	manager, err := stresstest.NewManager(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return manager, nil
}
