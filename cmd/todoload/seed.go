package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/studiowebux/todoload/internal/executor"
	"github.com/studiowebux/todoload/internal/seed"
	"github.com/studiowebux/todoload/internal/stresstest"
	"github.com/studiowebux/todoload/internal/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run only the setup phase against the target",
	Long: `Fetch the todo list once and create every seed record whose title does
not already appear in it. Running it twice creates nothing the second time.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

// Flags for seed
var (
	seedBaseURL  string
	seedFile     string
	seedTimeout  time.Duration
	seedInsecure bool
)

func init() {
	seedCmd.Flags().StringVar(&seedBaseURL, "base-url", stresstest.DefaultBaseURL, "Base URL of the todo API")
	seedCmd.Flags().StringVar(&seedFile, "seed-file", "", "Replace the built-in seed records")
	seedCmd.Flags().DurationVar(&seedTimeout, "timeout", executor.DefaultRequestTimeout, "Per-request timeout")
	seedCmd.Flags().BoolVar(&seedInsecure, "insecure", false, "Skip TLS certificate verification")
}

func runSeed(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	var records []types.TodoRecord
	if seedFile != "" {
		records, err = seed.LoadRecords(seedFile)
		if err != nil {
			return err
		}
	}

	opts := executor.Options{MaxConns: 1, RequestTimeout: seedTimeout}
	if seedInsecure {
		opts.TLS = &types.TLSConfig{InsecureSkipVerify: true}
	}
	client, err := executor.NewClient(opts)
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := seed.NewSeeder(seedBaseURL, client, records, logger).Seed(ctx)
	if err != nil {
		return fmt.Errorf("seeding interrupted: %w", err)
	}

	for _, title := range rep.Created {
		fmt.Printf("created  %s\n", title)
	}
	for _, title := range rep.Skipped {
		fmt.Printf("present  %s\n", title)
	}
	return nil
}
