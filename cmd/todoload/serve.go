package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/studiowebux/todoload/internal/mock"
	"github.com/studiowebux/todoload/internal/seed"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the in-memory reference todo server",
	Long: `Start an in-memory todo API exposing /todos with list, create, read,
update and delete. Useful as a local target for todoload run.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// Flags for serve
var (
	serveConfigFile string
	serveAddr       string
	serveDelayMs    int
	servePreload    bool
)

func init() {
	serveCmd.Flags().StringVarP(&serveConfigFile, "config", "c", "", "Server config file (.yaml/.json)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8000", "Listen address")
	serveCmd.Flags().IntVar(&serveDelayMs, "delay-ms", 0, "Artificial latency per request in milliseconds")
	serveCmd.Flags().BoolVar(&servePreload, "preload", false, "Start with the built-in seed records")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := &mock.Config{}
	if serveConfigFile != "" {
		cfg, err = mock.LoadConfig(serveConfigFile)
		if err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("addr") || serveConfigFile == "" {
		host, portStr, err := net.SplitHostPort(serveAddr)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", serveAddr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port in %q: %w", serveAddr, err)
		}
		if host == "" {
			host = "0.0.0.0"
		}
		cfg.Host = host
		cfg.Port = port
	}
	if flags.Changed("delay-ms") {
		cfg.DelayMs = serveDelayMs
	}
	if servePreload && len(cfg.Todos) == 0 {
		cfg.Todos = seed.DefaultRecords()
	}

	server := mock.NewServer(cfg, logger)
	if err := server.Start(); err != nil {
		return err
	}
	fmt.Printf("todo server listening on %s\n", server.GetAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return server.Stop(shutdownCtx)
}
