/*
Package stresstest is the load engine that hosts the seeder and the
workload generator.

# Overview

A run has two phases:
  - Setup: the seeder runs once, to completion, before any iteration
  - Load: a pool of virtual users (VUs) repeats the workload iteration

The load phase ends when the shared iteration budget is used up, when the
test duration elapses, or when the caller stops the run. Requests still in
flight at that point are abandoned and not recorded.

# Architecture

1. Config (config.go): configuration, file loading and validation
2. Executor (executor.go): setup, VU pool, result collection
3. Stats (stats.go): running statistics and percentiles
4. Manager (manager.go): SQLite persistence of runs and metrics

# Executor Design

  - One goroutine per VU, managed by an errgroup
  - A scheduler feeds iteration numbers through a buffered channel
  - VU start times are staggered across the ramp-up window
  - Every request passes through Executor.Do, which forwards its result to
    a single collector goroutine
  - The collector updates overall and per-step Stats, the Prometheus
    recorder, and batches metric rows for the Manager

Failures never change control flow. Results are classified as network
errors (no response) or failures (status >= 400) for reporting only.

# Example Usage

	manager, err := NewManager(config.DatabasePath)
	if err != nil {
		return err
	}
	defer manager.Close()

	cfg := DefaultConfig()
	cfg.VUs = 10
	cfg.TestDurationSec = 60
	cfg.Iterations = 0

	exec, err := NewExecutor(&ExecutionConfig{Config: cfg, Logger: logger}, manager)
	if err != nil {
		return err
	}

	exec.Start()
	exec.Wait()

	run := exec.GetRun()
	fmt.Printf("P95 latency: %dms\n", run.P95DurationMs)

# Thread Safety

All public methods of Executor are safe for concurrent use. Manager relies
on database/sql and a single connection.
*/
package stresstest
