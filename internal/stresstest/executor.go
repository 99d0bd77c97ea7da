package stresstest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/studiowebux/todoload/internal/executor"
	"github.com/studiowebux/todoload/internal/metrics"
	"github.com/studiowebux/todoload/internal/seed"
	"github.com/studiowebux/todoload/internal/types"
	"github.com/studiowebux/todoload/internal/workload"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const metricsBufferSize = 100

// Executor runs the setup phase once, then drives VUs through workload
// iterations until the iteration budget or the test duration runs out.
type Executor struct {
	config     *ExecutionConfig
	manager    *Manager // nil disables persistence
	doer       executor.Doer
	logger     *zap.Logger
	metrics    *metrics.Recorder
	run        *Run
	ctx        context.Context
	cancelFunc context.CancelFunc

	iterationChan chan int
	resultChan    chan *types.Result
	closeOnce     sync.Once // Ensures resultChan is only closed once
	execDone      chan struct{}
	collectDone   chan struct{}
	waitOnce      sync.Once
	stopped       atomic.Bool
	setupFailed   atomic.Bool
	testStart     time.Time

	statsMu             sync.Mutex
	stats               *Stats
	stepStats           map[string]*Stats
	requestsSent        int
	seededCount         int
	iterationsScheduled int

	iterationsCompleted int64 // atomic
	activeVUs           int32 // atomic

	metricsBuf []*Metric
}

// NewExecutor creates a new load test executor. manager may be nil.
func NewExecutor(config *ExecutionConfig, manager *Manager) (*Executor, error) {
	if err := config.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	doer := config.Doer
	if doer == nil {
		client, err := executor.NewClient(executor.Options{
			MaxConns:       config.Config.VUs,
			RequestTimeout: config.Config.GetRequestTimeout(),
			TLS:            config.Config.TLS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build HTTP client: %w", err)
		}
		doer = client
	}

	run := &Run{
		RunKey:    uuid.NewString(),
		Name:      config.Config.Name,
		BaseURL:   config.Config.BaseURL,
		VUs:       config.Config.VUs,
		StartedAt: time.Now(),
		Status:    StatusRunning,
	}

	if manager != nil {
		if err := manager.CreateRun(run); err != nil {
			return nil, fmt.Errorf("failed to create run record: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Executor{
		config:        config,
		manager:       manager,
		doer:          doer,
		logger:        logger.With(zap.String("run", run.RunKey)),
		metrics:       config.Metrics,
		run:           run,
		ctx:           ctx,
		cancelFunc:    cancel,
		iterationChan: make(chan int, config.Config.VUs*2),
		resultChan:    make(chan *types.Result, config.Config.VUs*8),
		execDone:      make(chan struct{}),
		collectDone:   make(chan struct{}),
		stats:         NewStats(),
		stepStats:     make(map[string]*Stats),
		metricsBuf:    make([]*Metric, 0, metricsBufferSize),
	}, nil
}

// Start begins the load test execution
func (e *Executor) Start() {
	e.testStart = time.Now()

	e.logger.Info("load test started",
		zap.String("name", e.run.Name),
		zap.String("baseURL", e.run.BaseURL),
		zap.Int("vus", e.config.Config.VUs),
		zap.Int("iterations", e.config.Config.Iterations),
		zap.Duration("duration", e.config.Config.GetTestDuration()))

	go e.collectResults()
	go e.execute()
}

// execute runs setup, then the VU pool, and closes the result stream
func (e *Executor) execute() {
	defer close(e.execDone)
	defer e.closeResultChan()

	if !e.config.Config.SkipSetup {
		if err := e.setup(); err != nil {
			e.setupFailed.Store(true)
			e.logger.Warn("setup aborted", zap.Error(err))
			return
		}
	}

	// The duration window opens once setup has finished
	if testDuration := e.config.Config.GetTestDuration(); testDuration > 0 {
		go e.durationTimer(testDuration)
	}

	var g errgroup.Group

	g.Go(func() error {
		e.scheduleIterations()
		return nil
	})

	vus := e.config.Config.VUs
	rampUp := e.config.Config.GetRampUpDuration()
	for vu := 0; vu < vus; vu++ {
		startOffset := time.Duration(0)
		if rampUp > 0 {
			startOffset = rampUp * time.Duration(vu) / time.Duration(vus)
		}
		g.Go(func() error {
			e.worker(vu, startOffset)
			return nil
		})
	}

	g.Wait()
}

// setup runs the seeder once before any iteration
func (e *Executor) setup() error {
	seeder := seed.NewSeeder(e.config.Config.BaseURL, e, e.config.Records, e.logger)
	report, err := seeder.Seed(e.ctx)
	if report != nil {
		e.statsMu.Lock()
		e.seededCount = len(report.Created)
		e.statsMu.Unlock()
	}
	return err
}

// durationTimer cancels the test after the specified duration
func (e *Executor) durationTimer(duration time.Duration) {
	select {
	case <-time.After(duration):
		e.logger.Debug("test duration reached")
		e.cancelFunc()
	case <-e.ctx.Done():
		return
	}
}

// scheduleIterations feeds iteration numbers until the budget is exhausted
// or the test ends
func (e *Executor) scheduleIterations() {
	defer close(e.iterationChan)

	total := e.config.Config.Iterations
	for i := 0; total == 0 || i < total; i++ {
		select {
		case <-e.ctx.Done():
			return
		case e.iterationChan <- i:
			e.statsMu.Lock()
			e.iterationsScheduled++
			e.statsMu.Unlock()
		}
	}
}

// worker is one virtual user
func (e *Executor) worker(vu int, startOffset time.Duration) {
	if startOffset > 0 {
		select {
		case <-e.ctx.Done():
			return
		case <-time.After(startOffset):
		}
	}

	gen := workload.NewGenerator(e.config.Config.BaseURL, e,
		workload.WithThinkTime(e.config.Config.GetThinkTime()),
		workload.WithRand(rand.New(rand.NewPCG(rand.Uint64(), uint64(vu)))))

	atomic.AddInt32(&e.activeVUs, 1)
	e.metrics.VUStarted()
	defer func() {
		atomic.AddInt32(&e.activeVUs, -1)
		e.metrics.VUStopped()
	}()

	for {
		select {
		case <-e.ctx.Done():
			return
		case _, ok := <-e.iterationChan:
			if !ok {
				return
			}
			if err := gen.Iterate(e.ctx); err != nil {
				// Test ended mid-iteration
				return
			}
			atomic.AddInt64(&e.iterationsCompleted, 1)
			e.metrics.IterationDone()
		}
	}
}

// Do executes req and forwards the result to the collector. Requests cut
// short by the end of the test are abandoned and not recorded.
func (e *Executor) Do(ctx context.Context, req *types.Request) *types.Result {
	result := e.doer.Do(ctx, req)
	if ctx.Err() != nil {
		return result
	}

	e.statsMu.Lock()
	e.requestsSent++
	e.statsMu.Unlock()

	select {
	case e.resultChan <- result:
	case <-ctx.Done():
	}
	return result
}

// collectResults aggregates statistics and persists metrics
func (e *Executor) collectResults() {
	defer close(e.collectDone)

	for result := range e.resultChan {
		isNetworkError := result.Error != "" || result.Status == 0
		isFailure := !isNetworkError && result.Status >= 400
		durationMs := result.Duration.Milliseconds()

		e.statsMu.Lock()
		e.stats.AddResult(durationMs, isNetworkError, isFailure)
		stepStats, ok := e.stepStats[result.Step]
		if !ok {
			stepStats = NewStats()
			e.stepStats[result.Step] = stepStats
		}
		stepStats.AddResult(durationMs, isNetworkError, isFailure)
		e.statsMu.Unlock()

		e.metrics.ObserveResult(result)

		if e.manager == nil {
			continue
		}

		e.metricsBuf = append(e.metricsBuf, &Metric{
			RunID:        e.run.ID,
			Step:         result.Step,
			Method:       result.Method,
			URL:          result.URL,
			Timestamp:    result.Timestamp,
			ElapsedMs:    result.Timestamp.Sub(e.testStart).Milliseconds(),
			StatusCode:   result.Status,
			DurationMs:   durationMs,
			RequestSize:  int64(result.RequestSize),
			ResponseSize: int64(result.ResponseSize),
			ErrorMessage: result.Error,
		})

		if len(e.metricsBuf) >= metricsBufferSize {
			e.flushMetrics()
		}
	}

	e.flushMetrics()
}

// flushMetrics writes buffered metrics to the database
func (e *Executor) flushMetrics() {
	if len(e.metricsBuf) == 0 || e.manager == nil {
		return
	}

	if err := e.manager.SaveMetricsBatch(e.metricsBuf); err != nil {
		// Log error but don't stop execution
		e.logger.Error("failed to save metrics", zap.Int("count", len(e.metricsBuf)), zap.Error(err))
	}

	e.metricsBuf = e.metricsBuf[:0]
}

// closeResultChan safely closes the result channel (only once)
func (e *Executor) closeResultChan() {
	e.closeOnce.Do(func() {
		close(e.resultChan)
	})
}

// Wait blocks until the test has finished and the run record is final.
// It is safe to call more than once.
func (e *Executor) Wait() error {
	e.waitOnce.Do(func() {
		<-e.execDone
		<-e.collectDone

		status := StatusCompleted
		switch {
		case e.stopped.Load():
			status = StatusCancelled
		case e.setupFailed.Load():
			status = StatusFailed
		}

		// Release the duration timer, if any
		e.cancelFunc()
		e.finalize(status)
	})
	return nil
}

// Stop cancels the load test and waits for it to wind down
func (e *Executor) Stop() {
	e.stopped.Store(true)
	e.cancelFunc()
	e.Wait()
}

// StopWithContext cancels the load test with a deadline for cleanup.
// Returns ctx's error if workers do not finish in time.
func (e *Executor) StopWithContext(ctx context.Context) error {
	e.stopped.Store(true)
	e.cancelFunc()

	done := make(chan struct{})
	go func() {
		e.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStats returns a copy of the overall statistics
func (e *Executor) GetStats() *Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats.Clone()
}

// GetStepStats returns per-step summaries in execution order
func (e *Executor) GetStepStats() []StepSummary {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return summarize(e.stepStats)
}

// GetRun returns the run record
func (e *Executor) GetRun() *Run {
	return e.run
}

// ActiveVUs returns the number of VUs currently running iterations
func (e *Executor) ActiveVUs() int {
	return int(atomic.LoadInt32(&e.activeVUs))
}

// IterationsCompleted returns the number of finished iterations
func (e *Executor) IterationsCompleted() int {
	return int(atomic.LoadInt64(&e.iterationsCompleted))
}

// Progress returns completed iterations as a percentage of the budget,
// or 0 when the run is bounded by duration only
func (e *Executor) Progress() float64 {
	total := e.config.Config.Iterations
	if total == 0 {
		return 0
	}
	return float64(e.IterationsCompleted()) / float64(total) * 100
}

// IsExecutionComplete returns true once no more requests will be issued
func (e *Executor) IsExecutionComplete() bool {
	select {
	case <-e.execDone:
		return true
	default:
		return false
	}
}

// finalize completes the run record with final statistics
func (e *Executor) finalize(status string) {
	e.statsMu.Lock()
	now := time.Now()
	e.run.CompletedAt = &now
	e.run.Status = status
	e.run.SeededCount = e.seededCount
	e.run.IterationsCompleted = e.IterationsCompleted()
	e.run.TotalRequestsSent = e.requestsSent
	e.run.TotalRequestsCompleted = e.stats.CompletedRequests
	e.run.TotalErrors = e.stats.ErrorCount
	e.run.TotalFailures = e.stats.FailureCount
	e.run.AvgDurationMs = e.stats.AvgDurationMs()
	e.run.MinDurationMs = e.stats.Min()
	e.run.MaxDurationMs = e.stats.Max()
	e.run.P50DurationMs = e.stats.P50()
	e.run.P90DurationMs = e.stats.P90()
	e.run.P95DurationMs = e.stats.P95()
	e.run.P99DurationMs = e.stats.P99()
	e.statsMu.Unlock()

	e.logger.Info("load test finished",
		zap.String("status", status),
		zap.Int("iterations", e.run.IterationsCompleted),
		zap.Int("requests", e.run.TotalRequestsCompleted),
		zap.Int("errors", e.run.TotalErrors),
		zap.Int("failures", e.run.TotalFailures),
		zap.Duration("elapsed", time.Since(e.testStart)))

	if e.manager == nil {
		return
	}
	if err := e.manager.UpdateRun(e.run); err != nil {
		e.logger.Error("failed to update run record", zap.Error(err))
	}
}

// summarize orders step statistics: setup first, then the workload steps,
// then anything else alphabetically
func summarize(byStep map[string]*Stats) []StepSummary {
	order := append([]string{seed.StepName}, workload.Steps...)
	known := make(map[string]bool, len(order))
	for _, step := range order {
		known[step] = true
	}

	var extra []string
	for step := range byStep {
		if !known[step] {
			extra = append(extra, step)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	summaries := make([]StepSummary, 0, len(byStep))
	for _, step := range order {
		if stats, ok := byStep[step]; ok {
			summaries = append(summaries, stats.Summary(step))
		}
	}
	return summaries
}
