package stresstest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/studiowebux/todoload/internal/executor"
	"github.com/studiowebux/todoload/internal/metrics"
	"github.com/studiowebux/todoload/internal/types"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// DefaultBaseURL is the target when none is configured
const DefaultBaseURL = "http://localhost:8000"

// Config represents a load test configuration
type Config struct {
	Name              string           `json:"name" yaml:"name" toml:"name"`
	BaseURL           string           `json:"base_url" yaml:"base_url" toml:"base_url"`
	VUs               int              `json:"vus" yaml:"vus" toml:"vus"`
	Iterations        int              `json:"iterations" yaml:"iterations" toml:"iterations"`       // Shared across VUs, 0 = unlimited
	TestDurationSec   int              `json:"duration_sec" yaml:"duration_sec" toml:"duration_sec"` // 0 = unlimited
	RampUpDurationSec int              `json:"ramp_up_sec" yaml:"ramp_up_sec" toml:"ramp_up_sec"`
	ThinkTimeMs       int              `json:"think_time_ms" yaml:"think_time_ms" toml:"think_time_ms"`
	RequestTimeoutSec int              `json:"request_timeout_sec" yaml:"request_timeout_sec" toml:"request_timeout_sec"`
	SkipSetup         bool             `json:"skip_setup" yaml:"skip_setup" toml:"skip_setup"`
	SeedFile          string           `json:"seed_file,omitempty" yaml:"seed_file,omitempty" toml:"seed_file"`
	TLS               *types.TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty" toml:"tls"`
}

// Run represents a load test run record
type Run struct {
	ID                     int64      `json:"id" yaml:"id"`
	RunKey                 string     `json:"run_key" yaml:"run_key"`
	Name                   string     `json:"name" yaml:"name"`
	BaseURL                string     `json:"base_url" yaml:"base_url"`
	VUs                    int        `json:"vus" yaml:"vus"`
	StartedAt              time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt            *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Status                 string     `json:"status" yaml:"status"`
	SeededCount            int        `json:"seeded_count" yaml:"seeded_count"`
	IterationsCompleted    int        `json:"iterations_completed" yaml:"iterations_completed"`
	TotalRequestsSent      int        `json:"total_requests_sent" yaml:"total_requests_sent"`
	TotalRequestsCompleted int        `json:"total_requests_completed" yaml:"total_requests_completed"`
	TotalErrors            int        `json:"total_errors" yaml:"total_errors"`
	TotalFailures          int        `json:"total_failures" yaml:"total_failures"`
	AvgDurationMs          float64    `json:"avg_duration_ms" yaml:"avg_duration_ms"`
	MinDurationMs          int64      `json:"min_duration_ms" yaml:"min_duration_ms"`
	MaxDurationMs          int64      `json:"max_duration_ms" yaml:"max_duration_ms"`
	P50DurationMs          int64      `json:"p50_duration_ms" yaml:"p50_duration_ms"`
	P90DurationMs          int64      `json:"p90_duration_ms" yaml:"p90_duration_ms"`
	P95DurationMs          int64      `json:"p95_duration_ms" yaml:"p95_duration_ms"`
	P99DurationMs          int64      `json:"p99_duration_ms" yaml:"p99_duration_ms"`
}

// Metric represents a single request metric in a load test
type Metric struct {
	ID           int64
	RunID        int64
	Step         string
	Method       string
	URL          string
	Timestamp    time.Time
	ElapsedMs    int64
	StatusCode   int
	DurationMs   int64
	RequestSize  int64
	ResponseSize int64
	ErrorMessage string
}

// StepSummary aggregates the metrics of one step within a run
type StepSummary struct {
	Step          string  `json:"step" yaml:"step"`
	Requests      int     `json:"requests" yaml:"requests"`
	Errors        int     `json:"errors" yaml:"errors"`
	Failures      int     `json:"failures" yaml:"failures"`
	AvgDurationMs float64 `json:"avg_duration_ms" yaml:"avg_duration_ms"`
	MinDurationMs int64   `json:"min_duration_ms" yaml:"min_duration_ms"`
	MaxDurationMs int64   `json:"max_duration_ms" yaml:"max_duration_ms"`
	P95DurationMs int64   `json:"p95_duration_ms" yaml:"p95_duration_ms"`
}

// ExecutionConfig contains the runtime configuration for executing a load test
type ExecutionConfig struct {
	Config  *Config
	Records []types.TodoRecord // Seed set; nil selects the built-in records
	Doer    executor.Doer      // Transport; nil builds a pooled client from Config
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// DefaultConfig returns a configuration with every default applied
func DefaultConfig() *Config {
	return &Config{
		Name:              "todo-load",
		BaseURL:           DefaultBaseURL,
		VUs:               1,
		Iterations:        10,
		ThinkTimeMs:       500,
		RequestTimeoutSec: 10,
	}
}

// LoadConfig reads a configuration file on top of DefaultConfig.
// Supported formats: .yaml, .yml, .json, .jsonc and .toml.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".toml":
		meta, err := toml.Decode(string(data), config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys in config: %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, .json, .jsonc or .toml)", ext)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// Validate validates the load test configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config name is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base url must start with http:// or https://")
	}
	if c.VUs <= 0 {
		return fmt.Errorf("vus must be greater than 0")
	}
	if c.VUs > 1000 {
		return fmt.Errorf("vus cannot exceed 1000")
	}
	if c.Iterations < 0 {
		return fmt.Errorf("iterations cannot be negative")
	}
	if c.Iterations > 1000000 {
		return fmt.Errorf("iterations cannot exceed 1,000,000")
	}
	if c.TestDurationSec < 0 {
		return fmt.Errorf("test duration cannot be negative")
	}
	if c.Iterations == 0 && c.TestDurationSec == 0 {
		return fmt.Errorf("either iterations or test duration must be set")
	}
	if c.RampUpDurationSec < 0 {
		return fmt.Errorf("ramp-up duration cannot be negative")
	}
	if c.ThinkTimeMs < 0 {
		return fmt.Errorf("think time cannot be negative")
	}
	if c.RequestTimeoutSec < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	return nil
}

// GetRampUpDuration returns the ramp-up duration as time.Duration
func (c *Config) GetRampUpDuration() time.Duration {
	return time.Duration(c.RampUpDurationSec) * time.Second
}

// GetTestDuration returns the test duration as time.Duration
func (c *Config) GetTestDuration() time.Duration {
	if c.TestDurationSec == 0 {
		return 0 // Unlimited
	}
	return time.Duration(c.TestDurationSec) * time.Second
}

// GetThinkTime returns the end-of-iteration pause
func (c *Config) GetThinkTime() time.Duration {
	return time.Duration(c.ThinkTimeMs) * time.Millisecond
}

// GetRequestTimeout returns the request timeout as time.Duration
func (c *Config) GetRequestTimeout() time.Duration {
	if c.RequestTimeoutSec == 0 {
		return executor.DefaultRequestTimeout
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// IsRunning returns true if the run is currently in progress
func (r *Run) IsRunning() bool {
	return r.Status == StatusRunning
}

// IsCompleted returns true if the run has finished
func (r *Run) IsCompleted() bool {
	return r.Status == StatusCompleted || r.Status == StatusCancelled || r.Status == StatusFailed
}
