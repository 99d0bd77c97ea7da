package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/studiowebux/todoload/internal/metrics"
	"github.com/studiowebux/todoload/internal/types"
)

// resetRunFlags puts every run flag back to its default between cases
func resetRunFlags(t *testing.T) {
	t.Helper()
	runCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatalf("reset --%s: %v", f.Name, err)
		}
		f.Changed = false
	})
}

func TestBuildRunConfig_FlagsOverrideFile(t *testing.T) {
	resetRunFlags(t)
	t.Cleanup(func() { resetRunFlags(t) })

	path := filepath.Join(t.TempDir(), "load.yaml")
	content := "name: from-file\nvus: 3\niterations: 40\nthink_time_ms: 250\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if err := runCmd.ParseFlags([]string{"-c", path, "--vus", "7", "--duration", "30s", "--insecure"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	cfg, err := buildRunConfig(runCmd)
	if err != nil {
		t.Fatalf("buildRunConfig: %v", err)
	}

	if cfg.Name != "from-file" {
		t.Errorf("Name = %s, want from-file", cfg.Name)
	}
	if cfg.VUs != 7 {
		t.Errorf("VUs = %d, want 7 from flag", cfg.VUs)
	}
	// With a config file, --duration adds a time bound but keeps the file's budget
	if cfg.Iterations != 40 || cfg.TestDurationSec != 30 {
		t.Errorf("Iterations/Duration = %d/%d, want 40/30", cfg.Iterations, cfg.TestDurationSec)
	}
	if cfg.ThinkTimeMs != 250 {
		t.Errorf("ThinkTimeMs = %d, want 250 from file", cfg.ThinkTimeMs)
	}
	if cfg.TLS.IsZero() || !cfg.TLS.InsecureSkipVerify {
		t.Errorf("TLS = %+v, want insecure", cfg.TLS)
	}
}

func TestBuildRunConfig_Durations(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    string
		wantSec    int
		wantIters  int
		wantTimeout int
	}{
		{"whole duration", []string{"--duration", "2s"}, "", 2, 0, 10},
		{"minutes", []string{"--duration", "1m", "--timeout", "3s"}, "", 60, 0, 3},
		{"duration with iterations", []string{"--duration", "5s", "--iterations", "8"}, "", 5, 8, 10},
		{"sub-second duration", []string{"--duration", "500ms"}, "--duration must be a whole number of seconds", 0, 0, 0},
		{"fractional duration", []string{"--duration", "1500ms"}, "--duration must be a whole number of seconds", 0, 0, 0},
		{"fractional ramp-up", []string{"--ramp-up", "2500ms"}, "--ramp-up must be a whole number of seconds", 0, 0, 0},
		{"sub-second timeout", []string{"--timeout", "500ms"}, "--timeout must be a whole number of seconds", 0, 0, 0},
		{"zero timeout", []string{"--timeout", "0s"}, "--timeout must be at least 1s", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetRunFlags(t)
			t.Cleanup(func() { resetRunFlags(t) })

			if err := runCmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}

			cfg, err := buildRunConfig(runCmd)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildRunConfig: %v", err)
			}
			if cfg.TestDurationSec != tt.wantSec {
				t.Errorf("TestDurationSec = %d, want %d", cfg.TestDurationSec, tt.wantSec)
			}
			if cfg.Iterations != tt.wantIters {
				t.Errorf("Iterations = %d, want %d", cfg.Iterations, tt.wantIters)
			}
			if cfg.RequestTimeoutSec != tt.wantTimeout {
				t.Errorf("RequestTimeoutSec = %d, want %d", cfg.RequestTimeoutSec, tt.wantTimeout)
			}
		})
	}
}

func TestBuildRunConfig_OutputFormat(t *testing.T) {
	for _, format := range []string{"text", "json", "yaml"} {
		resetRunFlags(t)
		if err := runCmd.ParseFlags([]string{"-o", format}); err != nil {
			t.Fatalf("ParseFlags: %v", err)
		}
		if _, err := buildRunConfig(runCmd); err != nil {
			t.Errorf("-o %s: unexpected error %v", format, err)
		}
	}

	resetRunFlags(t)
	t.Cleanup(func() { resetRunFlags(t) })
	if err := runCmd.ParseFlags([]string{"-o", "xml"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	_, err := buildRunConfig(runCmd)
	if err == nil || !strings.Contains(err.Error(), "unsupported output format: xml") {
		t.Errorf("err = %v, want unsupported output format", err)
	}
}

func TestValidateRunsFlags(t *testing.T) {
	tests := []struct {
		output  string
		query   string
		wantErr string
	}{
		{"text", "", ""},
		{"json", "", ""},
		{"json", "[?status=='completed'].id", ""},
		{"yaml", "length(@)", ""},
		{"text", "[0]", "--query requires -o json or -o yaml"},
		{"json", "[?", "invalid JMESPath expression"},
		{"yaml", "runs[", "invalid JMESPath expression"},
		{"xml", "", "unsupported output format: xml"},
	}

	t.Cleanup(func() {
		runsOutput = "text"
		runsQuery = ""
	})

	for _, tt := range tests {
		runsOutput = tt.output
		runsQuery = tt.query

		err := validateRunsFlags()
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("-o %s -q %q: unexpected error %v", tt.output, tt.query, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("-o %s -q %q: err = %v, want %q", tt.output, tt.query, err, tt.wantErr)
		}
	}
}

func TestMetricsMux(t *testing.T) {
	recorder := metrics.NewRecorder()
	recorder.ObserveResult(&types.Result{Step: "query_todo", Method: "GET", Status: 404})

	ts := httptest.NewServer(metricsMux(recorder))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `todoload_requests_total{code="404",method="GET",step="query_todo"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", body)
	}
}
