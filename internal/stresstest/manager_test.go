package stresstest

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestRun(t *testing.T, m *Manager, name string, startedAt time.Time) *Run {
	t.Helper()
	run := &Run{
		RunKey:    uuid.NewString(),
		Name:      name,
		BaseURL:   "http://localhost:8000",
		VUs:       2,
		StartedAt: startedAt,
		Status:    StatusRunning,
	}
	if err := m.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	return run
}

func TestManager_CreateAndGetRun(t *testing.T) {
	m := createTestManager(t)
	run := newTestRun(t, m, "first", time.Now())

	if run.ID == 0 {
		t.Fatal("Expected run ID to be assigned")
	}

	got, err := m.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.RunKey != run.RunKey || got.Name != "first" || got.VUs != 2 {
		t.Errorf("GetRun = %+v", got)
	}
	if got.CompletedAt != nil {
		t.Error("Expected no completion time for a running run")
	}
	if !got.IsRunning() {
		t.Error("Expected run to be running")
	}
}

func TestManager_UpdateRun(t *testing.T) {
	m := createTestManager(t)
	run := newTestRun(t, m, "update", time.Now())

	now := time.Now()
	run.CompletedAt = &now
	run.Status = StatusCompleted
	run.SeededCount = 7
	run.IterationsCompleted = 10
	run.TotalRequestsCompleted = 38
	run.TotalFailures = 3
	run.P90DurationMs = 12

	if err := m.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	got, err := m.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != StatusCompleted || got.SeededCount != 7 || got.IterationsCompleted != 10 {
		t.Errorf("GetRun = %+v", got)
	}
	if got.TotalFailures != 3 || got.P90DurationMs != 12 {
		t.Errorf("totals not persisted: %+v", got)
	}
	if got.CompletedAt == nil || !got.IsCompleted() {
		t.Error("Expected run to be completed")
	}
}

func TestManager_GetRunMissing(t *testing.T) {
	m := createTestManager(t)

	if _, err := m.GetRun(42); err == nil {
		t.Error("Expected error for missing run")
	}
}

func TestManager_ListRuns(t *testing.T) {
	m := createTestManager(t)
	base := time.Now().Add(-time.Hour)
	newTestRun(t, m, "old", base)
	newTestRun(t, m, "middle", base.Add(time.Minute))
	newTestRun(t, m, "new", base.Add(2*time.Minute))

	runs, err := m.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].Name != "new" || runs[2].Name != "old" {
		t.Errorf("runs not newest first: %s, %s, %s", runs[0].Name, runs[1].Name, runs[2].Name)
	}

	limited, err := m.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d runs, want 2", len(limited))
	}
}

func TestManager_MetricsAndSummaries(t *testing.T) {
	m := createTestManager(t)
	run := newTestRun(t, m, "metrics", time.Now())

	now := time.Now()
	metrics := []*Metric{
		{RunID: run.ID, Step: "setup", Method: "GET", URL: "/todos", Timestamp: now, ElapsedMs: 0, StatusCode: 200, DurationMs: 5},
		{RunID: run.ID, Step: "query_todo", Method: "GET", URL: "/todos/9", Timestamp: now, ElapsedMs: 20, StatusCode: 404, DurationMs: 3},
		{RunID: run.ID, Step: "query_all_todos", Method: "GET", URL: "/todos/", Timestamp: now, ElapsedMs: 10, StatusCode: 200, DurationMs: 4},
		{RunID: run.ID, Step: "update_todo", Method: "PUT", URL: "/todos/2", Timestamp: now, ElapsedMs: 30, StatusCode: 0, DurationMs: 1, ErrorMessage: "connection refused"},
	}
	if err := m.SaveMetricsBatch(metrics); err != nil {
		t.Fatalf("SaveMetricsBatch: %v", err)
	}
	for _, metric := range metrics {
		if metric.ID == 0 {
			t.Error("Expected metric ID to be assigned")
		}
	}

	got, err := m.GetMetrics(run.ID)
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d metrics, want 4", len(got))
	}
	if got[1].Step != "query_all_todos" {
		t.Errorf("metrics not in elapsed order: %s", got[1].Step)
	}
	if got[3].ErrorMessage != "connection refused" {
		t.Errorf("ErrorMessage = %q", got[3].ErrorMessage)
	}

	summaries, err := m.GetStepSummaries(run.ID)
	if err != nil {
		t.Fatalf("GetStepSummaries: %v", err)
	}
	want := []string{"setup", "query_all_todos", "query_todo", "update_todo"}
	if len(summaries) != len(want) {
		t.Fatalf("got %d summaries, want %d", len(summaries), len(want))
	}
	for i, step := range want {
		if summaries[i].Step != step {
			t.Errorf("summary %d = %s, want %s", i, summaries[i].Step, step)
		}
	}
	if summaries[2].Failures != 1 {
		t.Errorf("query_todo failures = %d, want 1", summaries[2].Failures)
	}
	if summaries[3].Errors != 1 {
		t.Errorf("update_todo errors = %d, want 1", summaries[3].Errors)
	}
}

func TestManager_DeleteRun(t *testing.T) {
	m := createTestManager(t)
	run := newTestRun(t, m, "delete", time.Now())

	err := m.SaveMetricsBatch([]*Metric{
		{RunID: run.ID, Step: "setup", Method: "GET", URL: "/todos", Timestamp: time.Now(), StatusCode: 200},
	})
	if err != nil {
		t.Fatalf("SaveMetricsBatch: %v", err)
	}

	if err := m.DeleteRun(run.ID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}

	if _, err := m.GetRun(run.ID); err == nil {
		t.Error("Expected run to be deleted")
	}
	metrics, err := m.GetMetrics(run.ID)
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if len(metrics) != 0 {
		t.Errorf("Expected metrics to be deleted, got %d", len(metrics))
	}
}
