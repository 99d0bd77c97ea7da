package stresstest

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/studiowebux/todoload/internal/migrations"
)

// Manager handles load test data persistence
type Manager struct {
	db *sql.DB
}

// NewManager creates a new load test manager
func NewManager(dbPath string) (*Manager, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	m := &Manager{db: db}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return m, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}

// CreateRun creates a new load test run record
func (m *Manager) CreateRun(run *Run) error {
	result, err := m.db.Exec(`
		INSERT INTO load_runs
		(run_key, name, base_url, vus, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.RunKey, run.Name, run.BaseURL, run.VUs, run.StartedAt, run.Status)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// UpdateRun updates a load test run record
func (m *Manager) UpdateRun(run *Run) error {
	_, err := m.db.Exec(`
		UPDATE load_runs
		SET completed_at = ?, status = ?, seeded_count = ?, iterations_completed = ?,
		    total_requests_sent = ?, total_requests_completed = ?, total_errors = ?, total_failures = ?,
		    avg_duration_ms = ?, min_duration_ms = ?, max_duration_ms = ?,
		    p50_duration_ms = ?, p90_duration_ms = ?, p95_duration_ms = ?, p99_duration_ms = ?
		WHERE id = ?
	`, run.CompletedAt, run.Status, run.SeededCount, run.IterationsCompleted,
		run.TotalRequestsSent, run.TotalRequestsCompleted, run.TotalErrors, run.TotalFailures,
		run.AvgDurationMs, run.MinDurationMs, run.MaxDurationMs,
		run.P50DurationMs, run.P90DurationMs, run.P95DurationMs, run.P99DurationMs, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

const runColumns = `
	id, run_key, name, base_url, vus, started_at, completed_at, status,
	COALESCE(seeded_count, 0), COALESCE(iterations_completed, 0),
	COALESCE(total_requests_sent, 0), COALESCE(total_requests_completed, 0),
	COALESCE(total_errors, 0), COALESCE(total_failures, 0),
	COALESCE(avg_duration_ms, 0), COALESCE(min_duration_ms, 0), COALESCE(max_duration_ms, 0),
	COALESCE(p50_duration_ms, 0), COALESCE(p90_duration_ms, 0),
	COALESCE(p95_duration_ms, 0), COALESCE(p99_duration_ms, 0)
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime

	err := row.Scan(&run.ID, &run.RunKey, &run.Name, &run.BaseURL, &run.VUs,
		&run.StartedAt, &completedAt, &run.Status, &run.SeededCount, &run.IterationsCompleted,
		&run.TotalRequestsSent, &run.TotalRequestsCompleted, &run.TotalErrors, &run.TotalFailures,
		&run.AvgDurationMs, &run.MinDurationMs, &run.MaxDurationMs,
		&run.P50DurationMs, &run.P90DurationMs, &run.P95DurationMs, &run.P99DurationMs)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

// GetRun retrieves a run by ID
func (m *Manager) GetRun(id int64) (*Run, error) {
	run, err := scanRun(m.db.QueryRow(`SELECT `+runColumns+` FROM load_runs WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first; limit <= 0 returns all
func (m *Manager) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM load_runs ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := m.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun deletes a load test run and all its metrics
func (m *Manager) DeleteRun(id int64) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM load_metrics WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete metrics: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM load_runs WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return tx.Commit()
}

// SaveMetricsBatch saves multiple metrics in a single transaction
func (m *Manager) SaveMetricsBatch(metrics []*Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO load_metrics
		(run_id, step, method, url, timestamp, elapsed_ms, status_code, duration_ms, request_size, response_size, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, metric := range metrics {
		result, err := stmt.Exec(metric.RunID, metric.Step, metric.Method, metric.URL, metric.Timestamp,
			metric.ElapsedMs, metric.StatusCode, metric.DurationMs, metric.RequestSize, metric.ResponseSize,
			metric.ErrorMessage)
		if err != nil {
			return fmt.Errorf("failed to insert metric: %w", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			metric.ID = id
		}
	}

	return tx.Commit()
}

// GetMetrics retrieves all metrics for a run in elapsed order
func (m *Manager) GetMetrics(runID int64) ([]*Metric, error) {
	rows, err := m.db.Query(`
		SELECT id, run_id, step, method, url, timestamp, elapsed_ms, status_code, duration_ms,
		       request_size, response_size, COALESCE(error_message, '')
		FROM load_metrics
		WHERE run_id = ?
		ORDER BY elapsed_ms, id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*Metric
	for rows.Next() {
		metric := &Metric{}
		err := rows.Scan(&metric.ID, &metric.RunID, &metric.Step, &metric.Method, &metric.URL,
			&metric.Timestamp, &metric.ElapsedMs, &metric.StatusCode, &metric.DurationMs,
			&metric.RequestSize, &metric.ResponseSize, &metric.ErrorMessage)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, metric)
	}
	return metrics, rows.Err()
}

// GetStepSummaries aggregates a run's metrics per step, setup first
func (m *Manager) GetStepSummaries(runID int64) ([]StepSummary, error) {
	metrics, err := m.GetMetrics(runID)
	if err != nil {
		return nil, err
	}

	byStep := make(map[string]*Stats)
	for _, metric := range metrics {
		stats, ok := byStep[metric.Step]
		if !ok {
			stats = NewStats()
			byStep[metric.Step] = stats
		}
		isNetworkError := metric.ErrorMessage != "" || metric.StatusCode == 0
		stats.AddResult(metric.DurationMs, isNetworkError, !isNetworkError && metric.StatusCode >= 400)
	}

	return summarize(byStep), nil
}
