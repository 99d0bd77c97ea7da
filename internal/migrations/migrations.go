package migrations

import (
	"database/sql"
	"fmt"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: 1,
		Name:    "Add step indices for per-step summaries",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_load_metrics_step ON load_metrics(run_id, step);
			CREATE INDEX IF NOT EXISTS idx_load_runs_name ON load_runs(name);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_load_metrics_step;
			DROP INDEX IF EXISTS idx_load_runs_name;
		`,
	},
	{
		Version: 2,
		Name:    "Add P90 latency to load_runs",
		Up: `
			ALTER TABLE load_runs ADD COLUMN p90_duration_ms INTEGER DEFAULT 0;
		`,
		Down: `
			-- SQLite does not support DROP COLUMN easily
		`,
	},
}

// InitSchema creates the base tables
// This must be called before running migrations to ensure all tables exist
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS load_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		base_url TEXT NOT NULL,
		vus INTEGER NOT NULL DEFAULT 1,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		status TEXT NOT NULL,
		seeded_count INTEGER DEFAULT 0,
		iterations_completed INTEGER DEFAULT 0,
		total_requests_sent INTEGER DEFAULT 0,
		total_requests_completed INTEGER DEFAULT 0,
		total_errors INTEGER DEFAULT 0,
		total_failures INTEGER DEFAULT 0,
		avg_duration_ms REAL DEFAULT 0,
		min_duration_ms INTEGER DEFAULT 0,
		max_duration_ms INTEGER DEFAULT 0,
		p50_duration_ms INTEGER DEFAULT 0,
		p95_duration_ms INTEGER DEFAULT 0,
		p99_duration_ms INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_load_runs_started_at ON load_runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_load_runs_status ON load_runs(status);

	CREATE TABLE IF NOT EXISTS load_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		step TEXT NOT NULL,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		status_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		request_size INTEGER DEFAULT 0,
		response_size INTEGER DEFAULT 0,
		error_message TEXT,
		FOREIGN KEY (run_id) REFERENCES load_runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_load_metrics_run_id ON load_metrics(run_id);
	CREATE INDEX IF NOT EXISTS idx_load_metrics_elapsed ON load_metrics(run_id, elapsed_ms);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Run executes all pending migrations on the database
func Run(db *sql.DB) error {
	// Initialize schema first to ensure all tables exist
	if err := InitSchema(db); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := GetCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for _, migration := range AllMigrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version,
			migration.Name,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// GetCurrentVersion returns the current database schema version
func GetCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_migrations
	`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return version, nil
}
