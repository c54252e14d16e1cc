package database

import (
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_performance_records_table",
		Up: `
			CREATE TABLE IF NOT EXISTS performance_records (
				id BIGSERIAL PRIMARY KEY,
				project_id TEXT NOT NULL,
				query TEXT NOT NULL,
				page TEXT NOT NULL,
				date DATE,
				clicks INTEGER NOT NULL DEFAULT 0,
				impressions INTEGER NOT NULL DEFAULT 0,
				ctr DOUBLE PRECISION NOT NULL DEFAULT 0,
				position DOUBLE PRECISION NOT NULL DEFAULT 0,
				synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_performance_records_project ON performance_records(project_id);
			CREATE INDEX IF NOT EXISTS idx_performance_records_synced_at ON performance_records(synced_at);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_performance_records_synced_at;
			DROP INDEX IF EXISTS idx_performance_records_project;
			DROP TABLE IF EXISTS performance_records;
		`,
	},
	{
		Version: 2,
		Name:    "create_page_aggregates_table",
		Up: `
			CREATE TABLE IF NOT EXISTS page_aggregates (
				project_id TEXT NOT NULL,
				page_url TEXT NOT NULL,
				total_clicks INTEGER NOT NULL DEFAULT 0,
				total_impressions INTEGER NOT NULL DEFAULT 0,
				avg_ctr DOUBLE PRECISION NOT NULL DEFAULT 0,
				avg_position DOUBLE PRECISION NOT NULL DEFAULT 0,
				performance_score INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (project_id, page_url)
			);
		`,
		Down: `
			DROP TABLE IF EXISTS page_aggregates;
		`,
	},
	{
		Version: 3,
		Name:    "create_query_clusters_table",
		Up: `
			CREATE TABLE IF NOT EXISTS query_clusters (
				project_id TEXT NOT NULL,
				query TEXT NOT NULL,
				weighted_avg_position DOUBLE PRECISION NOT NULL DEFAULT 0,
				variance DOUBLE PRECISION NOT NULL DEFAULT 0,
				score DOUBLE PRECISION NOT NULL DEFAULT 0,
				severity TEXT NOT NULL,
				primary_page TEXT NOT NULL,
				supporting_pages TEXT[] NOT NULL DEFAULT '{}',
				keyword_difficulty INTEGER NOT NULL DEFAULT 0,
				traffic_gain_estimate INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (project_id, query)
			);
			CREATE INDEX IF NOT EXISTS idx_query_clusters_score ON query_clusters(project_id, score DESC);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_query_clusters_score;
			DROP TABLE IF EXISTS query_clusters;
		`,
	},
	{
		Version: 4,
		Name:    "create_topic_clusters_table",
		Up: `
			CREATE TABLE IF NOT EXISTS topic_clusters (
				project_id TEXT NOT NULL,
				name TEXT NOT NULL,
				keywords TEXT[] NOT NULL DEFAULT '{}',
				total_clicks INTEGER NOT NULL DEFAULT 0,
				total_impressions INTEGER NOT NULL DEFAULT 0,
				avg_position DOUBLE PRECISION NOT NULL DEFAULT 0,
				topic_score DOUBLE PRECISION NOT NULL DEFAULT 0,
				PRIMARY KEY (project_id, name)
			);
		`,
		Down: `
			DROP TABLE IF EXISTS topic_clusters;
		`,
	},
	{
		Version: 5,
		Name:    "create_analysis_runs_table",
		Up: `
			CREATE TABLE IF NOT EXISTS analysis_runs (
				project_id TEXT PRIMARY KEY,
				analyzed_at TIMESTAMPTZ NOT NULL,
				engine_version TEXT NOT NULL,
				record_count INTEGER NOT NULL DEFAULT 0,
				processing_time_ms BIGINT NOT NULL DEFAULT 0
			);
		`,
		Down: `
			DROP TABLE IF EXISTS analysis_runs;
		`,
	},
}

// Migrate runs all pending migrations
func Migrate(db *sqlx.DB) error {
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	sortedMigrations := make([]Migration, len(migrations))
	copy(sortedMigrations, migrations)
	sort.Slice(sortedMigrations, func(i, j int) bool {
		return sortedMigrations[i].Version < sortedMigrations[j].Version
	})

	for _, m := range sortedMigrations {
		if m.Version <= currentVersion {
			continue
		}

		if err := runMigration(db, m); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureMigrationsTable(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// getCurrentVersion returns the current migration version
func getCurrentVersion(db *sqlx.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// runMigration executes a single migration in its own transaction
func runMigration(db *sqlx.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(m.Up); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
		m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
