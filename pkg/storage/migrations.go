package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: Initial schema
	`CREATE TABLE IF NOT EXISTS bp_readings (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		device_id  TEXT NOT NULL DEFAULT '',
		systolic   INTEGER NOT NULL,
		diastolic  INTEGER NOT NULL,
		timestamp  DATETIME NOT NULL,
		date       TEXT NOT NULL,
		time       TEXT NOT NULL,
		notes      TEXT NOT NULL DEFAULT '',
		source     TEXT NOT NULL CHECK(source IN ('manual', 'device')),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_readings_user ON bp_readings(user_id);
	CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON bp_readings(timestamp);

	CREATE TABLE IF NOT EXISTS notifications (
		id        TEXT PRIMARY KEY,
		user_id   TEXT NOT NULL,
		kind      TEXT NOT NULL CHECK(kind IN ('alert', 'info')),
		title     TEXT NOT NULL,
		message   TEXT NOT NULL DEFAULT '',
		timestamp DATETIME NOT NULL,
		read      INTEGER NOT NULL DEFAULT 0,
		seq       INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	// Ensure migration tracking table exists
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
