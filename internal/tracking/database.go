package tracking

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrSchemaTooNew means the database was written by a newer sfxmix
var ErrSchemaTooNew = errors.New("tracking database schema is newer than this build")

// migrations[i] moves the schema from user_version i to i+1
var migrations = []string{
	`
CREATE TABLE decode_events (
    id          INTEGER PRIMARY KEY,
    timestamp   INTEGER NOT NULL,
    session_id  TEXT    NOT NULL,
    slot        INTEGER NOT NULL CHECK (slot >= 0),
    slot_name   TEXT    NOT NULL,
    source      TEXT    NOT NULL,
    format      TEXT    NOT NULL DEFAULT '',
    bytes       INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    success     INTEGER NOT NULL CHECK (success IN (0,1)),
    error       TEXT
);
CREATE INDEX idx_decodes_timestamp ON decode_events(timestamp DESC);
CREATE INDEX idx_decodes_session ON decode_events(session_id);
`,
	`CREATE INDEX idx_decodes_failed ON decode_events(source) WHERE success = 0;`,
}

// NewDatabase opens the SQLite database at dbPath and migrates it to the
// current schema. ":memory:" opens a private in-memory database.
func NewDatabase(dbPath string) (*sql.DB, error) {
	slog.Debug("opening tracking database", "path", dbPath)

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// migrate applies every migration past the stored user_version, each in its
// own transaction together with the version bump
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("%w: version %d, know %d", ErrSchemaTooNew, version, len(migrations))
	}

	for v := version; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		// PRAGMA does not take bind parameters
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record schema version %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", v+1, err)
		}
		slog.Info("tracking schema migrated", "version", v+1)
	}
	return nil
}
