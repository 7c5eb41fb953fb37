package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

// NewSQLiteTrackerRepository creates a tracker repository backed by SQLite.
// dbPath is the path to the database file (e.g., "./data/lifedash.db") or MemoryPath.
func NewSQLiteTrackerRepository(dbPath string, logger *zap.Logger) (*SQLTrackerRepository, error) {
	dsn := "file::memory:"
	if dbPath != MemoryPath {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = "file:" + dbPath + "?" + sqlitePragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer; an in-memory database also lives on a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	repo, err := newSQLTrackerRepository(db, sqliteDialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	repo.logger.Info("initialized", zap.String("path", dbPath))
	return repo, nil
}
