package virtualfs

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens the SQLite database at dbPath ("file::memory:" for tests).
func InitDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// eine Verbindung: SQLite serialisiert Schreibzugriffe ohnehin, und
	// eine In-Memory-Datenbank existiert nur pro Verbindung
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// CreateTables ensures the program tables exist.
func CreateTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS programs (
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			line_count INTEGER NOT NULL DEFAULT 0,
			saved_at INTEGER NOT NULL,
			PRIMARY KEY (owner, name)
		)`,
		`CREATE TABLE IF NOT EXISTS program_lines (
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			line_number INTEGER NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (owner, name, line_number)
		)`,
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}
