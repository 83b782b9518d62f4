package virtualfs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/antibyte/c64basic/pkg/basic"
	"github.com/antibyte/c64basic/pkg/logger"
)

// SQLStore keeps programs in the programs/program_lines tables. Every
// store is scoped to one owner; the server gives each session its own.
type SQLStore struct {
	db       *sql.DB
	owner    string
	maxLines int
	shared   bool // db belongs to another store
}

// NewSQLStore returns a store for the anonymous owner "".
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// ForOwner returns a view of the same database scoped to owner.
func (s *SQLStore) ForOwner(owner string) *SQLStore {
	return &SQLStore{db: s.db, owner: owner, maxLines: s.maxLines, shared: true}
}

// Owner returns the owner this store is scoped to.
func (s *SQLStore) Owner() string {
	return s.owner
}

// LoadProgram reads a program in line order.
func (s *SQLStore) LoadProgram(ctx context.Context, name string) ([]basic.Line, error) {
	key, err := programKey(name)
	if err != nil {
		return nil, err
	}
	var count int
	err = s.db.QueryRowContext(ctx,
		"SELECT line_count FROM programs WHERE owner = ? AND name = ?", s.owner, key).Scan(&count)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.StorageError("Lookup of %s/%s failed: %v", s.owner, key, err)
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT line_number, text FROM program_lines WHERE owner = ? AND name = ? ORDER BY line_number",
		s.owner, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]basic.Line, 0, count)
	for rows.Next() {
		var l basic.Line
		if err := rows.Scan(&l.Number, &l.Text); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.StorageDebug("Loaded %s/%s (%d lines)", s.owner, key, len(lines))
	return lines, nil
}

// SaveProgram replaces the stored program in one transaction.
func (s *SQLStore) SaveProgram(ctx context.Context, name string, lines []basic.Line) error {
	key, err := programKey(name)
	if err != nil {
		return err
	}
	if err := checkSize(lines, s.maxLines); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM program_lines WHERE owner = ? AND name = ?", s.owner, key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO programs (owner, name, line_count, saved_at) VALUES (?, ?, ?, ?)",
		s.owner, key, len(lines), time.Now().Unix()); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO program_lines (owner, name, line_number, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, l := range lines {
		if _, err := stmt.ExecContext(ctx, s.owner, key, l.Number, l.Text); err != nil {
			return fmt.Errorf("line %d: %w", l.Number, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.StorageDebug("Saved %s/%s (%d lines)", s.owner, key, len(lines))
	return nil
}

// List returns the owner's program names, sorted.
func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM programs WHERE owner = ? ORDER BY name", s.owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes a program.
func (s *SQLStore) Delete(ctx context.Context, name string) error {
	key, err := programKey(name)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM programs WHERE owner = ? AND name = ?", s.owner, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM program_lines WHERE owner = ? AND name = ?", s.owner, key); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database unless this store is an owner view.
func (s *SQLStore) Close() error {
	if s.shared {
		return nil
	}
	return s.db.Close()
}
