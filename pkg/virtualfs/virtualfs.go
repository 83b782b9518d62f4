// Package virtualfs stores BASIC programs for LOAD and SAVE, either in a
// SQLite database or as plain .bas files in a directory.
package virtualfs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antibyte/c64basic/pkg/basic"
	"github.com/antibyte/c64basic/pkg/configuration"
	"github.com/antibyte/c64basic/pkg/logger"
)

var (
	ErrNotFound    = errors.New("FILE NOT FOUND")
	ErrInvalidName = errors.New("INVALID FILE NAME")
	ErrTooLarge    = errors.New("PROGRAM TOO LARGE")
)

// DefaultExtension is appended to program names without one.
const DefaultExtension = ".bas"

// maxNameLength is the longest accepted program name.
const maxNameLength = 64

// Store is a program store usable as basic.Persistence.
type Store interface {
	basic.Persistence
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// normalizeName turns a LOAD/SAVE argument into a program name without quotes
// and extension. Case is kept. Path separators are rejected.
func normalizeName(name, ext string) (string, error) {
	name = strings.TrimSpace(strings.Trim(strings.TrimSpace(name), `"`))
	if ext != "" && len(name) > len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext) {
		name = name[:len(name)-len(ext)]
	}
	if name == "" || len(name) > maxNameLength {
		return "", ErrInvalidName
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == ' ':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return name, nil
}

// programKey is the case-insensitive key of the SQLite store.
func programKey(name string) (string, error) {
	name, err := normalizeName(name, DefaultExtension)
	return strings.ToUpper(name), err
}

func checkSize(lines []basic.Line, maxLines int) error {
	if maxLines > 0 && len(lines) > maxLines {
		return fmt.Errorf("%w: %d lines, limit %d", ErrTooLarge, len(lines), maxLines)
	}
	return nil
}

// OpenFromConfig opens the store selected by [Storage] backend.
func OpenFromConfig() (Store, error) {
	ext := configuration.GetString("Storage", "default_extension", DefaultExtension)
	maxLines := configuration.GetInt("Storage", "max_program_lines", 10000)

	switch backend := configuration.GetString("Storage", "backend", "sqlite"); backend {
	case "sqlite":
		path := configuration.GetString("Storage", "database_file", "c64basic.db")
		db, err := InitDB(path)
		if err != nil {
			return nil, err
		}
		if err := CreateTables(db); err != nil {
			db.Close()
			return nil, err
		}
		logger.StorageInfo("Using SQLite program store %s", path)
		s := NewSQLStore(db)
		s.maxLines = maxLines
		return s, nil
	case "dir":
		dir := configuration.GetString("Storage", "program_dir", "programs")
		s, err := NewDirStore(dir, ext)
		if err != nil {
			return nil, err
		}
		s.maxLines = maxLines
		logger.StorageInfo("Using program directory %s", dir)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
