package virtualfs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/antibyte/c64basic/pkg/basic"
	"github.com/antibyte/c64basic/pkg/logger"
)

// DirStore keeps each program as "<name><ext>" text in one directory. Names
// match files case-insensitively; new files keep the case they were saved with.
type DirStore struct {
	dir      string
	ext      string
	maxLines int
}

// NewDirStore creates dir if needed.
func NewDirStore(dir, ext string) (*DirStore, error) {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DirStore{dir: dir, ext: ext}, nil
}

// path resolves name to its file, reusing an existing file whose name
// differs only in case.
func (s *DirStore) path(name string) (string, error) {
	base, err := normalizeName(name, s.ext)
	if err != nil {
		return "", err
	}
	want := base + s.ext
	exact := filepath.Join(s.dir, want)
	if _, err := os.Lstat(exact); err == nil {
		return exact, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return exact, nil
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), want) {
			return filepath.Join(s.dir, e.Name()), nil
		}
	}
	return exact, nil
}

// LoadProgram parses the program file.
func (s *DirStore) LoadProgram(ctx context.Context, name string) ([]basic.Line, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := basic.ParseProgramText(f)
	if err != nil {
		return nil, err
	}
	logger.StorageDebug("Loaded %s (%d lines)", path, len(lines))
	return lines, nil
}

// SaveProgram writes to a temporary file and renames it into place.
func (s *DirStore) SaveProgram(ctx context.Context, name string, lines []basic.Line) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := checkSize(lines, s.maxLines); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".save-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := basic.WriteProgramText(tmp, lines); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	logger.StorageDebug("Saved %s (%d lines)", path, len(lines))
	return nil
}

// List returns the stored program names without extension.
func (s *DirStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), s.ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the program file.
func (s *DirStore) Delete(ctx context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// Close is a no-op.
func (s *DirStore) Close() error {
	return nil
}
