// Package blobstore keeps the raw uploaded files. Uploads are staged under
// a hidden directory and only become visible once committed.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrInvalidName = errors.New("invalid file name")

const stagingDir = ".staging"

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// Staged is an upload written to disk but not yet committed.
type Staged struct {
	Name string
	Path string
	tmp  string
	s    *Store
}

// SanitizeName reduces a client supplied file name to a safe base name.
func SanitizeName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := filepath.Base(name)
	if base == "" || base == "." || base == "/" || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}

// Stage copies body into a private staging directory. The staged file keeps
// its base name so loaders can classify it by extension.
func (s *Store) Stage(name string, body io.Reader) (*Staged, error) {
	base, err := SanitizeName(name)
	if err != nil {
		return nil, err
	}
	root := filepath.Join(s.dir, stagingDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir failed: %w", err)
	}
	tmp, err := os.MkdirTemp(root, "upload-")
	if err != nil {
		return nil, fmt.Errorf("create staging slot failed: %w", err)
	}

	staged := &Staged{Name: base, Path: filepath.Join(tmp, base), tmp: tmp, s: s}
	f, err := os.Create(staged.Path)
	if err != nil {
		staged.Discard()
		return nil, fmt.Errorf("create staged file failed: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		staged.Discard()
		return nil, fmt.Errorf("write staged file failed: %w", err)
	}
	if err := f.Close(); err != nil {
		staged.Discard()
		return nil, fmt.Errorf("close staged file failed: %w", err)
	}
	return staged, nil
}

// Commit moves the staged file into the store, replacing any file of the
// same name.
func (b *Staged) Commit() error {
	dest := filepath.Join(b.s.dir, b.Name)
	if err := os.Rename(b.Path, dest); err != nil {
		b.Discard()
		return fmt.Errorf("commit %s failed: %w", b.Name, err)
	}
	b.Discard()
	return nil
}

// Discard removes the staging slot. Safe to call more than once.
func (b *Staged) Discard() {
	_ = os.RemoveAll(b.tmp)
}

// List returns the names of committed files in lexical order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload dir failed: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
