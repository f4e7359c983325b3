package macro

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// FilePersister keeps macros in a YAML document of the form
//
//	atk: 1d20+5
//	fireball: 8d6
//
// A missing file loads as an empty mapping.
type FilePersister struct {
	path string
}

// NewFilePersister returns a FilePersister reading and writing path.
//
// Precondition: path must be non-empty.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the backing file path.
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads the mapping from disk.
//
// Postcondition: Returns a non-nil map or a non-nil error.
func (p *FilePersister) Load(_ context.Context) (map[string]string, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.path, err)
	}
	macros := map[string]string{}
	if err := yaml.Unmarshal(data, &macros); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p.path, err)
	}
	return macros, nil
}

// Save rewrites the file with macros. The document is written to a temporary
// file in the same directory and renamed over the target.
//
// Postcondition: On success the file contains exactly macros.
func (p *FilePersister) Save(_ context.Context, macros map[string]string) error {
	data, err := yaml.Marshal(macros)
	if err != nil {
		return fmt.Errorf("encoding macros: %w", err)
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("replacing %s: %w", p.path, err)
	}
	return nil
}

var ownerPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// ValidOwner reports whether owner is usable as a per-owner storage key.
func ValidOwner(owner string) bool {
	return ownerPattern.MatchString(owner)
}

// DirFactory returns a PersisterFactory that keeps each owner's macros in
// <dir>/<owner>.yaml.
//
// Precondition: owners passed to the factory must satisfy ValidOwner.
func DirFactory(dir string) PersisterFactory {
	return func(owner string) Persister {
		return NewFilePersister(filepath.Join(dir, owner+".yaml"))
	}
}

// MemoryFactory returns a PersisterFactory whose stores are never persisted.
func MemoryFactory() PersisterFactory {
	return func(string) Persister {
		return NopPersister{}
	}
}
