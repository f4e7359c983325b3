// Package macro stores user-named aliases for dice expressions.
package macro

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// ErrInvalidName is returned when a macro name is empty or contains whitespace or '#'.
var ErrInvalidName = errors.New("invalid macro name")

// ErrNotFound is returned when a macro name is absent.
var ErrNotFound = errors.New("macro not found")

// ErrPersist wraps persistence failures. The in-memory mutation that
// triggered the save has already been applied when it is returned.
var ErrPersist = errors.New("persisting macros")

// Persister loads and saves the full name → expression mapping.
type Persister interface {
	// Load returns the persisted mapping; a store that was never saved yields an empty map.
	Load(ctx context.Context) (map[string]string, error)
	// Save replaces the persisted mapping with macros.
	Save(ctx context.Context, macros map[string]string) error
}

// PersisterFactory returns the Persister holding owner's macros.
type PersisterFactory func(owner string) Persister

// NopPersister keeps macros in memory only.
type NopPersister struct{}

// Load returns an empty mapping.
func (NopPersister) Load(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

// Save discards macros.
func (NopPersister) Save(context.Context, map[string]string) error {
	return nil
}

// ValidName reports whether name may be used as a macro name.
func ValidName(name string) bool {
	return name != "" && !strings.ContainsFunc(name, func(r rune) bool {
		return r == '#' || unicode.IsSpace(r)
	})
}

// Store maps macro names to expression text and writes every mutation
// through to its Persister.
//
// A Store is owned by a single session and is not safe for concurrent use.
type Store struct {
	macros    map[string]string
	persister Persister
	logger    *zap.Logger
}

// NewStore creates an empty Store backed by persister.
//
// Precondition: persister and logger must be non-nil.
func NewStore(persister Persister, logger *zap.Logger) *Store {
	return &Store{
		macros:    make(map[string]string),
		persister: persister,
		logger:    logger,
	}
}

// Load replaces the in-memory mapping with the persisted one.
//
// Postcondition: On success List() equals the persisted mapping; on error the
// store is unchanged.
func (s *Store) Load(ctx context.Context) error {
	loaded, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading macros: %w", err)
	}
	s.macros = make(map[string]string, len(loaded))
	for name, expr := range loaded {
		if !ValidName(name) {
			s.logger.Warn("skipping persisted macro with invalid name", zap.String("name", name))
			continue
		}
		s.macros[name] = expr
	}
	s.logger.Debug("macros loaded", zap.Int("count", len(s.macros)))
	return nil
}

// List returns a copy of the name → expression mapping.
func (s *Store) List() map[string]string {
	return maps.Clone(s.macros)
}

// Names returns every macro name in ascending order.
func (s *Store) Names() []string {
	return slices.Sorted(maps.Keys(s.macros))
}

// Get returns the expression bound to name.
func (s *Store) Get(name string) (string, bool) {
	expr, ok := s.macros[name]
	return expr, ok
}

// Len returns the number of macros.
func (s *Store) Len() int {
	return len(s.macros)
}

// Add binds name to expr, overwriting any existing binding.
//
// Precondition: ValidName(name), otherwise ErrInvalidName is returned.
// Postcondition: Get(name) == expr. A persistence failure is returned wrapped
// in ErrPersist but does not undo the binding.
func (s *Store) Add(ctx context.Context, name, expr string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	s.macros[name] = expr
	s.logger.Info("macro saved", zap.String("name", name), zap.String("expression", expr))
	return s.persist(ctx)
}

// Remove deletes the macro bound to name.
//
// Postcondition: Returns ErrNotFound if name was absent. A persistence failure
// is returned wrapped in ErrPersist but does not restore the binding.
func (s *Store) Remove(ctx context.Context, name string) error {
	if _, ok := s.macros[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(s.macros, name)
	s.logger.Info("macro removed", zap.String("name", name))
	return s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) error {
	if err := s.persister.Save(ctx, s.List()); err != nil {
		s.logger.Warn("macro persistence failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
