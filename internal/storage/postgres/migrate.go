package postgres

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrator applies the SQL migrations in a directory to one database.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator opens the migrations in dir against the database at dsn.
//
// Precondition: dir must contain golang-migrate style NNN_name.{up,down}.sql files.
// Postcondition: Returns a Migrator that must be closed, or a non-nil error.
func NewMigrator(dir, dsn string) (*Migrator, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	m, err := migrate.New("file://"+filepath.ToSlash(abs), dsn)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Up applies steps pending migrations, or all of them when steps is 0.
//
// Postcondition: changed is false when the schema was already current.
func (mg *Migrator) Up(steps int) (changed bool, err error) {
	if steps > 0 {
		return settle(mg.m.Steps(steps))
	}
	return settle(mg.m.Up())
}

// Down reverts steps migrations, or all of them when steps is 0.
func (mg *Migrator) Down(steps int) (changed bool, err error) {
	if steps > 0 {
		return settle(mg.m.Steps(-steps))
	}
	return settle(mg.m.Down())
}

// Version returns the current schema version. A database with no applied
// migrations reports version 0.
func (mg *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the source and database handles.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

func settle(err error) (bool, error) {
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migrating: %w", err)
	}
	return true, nil
}
