package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dicebag/internal/game/macro"
)

// MacroRepository stores every owner's macros in the macros table.
type MacroRepository struct {
	db *pgxpool.Pool
}

// NewMacroRepository creates a MacroRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMacroRepository(db *pgxpool.Pool) *MacroRepository {
	return &MacroRepository{db: db}
}

// Load returns owner's macros.
//
// Postcondition: Returns a non-nil map (empty for an unknown owner) or an error.
func (r *MacroRepository) Load(ctx context.Context, owner string) (map[string]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, expression FROM macros WHERE owner = $1`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("querying macros for %s: %w", owner, err)
	}
	defer rows.Close()

	macros := make(map[string]string)
	for rows.Next() {
		var name, expr string
		if err := rows.Scan(&name, &expr); err != nil {
			return nil, fmt.Errorf("scanning macro: %w", err)
		}
		macros[name] = expr
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating macros: %w", err)
	}
	return macros, nil
}

// Save replaces owner's macros with macros in a single transaction.
//
// Postcondition: On success Load(owner) returns exactly macros; on error the
// stored rows are unchanged.
func (r *MacroRepository) Save(ctx context.Context, owner string, macros map[string]string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM macros WHERE owner = $1`, owner); err != nil {
		return fmt.Errorf("clearing macros for %s: %w", owner, err)
	}

	if len(macros) > 0 {
		batch := &pgx.Batch{}
		for name, expr := range macros {
			batch.Queue(
				`INSERT INTO macros (owner, name, expression) VALUES ($1, $2, $3)`,
				owner, name, expr,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting macros for %s: %w", owner, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing macros for %s: %w", owner, err)
	}
	return nil
}

// Owners returns every owner with at least one stored macro, in ascending order.
func (r *MacroRepository) Owners(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT owner FROM macros ORDER BY owner`)
	if err != nil {
		return nil, fmt.Errorf("querying owners: %w", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting owners: %w", err)
	}
	return owners, nil
}

// Persister returns a macro.Persister bound to owner.
func (r *MacroRepository) Persister(owner string) macro.Persister {
	return ownerPersister{repo: r, owner: owner}
}

// Factory returns a PersisterFactory producing per-owner persisters.
func (r *MacroRepository) Factory() macro.PersisterFactory {
	return r.Persister
}

type ownerPersister struct {
	repo  *MacroRepository
	owner string
}

func (p ownerPersister) Load(ctx context.Context) (map[string]string, error) {
	return p.repo.Load(ctx, p.owner)
}

func (p ownerPersister) Save(ctx context.Context, macros map[string]string) error {
	return p.repo.Save(ctx, p.owner, macros)
}
