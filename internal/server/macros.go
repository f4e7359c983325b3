package server

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebag/internal/config"
	"github.com/cory-johannsen/dicebag/internal/game/macro"
	"github.com/cory-johannsen/dicebag/internal/storage/postgres"
)

// MacroBackend is an opened macro persistence backend.
type MacroBackend struct {
	// Name is the configured backend name.
	Name string
	// Factory yields each owner's Persister.
	Factory macro.PersisterFactory
	// Checks probe the backend's dependencies for the health service.
	Checks map[string]Check

	close func()
}

// Close releases backend resources such as database connections.
func (b *MacroBackend) Close() {
	if b.close != nil {
		b.close()
	}
}

// OpenMacroBackend opens the backend selected by cfg.Backend.
//
// Precondition: cfg has passed config validation.
// Postcondition: Returns an open backend that must be closed, or a non-nil error.
func OpenMacroBackend(ctx context.Context, cfg config.MacroConfig, db config.DatabaseConfig, logger *zap.Logger) (*MacroBackend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("macros are kept in memory and lost on disconnect")
		return &MacroBackend{Name: cfg.Backend, Factory: macro.MemoryFactory()}, nil

	case config.BackendFile:
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating macro dir %s: %w", cfg.Dir, err)
		}
		logger.Info("macros stored in files", zap.String("dir", cfg.Dir))
		return &MacroBackend{
			Name:    cfg.Backend,
			Factory: macro.DirFactory(cfg.Dir),
			Checks: map[string]Check{
				"macros": func(context.Context) error {
					_, err := os.Stat(cfg.Dir)
					return err
				},
			},
		}, nil

	case config.BackendPostgres:
		start := time.Now()
		pool, err := postgres.NewPool(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", db.Host),
			zap.Int("port", db.Port),
			zap.String("database", db.Name),
			zap.Duration("elapsed", time.Since(start)),
		)
		if err := pool.Ready(ctx, 5*time.Second); err != nil {
			pool.Close()
			return nil, fmt.Errorf("macro storage not ready, run cmd/migrate: %w", err)
		}
		repo := postgres.NewMacroRepository(pool.DB())
		owners, err := repo.Owners(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("listing macro owners: %w", err)
		}
		logger.Info("macros stored in postgres", zap.Int("owners", len(owners)))
		return &MacroBackend{
			Name:    cfg.Backend,
			Factory: repo.Factory(),
			Checks: map[string]Check{
				"macros": func(ctx context.Context) error {
					return pool.Ready(ctx, 2*time.Second)
				},
			},
			close: pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown macro backend %q", cfg.Backend)
}
