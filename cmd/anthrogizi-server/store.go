package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/anthrogizi/anthrogizi/internal/config"
	"github.com/anthrogizi/anthrogizi/internal/domain/records"
	"github.com/anthrogizi/anthrogizi/internal/platform/db"
	"github.com/anthrogizi/anthrogizi/migrations"
)

// recordStore is the configured records backend and its resources.
type recordStore struct {
	backend string
	repo    records.Repository
	pinger  db.Pinger
	close   func()
}

func openRecordStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*recordStore, error) {
	switch cfg.RecordsBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info().Msg("connected to database")
		if cfg.AutoMigrate {
			if err := runMigrations(ctx, db.NewMigrator(pool, migrations.FS, migrations.PostgresDir), logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &recordStore{backend: cfg.RecordsBackend, repo: records.NewRepoPG(pool), pinger: pool, close: pool.Close}, nil

	case config.BackendSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite database")
		if cfg.AutoMigrate {
			if err := runMigrations(ctx, db.NewSQLiteMigrator(sqlDB, migrations.FS, migrations.SQLiteDir), logger); err != nil {
				sqlDB.Close()
				return nil, err
			}
		}
		return &recordStore{
			backend: cfg.RecordsBackend,
			repo:    records.NewRepoSQLite(sqlDB),
			pinger:  db.SQLPinger{DB: sqlDB},
			close:   func() { closeSQL(sqlDB, logger) },
		}, nil
	}

	return &recordStore{backend: config.BackendMemory, repo: records.NewMemoryRepo(), close: func() {}}, nil
}

func runMigrations(ctx context.Context, m *db.Migrator, logger zerolog.Logger) error {
	n, err := m.Up(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info().Int("applied", n).Msg("migrations up to date")
	return nil
}

func closeSQL(sqlDB *sql.DB, logger zerolog.Logger) {
	if err := sqlDB.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing sqlite database")
	}
}

// pgxpool.Pool satisfies db.Pinger.
var _ db.Pinger = (*pgxpool.Pool)(nil)
