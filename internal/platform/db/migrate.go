package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Migration is one numbered SQL migration file.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies numbered .sql migrations from a directory in order,
// tracking applied versions in the _migrations table.
type Migrator struct {
	pool *pgxpool.Pool
	dir  string
	log  zerolog.Logger
}

// NewMigrator creates a migrator reading files from dir.
func NewMigrator(pool *pgxpool.Pool, dir string, log zerolog.Logger) *Migrator {
	return &Migrator{pool: pool, dir: dir, log: log}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

// Load reads the migration files. File names must look like
// 001_description.sql; anything else is rejected.
func (m *Migrator) Load() ([]Migration, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var migrations []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(strings.TrimSuffix(e.Name(), ".sql"), "_", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed migration file name: %s", e.Name())
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("malformed migration version in %s: %w", e.Name(), err)
		}
		sql, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		migrations = append(migrations, Migration{Version: version, Name: parts[1], SQL: string(sql)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", migrations[i].Version)
		}
	}
	return migrations, nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.pool.Query(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// Up applies all pending migrations, each in its own transaction.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	migrations, err := m.Load()
	if err != nil {
		return err
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		tx, err := m.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", mig.Version, err)
		}
		if _, err := tx.Exec(ctx, mig.SQL); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO _migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record migration %d: %w", mig.Version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %d: %w", mig.Version, err)
		}
		m.log.Info().Int("version", mig.Version).Str("name", mig.Name).Msg("migration applied")
	}
	return nil
}

// MigrationStatus is one row of the migrate status report.
type MigrationStatus struct {
	Version int
	Name    string
	Applied bool
}

// Status reports every known migration and whether it has been applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	migrations, err := m.Load()
	if err != nil {
		return nil, err
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		statuses = append(statuses, MigrationStatus{
			Version: mig.Version,
			Name:    mig.Name,
			Applied: applied[mig.Version],
		})
	}
	return statuses, nil
}
