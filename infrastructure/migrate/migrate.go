// Package migrate applies the embedded SQL schema migrations and records
// them in a schema_migrations table.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sancella/sancella/infrastructure/adapter/sqlstore"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Direction of a migration file
const (
	Up   = "up"
	Down = "down"
)

type migrationFile struct {
	version int
	name    string
	path    string
	kind    string
}

// Migrator applies migrations from a file system
type Migrator struct {
	db     *sql.DB
	driver string
	files  fs.FS
	logger logger.Logger
}

// New returns a Migrator over the embedded migrations
func New(db *sql.DB, driver string, log logger.Logger) *Migrator {
	sub, _ := fs.Sub(embedded, "migrations")
	return &Migrator{db: db, driver: driver, files: sub, logger: log}
}

// Run applies the migrations in the given direction
func (m *Migrator) Run(ctx context.Context, mode string) error {
	switch strings.ToLower(mode) {
	case Up:
		return m.Up(ctx)
	case Down:
		return m.Down(ctx)
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

// Up applies every pending up migration in version order
func (m *Migrator) Up(ctx context.Context) error {
	files, err := m.prepare(ctx)
	if err != nil {
		return err
	}

	for _, f := range files {
		if f.kind != Up {
			continue
		}
		applied, err := m.alreadyApplied(ctx, f.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		m.logger.Info(ctx, "Applying migration", map[string]interface{}{"version": f.version, "name": f.name})
		if err := m.execFile(ctx, f.path); err != nil {
			return fmt.Errorf("failed applying %s: %w", f.path, err)
		}
		if err := m.markApplied(ctx, f.version, f.name); err != nil {
			return err
		}
	}
	return nil
}

// Down reverts every applied migration, newest first
func (m *Migrator) Down(ctx context.Context) error {
	files, err := m.prepare(ctx)
	if err != nil {
		return err
	}

	var downs []migrationFile
	for _, f := range files {
		if f.kind == Down {
			downs = append(downs, f)
		}
	}
	sort.Slice(downs, func(i, j int) bool { return downs[i].version > downs[j].version })

	for _, f := range downs {
		applied, err := m.alreadyApplied(ctx, f.version)
		if err != nil {
			return err
		}
		if !applied {
			continue
		}

		m.logger.Info(ctx, "Reverting migration", map[string]interface{}{"version": f.version, "name": f.name})
		if err := m.execFile(ctx, f.path); err != nil {
			return fmt.Errorf("failed reverting %s: %w", f.path, err)
		}
		if err := m.unmarkApplied(ctx, f.version); err != nil {
			return err
		}
	}
	return nil
}

// Applied returns the applied versions in ascending order
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (m *Migrator) prepare(ctx context.Context) ([]migrationFile, error) {
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}
	files, err := loadMigrationFiles(m.files)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return files, nil
}

func (m *Migrator) ensureSchemaMigrations(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

func loadMigrationFiles(fsys fs.FS) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, ".sql") {
			continue
		}

		kind := Up
		if strings.HasSuffix(lower, ".down.sql") {
			kind = Down
		}

		ver, migName, err := parseVersionAndName(name)
		if err != nil {
			continue
		}

		files = append(files, migrationFile{
			version: ver,
			name:    migName,
			path:    name,
			kind:    kind,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

// parseVersionAndName splits 001_create_tasks_tables.up.sql into 1 and
// create_tasks_tables
func parseVersionAndName(filename string) (int, string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return 0, "", errors.New("invalid filename")
	}
	ver, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", errors.New("invalid version")
	}
	name := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(parts[1], ".sql"), ".up"), ".down")
	return ver, name, nil
}

func (m *Migrator) alreadyApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx,
		sqlstore.Rebind(m.driver, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1"), version).Scan(&count)
	return count > 0, err
}

func (m *Migrator) markApplied(ctx context.Context, version int, name string) error {
	_, err := m.db.ExecContext(ctx,
		sqlstore.Rebind(m.driver, "INSERT INTO schema_migrations(version, name, applied_at) VALUES($1, $2, $3)"),
		version, name, time.Now().UTC())
	return err
}

func (m *Migrator) unmarkApplied(ctx context.Context, version int) error {
	_, err := m.db.ExecContext(ctx,
		sqlstore.Rebind(m.driver, "DELETE FROM schema_migrations WHERE version = $1"), version)
	return err
}

func (m *Migrator) execFile(ctx context.Context, path string) error {
	b, err := fs.ReadFile(m.files, path)
	if err != nil {
		return err
	}
	_, err = m.db.ExecContext(ctx, string(b))
	return err
}
