package database

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// Migration is one versioned schema change. Up receives the dialect so a
// migration can emit dialect specific DDL.
type Migration struct {
	Version int64
	Name    string
	Up      func(tx *sql.Tx, dialect Dialect) error
}

// Migrator applies migrations in version order and records them in schema_migrations
type Migrator struct {
	db         *DB
	migrations []Migration
}

func NewMigrator(db *DB) *Migrator {
	return &Migrator{db: db}
}

// AddMigration registers a migration, keeping the list sorted by version
func (m *Migrator) AddMigration(migration Migration) {
	m.migrations = append(m.migrations, migration)
	sort.Slice(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version < m.migrations[j].Version
	})
}

// RunMigrations runs all pending migrations
func (m *Migrator) RunMigrations() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := m.CurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}
		if err := m.runMigration(migration); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	return nil
}

// CurrentVersion returns the highest applied migration version, 0 when none
func (m *Migrator) CurrentVersion() (int64, error) {
	var version int64
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (m *Migrator) createMigrationsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (m *Migrator) runMigration(migration Migration) (err error) {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err == nil {
			err = rbErr
		}
	}()

	if err := migration.Up(tx, m.db.Dialect); err != nil {
		return err
	}

	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", migration.Version, migration.Name); err != nil {
		return err
	}

	return tx.Commit()
}

// Migrate applies the service schema to db
func Migrate(db *DB) error {
	migrator := NewMigrator(db)
	for _, migration := range Migrations() {
		migrator.AddMigration(migration)
	}
	return migrator.RunMigrations()
}
