package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/peakbase/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// migrationsTable is where golang-migrate records the applied version.
const migrationsTable = "schema_migrations"

// newMigrator builds a migrate instance over db using the embedded migrations for backend.
// Closing the returned instance closes db as well.
func newMigrator(db *sql.DB, backend schema.DatabaseBackend) (*migrate.Migrate, error) {
	var driver database.Driver
	var err error
	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: migrationsTable})
	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db, &mysql.Config{MigrationsTable: migrationsTable})
	case schema.PostgreSQLBackend:
		driver, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	default:
		return nil, fmt.Errorf("migrations are not supported for %s backend", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	// Get the migrations subdirectory for this backend
	migrationFS, err := fs.Sub(migrationsFS, "migrations/"+string(backend))
	if err != nil {
		return nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "peakbase", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// applyMigrations moves m to targetVersion and reports the versions before and after.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations.
// - If targetVersion > 0, it migrates to the specified version.
func applyMigrations(m *migrate.Migrate, targetVersion int) (from, to uint, changed bool, err error) {
	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, 0, false, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return from, from, false, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", from)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return from, from, false, nil
	}
	if err != nil {
		return from, from, false, fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
	}

	to, _, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return from, 0, true, nil
	}
	if err != nil {
		return from, 0, true, fmt.Errorf("failed to read migrated version: %w", err)
	}
	return from, to, true, nil
}

// Migrate runs the schema migrations for backend and prints the outcome to w.
// targetVersion follows applyMigrations: negative is latest, 0 rolls everything back.
func Migrate(w io.Writer, backend schema.DatabaseBackend, connStr string, targetVersion int) error {
	if backend == schema.MemoryBackend {
		return fmt.Errorf("migrations are not supported for %s backend", backend)
	}
	db, err := openDB(backend, connStr)
	if err != nil {
		return err
	}
	m, err := newMigrator(db, backend)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() { _, _ = m.Close() }()

	from, to, changed, err := applyMigrations(m, targetVersion)
	if err != nil {
		return err
	}
	if !changed {
		_, _ = fmt.Fprintf(w, "No migration needed. Database is already at version %d\n", from)
		return nil
	}
	_, _ = fmt.Fprintf(w, "Successfully migrated from version %d to version %d\n", from, to)
	return nil
}

// ensureSchema brings an open store database to the latest schema.
// SQLite migrates over the store's own handle so that in-memory databases
// keep their tables; server backends use a dedicated connection.
func ensureSchema(db *sql.DB, backend schema.DatabaseBackend, connStr string) error {
	if backend == schema.SQLiteBackend {
		m, err := newMigrator(db, backend)
		if err != nil {
			return err
		}
		// Closing m would close the store's handle.
		_, _, _, err = applyMigrations(m, -1)
		return err
	}
	return Migrate(io.Discard, backend, connStr, -1)
}
