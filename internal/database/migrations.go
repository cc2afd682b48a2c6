package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
)

//go:embed migrations
var migrationFiles embed.FS

// Schema sets. Each holds one subdirectory per dialect.
const (
	CacheSchema  = "migrations/cache"
	RemoteSchema = "migrations/remote"
)

// RunMigrations executes all pending SQL migration files of a schema set.
// Migrations only ever add tables and indexes, so a version bump never drops existing data.
func (db *DB) RunMigrations(ctx context.Context, schema string) error {
	// Create migrations table if it doesn't exist
	if _, err := db.DB.ExecContext(ctx, db.Dialect.CreateMigrationsTableQuery()); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	dir := path.Join(schema, db.Dialect.MigrationsSubdir())
	files, err := fs.Glob(migrationFiles, dir+"/*.sql")
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations for %s (%s)", schema, db.Dialect.MigrationsSubdir())
	}

	// Sort files to ensure they run in order
	sort.Strings(files)

	for _, file := range files {
		// Recorded as "cache/001_init.sql" so both schema sets can share one database
		name := path.Join(path.Base(schema), path.Base(file))

		hasRun, err := db.hasMigrationRun(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if hasRun {
			continue
		}

		content, err := migrationFiles.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		if err := db.executeMigration(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}

		if err := db.recordMigration(ctx, name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}

		log.Printf("Migration completed: %s", name)
	}

	return nil
}

// SchemaVersion returns how many migrations of a schema set have been applied
func (db *DB) SchemaVersion(ctx context.Context, schema string) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM migrations WHERE filename LIKE ?"
	err := db.GetContext(ctx, &count, query, path.Base(schema)+"/%")
	return count, err
}

// hasMigrationRun checks if a migration has already been executed
func (db *DB) hasMigrationRun(ctx context.Context, filename string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM migrations WHERE filename = ?"
	if err := db.GetContext(ctx, &count, query, filename); err != nil {
		return false, err
	}
	return count > 0, nil
}

// executeMigration runs the SQL statements in a migration one at a time,
// since not every driver accepts multiple statements per Exec.
func (db *DB) executeMigration(ctx context.Context, content string) error {
	for _, stmt := range strings.Split(content, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// recordMigration marks a migration as completed
func (db *DB) recordMigration(ctx context.Context, filename string) error {
	query := "INSERT INTO migrations (filename) VALUES (?)"
	_, err := db.ExecContext(ctx, query, filename)
	return err
}
