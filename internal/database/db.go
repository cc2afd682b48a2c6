package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// DB wraps the database connection with dialect support
type DB struct {
	*sqlx.DB
	Dialect Dialect
}

// Initialize opens a SQLite database file. This is what the local cache uses.
func Initialize(dbPath string) (*DB, error) {
	return open(NewSQLiteDialect(), DialectConfig{Path: dbPath})
}

// InitializeMemory opens a private in-memory SQLite database.
// Nothing written to it survives Close.
func InitializeMemory() (*DB, error) {
	db, err := open(NewSQLiteDialect(), DialectConfig{Path: ":memory:"})
	if err != nil {
		return nil, err
	}
	// Every pooled connection would otherwise get its own empty database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	return db, nil
}

// InitializeWithType opens a database of the given type (sqlite, postgres, mysql)
func InitializeWithType(databaseType, url, path string) (*DB, error) {
	dialect, err := DialectFor(databaseType)
	if err != nil {
		return nil, err
	}
	return open(dialect, DialectConfig{Path: path, URL: url})
}

// DialectFor resolves a dialect from its configured name
func DialectFor(databaseType string) (Dialect, error) {
	switch strings.ToLower(databaseType) {
	case "postgres", "postgresql":
		return NewPostgresDialect(), nil
	case "mysql":
		return NewMySQLDialect(), nil
	case "sqlite", "sqlite3", "":
		return NewSQLiteDialect(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", databaseType)
	}
}

func open(dialect Dialect, cfg DialectConfig) (*DB, error) {
	db, err := sqlx.Open(dialect.DriverName(), dialect.DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Apply dialect-specific configuration
	if err := dialect.ConfigureConnection(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// ExecContext executes a query that doesn't return rows with automatic placeholder rewriting
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Dialect.RewriteQuery(query), args...)
}

// GetContext scans a single row into dest with automatic placeholder rewriting
func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return db.DB.GetContext(ctx, dest, db.Dialect.RewriteQuery(query), args...)
}

// SelectContext scans all rows into dest with automatic placeholder rewriting
func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return db.DB.SelectContext(ctx, dest, db.Dialect.RewriteQuery(query), args...)
}
