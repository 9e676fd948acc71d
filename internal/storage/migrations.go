package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a database schema migration. Statements run in order
// inside a single transaction.
type Migration struct {
	Version string
	Up      []string
	Down    []string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

var migrationV1Up = []string{
	// Schema version tracking
	`CREATE TABLE IF NOT EXISTS schema_version (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	// Base tables in dependency order
	`CREATE TABLE IF NOT EXISTS modules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		docstring TEXT,
		root_module TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS classes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		full_qualified_name TEXT NOT NULL UNIQUE,
		docstring TEXT,
		module_id INTEGER NOT NULL,
		FOREIGN KEY (module_id) REFERENCES modules(id)
	)`,
	`CREATE TABLE IF NOT EXISTS class_inheritance (
		class_id INTEGER NOT NULL,
		base_class_name TEXT NOT NULL,
		FOREIGN KEY (class_id) REFERENCES classes(id) ON DELETE CASCADE,
		PRIMARY KEY (class_id, base_class_name)
	)`,
	`CREATE TABLE IF NOT EXISTS functions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		full_qualified_name TEXT NOT NULL UNIQUE,
		signature_string TEXT NOT NULL,
		docstring TEXT,
		return_annotation TEXT,
		is_async INTEGER NOT NULL DEFAULT 0,
		is_classmethod INTEGER NOT NULL DEFAULT 0,
		is_staticmethod INTEGER NOT NULL DEFAULT 0,
		class_id INTEGER,
		module_id INTEGER NOT NULL,
		FOREIGN KEY (class_id) REFERENCES classes(id),
		FOREIGN KEY (module_id) REFERENCES modules(id)
	)`,
	`CREATE TABLE IF NOT EXISTS parameters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		function_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN (
			'POSITIONAL_ONLY', 'POSITIONAL_OR_KEYWORD', 'VAR_POSITIONAL',
			'KEYWORD_ONLY', 'VAR_KEYWORD'
		)),
		annotation TEXT,
		default_value TEXT,
		position INTEGER NOT NULL CHECK (position >= 0),
		FOREIGN KEY (function_id) REFERENCES functions(id) ON DELETE CASCADE,
		UNIQUE (function_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS examples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL,
		description TEXT,
		function_id INTEGER,
		class_id INTEGER,
		FOREIGN KEY (function_id) REFERENCES functions(id) ON DELETE SET NULL,
		FOREIGN KEY (class_id) REFERENCES classes(id) ON DELETE SET NULL,
		CHECK (function_id IS NULL OR class_id IS NULL)
	)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		run_id TEXT PRIMARY KEY,
		source TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		modules INTEGER NOT NULL DEFAULT 0,
		classes INTEGER NOT NULL DEFAULT 0,
		functions INTEGER NOT NULL DEFAULT 0,
		methods INTEGER NOT NULL DEFAULT 0,
		parameters INTEGER NOT NULL DEFAULT 0
	)`,

	// Indexes
	`CREATE INDEX IF NOT EXISTS idx_classes_module ON classes(module_id)`,
	`CREATE INDEX IF NOT EXISTS idx_classes_name ON classes(name)`,
	`CREATE INDEX IF NOT EXISTS idx_functions_class ON functions(class_id)`,
	`CREATE INDEX IF NOT EXISTS idx_functions_module ON functions(module_id)`,
	`CREATE INDEX IF NOT EXISTS idx_functions_name ON functions(name)`,
	`CREATE INDEX IF NOT EXISTS idx_parameters_function ON parameters(function_id)`,
	`CREATE INDEX IF NOT EXISTS idx_modules_root ON modules(root_module)`,

	// Full-text search shadow indexes
	`CREATE VIRTUAL TABLE IF NOT EXISTS classes_fts USING fts5(
		name,
		full_qualified_name,
		docstring,
		content='classes',
		content_rowid='id'
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS functions_fts USING fts5(
		name,
		full_qualified_name,
		docstring,
		signature_string,
		content='functions',
		content_rowid='id'
	)`,

	// Triggers to keep FTS in sync. External-content tables need the
	// 'delete' command with the old values to remove a row.
	`CREATE TRIGGER IF NOT EXISTS classes_ai AFTER INSERT ON classes BEGIN
		INSERT INTO classes_fts(rowid, name, full_qualified_name, docstring)
		VALUES (new.id, new.name, new.full_qualified_name, new.docstring);
	END`,
	`CREATE TRIGGER IF NOT EXISTS classes_ad AFTER DELETE ON classes BEGIN
		INSERT INTO classes_fts(classes_fts, rowid, name, full_qualified_name, docstring)
		VALUES ('delete', old.id, old.name, old.full_qualified_name, old.docstring);
	END`,
	`CREATE TRIGGER IF NOT EXISTS classes_au AFTER UPDATE ON classes BEGIN
		INSERT INTO classes_fts(classes_fts, rowid, name, full_qualified_name, docstring)
		VALUES ('delete', old.id, old.name, old.full_qualified_name, old.docstring);
		INSERT INTO classes_fts(rowid, name, full_qualified_name, docstring)
		VALUES (new.id, new.name, new.full_qualified_name, new.docstring);
	END`,
	`CREATE TRIGGER IF NOT EXISTS functions_ai AFTER INSERT ON functions BEGIN
		INSERT INTO functions_fts(rowid, name, full_qualified_name, docstring, signature_string)
		VALUES (new.id, new.name, new.full_qualified_name, new.docstring, new.signature_string);
	END`,
	`CREATE TRIGGER IF NOT EXISTS functions_ad AFTER DELETE ON functions BEGIN
		INSERT INTO functions_fts(functions_fts, rowid, name, full_qualified_name, docstring, signature_string)
		VALUES ('delete', old.id, old.name, old.full_qualified_name, old.docstring, old.signature_string);
	END`,
	`CREATE TRIGGER IF NOT EXISTS functions_au AFTER UPDATE ON functions BEGIN
		INSERT INTO functions_fts(functions_fts, rowid, name, full_qualified_name, docstring, signature_string)
		VALUES ('delete', old.id, old.name, old.full_qualified_name, old.docstring, old.signature_string);
		INSERT INTO functions_fts(rowid, name, full_qualified_name, docstring, signature_string)
		VALUES (new.id, new.name, new.full_qualified_name, new.docstring, new.signature_string);
	END`,
}

var migrationV1Down = []string{
	`DROP TRIGGER IF EXISTS functions_au`,
	`DROP TRIGGER IF EXISTS functions_ad`,
	`DROP TRIGGER IF EXISTS functions_ai`,
	`DROP TRIGGER IF EXISTS classes_au`,
	`DROP TRIGGER IF EXISTS classes_ad`,
	`DROP TRIGGER IF EXISTS classes_ai`,
	`DROP TABLE IF EXISTS functions_fts`,
	`DROP TABLE IF EXISTS classes_fts`,
	`DROP TABLE IF EXISTS ingest_runs`,
	`DROP TABLE IF EXISTS examples`,
	`DROP TABLE IF EXISTS parameters`,
	`DROP TABLE IF EXISTS functions`,
	`DROP TABLE IF EXISTS class_inheritance`,
	`DROP TABLE IF EXISTS classes`,
	`DROP TABLE IF EXISTS modules`,
}

// CreateSchema creates every table, index, shadow search index and sync
// trigger. It is idempotent and commits all DDL before returning.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	return ApplyMigrations(ctx, db)
}

// ApplyMigrations runs all pending migrations, each in its own transaction
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	currentVersion, err := schemaVersion(ctx, db)
	if err != nil {
		return &SchemaError{Err: err}
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return &SchemaError{Version: migration.Version, Err: fmt.Errorf("invalid migration version: %w", err)}
		}

		// Skip if already applied
		if !currentVersion.LessThan(migrationVersion) {
			continue
		}

		if err := applyMigration(ctx, db, migration); err != nil {
			return err
		}

		currentVersion = migrationVersion
	}

	return nil
}

// schemaVersion returns the most recently applied version, 0.0.0 on a fresh database
func schemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	var versionStr string
	err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC, version DESC LIMIT 1").Scan(&versionStr)
	if err == sql.ErrNoRows || versionStr == "" {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}

	v, err := semver.NewVersion(versionStr)
	if err != nil {
		return nil, fmt.Errorf("invalid current schema version %s: %w", versionStr, err)
	}
	return v, nil
}

func applyMigration(ctx context.Context, db *sql.DB, migration Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &SchemaError{Version: migration.Version, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range migration.Up {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return &SchemaError{Version: migration.Version, Statement: stmt, Err: err}
		}
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
		return &SchemaError{Version: migration.Version, Err: fmt.Errorf("failed to record migration: %w", err)}
	}

	if err := tx.Commit(); err != nil {
		return &SchemaError{Version: migration.Version, Err: fmt.Errorf("failed to commit migration: %w", err)}
	}
	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	var currentVersion string
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC, version DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	var migration *Migration
	for i := range AllMigrations {
		if AllMigrations[i].Version == currentVersion {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", currentVersion)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range migration.Down {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return &SchemaError{Version: currentVersion, Statement: stmt, Err: err}
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", currentVersion); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", currentVersion, err)
	}

	return tx.Commit()
}
