// Package storage provides SQLite-based persistence for introspected API metadata.
//
// The storage layer manages:
//   - Modules, classes and inheritance edges
//   - Functions and methods with their parameters
//   - Code examples linked to functions or classes
//   - Ingestion run records
//   - Full-text search indexes
//
// # Database Schema
//
// Tables:
//   - modules: Dotted module names with their root package
//   - classes: Classes keyed by fully qualified name
//   - class_inheritance: (class, base name) edges; bases are free text
//   - functions: Module-level functions (class_id NULL) and methods
//   - parameters: Declared parameters with zero-based position
//   - examples: Code examples, orphaned when both links are NULL
//   - ingest_runs: One row per ingestion pass
//   - classes_fts, functions_fts: FTS5 external-content indexes
//
// The FTS5 tables are kept in sync by AFTER INSERT/DELETE/UPDATE triggers, so
// they change inside the same transaction as the base rows.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("api.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	mod := &storage.Module{Name: "pkg.sub"}
//	if err := tx.InsertModule(ctx, mod); err != nil {
//	    return err // *DuplicateError on a repeated name
//	}
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// The pool holds one connection. Calling the storage's own methods while a
// transaction is open blocks until it ends; use the Tx instead.
//
// # Full-Text Search
//
//	hits, err := db.SearchFunctions(ctx, "parse json", 10)
//	for _, hit := range hits {
//	    fmt.Printf("%s %s (rank %.3f)\n", hit.FullQualifiedName, hit.SignatureString, hit.Rank)
//	}
//
// Each whitespace separated term is matched literally; a trailing '*' makes
// it a prefix query.
//
// # Build Tags
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO Build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo,sqlite_fts5" ./...
package storage
