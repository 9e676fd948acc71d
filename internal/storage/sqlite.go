package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/dshills/apidex/pkg/types"
)

const (
	// DefaultSearchLimit applies when a search or list call passes a non-positive limit
	DefaultSearchLimit = 10
)

// ErrEmptyQuery is returned when a full-text query has no searchable terms
var ErrEmptyQuery = errors.New("empty search query")

// ErrAmbiguousExample is returned when an example links both a function and a class
var ErrAmbiguousExample = errors.New("example cannot reference both a function and a class")

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	sqlStore
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer; also keeps :memory: databases on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (or creates) the database at dbPath and creates the schema
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := CreateSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return newSQLiteStorage(db), nil
}

// OpenExisting opens a database produced by a previous ingestion. A missing
// file is a *MissingInputError and a file without the schema is a *SchemaError.
func OpenExisting(dbPath string) (*SQLiteStorage, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingInputError{Path: dbPath, What: "database"}
		}
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	version, err := schemaVersion(context.Background(), db)
	if err != nil {
		_ = db.Close()
		return nil, &SchemaError{Err: err}
	}
	if version.String() == "0.0.0" {
		_ = db.Close()
		return nil, &SchemaError{Err: fmt.Errorf("%s has no API schema", dbPath)}
	}

	return newSQLiteStorage(db), nil
}

func newSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{sqlStore: sqlStore{q: db}, db: db}
}

// DB exposes the underlying handle for schema management
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction. While it is open the storage's own
// methods block, since the pool holds a single connection.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{sqlStore: sqlStore{q: tx}, tx: tx}, nil
}

// DeleteClass removes a class with its methods in one transaction
func (s *SQLiteStorage) DeleteClass(ctx context.Context, classID int64) error {
	return s.withTx(ctx, func(st *sqlStore) error {
		return st.DeleteClass(ctx, classID)
	})
}

func (s *SQLiteStorage) withTx(ctx context.Context, fn func(st *sqlStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqlStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	sqlStore
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// sqlStore holds every query; it runs against either the database or a transaction
type sqlStore struct {
	q querier
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Module operations

func (s *sqlStore) InsertModule(ctx context.Context, module *Module) error {
	if module.RootModule == "" {
		module.RootModule = types.RootModule(module.Name)
	}
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO modules (name, docstring, root_module) VALUES (?, ?, ?)`,
		module.Name, module.Docstring, module.RootModule)
	if err != nil {
		if isUniqueViolation(err) {
			return &DuplicateError{Kind: KindModule, Name: module.Name, Err: err}
		}
		return fmt.Errorf("failed to insert module %s: %w", module.Name, err)
	}
	module.ID, err = result.LastInsertId()
	return err
}

func (s *sqlStore) GetModule(ctx context.Context, name string) (*Module, error) {
	var m Module
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, docstring, root_module FROM modules WHERE name = ?`, name,
	).Scan(&m.ID, &m.Name, &m.Docstring, &m.RootModule)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *sqlStore) ListModulesByRoot(ctx context.Context, rootModule string) ([]*Module, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, docstring, root_module FROM modules WHERE root_module = ? ORDER BY name`,
		rootModule)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var modules []*Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Name, &m.Docstring, &m.RootModule); err != nil {
			return nil, err
		}
		modules = append(modules, &m)
	}
	return modules, rows.Err()
}

// Class operations

var classColumns = []string{
	"c.id", "c.name", "c.full_qualified_name", "c.docstring", "c.module_id", "m.name",
}

func classSelect() sq.SelectBuilder {
	return sq.Select(classColumns...).
		From("classes c").
		Join("modules m ON c.module_id = m.id")
}

func scanClass(r rowScanner) (*Class, error) {
	var c Class
	if err := r.Scan(&c.ID, &c.Name, &c.FullQualifiedName, &c.Docstring, &c.ModuleID, &c.ModuleName); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *sqlStore) queryClasses(ctx context.Context, b sq.SelectBuilder) ([]*Class, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var classes []*Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func (s *sqlStore) InsertClass(ctx context.Context, class *Class) error {
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO classes (name, full_qualified_name, docstring, module_id) VALUES (?, ?, ?, ?)`,
		class.Name, class.FullQualifiedName, class.Docstring, class.ModuleID)
	if err != nil {
		if isUniqueViolation(err) {
			return &DuplicateError{Kind: KindClass, Name: class.FullQualifiedName, Err: err}
		}
		return fmt.Errorf("failed to insert class %s: %w", class.FullQualifiedName, err)
	}
	class.ID, err = result.LastInsertId()
	return err
}

// InsertBase records one inheritance edge. Repeated edges are ignored.
func (s *sqlStore) InsertBase(ctx context.Context, classID int64, baseName string) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO class_inheritance (class_id, base_class_name) VALUES (?, ?)`,
		classID, baseName)
	if err != nil {
		return fmt.Errorf("failed to insert base %s: %w", baseName, err)
	}
	return nil
}

// DeleteClass removes the class and its methods. Inheritance edges and
// parameters cascade; examples become orphaned.
func (s *sqlStore) DeleteClass(ctx context.Context, classID int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM functions WHERE class_id = ?`, classID); err != nil {
		return fmt.Errorf("failed to delete methods: %w", err)
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM classes WHERE id = ?`, classID)
	if err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}
	return requireAffected(result)
}

func (s *sqlStore) GetClass(ctx context.Context, qualifiedName string) (*Class, error) {
	query, args, err := classSelect().Where(sq.Eq{"c.full_qualified_name": qualifiedName}).ToSql()
	if err != nil {
		return nil, err
	}
	c, err := scanClass(s.q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

// FindClasses matches a simple or fully qualified name
func (s *sqlStore) FindClasses(ctx context.Context, name string) ([]*Class, error) {
	return s.queryClasses(ctx, classSelect().
		Where(sq.Or{sq.Eq{"c.name": name}, sq.Eq{"c.full_qualified_name": name}}).
		OrderBy("c.full_qualified_name"))
}

func (s *sqlStore) ListClasses(ctx context.Context, filter ListFilter) ([]*Class, error) {
	b := classSelect().OrderBy("c.name", "c.id")
	if filter.Module != "" {
		b = b.Where(sq.Like{"m.name": "%" + filter.Module + "%"})
	}
	if filter.Name != "" {
		b = b.Where(sq.Like{"c.name": "%" + filter.Name + "%"})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	return s.queryClasses(ctx, b)
}

func (s *sqlStore) ListBases(ctx context.Context, classID int64) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT base_class_name FROM class_inheritance WHERE class_id = ? ORDER BY base_class_name`,
		classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bases []string
	for rows.Next() {
		var base string
		if err := rows.Scan(&base); err != nil {
			return nil, err
		}
		bases = append(bases, base)
	}
	return bases, rows.Err()
}

// ListSubclasses returns classes declaring any of the given base names
func (s *sqlStore) ListSubclasses(ctx context.Context, baseNames []string) ([]*Class, error) {
	if len(baseNames) == 0 {
		return nil, nil
	}
	return s.queryClasses(ctx, classSelect().
		Distinct().
		Join("class_inheritance ci ON ci.class_id = c.id").
		Where(sq.Eq{"ci.base_class_name": baseNames}).
		OrderBy("c.full_qualified_name"))
}

// Function operations

var functionColumns = []string{
	"f.id", "f.name", "f.full_qualified_name", "f.signature_string", "f.docstring",
	"f.return_annotation", "f.is_async", "f.is_classmethod", "f.is_staticmethod",
	"f.class_id", "f.module_id", "m.name", "COALESCE(c.name, '')",
}

func functionSelect() sq.SelectBuilder {
	return sq.Select(functionColumns...).
		From("functions f").
		Join("modules m ON f.module_id = m.id").
		LeftJoin("classes c ON f.class_id = c.id")
}

func scanFunction(r rowScanner) (*Function, error) {
	var f Function
	var classID sql.NullInt64
	err := r.Scan(&f.ID, &f.Name, &f.FullQualifiedName, &f.SignatureString, &f.Docstring,
		&f.ReturnAnnotation, &f.IsAsync, &f.IsClassMethod, &f.IsStaticMethod,
		&classID, &f.ModuleID, &f.ModuleName, &f.ClassName)
	if err != nil {
		return nil, err
	}
	if classID.Valid {
		id := classID.Int64
		f.ClassID = &id
	}
	return &f, nil
}

func (s *sqlStore) queryFunctions(ctx context.Context, b sq.SelectBuilder) ([]*Function, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query functions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var functions []*Function
	for rows.Next() {
		f, err := scanFunction(rows)
		if err != nil {
			return nil, err
		}
		functions = append(functions, f)
	}
	return functions, rows.Err()
}

func (s *sqlStore) InsertFunction(ctx context.Context, function *Function) error {
	result, err := s.q.ExecContext(ctx, `
		INSERT INTO functions (
			name, full_qualified_name, signature_string, docstring, return_annotation,
			is_async, is_classmethod, is_staticmethod, class_id, module_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		function.Name, function.FullQualifiedName, function.SignatureString,
		function.Docstring, function.ReturnAnnotation,
		function.IsAsync, function.IsClassMethod, function.IsStaticMethod,
		function.ClassID, function.ModuleID)
	if err != nil {
		if isUniqueViolation(err) {
			return &DuplicateError{Kind: KindFunction, Name: function.FullQualifiedName, Err: err}
		}
		return fmt.Errorf("failed to insert function %s: %w", function.FullQualifiedName, err)
	}
	function.ID, err = result.LastInsertId()
	return err
}

func (s *sqlStore) InsertParameter(ctx context.Context, param *Parameter) error {
	if !param.Kind.Valid() {
		return fmt.Errorf("parameter %s: %w: %q", param.Name, types.ErrInvalidParameterKind, param.Kind)
	}
	result, err := s.q.ExecContext(ctx, `
		INSERT INTO parameters (function_id, name, kind, annotation, default_value, position)
		VALUES (?, ?, ?, ?, ?, ?)`,
		param.FunctionID, param.Name, string(param.Kind), param.Annotation, param.DefaultValue, param.Position)
	if err != nil {
		return fmt.Errorf("failed to insert parameter %s: %w", param.Name, err)
	}
	param.ID, err = result.LastInsertId()
	return err
}

// DeleteFunction removes a function; its parameters cascade and its examples become orphaned
func (s *sqlStore) DeleteFunction(ctx context.Context, functionID int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM functions WHERE id = ?`, functionID)
	if err != nil {
		return fmt.Errorf("failed to delete function: %w", err)
	}
	return requireAffected(result)
}

func (s *sqlStore) GetFunction(ctx context.Context, qualifiedName string) (*Function, error) {
	query, args, err := functionSelect().Where(sq.Eq{"f.full_qualified_name": qualifiedName}).ToSql()
	if err != nil {
		return nil, err
	}
	f, err := scanFunction(s.q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return f, err
}

// FindFunctions matches a simple or fully qualified name, methods included
func (s *sqlStore) FindFunctions(ctx context.Context, name string) ([]*Function, error) {
	return s.queryFunctions(ctx, functionSelect().
		Where(sq.Or{sq.Eq{"f.name": name}, sq.Eq{"f.full_qualified_name": name}}).
		OrderBy("f.class_id IS NOT NULL", "f.full_qualified_name"))
}

// FindMethods resolves "Class.method" where the class is given by simple or qualified name
func (s *sqlStore) FindMethods(ctx context.Context, className, methodName string) ([]*Function, error) {
	return s.queryFunctions(ctx, functionSelect().
		Where(sq.Or{sq.Eq{"c.name": className}, sq.Eq{"c.full_qualified_name": className}}).
		Where(sq.Eq{"f.name": methodName}).
		OrderBy("f.full_qualified_name"))
}

// ListFunctions lists module-level functions unless filter.IncludeMethods is set
func (s *sqlStore) ListFunctions(ctx context.Context, filter ListFilter) ([]*Function, error) {
	b := functionSelect().OrderBy("f.name", "f.id")
	if !filter.IncludeMethods {
		b = b.Where(sq.Eq{"f.class_id": nil})
	}
	if filter.Module != "" {
		b = b.Where(sq.Like{"m.name": "%" + filter.Module + "%"})
	}
	if filter.Name != "" {
		b = b.Where(sq.Like{"f.name": "%" + filter.Name + "%"})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	return s.queryFunctions(ctx, b)
}

func (s *sqlStore) ListMethods(ctx context.Context, classID int64) ([]*Function, error) {
	return s.queryFunctions(ctx, functionSelect().
		Where(sq.Eq{"f.class_id": classID}).
		OrderBy("f.name", "f.id"))
}

func (s *sqlStore) ListParameters(ctx context.Context, functionID int64) ([]*Parameter, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, function_id, name, kind, annotation, default_value, position
		FROM parameters
		WHERE function_id = ?
		ORDER BY position`, functionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list parameters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var params []*Parameter
	for rows.Next() {
		var p Parameter
		var kind string
		if err := rows.Scan(&p.ID, &p.FunctionID, &p.Name, &kind, &p.Annotation, &p.DefaultValue, &p.Position); err != nil {
			return nil, err
		}
		p.Kind = types.ParameterKind(kind)
		params = append(params, &p)
	}
	return params, rows.Err()
}

// Example operations

func (s *sqlStore) InsertExample(ctx context.Context, example *Example) error {
	if example.FunctionID != nil && example.ClassID != nil {
		return ErrAmbiguousExample
	}
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO examples (code, description, function_id, class_id) VALUES (?, ?, ?, ?)`,
		example.Code, example.Description, example.FunctionID, example.ClassID)
	if err != nil {
		return fmt.Errorf("failed to insert example: %w", err)
	}
	example.ID, err = result.LastInsertId()
	return err
}

func (s *sqlStore) queryExamples(ctx context.Context, b sq.SelectBuilder) ([]*Example, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query examples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var examples []*Example
	for rows.Next() {
		var e Example
		var functionID, classID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Code, &e.Description, &functionID, &classID); err != nil {
			return nil, err
		}
		if functionID.Valid {
			id := functionID.Int64
			e.FunctionID = &id
		}
		if classID.Valid {
			id := classID.Int64
			e.ClassID = &id
		}
		examples = append(examples, &e)
	}
	return examples, rows.Err()
}

func exampleSelect() sq.SelectBuilder {
	return sq.Select("id", "code", "description", "function_id", "class_id").From("examples")
}

// ListExamples returns the examples of the referenced entity; an empty ref
// selects orphaned examples
func (s *sqlStore) ListExamples(ctx context.Context, ref ExampleRef) ([]*Example, error) {
	b := exampleSelect().OrderBy("id")
	switch {
	case ref.FunctionID != nil:
		b = b.Where(sq.Eq{"function_id": *ref.FunctionID})
	case ref.ClassID != nil:
		b = b.Where(sq.Eq{"class_id": *ref.ClassID})
	default:
		b = b.Where(sq.Eq{"function_id": nil, "class_id": nil})
	}
	return s.queryExamples(ctx, b)
}

// SearchExamples matches a substring of the code or the description
func (s *sqlStore) SearchExamples(ctx context.Context, query string, limit int) ([]*Example, error) {
	pattern := "%" + query + "%"
	return s.queryExamples(ctx, exampleSelect().
		Where(sq.Or{sq.Like{"code": pattern}, sq.Like{"description": pattern}}).
		OrderBy("id").
		Limit(uint64(normalizeLimit(limit))))
}

// Search operations

// SearchClasses runs a full-text query over the class shadow index, best match first
func (s *sqlStore) SearchClasses(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	match, err := buildMatchQuery(query)
	if err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT c.id, c.name, c.full_qualified_name, c.docstring, '', classes_fts.rank
		FROM classes_fts
		JOIN classes c ON classes_fts.rowid = c.id
		WHERE classes_fts MATCH ?
		ORDER BY classes_fts.rank
		LIMIT ?`, match, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search classes: %w", err)
	}
	return collectHits(rows, types.EntityClass)
}

// SearchFunctions runs a full-text query over the function shadow index, best match first
func (s *sqlStore) SearchFunctions(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	match, err := buildMatchQuery(query)
	if err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT f.id, f.name, f.full_qualified_name, f.docstring, f.signature_string, functions_fts.rank
		FROM functions_fts
		JOIN functions f ON functions_fts.rowid = f.id
		WHERE functions_fts MATCH ?
		ORDER BY functions_fts.rank
		LIMIT ?`, match, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search functions: %w", err)
	}
	return collectHits(rows, types.EntityFunction)
}

func collectHits(rows *sql.Rows, kind types.EntityType) ([]SearchHit, error) {
	defer func() { _ = rows.Close() }()

	var hits []SearchHit
	for rows.Next() {
		h := SearchHit{Type: kind}
		if err := rows.Scan(&h.ID, &h.Name, &h.FullQualifiedName, &h.Docstring, &h.SignatureString, &h.Rank); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// buildMatchQuery turns free text into an FTS5 expression: each term becomes a
// quoted string so operators and punctuation are matched literally. A trailing
// '*' keeps its prefix-query meaning.
func buildMatchQuery(query string) (string, error) {
	terms := strings.Fields(query)
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		prefix := strings.HasSuffix(term, "*")
		term = strings.TrimRight(term, "*")
		if term == "" {
			continue
		}
		quoted := `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
		if prefix {
			quoted += "*"
		}
		parts = append(parts, quoted)
	}
	if len(parts) == 0 {
		return "", ErrEmptyQuery
	}
	return strings.Join(parts, " "), nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}

// Partition export

// ExportEntities lists every class and function (methods included) ordered
// by type, then name, then id
func (s *sqlStore) ExportEntities(ctx context.Context) ([]types.Entity, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT 'CLASS' AS type, id, name, full_qualified_name FROM classes
		UNION ALL
		SELECT 'FUNCTION' AS type, id, name, full_qualified_name FROM functions
		ORDER BY type, name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to export entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []types.Entity
	for rows.Next() {
		var e types.Entity
		var kind string
		if err := rows.Scan(&kind, &e.ID, &e.Name, &e.FullQualifiedName); err != nil {
			return nil, err
		}
		e.Type = types.EntityType(kind)
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// Status operations

func (s *sqlStore) GetStatistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	var sizeBytes int64
	err := s.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM modules),
			(SELECT COUNT(*) FROM classes),
			(SELECT COUNT(*) FROM functions WHERE class_id IS NULL),
			(SELECT COUNT(*) FROM functions WHERE class_id IS NOT NULL),
			(SELECT COUNT(*) FROM parameters),
			(SELECT COUNT(*) FROM examples),
			(SELECT COUNT(*) FROM class_inheritance),
			(SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size())
	`).Scan(&stats.Modules, &stats.Classes, &stats.Functions, &stats.Methods,
		&stats.Parameters, &stats.Examples, &stats.Bases, &sizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	stats.SizeMB = float64(sizeBytes) / (1024 * 1024)
	return &stats, nil
}

func (s *sqlStore) GetCoverage(ctx context.Context) (*Coverage, error) {
	var cov Coverage
	var functionExamples, classExamples int
	err := s.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM examples),
			(SELECT COUNT(*) FROM functions),
			(SELECT COUNT(*) FROM classes),
			(SELECT COUNT(DISTINCT function_id) FROM examples WHERE function_id IS NOT NULL),
			(SELECT COUNT(DISTINCT class_id) FROM examples WHERE class_id IS NOT NULL),
			(SELECT COUNT(*) FROM examples WHERE function_id IS NULL AND class_id IS NULL),
			(SELECT COUNT(*) FROM examples WHERE function_id IS NOT NULL),
			(SELECT COUNT(*) FROM examples WHERE class_id IS NOT NULL)
	`).Scan(&cov.TotalExamples, &cov.TotalFunctions, &cov.TotalClasses,
		&cov.FunctionsCovered, &cov.ClassesCovered, &cov.OrphanedExamples,
		&functionExamples, &classExamples)
	if err != nil {
		return nil, fmt.Errorf("failed to get coverage: %w", err)
	}
	cov.AvgExamplesPerFunction = ratio(functionExamples, cov.FunctionsCovered)
	cov.AvgExamplesPerClass = ratio(classExamples, cov.ClassesCovered)
	return &cov, nil
}

// Run bookkeeping

func (s *sqlStore) RecordRun(ctx context.Context, run *IngestRun) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ingest_runs (
			run_id, source, started_at, finished_at,
			modules, classes, functions, methods, parameters
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Source, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Modules, run.Classes, run.Functions, run.Methods, run.Parameters)
	if err != nil {
		return fmt.Errorf("failed to record ingest run: %w", err)
	}
	return nil
}

func (s *sqlStore) LatestRun(ctx context.Context) (*IngestRun, error) {
	var run IngestRun
	var source sql.NullString
	var finishedAt sql.NullTime
	err := s.q.QueryRowContext(ctx, `
		SELECT run_id, source, started_at, finished_at,
		       modules, classes, functions, methods, parameters
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT 1`,
	).Scan(&run.RunID, &source, &run.StartedAt, &finishedAt,
		&run.Modules, &run.Classes, &run.Functions, &run.Methods, &run.Parameters)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	run.Source = source.String
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return &run, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports a UNIQUE or PRIMARY KEY constraint failure
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if driverUniqueViolation(err) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var (
	_ Storage = (*SQLiteStorage)(nil)
	_ Tx      = (*sqliteTx)(nil)
)
