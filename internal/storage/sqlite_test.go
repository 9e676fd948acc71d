package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/apidex/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func mustModule(t *testing.T, s Writer, name string) *Module {
	t.Helper()
	m := &Module{Name: name}
	require.NoError(t, s.InsertModule(context.Background(), m))
	return m
}

func mustClass(t *testing.T, s Writer, mod *Module, name string, doc *string) *Class {
	t.Helper()
	c := &Class{
		Name:              name,
		FullQualifiedName: mod.Name + "." + name,
		Docstring:         doc,
		ModuleID:          mod.ID,
	}
	require.NoError(t, s.InsertClass(context.Background(), c))
	return c
}

func mustFunction(t *testing.T, s Writer, mod *Module, class *Class, name, signature string) *Function {
	t.Helper()
	f := &Function{
		Name:            name,
		SignatureString: signature,
		ModuleID:        mod.ID,
	}
	if class != nil {
		f.ClassID = &class.ID
		f.FullQualifiedName = class.FullQualifiedName + "." + name
	} else {
		f.FullQualifiedName = mod.Name + "." + name
	}
	require.NoError(t, s.InsertFunction(context.Background(), f))
	return f
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage.DB())
	assert.NoError(t, storage.Close())
}

func TestInsertModule(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	tests := []struct {
		name string
		root string
	}{
		{"pkg", "pkg"},
		{"pkg.sub", "pkg"},
		{"pkg.sub.deep", "pkg"},
		{"other.x", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Module{Name: tt.name, Docstring: types.StringPtr("doc " + tt.name)}
			require.NoError(t, storage.InsertModule(ctx, m))
			assert.Greater(t, m.ID, int64(0))

			got, err := storage.GetModule(ctx, tt.name)
			require.NoError(t, err)
			assert.Equal(t, m.ID, got.ID)
			assert.Equal(t, tt.root, got.RootModule)
			require.NotNil(t, got.Docstring)
			assert.Equal(t, "doc "+tt.name, *got.Docstring)
		})
	}

	mods, err := storage.ListModulesByRoot(ctx, "pkg")
	require.NoError(t, err)
	require.Len(t, mods, 3)
	assert.Equal(t, "pkg", mods[0].Name)
	assert.Equal(t, "pkg.sub", mods[1].Name)
	assert.Equal(t, "pkg.sub.deep", mods[2].Name)
}

func TestInsertModule_Duplicate(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	mustModule(t, storage, "pkg")
	err := storage.InsertModule(context.Background(), &Module{Name: "pkg"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateModule)
	assert.NotErrorIs(t, err, ErrDuplicateClass)

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, KindModule, dup.Kind)
	assert.Equal(t, "pkg", dup.Name)
}

func TestGetModule_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	_, err := storage.GetModule(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertClass(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	mod := mustModule(t, storage, "pkg.sub")
	c := mustClass(t, storage, mod, "Widget", types.StringPtr("A widget."))

	got, err := storage.GetClass(ctx, "pkg.sub.Widget")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "Widget", got.Name)
	assert.Equal(t, mod.ID, got.ModuleID)
	assert.Equal(t, "pkg.sub", got.ModuleName)

	// Duplicate qualified name
	err = storage.InsertClass(ctx, &Class{Name: "Widget", FullQualifiedName: "pkg.sub.Widget", ModuleID: mod.ID})
	assert.ErrorIs(t, err, ErrDuplicateClass)

	_, err = storage.GetClass(ctx, "pkg.sub.Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertClass_RequiresModule(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	err := storage.InsertClass(context.Background(), &Class{Name: "X", FullQualifiedName: "x.X", ModuleID: 999})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateClass)
}

func TestInsertBase(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	mod := mustModule(t, storage, "pkg")
	base := mustClass(t, storage, mod, "Base", nil)
	child := mustClass(t, storage, mod, "Child", nil)

	require.NoError(t, storage.InsertBase(ctx, child.ID, "pkg.Base"))
	require.NoError(t, storage.InsertBase(ctx, child.ID, "Mixin"))
	// Repeated edge is ignored
	require.NoError(t, storage.InsertBase(ctx, child.ID, "Mixin"))

	bases, err := storage.ListBases(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mixin", "pkg.Base"}, bases)

	subs, err := storage.ListSubclasses(ctx, []string{base.Name, base.FullQualifiedName})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, child.ID, subs[0].ID)

	subs, err = storage.ListSubclasses(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestInsertFunction(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	mod := mustModule(t, storage, "pkg")
	f := &Function{
		Name:              "load",
		FullQualifiedName: "pkg.load",
		SignatureString:   "(path, *, strict=False) -> dict",
		Docstring:         types.StringPtr("Load a file."),
		ReturnAnnotation:  types.StringPtr("dict"),
		IsAsync:           true,
		ModuleID:          mod.ID,
	}
	require.NoError(t, storage.InsertFunction(ctx, f))

	got, err := storage.GetFunction(ctx, "pkg.load")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, f.SignatureString, got.SignatureString)
	assert.True(t, got.IsAsync)
	assert.False(t, got.IsClassMethod)
	assert.False(t, got.IsStaticMethod)
	assert.False(t, got.IsMethod())
	assert.Nil(t, got.ClassID)
	require.NotNil(t, got.ReturnAnnotation)
	assert.Equal(t, "dict", *got.ReturnAnnotation)
	assert.Equal(t, "pkg", got.ModuleName)

	err = storage.InsertFunction(ctx, &Function{Name: "load", FullQualifiedName: "pkg.load", ModuleID: mod.ID})
	assert.ErrorIs(t, err, ErrDuplicateFunction)
}

func TestInsertParameter(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	mod := mustModule(t, storage, "pkg")
	f := mustFunction(t, storage, mod, nil, "load", "(path, *args, strict=False, **kw)")

	params := []*Parameter{
		{Name: "path", Kind: types.KindPositionalOrKeyword},
		{Name: "args", Kind: types.KindVarPositional},
		{Name: "strict", Kind: types.KindKeywordOnly, Annotation: types.StringPtr("bool"), DefaultValue: types.StringPtr("False")},
		{Name: "kw", Kind: types.KindVarKeyword},
	}
	// Insert out of order; reads come back by position
	for _, i := range []int{2, 0, 3, 1} {
		p := params[i]
		p.FunctionID = f.ID
		p.Position = i
		require.NoError(t, storage.InsertParameter(ctx, p))
	}

	got, err := storage.ListParameters(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, p := range got {
		assert.Equal(t, i, p.Position)
		assert.Equal(t, params[i].Name, p.Name)
		assert.Equal(t, params[i].Kind, p.Kind)
	}
	require.NotNil(t, got[2].DefaultValue)
	assert.Equal(t, "False", *got[2].DefaultValue)
	assert.Nil(t, got[0].Annotation)

	// Position is unique per function
	err = storage.InsertParameter(ctx, &Parameter{FunctionID: f.ID, Name: "dup", Kind: types.KindKeywordOnly, Position: 1})
	assert.Error(t, err)

	// Kind is a closed set
	err = storage.InsertParameter(ctx, &Parameter{FunctionID: f.ID, Name: "bad", Kind: "KEYWORD", Position: 9})
	assert.ErrorIs(t, err, types.ErrInvalidParameterKind)
}

func TestFindFunctionsAndMethods(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	mod := mustModule(t, storage, "pkg")
	widget := mustClass(t, storage, mod, "Widget", nil)
	gadget := mustClass(t, storage, mod, "Gadget", nil)
	mustFunction(t, storage, mod, nil, "render", "()")
	wr := mustFunction(t, storage, mod, widget, "render", "(self)")
	mustFunction(t, storage, mod, gadget, "render", "(self)")

	found, err := storage.FindFunctions(ctx, "render")
	require.NoError(t, err)
	require.Len(t, found, 3)
	// Module-level function sorts first
	assert.Equal(t, "pkg.render", found[0].FullQualifiedName)

	methods, err := storage.FindMethods(ctx, "Widget", "render")
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, wr.ID, methods[0].ID)
	assert.Equal(t, "Widget", methods[0].ClassName)
	assert.True(t, methods[0].IsMethod())

	methods, err = storage.FindMethods(ctx, "pkg.Gadget", "render")
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "pkg.Gadget.render", methods[0].FullQualifiedName)

	listed, err := storage.ListMethods(ctx, widget.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, wr.ID, listed[0].ID)
}

func TestListClassesAndFunctions(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	a := mustModule(t, storage, "pkg.alpha")
	b := mustModule(t, storage, "pkg.beta")
	mustClass(t, storage, a, "Zeta", nil)
	cls := mustClass(t, storage, b, "Alpha", nil)
	mustClass(t, storage, b, "Mid", nil)
	mustFunction(t, storage, a, nil, "helper", "()")
	mustFunction(t, storage, b, nil, "another", "()")
	mustFunction(t, storage, b, cls, "method", "(self)")

	classes, err := storage.ListClasses(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, classes, 3)
	assert.Equal(t, "Alpha", classes[0].Name)
	assert.Equal(t, "Mid", classes[1].Name)
	assert.Equal(t, "Zeta", classes[2].Name)

	classes, err = storage.ListClasses(ctx, ListFilter{Module: "beta", Limit: 1})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Alpha", classes[0].Name)

	functions, err := storage.ListFunctions(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, functions, 2, "methods are excluded")
	assert.Equal(t, "another", functions[0].Name)
	assert.Equal(t, "helper", functions[1].Name)

	functions, err = storage.ListFunctions(ctx, ListFilter{Module: "alpha"})
	require.NoError(t, err)
	require.Len(t, functions, 1)
	assert.Equal(t, "pkg.alpha.helper", functions[0].FullQualifiedName)

	functions, err = storage.ListFunctions(ctx, ListFilter{Name: "e", IncludeMethods: true})
	require.NoError(t, err)
	require.Len(t, functions, 3)
	assert.Equal(t, "pkg.beta.Alpha.method", functions[2].FullQualifiedName)

	classes, err = storage.ListClasses(ctx, ListFilter{Name: "et"})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Zeta", classes[0].Name)
}

func TestSearch_FTSConsistency(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	mod := mustModule(t, storage, "pkg")
	cls := mustClass(t, storage, mod, "Tokenizer", types.StringPtr("Splits text into lexemes."))
	fn := mustFunction(t, storage, mod, nil, "tokenize", "(text: str, lowercase: bool = True)")

	hits, err := storage.SearchClasses(ctx, "lexemes", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, cls.ID, hits[0].ID)
	assert.Equal(t, types.EntityClass, hits[0].Type)

	hits, err = storage.SearchFunctions(ctx, "lowercase", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, fn.ID, hits[0].ID)
	assert.Equal(t, fn.SignatureString, hits[0].SignatureString)

	// Prefix query
	hits, err = storage.SearchClasses(ctx, "Token*", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	// Update trigger swaps indexed terms
	_, err = storage.DB().ExecContext(ctx, `UPDATE classes SET docstring = ? WHERE id = ?`, "Breaks prose apart.", cls.ID)
	require.NoError(t, err)
	hits, err = storage.SearchClasses(ctx, "lexemes", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = storage.SearchClasses(ctx, "prose", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	// Delete triggers remove rows from the shadow index
	require.NoError(t, storage.DeleteFunction(ctx, fn.ID))
	hits, err = storage.SearchFunctions(ctx, "lowercase", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, storage.DeleteClass(ctx, cls.ID))
	hits, err = storage.SearchClasses(ctx, "prose", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.ErrorIs(t, storage.DeleteFunction(ctx, fn.ID), ErrNotFound)
	assert.ErrorIs(t, storage.DeleteClass(ctx, cls.ID), ErrNotFound)
}

func TestSearch_OperatorsMatchedLiterally(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	mod := mustModule(t, storage, "pkg")
	mustFunction(t, storage, mod, nil, "merge", "(left, right)")

	hits, err := storage.SearchFunctions(ctx, "merge right", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1, "terms are combined with AND")

	hits, err = storage.SearchFunctions(ctx, "merge OR", 10)
	require.NoError(t, err, "operators are matched as plain terms")
	assert.Empty(t, hits)

	hits, err = storage.SearchFunctions(ctx, `"merge`, 10)
	require.NoError(t, err, "unbalanced quotes are escaped")
	assert.Len(t, hits, 1)

	_, err = storage.SearchFunctions(ctx, "   ", 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"foo", `"foo"`},
		{"foo bar", `"foo" "bar"`},
		{"pars*", `"pars"*`},
		{`say "hi"`, `"say" """hi"""`},
		{"NOT this", `"NOT" "this"`},
		{"os.path", `"os.path"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := buildMatchQuery(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := buildMatchQuery("* **")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestDeleteClass_CascadesAndOrphans(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	mod := mustModule(t, storage, "pkg")
	cls := mustClass(t, storage, mod, "Widget", nil)
	require.NoError(t, storage.InsertBase(ctx, cls.ID, "Base"))
	meth := mustFunction(t, storage, mod, cls, "draw", "(self, canvas)")
	require.NoError(t, storage.InsertParameter(ctx, &Parameter{FunctionID: meth.ID, Name: "self", Kind: types.KindPositionalOrKeyword, Position: 0}))

	classExample := &Example{Code: "Widget()", ClassID: &cls.ID}
	methodExample := &Example{Code: "w.draw(c)", FunctionID: &meth.ID}
	require.NoError(t, storage.InsertExample(ctx, classExample))
	require.NoError(t, storage.InsertExample(ctx, methodExample))

	require.NoError(t, storage.DeleteClass(ctx, cls.ID))

	_, err := storage.GetFunction(ctx, meth.FullQualifiedName)
	assert.ErrorIs(t, err, ErrNotFound)

	params, err := storage.ListParameters(ctx, meth.ID)
	require.NoError(t, err)
	assert.Empty(t, params)

	bases, err := storage.ListBases(ctx, cls.ID)
	require.NoError(t, err)
	assert.Empty(t, bases)

	orphans, err := storage.ListExamples(ctx, ExampleRef{})
	require.NoError(t, err)
	require.Len(t, orphans, 2)
	for _, e := range orphans {
		assert.True(t, e.IsOrphaned())
	}
}

func TestInsertExample(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	mod := mustModule(t, storage, "pkg")
	cls := mustClass(t, storage, mod, "Widget", nil)
	fn := mustFunction(t, storage, mod, nil, "build", "()")

	err := storage.InsertExample(ctx, &Example{Code: "x", FunctionID: &fn.ID, ClassID: &cls.ID})
	assert.ErrorIs(t, err, ErrAmbiguousExample)

	e := &Example{Code: "build()", Description: types.StringPtr("Build a widget"), FunctionID: &fn.ID}
	require.NoError(t, storage.InsertExample(ctx, e))
	assert.Greater(t, e.ID, int64(0))

	got, err := storage.ListExamples(ctx, ExampleRef{FunctionID: &fn.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "build()", got[0].Code)

	found, err := storage.SearchExamples(ctx, "widget", 0)
	require.NoError(t, err)
	assert.Len(t, found, 1, "LIKE matches the description case-insensitively")

	none, err := storage.ListExamples(ctx, ExampleRef{ClassID: &cls.ID})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestExportEntities_Order(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	mod := mustModule(t, storage, "pkg")
	b := mustClass(t, storage, mod, "B", nil)
	mustClass(t, storage, mod, "A", nil)
	mustFunction(t, storage, mod, nil, "zeta", "()")
	mustFunction(t, storage, mod, b, "alpha", "(self)")

	entities, err := storage.ExportEntities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 4)

	got := make([]string, len(entities))
	for i, e := range entities {
		got[i] = string(e.Type) + ":" + e.Name
	}
	assert.Equal(t, []string{"CLASS:A", "CLASS:B", "FUNCTION:alpha", "FUNCTION:zeta"}, got)
	assert.Equal(t, "pkg.B.alpha", entities[2].FullQualifiedName)
}

func TestGetStatistics(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	empty, err := storage.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Modules)
	assert.Zero(t, empty.Entities())

	mod := mustModule(t, storage, "pkg")
	cls := mustClass(t, storage, mod, "C", nil)
	require.NoError(t, storage.InsertBase(ctx, cls.ID, "Base"))
	fn := mustFunction(t, storage, mod, nil, "f", "(a)")
	mustFunction(t, storage, mod, cls, "m", "(self)")
	require.NoError(t, storage.InsertParameter(ctx, &Parameter{FunctionID: fn.ID, Name: "a", Kind: types.KindPositionalOrKeyword}))
	require.NoError(t, storage.InsertExample(ctx, &Example{Code: "f(1)", FunctionID: &fn.ID}))

	stats, err := storage.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Modules)
	assert.Equal(t, 1, stats.Classes)
	assert.Equal(t, 1, stats.Functions)
	assert.Equal(t, 1, stats.Methods)
	assert.Equal(t, 2, stats.TotalFunctions())
	assert.Equal(t, 1, stats.Parameters)
	assert.Equal(t, 1, stats.Examples)
	assert.Equal(t, 1, stats.Bases)
	assert.Equal(t, 3, stats.Entities())
	assert.Greater(t, stats.SizeMB, 0.0)
}

func TestGetCoverage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	mod := mustModule(t, storage, "pkg")
	cls := mustClass(t, storage, mod, "C", nil)
	f1 := mustFunction(t, storage, mod, nil, "f1", "()")
	mustFunction(t, storage, mod, nil, "f2", "()")

	for _, e := range []*Example{
		{Code: "f1()", FunctionID: &f1.ID},
		{Code: "f1(); f1()", FunctionID: &f1.ID},
		{Code: "C()", ClassID: &cls.ID},
		{Code: "print()"},
	} {
		require.NoError(t, storage.InsertExample(ctx, e))
	}

	cov, err := storage.GetCoverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, cov.TotalExamples)
	assert.Equal(t, 2, cov.TotalFunctions)
	assert.Equal(t, 1, cov.TotalClasses)
	assert.Equal(t, 1, cov.FunctionsCovered)
	assert.Equal(t, 1, cov.ClassesCovered)
	assert.Equal(t, 1, cov.OrphanedExamples)
	assert.InDelta(t, 2.0, cov.AvgExamplesPerFunction, 1e-9)
	assert.InDelta(t, 1.0, cov.AvgExamplesPerClass, 1e-9)
	assert.InDelta(t, 0.5, cov.FunctionRatio(), 1e-9)
	assert.InDelta(t, 1.0, cov.ClassRatio(), 1e-9)
	assert.InDelta(t, 2.0/3.0, cov.OverallRatio(), 1e-9)
}

func TestRecordRun(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	_, err := storage.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	started := time.Now().Add(-time.Second)
	run := &IngestRun{
		RunID:      "run-1",
		Source:     "api.json",
		StartedAt:  started,
		FinishedAt: started.Add(500 * time.Millisecond),
		Modules:    2,
		Classes:    3,
		Functions:  4,
		Methods:    5,
		Parameters: 6,
	}
	require.NoError(t, storage.RecordRun(ctx, run))

	got, err := storage.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "api.json", got.Source)
	assert.WithinDuration(t, started, got.StartedAt, time.Second)
	assert.Equal(t, 5, got.Methods)
	assert.Equal(t, 6, got.Parameters)
}

func TestBeginTx_CommitRollback(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	// Rolled back writes are not visible
	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	mustModule(t, tx, "rolled")
	mustClass(t, tx, &Module{ID: 1, Name: "rolled"}, "Gone", nil)
	require.NoError(t, tx.Rollback())

	_, err = storage.GetModule(ctx, "rolled")
	assert.ErrorIs(t, err, ErrNotFound)
	hits, err := storage.SearchClasses(ctx, "Gone", 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "shadow index rolls back with the base rows")

	// Committed writes are
	tx, err = storage.BeginTx(ctx)
	require.NoError(t, err)
	m := mustModule(t, tx, "kept")
	got, err := tx.GetModule(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	require.NoError(t, tx.Commit())

	_, err = storage.GetModule(ctx, "kept")
	assert.NoError(t, err)
}

func TestOpenExisting(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := OpenExisting(filepath.Join(dir, "nope.db"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingInput)

		var missing *MissingInputError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "database", missing.What)
	})

	t.Run("no schema", func(t *testing.T) {
		path := filepath.Join(dir, "blank.db")
		db, err := openDatabase(path)
		require.NoError(t, err)
		_, err = db.Exec(`CREATE TABLE unrelated (id INTEGER)`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		_, err = OpenExisting(path)
		assert.ErrorIs(t, err, ErrSchema)
	})

	t.Run("populated", func(t *testing.T) {
		path := filepath.Join(dir, "api.db")
		s, err := NewSQLiteStorage(path)
		require.NoError(t, err)
		mustModule(t, s, "pkg")
		require.NoError(t, s.Close())

		reopened, err := OpenExisting(path)
		require.NoError(t, err)
		defer reopened.Close()

		_, err = reopened.GetModule(context.Background(), "pkg")
		assert.NoError(t, err)
	})
}
