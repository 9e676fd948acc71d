package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dshills/apidex/internal/logging"
	"github.com/dshills/apidex/internal/storage"
	"github.com/dshills/apidex/pkg/types"
)

// Run inserts one document through a writer, normally an open transaction.
// Its name->id maps live only as long as the Run.
type Run struct {
	w        storage.Writer
	logger   *slog.Logger
	progress Progress

	moduleIDs map[string]int64
	classIDs  map[string]int64
	stats     Statistics
}

// NewRun creates a Run writing through w. logger and progress may be nil.
func NewRun(w storage.Writer, logger *slog.Logger, progress Progress) *Run {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if progress == nil {
		progress = nopProgress{}
	}
	return &Run{
		w:         w,
		logger:    logger,
		progress:  progress,
		moduleIDs: make(map[string]int64),
		classIDs:  make(map[string]int64),
	}
}

// Statistics returns the counts written so far
func (r *Run) Statistics() *Statistics {
	s := r.stats
	return &s
}

// ModuleID returns the id assigned to a module name in this run
func (r *Run) ModuleID(name string) (int64, bool) {
	id, ok := r.moduleIDs[name]
	return id, ok
}

// ClassID returns the id assigned to a class qualified name in this run
func (r *Run) ClassID(qualifiedName string) (int64, bool) {
	id, ok := r.classIDs[qualifiedName]
	return id, ok
}

// Walk inserts m depth-first: the module, its classes with their methods,
// its module-level functions, then each submodule
func (r *Run) Walk(ctx context.Context, m *types.Module) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, types.ErrNullEntry)
	}

	moduleID, err := r.InsertModule(ctx, m)
	if err != nil {
		return err
	}

	for _, class := range m.Classes {
		if class == nil {
			return fmt.Errorf("%w: module %s: %w", ErrInvalidDocument, m.Name, types.ErrNullEntry)
		}
		if _, err := r.InsertClass(ctx, class, moduleID); err != nil {
			return err
		}
	}

	for _, fn := range m.Functions {
		if fn == nil {
			return fmt.Errorf("%w: module %s: %w", ErrInvalidDocument, m.Name, types.ErrNullEntry)
		}
		if _, err := r.InsertFunction(ctx, fn, moduleID, nil); err != nil {
			return err
		}
		r.progress.Increment(types.EntityFunction, fn.QualifiedName)
	}

	for _, sub := range m.Submodules {
		if err := r.Walk(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

// InsertModule writes the module row; its root module is derived from the name
func (r *Run) InsertModule(ctx context.Context, m *types.Module) (int64, error) {
	row := &storage.Module{
		Name:       m.Name,
		Docstring:  m.Docstring,
		RootModule: types.RootModule(m.Name),
	}
	if err := r.w.InsertModule(ctx, row); err != nil {
		return 0, err
	}

	r.moduleIDs[m.Name] = row.ID
	r.stats.Modules++
	r.logger.Debug("inserted module", "module", m.Name, "id", row.ID)
	return row.ID, nil
}

// InsertClass writes the class, one inheritance edge per distinct base other
// than the implicit universal base, then each method. A method listed twice
// on this class under the same qualified name is skipped with a warning; any
// other repeated qualified name is a *storage.DuplicateError.
func (r *Run) InsertClass(ctx context.Context, c *types.Class, moduleID int64) (int64, error) {
	row := &storage.Class{
		Name:              c.Name,
		FullQualifiedName: c.QualifiedName,
		Docstring:         c.Docstring,
		ModuleID:          moduleID,
	}
	if err := r.w.InsertClass(ctx, row); err != nil {
		return 0, err
	}
	r.classIDs[c.QualifiedName] = row.ID
	r.stats.Classes++
	r.logger.Debug("inserted class", "class", c.QualifiedName, "id", row.ID)
	r.progress.Increment(types.EntityClass, c.QualifiedName)

	seenBases := make(map[string]bool, len(c.Bases))
	for _, base := range c.Bases {
		if base == types.ImplicitBase || seenBases[base] {
			continue
		}
		seenBases[base] = true
		if err := r.w.InsertBase(ctx, row.ID, base); err != nil {
			return 0, err
		}
		r.stats.Bases++
	}

	classID := row.ID
	seenMethods := make(map[string]bool, len(c.Methods))
	for _, method := range c.Methods {
		if method == nil {
			return 0, fmt.Errorf("%w: class %s: %w", ErrInvalidDocument, c.QualifiedName, types.ErrNullEntry)
		}
		if seenMethods[method.QualifiedName] {
			r.stats.SkippedMethods++
			r.logger.Warn("skipping repeated method",
				"class", c.QualifiedName,
				"method", method.QualifiedName)
			r.progress.Increment(types.EntityFunction, method.QualifiedName)
			continue
		}
		seenMethods[method.QualifiedName] = true

		if _, err := r.InsertFunction(ctx, method, moduleID, &classID); err != nil {
			return 0, err
		}
		r.progress.Increment(types.EntityFunction, method.QualifiedName)
	}

	return row.ID, nil
}

// InsertFunction writes the function row then its parameters in declaration
// order. classID is nil for module-level functions.
func (r *Run) InsertFunction(ctx context.Context, f *types.Function, moduleID int64, classID *int64) (int64, error) {
	row := &storage.Function{
		Name:              f.Name,
		FullQualifiedName: f.QualifiedName,
		SignatureString:   f.SignatureString,
		Docstring:         f.Docstring,
		ReturnAnnotation:  f.ReturnAnnotation,
		IsAsync:           f.IsAsync,
		IsClassMethod:     f.IsClassMethod,
		IsStaticMethod:    f.IsStaticMethod,
		ClassID:           classID,
		ModuleID:          moduleID,
	}
	if err := r.w.InsertFunction(ctx, row); err != nil {
		return 0, err
	}

	for i, p := range f.Parameters {
		if p == nil {
			return 0, fmt.Errorf("%w: function %s: %w", ErrInvalidDocument, f.QualifiedName, types.ErrNullEntry)
		}
		param := &storage.Parameter{
			FunctionID:   row.ID,
			Name:         p.Name,
			Kind:         p.Kind,
			Annotation:   p.Annotation,
			DefaultValue: p.Default,
			Position:     i,
		}
		if err := r.w.InsertParameter(ctx, param); err != nil {
			return 0, err
		}
	}
	r.stats.Parameters += len(f.Parameters)

	if classID != nil {
		r.stats.Methods++
	} else {
		r.stats.Functions++
	}
	r.logger.Debug("inserted function",
		"function", f.QualifiedName,
		"id", row.ID,
		"method", classID != nil,
		"parameters", len(f.Parameters))
	return row.ID, nil
}
