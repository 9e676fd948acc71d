package storage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrSchema matches every *SchemaError
	ErrSchema = errors.New("schema error")
	// ErrDuplicateModule matches a *DuplicateError for a module name
	ErrDuplicateModule = errors.New("duplicate module")
	// ErrDuplicateClass matches a *DuplicateError for a class qualified name
	ErrDuplicateClass = errors.New("duplicate class")
	// ErrDuplicateFunction matches a *DuplicateError for a function qualified name
	ErrDuplicateFunction = errors.New("duplicate function")
	// ErrMissingInput matches every *MissingInputError
	ErrMissingInput = errors.New("missing input")
	// ErrEmptyResult matches every *EmptyResultError
	ErrEmptyResult = errors.New("empty result")
)

// SchemaError reports a DDL statement the store rejected
type SchemaError struct {
	Version   string
	Statement string
	Err       error
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema error")
	if e.Version != "" {
		fmt.Fprintf(&b, " (migration %s)", e.Version)
	}
	if e.Statement != "" {
		fmt.Fprintf(&b, " in %q", firstLine(e.Statement))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// EntityKind names the uniquely keyed entity kinds
type EntityKind string

const (
	KindModule   EntityKind = "module"
	KindClass    EntityKind = "class"
	KindFunction EntityKind = "function"
)

// DuplicateError reports a uniqueness violation during ingestion
type DuplicateError struct {
	Kind EntityKind
	Name string
	Err  error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s %q", e.Kind, e.Name)
}

func (e *DuplicateError) Unwrap() error { return e.Err }

func (e *DuplicateError) Is(target error) bool {
	switch e.Kind {
	case KindModule:
		return target == ErrDuplicateModule
	case KindClass:
		return target == ErrDuplicateClass
	case KindFunction:
		return target == ErrDuplicateFunction
	}
	return false
}

// MissingInputError reports an absent source file or database
type MissingInputError struct {
	Path string
	What string
}

func (e *MissingInputError) Error() string {
	what := e.What
	if what == "" {
		what = "input"
	}
	return fmt.Sprintf("%s not found: %s", what, e.Path)
}

func (e *MissingInputError) Is(target error) bool { return target == ErrMissingInput }

// EmptyResultError reports an export or ingestion that produced no usable rows
type EmptyResultError struct {
	Operation string
	Reason    string
}

func (e *EmptyResultError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: nothing to do", e.Operation)
	}
	return fmt.Sprintf("%s: nothing to do: %s", e.Operation, e.Reason)
}

func (e *EmptyResultError) Is(target error) bool { return target == ErrEmptyResult }

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
