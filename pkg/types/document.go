package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ImplicitBase is the universal base class reported by the introspection walker.
// It carries no information and is never stored as an inheritance edge.
const ImplicitBase = "object"

// ParameterKind classifies how an argument binds to a parameter
type ParameterKind string

const (
	KindPositionalOnly      ParameterKind = "POSITIONAL_ONLY"
	KindPositionalOrKeyword ParameterKind = "POSITIONAL_OR_KEYWORD"
	KindVarPositional       ParameterKind = "VAR_POSITIONAL"
	KindKeywordOnly         ParameterKind = "KEYWORD_ONLY"
	KindVarKeyword          ParameterKind = "VAR_KEYWORD"
)

// ParameterKinds lists every valid kind in declaration-order precedence
var ParameterKinds = []ParameterKind{
	KindPositionalOnly,
	KindPositionalOrKeyword,
	KindVarPositional,
	KindKeywordOnly,
	KindVarKeyword,
}

// Valid reports whether k is one of the five known kinds
func (k ParameterKind) Valid() bool {
	switch k {
	case KindPositionalOnly, KindPositionalOrKeyword, KindVarPositional, KindKeywordOnly, KindVarKeyword:
		return true
	}
	return false
}

// UnmarshalJSON rejects kinds outside the closed enumeration
func (k *ParameterKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind := ParameterKind(s)
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidParameterKind, s)
	}
	*k = kind
	return nil
}

// Module is one node of the introspected module tree
type Module struct {
	Name       string      `json:"name"`
	Docstring  *string     `json:"docstring,omitempty"`
	Classes    []*Class    `json:"classes"`
	Functions  []*Function `json:"functions"`
	Submodules []*Module   `json:"submodules"`
}

// Class is a class declared in a module
type Class struct {
	Name          string      `json:"name"`
	QualifiedName string      `json:"qualified_name"`
	Docstring     *string     `json:"docstring,omitempty"`
	Bases         []string    `json:"bases"`
	Methods       []*Function `json:"methods"`
}

// Function is a module-level function or a method
type Function struct {
	Name             string       `json:"name"`
	QualifiedName    string       `json:"qualified_name"`
	SignatureString  string       `json:"signature_string"`
	Docstring        *string      `json:"docstring,omitempty"`
	ReturnAnnotation *string      `json:"return_annotation,omitempty"`
	IsAsync          bool         `json:"is_async,omitempty"`
	IsClassMethod    bool         `json:"is_classmethod,omitempty"`
	IsStaticMethod   bool         `json:"is_staticmethod,omitempty"`
	Parameters       []*Parameter `json:"parameters"`
}

// Parameter is one declared parameter. Default is a display snapshot, never a live value.
type Parameter struct {
	Name       string        `json:"name"`
	Kind       ParameterKind `json:"kind"`
	Annotation *string       `json:"annotation,omitempty"`
	Default    *string       `json:"default,omitempty"`
}

// RootModule returns the first dotted segment of a module name
func RootModule(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// Validate checks the structural requirements of the whole tree
func (m *Module) Validate() error {
	if m.Name == "" {
		return ErrModuleNameRequired
	}
	for i, c := range m.Classes {
		if c == nil {
			return fmt.Errorf("module %s classes[%d]: %w", m.Name, i, ErrNullEntry)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}
	}
	for i, f := range m.Functions {
		if f == nil {
			return fmt.Errorf("module %s functions[%d]: %w", m.Name, i, ErrNullEntry)
		}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}
	}
	for i, sub := range m.Submodules {
		if sub == nil {
			return fmt.Errorf("module %s submodules[%d]: %w", m.Name, i, ErrNullEntry)
		}
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a class and its methods
func (c *Class) Validate() error {
	if c.Name == "" || c.QualifiedName == "" {
		return ErrClassNameRequired
	}
	for i, m := range c.Methods {
		if m == nil {
			return fmt.Errorf("class %s methods[%d]: %w", c.QualifiedName, i, ErrNullEntry)
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("class %s: %w", c.QualifiedName, err)
		}
	}
	return nil
}

// Validate checks a function and its parameters
func (f *Function) Validate() error {
	if f.Name == "" || f.QualifiedName == "" {
		return ErrFunctionNameRequired
	}
	for i, p := range f.Parameters {
		if p == nil {
			return fmt.Errorf("function %s parameters[%d]: %w", f.QualifiedName, i, ErrNullEntry)
		}
		if p.Name == "" {
			return fmt.Errorf("function %s parameter %d: %w", f.QualifiedName, i, ErrParameterNameRequired)
		}
		if !p.Kind.Valid() {
			return fmt.Errorf("function %s parameter %s: %w: %q", f.QualifiedName, p.Name, ErrInvalidParameterKind, p.Kind)
		}
	}
	return nil
}

// Walk visits m and every submodule depth-first, parent before children.
// Nil submodules are skipped.
func (m *Module) Walk(fn func(*Module) error) error {
	if err := fn(m); err != nil {
		return err
	}
	for _, sub := range m.Submodules {
		if sub == nil {
			continue
		}
		if err := sub.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Counts tallies the entities of the tree
type Counts struct {
	Modules    int
	Classes    int
	Functions  int
	Methods    int
	Parameters int
}

// Entities is the number of partitionable entities (classes, functions and methods)
func (c Counts) Entities() int {
	return c.Classes + c.Functions + c.Methods
}

// Count tallies every entity in the tree
func (m *Module) Count() Counts {
	var c Counts
	_ = m.Walk(func(mod *Module) error {
		c.Modules++
		for _, cls := range mod.Classes {
			if cls == nil {
				continue
			}
			c.Classes++
			for _, meth := range cls.Methods {
				if meth == nil {
					continue
				}
				c.Methods++
				c.Parameters += len(meth.Parameters)
			}
		}
		for _, fn := range mod.Functions {
			if fn == nil {
				continue
			}
			c.Functions++
			c.Parameters += len(fn.Parameters)
		}
		return nil
	})
	return c
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
