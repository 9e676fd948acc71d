package query

import (
	"time"

	"github.com/dshills/apidex/internal/storage"
	"github.com/dshills/apidex/pkg/types"
)

// docSummaryLen is the rune length search results trim docstrings to
const docSummaryLen = 200

// SearchResult is one full-text hit
type SearchResult struct {
	Type          types.EntityType `json:"type"`
	Name          string           `json:"name"`
	QualifiedName string           `json:"qualified_name"`
	Signature     string           `json:"signature,omitempty"`
	Summary       string           `json:"summary,omitempty"`
	Rank          float64          `json:"rank"`
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Query    string         `json:"query"`
	Results  []SearchResult `json:"results"`
	Total    int            `json:"total"`
	Duration time.Duration  `json:"duration_ns"`
	CacheHit bool           `json:"cache_hit"`
}

// ClassSummary identifies a class
type ClassSummary struct {
	Name          string  `json:"name"`
	QualifiedName string  `json:"qualified_name"`
	Module        string  `json:"module"`
	Docstring     *string `json:"docstring,omitempty"`
}

// FunctionSummary describes a function or method
type FunctionSummary struct {
	Name             string  `json:"name"`
	QualifiedName    string  `json:"qualified_name"`
	Module           string  `json:"module"`
	Class            string  `json:"class,omitempty"`
	Signature        string  `json:"signature"`
	Docstring        *string `json:"docstring,omitempty"`
	ReturnAnnotation *string `json:"return_annotation,omitempty"`
	IsAsync          bool    `json:"is_async,omitempty"`
	IsClassMethod    bool    `json:"is_classmethod,omitempty"`
	IsStaticMethod   bool    `json:"is_staticmethod,omitempty"`
}

// ParameterInfo describes one parameter
type ParameterInfo struct {
	Position   int                 `json:"position"`
	Name       string              `json:"name"`
	Kind       types.ParameterKind `json:"kind"`
	Annotation *string             `json:"annotation,omitempty"`
	Default    *string             `json:"default,omitempty"`
}

// ExampleInfo is a stored code example
type ExampleInfo struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	Description *string `json:"description,omitempty"`
}

// ClassInfo is the detail view of a class
type ClassInfo struct {
	ClassSummary
	Bases        []string          `json:"bases"`
	Methods      []FunctionSummary `json:"methods,omitempty"`
	Examples     []ExampleInfo     `json:"examples,omitempty"`
	Alternatives []string          `json:"alternatives,omitempty"`
}

// FunctionInfo is the detail view of a function or method
type FunctionInfo struct {
	FunctionSummary
	Parameters   []ParameterInfo `json:"parameters,omitempty"`
	Examples     []ExampleInfo   `json:"examples,omitempty"`
	Alternatives []string        `json:"alternatives,omitempty"`
}

// Relation selects which related entities GetRelated collects
type Relation string

const (
	RelationInheritance Relation = "inheritance"
	RelationModule      Relation = "module"
	RelationSimilar     Relation = "similar"
)

// AllRelations is used when no relation is requested
var AllRelations = []Relation{RelationInheritance, RelationModule, RelationSimilar}

// Related lists entities connected to a class or function
type Related struct {
	Entity     string           `json:"entity"`
	Type       types.EntityType `json:"type"`
	Subclasses []string         `json:"subclasses,omitempty"`
	Bases      []string         `json:"bases,omitempty"`
	Methods    []string         `json:"methods,omitempty"`
	Class      string           `json:"class,omitempty"`
	Siblings   []string         `json:"siblings,omitempty"`
	Similar    []string         `json:"similar,omitempty"`
}

// Empty reports whether nothing related was found
func (r *Related) Empty() bool {
	return len(r.Subclasses) == 0 && len(r.Bases) == 0 && len(r.Methods) == 0 &&
		r.Class == "" && len(r.Siblings) == 0 && len(r.Similar) == 0
}

func classSummary(c *storage.Class) ClassSummary {
	return ClassSummary{
		Name:          c.Name,
		QualifiedName: c.FullQualifiedName,
		Module:        c.ModuleName,
		Docstring:     c.Docstring,
	}
}

func functionSummary(f *storage.Function) FunctionSummary {
	return FunctionSummary{
		Name:             f.Name,
		QualifiedName:    f.FullQualifiedName,
		Module:           f.ModuleName,
		Class:            f.ClassName,
		Signature:        f.SignatureString,
		Docstring:        f.Docstring,
		ReturnAnnotation: f.ReturnAnnotation,
		IsAsync:          f.IsAsync,
		IsClassMethod:    f.IsClassMethod,
		IsStaticMethod:   f.IsStaticMethod,
	}
}

func parameterInfo(p *storage.Parameter) ParameterInfo {
	return ParameterInfo{
		Position:   p.Position,
		Name:       p.Name,
		Kind:       p.Kind,
		Annotation: p.Annotation,
		Default:    p.DefaultValue,
	}
}

func exampleInfos(examples []*storage.Example) []ExampleInfo {
	if len(examples) == 0 {
		return nil
	}
	out := make([]ExampleInfo, len(examples))
	for i, e := range examples {
		out[i] = ExampleInfo{ID: e.ID, Code: e.Code, Description: e.Description}
	}
	return out
}

func summarize(doc *string) string {
	if doc == nil {
		return ""
	}
	runes := []rune(*doc)
	if len(runes) <= docSummaryLen {
		return *doc
	}
	return string(runes[:docSummaryLen]) + "..."
}
