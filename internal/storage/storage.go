package storage

import (
	"context"
	"time"

	"github.com/dshills/apidex/pkg/types"
)

// Writer persists introspected API entities
type Writer interface {
	// Module operations
	InsertModule(ctx context.Context, module *Module) error

	// Class operations
	InsertClass(ctx context.Context, class *Class) error
	InsertBase(ctx context.Context, classID int64, baseName string) error
	DeleteClass(ctx context.Context, classID int64) error

	// Function operations
	InsertFunction(ctx context.Context, function *Function) error
	InsertParameter(ctx context.Context, param *Parameter) error
	DeleteFunction(ctx context.Context, functionID int64) error

	// Example operations
	InsertExample(ctx context.Context, example *Example) error

	// Run bookkeeping
	RecordRun(ctx context.Context, run *IngestRun) error
}

// Reader queries the populated store
type Reader interface {
	// Module operations
	GetModule(ctx context.Context, name string) (*Module, error)
	ListModulesByRoot(ctx context.Context, rootModule string) ([]*Module, error)

	// Class operations
	GetClass(ctx context.Context, qualifiedName string) (*Class, error)
	FindClasses(ctx context.Context, name string) ([]*Class, error)
	ListClasses(ctx context.Context, filter ListFilter) ([]*Class, error)
	ListBases(ctx context.Context, classID int64) ([]string, error)
	ListSubclasses(ctx context.Context, baseNames []string) ([]*Class, error)

	// Function operations
	GetFunction(ctx context.Context, qualifiedName string) (*Function, error)
	FindFunctions(ctx context.Context, name string) ([]*Function, error)
	FindMethods(ctx context.Context, className, methodName string) ([]*Function, error)
	ListFunctions(ctx context.Context, filter ListFilter) ([]*Function, error)
	ListMethods(ctx context.Context, classID int64) ([]*Function, error)
	ListParameters(ctx context.Context, functionID int64) ([]*Parameter, error)

	// Example operations
	ListExamples(ctx context.Context, ref ExampleRef) ([]*Example, error)
	SearchExamples(ctx context.Context, query string, limit int) ([]*Example, error)

	// Search operations
	SearchClasses(ctx context.Context, query string, limit int) ([]SearchHit, error)
	SearchFunctions(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Partition export
	ExportEntities(ctx context.Context) ([]types.Entity, error)

	// Status operations
	GetStatistics(ctx context.Context) (*Statistics, error)
	GetCoverage(ctx context.Context) (*Coverage, error)
	LatestRun(ctx context.Context) (*IngestRun, error)
}

// Storage defines the interface for persisting and querying API metadata
type Storage interface {
	Writer
	Reader

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Writer
	Reader
}

// Module represents an introspected module
type Module struct {
	ID         int64
	Name       string
	Docstring  *string
	RootModule string
}

// Class represents a class row
type Class struct {
	ID                int64
	Name              string
	FullQualifiedName string
	Docstring         *string
	ModuleID          int64
	ModuleName        string // Populated on reads
}

// Function represents a module-level function (ClassID nil) or a method
type Function struct {
	ID                int64
	Name              string
	FullQualifiedName string
	SignatureString   string
	Docstring         *string
	ReturnAnnotation  *string
	IsAsync           bool
	IsClassMethod     bool
	IsStaticMethod    bool
	ClassID           *int64
	ModuleID          int64
	ModuleName        string // Populated on reads
	ClassName         string // Populated on reads for methods
}

// IsMethod reports whether the function belongs to a class
func (f *Function) IsMethod() bool {
	return f.ClassID != nil
}

// Parameter represents one declared parameter of a function
type Parameter struct {
	ID           int64
	FunctionID   int64
	Name         string
	Kind         types.ParameterKind
	Annotation   *string
	DefaultValue *string
	Position     int
}

// Example is a code example linked to at most one function or class
type Example struct {
	ID          int64
	Code        string
	Description *string
	FunctionID  *int64
	ClassID     *int64
}

// IsOrphaned reports whether the example links to neither a function nor a class
func (e *Example) IsOrphaned() bool {
	return e.FunctionID == nil && e.ClassID == nil
}

// ExampleRef selects the examples of one function or one class
type ExampleRef struct {
	FunctionID *int64
	ClassID    *int64
}

// ListFilter narrows list queries
type ListFilter struct {
	Module         string // Substring match against the owning module name
	Name           string // Substring match against the simple name
	IncludeMethods bool   // ListFunctions only
	Limit          int
}

// SearchHit is one full-text search result
type SearchHit struct {
	Type              types.EntityType
	ID                int64
	Name              string
	FullQualifiedName string
	Docstring         *string
	SignatureString   string // Functions only
	Rank              float64
}

// IngestRun records one ingestion pass
type IngestRun struct {
	RunID      string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Modules    int
	Classes    int
	Functions  int
	Methods    int
	Parameters int
}

// Statistics contains aggregate counts over the populated store
type Statistics struct {
	Modules    int
	Classes    int
	Functions  int // Module-level functions only
	Methods    int
	Parameters int
	Examples   int
	Bases      int
	SizeMB     float64
}

// TotalFunctions counts functions and methods together
func (s *Statistics) TotalFunctions() int {
	return s.Functions + s.Methods
}

// Entities is the number of partitionable entities
func (s *Statistics) Entities() int {
	return s.Classes + s.TotalFunctions()
}

// Coverage summarizes how many entities have at least one example
type Coverage struct {
	TotalExamples          int
	TotalFunctions         int // Functions and methods
	TotalClasses           int
	FunctionsCovered       int
	ClassesCovered         int
	OrphanedExamples       int
	AvgExamplesPerFunction float64
	AvgExamplesPerClass    float64
}

// FunctionRatio is the fraction of functions with at least one example
func (c *Coverage) FunctionRatio() float64 {
	return ratio(c.FunctionsCovered, c.TotalFunctions)
}

// ClassRatio is the fraction of classes with at least one example
func (c *Coverage) ClassRatio() float64 {
	return ratio(c.ClassesCovered, c.TotalClasses)
}

// OverallRatio is the fraction of all entities with at least one example
func (c *Coverage) OverallRatio() float64 {
	return ratio(c.FunctionsCovered+c.ClassesCovered, c.TotalFunctions+c.TotalClasses)
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
