package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/apidex/internal/logging"
	"github.com/dshills/apidex/internal/storage"
	"github.com/dshills/apidex/pkg/types"
)

// Pipeline loads module documents into storage: validate -> insert -> record run
type Pipeline struct {
	storage  storage.Storage
	logger   *slog.Logger
	progress Progress

	// Serializes Populate; name->id maps belong to one run
	mu sync.Mutex
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger; entity inserts are logged at debug level
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProgress sets the progress reporter
func WithProgress(progress Progress) Option {
	return func(p *Pipeline) {
		if progress != nil {
			p.progress = progress
		}
	}
}

// Statistics contains statistics about one ingestion run
type Statistics struct {
	RunID          string
	Modules        int
	Classes        int
	Functions      int
	Methods        int
	Parameters     int
	Bases          int
	SkippedMethods int
	Duration       time.Duration
}

// Entities is the number of classes, functions and methods written
func (s *Statistics) Entities() int {
	return s.Classes + s.Functions + s.Methods
}

// New creates a new Pipeline writing to store
func New(store storage.Storage, opts ...Option) *Pipeline {
	p := &Pipeline{
		storage:  store,
		logger:   logging.NewDiscardLogger(),
		progress: nopProgress{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Populate writes the whole module tree rooted at root in a single
// transaction. Any error rolls everything back; partial writes are never
// visible. source is recorded with the run and may be empty.
func (p *Pipeline) Populate(ctx context.Context, root *types.Module, source string) (*Statistics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if root == nil {
		return nil, fmt.Errorf("%w: no root module", ErrInvalidDocument)
	}
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	startTime := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	p.progress.Start(root.Count().Entities())
	defer p.progress.Finish()

	tx, err := p.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	run := NewRun(tx, logger, p.progress)
	if err := run.Walk(ctx, root); err != nil {
		logger.Error("ingestion failed, rolling back", "error", err)
		return nil, err
	}

	stats := run.Statistics()
	stats.RunID = runID
	stats.Duration = time.Since(startTime)

	if err := tx.RecordRun(ctx, &storage.IngestRun{
		RunID:      runID,
		Source:     source,
		StartedAt:  startTime,
		FinishedAt: time.Now(),
		Modules:    stats.Modules,
		Classes:    stats.Classes,
		Functions:  stats.Functions,
		Methods:    stats.Methods,
		Parameters: stats.Parameters,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ingestion: %w", err)
	}
	committed = true

	logger.Info("ingestion complete",
		"modules", stats.Modules,
		"classes", stats.Classes,
		"functions", stats.Functions,
		"methods", stats.Methods,
		"parameters", stats.Parameters,
		"skipped_methods", stats.SkippedMethods,
		"duration", stats.Duration)

	return stats, nil
}

// PopulateFile loads the document at path and populates it
func (p *Pipeline) PopulateFile(ctx context.Context, path string) (*Statistics, error) {
	root, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return p.Populate(ctx, root, path)
}
