package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/apidex/internal/ingest"
	"github.com/dshills/apidex/internal/storage"
)

func newIngestCommand(a *app) *cobra.Command {
	var output string
	var appendMode bool

	cmd := &cobra.Command{
		Use:   "ingest <input.json>",
		Short: "Load an API description document into a database",
		Long: `Creates the schema in the output database and copies every module, class,
function, method and parameter from the input document in one transaction.

By default the output database is rebuilt: the document is loaded into a
fresh file which then replaces the old one, so a failed run leaves the
previous database untouched. With --append the document is added to the
existing database instead; a module already present aborts the run and
leaves the database unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = a.cfg.Database.Path
			}
			return a.runIngest(cmd, args[0], output, appendMode)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "database to create (default from config)")
	cmd.Flags().BoolVar(&appendMode, "append", false, "add to the existing database instead of rebuilding it")
	return cmd
}

func (a *app) runIngest(cmd *cobra.Command, input, output string, appendMode bool) error {
	ctx := cmd.Context()

	root, err := ingest.LoadDocument(input)
	if err != nil {
		return err
	}
	if root.Count().Entities() == 0 {
		return &storage.EmptyResultError{Operation: "ingest", Reason: "document has no classes or functions"}
	}

	target := output
	if !appendMode {
		target = output + ".tmp"
		if err := removeDatabase(target); err != nil {
			return err
		}
	}

	store, err := storage.NewSQLiteStorage(target)
	if err != nil {
		if !appendMode {
			_ = removeDatabase(target)
		}
		return err
	}

	opts := []ingest.Option{ingest.WithLogger(a.logger)}
	if !a.quiet && !a.jsonOutput() {
		opts = append(opts, ingest.WithProgress(newProgressReporter(cmd.ErrOrStderr())))
	}

	stats, err := ingest.New(store, opts...).Populate(ctx, root, input)
	closeErr := store.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close database: %w", closeErr)
	}
	if err != nil {
		if !appendMode {
			_ = removeDatabase(target)
		}
		return err
	}

	if !appendMode {
		if err := replaceDatabase(target, output); err != nil {
			return err
		}
		a.logger.Debug("database replaced", "database", output)
	}

	out := cmd.OutOrStdout()
	if a.jsonOutput() {
		return writeJSON(out, map[string]interface{}{
			"database":        output,
			"run_id":          stats.RunID,
			"modules":         stats.Modules,
			"classes":         stats.Classes,
			"functions":       stats.Functions,
			"methods":         stats.Methods,
			"parameters":      stats.Parameters,
			"bases":           stats.Bases,
			"skipped_methods": stats.SkippedMethods,
			"duration_ms":     stats.Duration.Milliseconds(),
		})
	}
	if a.quiet {
		return nil
	}
	return renderIngest(out, output, stats)
}

func renderIngest(w io.Writer, database string, stats *ingest.Statistics) error {
	r := newReport(w, "Ingestion complete")
	r.row("Database", database)
	r.row("Run", stats.RunID)
	r.count("Modules", stats.Modules)
	r.count("Classes", stats.Classes)
	r.count("Functions", stats.Functions)
	r.count("Methods", stats.Methods)
	r.count("Parameters", stats.Parameters)
	r.count("Base references", stats.Bases)
	if stats.SkippedMethods > 0 {
		r.row("Skipped methods", r.st.warning.Render(fmt.Sprintf("%d repeated", stats.SkippedMethods)))
	}
	r.row("Duration", stats.Duration.Round(time.Millisecond).String())
	return r.writeTo(w)
}

// sqliteSidecars are the suffixes of the files SQLite keeps next to a database
var sqliteSidecars = []string{"-wal", "-shm", "-journal"}

// removeDatabase deletes a database file and its sidecars; absent files are fine
func removeDatabase(path string) error {
	for _, p := range append([]string{path}, sidecarPaths(path)...) {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// replaceDatabase moves a closed database from src over dst. Sidecars left by
// the old database would be replayed against the new file, so they go first.
func replaceDatabase(src, dst string) error {
	for _, p := range sidecarPaths(dst) {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	if err := os.Rename(src, dst); err != nil {
		_ = removeDatabase(src)
		return fmt.Errorf("failed to replace database: %w", err)
	}
	return nil
}

func sidecarPaths(path string) []string {
	paths := make([]string, len(sqliteSidecars))
	for i, suffix := range sqliteSidecars {
		paths[i] = path + suffix
	}
	return paths
}
