package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/apidex/internal/storage"
)

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [database]",
		Short: "Show entity counts for a populated database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.OpenExisting(a.databasePath(args))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			stats, err := store.GetStatistics(ctx)
			if err != nil {
				return err
			}
			run, err := store.LatestRun(ctx)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				payload := map[string]interface{}{
					"modules":         stats.Modules,
					"classes":         stats.Classes,
					"functions":       stats.Functions,
					"methods":         stats.Methods,
					"total_functions": stats.TotalFunctions(),
					"parameters":      stats.Parameters,
					"examples":        stats.Examples,
					"bases":           stats.Bases,
					"size_mb":         stats.SizeMB,
				}
				if run != nil {
					payload["last_run"] = map[string]interface{}{
						"run_id":      run.RunID,
						"source":      run.Source,
						"started_at":  run.StartedAt.Format(time.RFC3339),
						"finished_at": run.FinishedAt.Format(time.RFC3339),
					}
				}
				return writeJSON(out, payload)
			}
			return renderStats(out, a.databasePath(args), stats, run)
		},
	}
}

func renderStats(w io.Writer, database string, stats *storage.Statistics, run *storage.IngestRun) error {
	r := newReport(w, "API database statistics")
	r.row("Database", database)
	r.row("Size", humanize.IBytes(uint64(stats.SizeMB*1024*1024)))
	r.blank()
	r.count("Modules", stats.Modules)
	r.count("Classes", stats.Classes)
	r.count("Functions", stats.Functions)
	r.count("Methods", stats.Methods)
	r.count("Total functions", stats.TotalFunctions())
	r.count("Parameters", stats.Parameters)
	r.count("Examples", stats.Examples)
	r.count("Base references", stats.Bases)
	if run != nil {
		r.blank()
		r.row("Last ingestion", fmt.Sprintf("%s (%s)", run.Source, humanize.Time(run.FinishedAt)))
		r.line(r.st.dim.Render(fmt.Sprintf("run %s, finished %s", run.RunID, run.FinishedAt.Format(time.RFC3339))))
	}
	return r.writeTo(w)
}
