package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/apidex/internal/partition"
	"github.com/dshills/apidex/internal/storage"
)

func newDivideCommand(a *app) *cobra.Command {
	var (
		groups    int
		outputDir string
		excludes  []string
	)

	cmd := &cobra.Command{
		Use:   "divide [database]",
		Short: "Split all classes and functions into balanced work groups",
		Long: `Exports every class and function, shuffles them with a fixed seed and writes
one entity_group_<n>.json file per group. Group files left in the directory by
an earlier run with more groups are removed. The same database always produces
the same groups.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("groups") {
				groups = a.cfg.Partition.Groups
			}
			if outputDir == "" {
				outputDir = a.cfg.Partition.OutputDir
			}
			patterns := append(append([]string{}, a.cfg.Partition.Excludes...), excludes...)
			return a.runDivide(cmd, a.databasePath(args), groups, outputDir, patterns)
		},
	}

	cmd.Flags().IntVarP(&groups, "groups", "n", partition.DefaultGroups, "number of groups")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for group files (default from config)")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil, "skip entities whose qualified name matches this glob (repeatable)")
	return cmd
}

func (a *app) runDivide(cmd *cobra.Command, database string, groups int, outputDir string, excludes []string) error {
	ctx := cmd.Context()

	store, err := storage.OpenExisting(database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entities, err := store.ExportEntities(ctx)
	if err != nil {
		return err
	}
	total := len(entities)

	entities, err = partition.Filter(entities, excludes)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		reason := "database has no classes or functions"
		if total > 0 {
			reason = fmt.Sprintf("all %d entities were excluded", total)
		}
		return &storage.EmptyResultError{Operation: "divide", Reason: reason}
	}

	divided, err := partition.Divide(entities, groups)
	if err != nil {
		return err
	}
	paths, err := partition.WriteGroups(ctx, outputDir, divided)
	if err != nil {
		return err
	}
	a.logger.Info("entities divided", "entities", len(entities), "excluded", total-len(entities), "groups", groups, "dir", outputDir)

	out := cmd.OutOrStdout()
	if a.jsonOutput() {
		files := make([]map[string]interface{}, len(paths))
		for i, p := range paths {
			files[i] = map[string]interface{}{"path": p, "entities": len(divided[i])}
		}
		return writeJSON(out, map[string]interface{}{
			"entities": len(entities),
			"excluded": total - len(entities),
			"groups":   files,
		})
	}
	if a.quiet {
		return nil
	}
	return renderDivide(out, outputDir, total, paths, partition.Sizes(divided))
}

func renderDivide(w io.Writer, outputDir string, total int, paths []string, sizes []int) error {
	entities := 0
	for _, n := range sizes {
		entities += n
	}

	r := newReport(w, fmt.Sprintf("Divided %d entities into %d groups", entities, len(sizes)))
	if excluded := total - entities; excluded > 0 {
		r.row("Excluded", fmt.Sprint(excluded))
	}
	r.row("Output", outputDir)
	r.blank()
	for i, p := range paths {
		r.row(filepath.Base(p), fmt.Sprintf("%d entities", sizes[i]))
	}
	return r.writeTo(w)
}
