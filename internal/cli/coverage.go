package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/apidex/internal/storage"
)

// Coverage verdict thresholds over the overall ratio
const (
	goodCoverage     = 0.8
	moderateCoverage = 0.5
)

func newCoverageCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "coverage [database]",
		Short: "Report how many functions and classes have code examples",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.OpenExisting(a.databasePath(args))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cov, err := store.GetCoverage(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				return writeJSON(out, map[string]interface{}{
					"total_examples":            cov.TotalExamples,
					"total_functions":           cov.TotalFunctions,
					"total_classes":             cov.TotalClasses,
					"functions_covered":         cov.FunctionsCovered,
					"classes_covered":           cov.ClassesCovered,
					"orphaned_examples":         cov.OrphanedExamples,
					"avg_examples_per_function": cov.AvgExamplesPerFunction,
					"avg_examples_per_class":    cov.AvgExamplesPerClass,
					"function_ratio":            cov.FunctionRatio(),
					"class_ratio":               cov.ClassRatio(),
					"overall_ratio":             cov.OverallRatio(),
					"verdict":                   verdict(cov.OverallRatio()),
				})
			}
			return renderCoverage(out, cov)
		},
	}
}

// verdict grades an overall coverage ratio
func verdict(ratio float64) string {
	switch {
	case ratio >= 1:
		return "complete"
	case ratio >= goodCoverage:
		return "good"
	case ratio >= moderateCoverage:
		return "moderate"
	default:
		return "low"
	}
}

func renderCoverage(w io.Writer, cov *storage.Coverage) error {
	r := newReport(w, "Example coverage")
	r.count("Examples", cov.TotalExamples)
	r.row("Functions covered", fmt.Sprintf("%d / %d (%s)", cov.FunctionsCovered, cov.TotalFunctions, percent(cov.FunctionRatio())))
	r.row("Classes covered", fmt.Sprintf("%d / %d (%s)", cov.ClassesCovered, cov.TotalClasses, percent(cov.ClassRatio())))
	r.row("Avg per function", fmt.Sprintf("%.2f", cov.AvgExamplesPerFunction))
	r.row("Avg per class", fmt.Sprintf("%.2f", cov.AvgExamplesPerClass))
	if cov.OrphanedExamples > 0 {
		r.row("Orphaned examples", r.st.warning.Render(fmt.Sprint(cov.OrphanedExamples)))
	}
	r.blank()

	overall := percent(cov.OverallRatio())
	v := verdict(cov.OverallRatio())
	style := r.st.failure
	switch v {
	case "complete", "good":
		style = r.st.success
	case "moderate":
		style = r.st.warning
	}
	r.row("Overall", style.Render(fmt.Sprintf("%s (%s)", overall, v)))
	return r.writeTo(w)
}
