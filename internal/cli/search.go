package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/apidex/internal/query"
	"github.com/dshills/apidex/internal/storage"
)

func newSearchCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <database> <query>...",
		Short: "Full-text search classes and functions",
		Long: `Every term must match a name, qualified name, docstring or signature.
A trailing * makes a term a prefix match.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.OpenExisting(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			svc, err := query.NewService(store, query.Options{CacheSize: 1})
			if err != nil {
				return err
			}
			resp, err := svc.SearchAPI(cmd.Context(), strings.Join(args[1:], " "), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				return writeJSON(out, resp)
			}
			return renderSearch(out, resp)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", query.DefaultSearchLimit, "maximum number of results")
	return cmd
}

func renderSearch(w io.Writer, resp *query.SearchResponse) error {
	r := newReport(w, fmt.Sprintf("%d results for %q", resp.Total, resp.Query))
	for _, res := range resp.Results {
		r.blank()
		r.line(r.st.value.Render(res.QualifiedName+res.Signature) + " " + r.st.dim.Render(strings.ToLower(string(res.Type))))
		if res.Summary != "" {
			r.line("  " + res.Summary)
		}
	}
	return r.writeTo(w)
}
