// Package cli implements the apidex command tree.
package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/apidex/internal/config"
	"github.com/dshills/apidex/internal/logging"
)

// Output formats accepted by --format
const (
	formatText = "text"
	formatJSON = "json"
)

// app carries what every subcommand needs once flags and config are resolved
type app struct {
	configFile string
	verbose    int
	quiet      bool
	format     string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "apidex",
		Short: "Index a Python API description into SQLite and query it",
		Long: `apidex loads the JSON description of a Python package produced by an
introspection walker into a full-text searchable SQLite database, reports on it,
splits its entities into work groups and serves it to AI assistants over MCP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default is ./.apidex.yaml or $HOME/.apidex.yaml)")
	flags.CountVarP(&a.verbose, "verbose", "v", "verbose output (repeat for debug)")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "suppress progress and log output")
	flags.StringVar(&a.format, "format", formatText, "report format: text or json")

	rootCmd.AddCommand(
		newIngestCommand(a),
		newStatsCommand(a),
		newCoverageCommand(a),
		newDivideCommand(a),
		newSearchCommand(a),
		newServeCommand(a),
		newVersionCommand(),
	)
	return rootCmd
}

// Execute runs the command tree against os.Args
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) init(cmd *cobra.Command) error {
	a.format = strings.ToLower(a.format)
	if a.format != formatText && a.format != formatJSON {
		return fmt.Errorf("invalid --format %q: must be text or json", a.format)
	}

	cfg, err := config.NewLoader(a.configFile).Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := logging.LevelFromVerbosity(logging.LevelFromString(cfg.Log.Level), a.verbose, a.quiet)
	a.logger = logging.NewLoggerWithFormat(cmd.ErrOrStderr(), level, logging.Format(strings.ToLower(cfg.Log.Format)))
	return nil
}

// databasePath picks the positional argument when given, else the configured path
func (a *app) databasePath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return a.cfg.Database.Path
}

func (a *app) jsonOutput() bool {
	return a.format == formatJSON
}
