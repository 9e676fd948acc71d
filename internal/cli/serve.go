package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/apidex/internal/mcp"
	"github.com/dshills/apidex/internal/query"
	"github.com/dshills/apidex/internal/storage"
)

func newServeCommand(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "serve [database]",
		Short: "Serve the database to MCP clients over stdio",
		Long: `Starts a Model Context Protocol server on stdin/stdout. Logs go to stderr
since stdout carries the protocol.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = a.cfg.Server.Name
			}
			dbPath := a.databasePath(args)

			server, err := mcp.NewServer(dbPath,
				mcp.WithLogger(a.logger),
				mcp.WithName(name),
				mcp.WithQueryOptions(query.Options{
					CacheSize: a.cfg.Server.CacheSize,
					CacheTTL:  a.cfg.Server.CacheTTL,
				}),
			)
			if err != nil {
				return err
			}
			a.logger.Info("MCP server starting",
				"database", dbPath,
				"build_mode", storage.BuildMode,
				"driver", storage.DriverName)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Serve(ctx)
			}()

			select {
			case <-ctx.Done():
				a.logger.Info("shutting down", "reason", context.Cause(ctx))
				return server.Close()
			case err := <-errChan:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "server name advertised to clients (default from config)")
	return cmd
}
