package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/apidex/internal/logging"
	"github.com/dshills/apidex/internal/query"
	"github.com/dshills/apidex/internal/storage"
)

const (
	// DefaultServerName is used when no name is configured. Clients see
	// tools as mcp__<name>__<tool>.
	DefaultServerName = "api-introspection"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger used for tool calls
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithName sets the advertised server name
func WithName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.name = name
		}
	}
}

// WithQueryOptions configures the query service cache
func WithQueryOptions(opts query.Options) Option {
	return func(s *Server) {
		s.queryOpts = opts
	}
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Storage
	query     *query.Service
	logger    *slog.Logger
	name      string
	queryOpts query.Options
}

// NewServer opens an existing populated database and registers the query
// tools. The database must already hold the schema.
func NewServer(dbPath string, opts ...Option) (*Server, error) {
	store, err := storage.OpenExisting(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := newServer(store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

func newServer(store storage.Storage, opts ...Option) (*Server, error) {
	s := &Server{
		storage: store,
		logger:  logging.NewDiscardLogger(),
		name:    DefaultServerName,
	}
	for _, opt := range opts {
		opt(s)
	}

	svc, err := query.NewService(store, s.queryOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create query service: %w", err)
	}
	s.query = svc

	s.mcp = server.NewMCPServer(
		s.name,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.registerTools()
	return s, nil
}

// Name returns the advertised server name
func (s *Server) Name() string {
	return s.name
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	s.logger.Info("serving MCP on stdio", "name", s.name, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// Close releases the database
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchAPITool(), s.handleSearchAPI)
	s.mcp.AddTool(getClassInfoTool(), s.handleGetClassInfo)
	s.mcp.AddTool(getFunctionInfoTool(), s.handleGetFunctionInfo)
	s.mcp.AddTool(listClassesTool(), s.handleListClasses)
	s.mcp.AddTool(listFunctionsTool(), s.handleListFunctions)
	s.mcp.AddTool(getParametersTool(), s.handleGetParameters)
	s.mcp.AddTool(findExamplesTool(), s.handleFindExamples)
	s.mcp.AddTool(getRelatedTool(), s.handleGetRelated)
	s.mcp.AddTool(getStatisticsTool(), s.handleGetStatistics)
}
