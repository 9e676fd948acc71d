package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/apidex/internal/query"
	"github.com/dshills/apidex/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound      = -32001 // No class or function matches the name
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

const (
	maxSearchLimit = 100
	maxListLimit   = 1000
)

// handleSearchAPI handles the search_api tool invocation
func (s *Server) handleSearchAPI(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	q, err := requireQuery(args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := limitParam(args, query.DefaultSearchLimit, maxSearchLimit)
	if err != nil {
		return nil, err
	}

	resp, err := s.query.SearchAPI(ctx, q, limit)
	if err != nil {
		return nil, s.toolError("search_api", err)
	}
	s.logger.Debug("search_api", "query", q, "results", resp.Total, "cache_hit", resp.CacheHit)

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":       resp.Query,
		"total":       resp.Total,
		"results":     resp.Results,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	})), nil
}

// handleGetClassInfo handles the get_class_info tool invocation
func (s *Server) handleGetClassInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	name, err := requireString(args, "class_name")
	if err != nil {
		return nil, err
	}

	info, err := s.query.GetClassInfo(ctx, name,
		getBoolDefault(args, "include_methods", true),
		getBoolDefault(args, "include_examples", true))
	if err != nil {
		return nil, s.toolError("get_class_info", err)
	}
	return mcp.NewToolResultText(formatJSON(info)), nil
}

// handleGetFunctionInfo handles the get_function_info tool invocation
func (s *Server) handleGetFunctionInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	name, err := requireString(args, "function_name")
	if err != nil {
		return nil, err
	}

	info, err := s.query.GetFunctionInfo(ctx, name,
		getBoolDefault(args, "include_parameters", true),
		getBoolDefault(args, "include_examples", true))
	if err != nil {
		return nil, s.toolError("get_function_info", err)
	}
	return mcp.NewToolResultText(formatJSON(info)), nil
}

// handleListClasses handles the list_classes tool invocation
func (s *Server) handleListClasses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	module := strings.TrimSpace(getStringDefault(args, "module", ""))
	limit, err := limitParam(args, query.DefaultListLimit, maxListLimit)
	if err != nil {
		return nil, err
	}

	classes, err := s.query.ListClasses(ctx, module, limit)
	if err != nil {
		return nil, s.toolError("list_classes", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"module":  module,
		"count":   len(classes),
		"classes": classes,
	})), nil
}

// handleListFunctions handles the list_functions tool invocation
func (s *Server) handleListFunctions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	module := strings.TrimSpace(getStringDefault(args, "module", ""))
	limit, err := limitParam(args, query.DefaultListLimit, maxListLimit)
	if err != nil {
		return nil, err
	}

	functions, err := s.query.ListFunctions(ctx, module, limit)
	if err != nil {
		return nil, s.toolError("list_functions", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"module":    module,
		"count":     len(functions),
		"functions": functions,
	})), nil
}

// handleGetParameters handles the get_parameters tool invocation
func (s *Server) handleGetParameters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	name, err := requireString(args, "function_name")
	if err != nil {
		return nil, err
	}

	info, err := s.query.GetParameters(ctx, name)
	if err != nil {
		return nil, s.toolError("get_parameters", err)
	}
	params := info.Parameters
	if params == nil {
		params = []query.ParameterInfo{}
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"function":   info.QualifiedName,
		"signature":  info.Signature,
		"parameters": params,
	})), nil
}

// handleFindExamples handles the find_examples tool invocation
func (s *Server) handleFindExamples(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	q, err := requireQuery(args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := limitParam(args, query.DefaultSearchLimit, maxSearchLimit)
	if err != nil {
		return nil, err
	}

	examples, err := s.query.FindExamples(ctx, q, limit)
	if err != nil {
		return nil, s.toolError("find_examples", err)
	}
	if examples == nil {
		examples = []query.ExampleInfo{}
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":    q,
		"count":    len(examples),
		"examples": examples,
	})), nil
}

// handleGetRelated handles the get_related tool invocation
func (s *Server) handleGetRelated(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	entity, err := requireString(args, "entity_name")
	if err != nil {
		return nil, err
	}

	relations, err := query.ParseRelations(getStringDefault(args, "relation_types", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid relation_types", map[string]interface{}{
			"param":   "relation_types",
			"reason":  err.Error(),
			"allowed": query.AllRelations,
		})
	}

	related, err := s.query.GetRelated(ctx, entity, relations)
	if err != nil {
		return nil, s.toolError("get_related", err)
	}
	return mcp.NewToolResultText(formatJSON(related)), nil
}

// handleGetStatistics handles the get_statistics tool invocation
func (s *Server) handleGetStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.query.Statistics(ctx)
	if err != nil {
		return nil, s.toolError("get_statistics", err)
	}
	cov, err := s.query.Coverage(ctx)
	if err != nil {
		return nil, s.toolError("get_statistics", err)
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"modules":         stats.Modules,
			"classes":         stats.Classes,
			"functions":       stats.Functions,
			"methods":         stats.Methods,
			"total_functions": stats.TotalFunctions(),
			"parameters":      stats.Parameters,
			"examples":        stats.Examples,
			"bases":           stats.Bases,
			"size_mb":         fmt.Sprintf("%.2f", stats.SizeMB),
		},
		"coverage": map[string]interface{}{
			"functions_covered": cov.FunctionsCovered,
			"classes_covered":   cov.ClassesCovered,
			"orphaned_examples": cov.OrphanedExamples,
			"function_ratio":    cov.FunctionRatio(),
			"class_ratio":       cov.ClassRatio(),
			"overall_ratio":     cov.OverallRatio(),
		},
	}

	run, err := s.storage.LatestRun(ctx)
	switch {
	case err == nil:
		response["last_ingest"] = map[string]interface{}{
			"run_id":      run.RunID,
			"source":      run.Source,
			"finished_at": run.FinishedAt.Format(time.RFC3339),
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, s.toolError("get_statistics", err)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// toolError maps query failures onto MCP error codes
func (s *Server) toolError(tool string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, err.Error(), nil)
	case errors.Is(err, storage.ErrEmptyQuery):
		return newMCPError(ErrorCodeEmptyQuery, "query has no search terms", nil)
	}
	s.logger.Error("tool failed", "tool", tool, "error", err)
	return newMCPError(ErrorCodeInternalError, tool+" failed", map[string]interface{}{
		"error": err.Error(),
	})
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return strings.TrimSpace(val), nil
}

func requireQuery(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", newMCPError(ErrorCodeEmptyQuery, key+" parameter is required and cannot be empty", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return strings.TrimSpace(val), nil
}

func limitParam(args map[string]interface{}, defaultValue, maxValue int) (int, error) {
	limit := getIntDefault(args, "limit", defaultValue)
	if limit < 1 || limit > maxValue {
		return 0, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxValue), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	return limit, nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
