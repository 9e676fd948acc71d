package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/apidex/internal/ingest"
	"github.com/dshills/apidex/internal/storage"
	"github.com/dshills/apidex/pkg/types"
)

func sampleModule() *types.Module {
	return &types.Module{
		Name: "shapes",
		Classes: []*types.Class{
			{
				Name: "Shape", QualifiedName: "shapes.Shape",
				Docstring: types.StringPtr("Abstract geometric shape."),
				Methods: []*types.Function{{
					Name: "area", QualifiedName: "shapes.Shape.area",
					SignatureString: "(self) -> float",
					ReturnAnnotation: types.StringPtr("float"),
					Parameters: []*types.Parameter{
						{Name: "self", Kind: types.KindPositionalOrKeyword},
					},
				}},
			},
			{
				Name: "Circle", QualifiedName: "shapes.Circle",
				Docstring: types.StringPtr("A round geometric shape."),
				Bases:     []string{"Shape"},
			},
		},
		Functions: []*types.Function{{
			Name: "scale", QualifiedName: "shapes.scale",
			SignatureString: "(shape, factor: float = 1.0)",
			Docstring:       types.StringPtr("Scale a shape by factor."),
			Parameters: []*types.Parameter{
				{Name: "shape", Kind: types.KindPositionalOrKeyword},
				{Name: "factor", Kind: types.KindPositionalOrKeyword, Annotation: types.StringPtr("float"), Default: types.StringPtr("1.0")},
			},
		}},
	}
}

// setupServer ingests the sample module into a database file and opens a
// server on it
func setupServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "shapes.db")

	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	_, err = ingest.New(store).Populate(ctx, sampleModule(), "shapes.json")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	s, err := NewServer(dbPath, WithName("shapes-introspection"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected *MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func TestNewServer(t *testing.T) {
	t.Run("missing database", func(t *testing.T) {
		_, err := NewServer(filepath.Join(t.TempDir(), "absent.db"))
		assert.ErrorIs(t, err, storage.ErrMissingInput)
	})

	t.Run("database without schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.db")
		store, err := storage.NewSQLiteStorage(path)
		require.NoError(t, err)
		_, err = store.DB().Exec(`DELETE FROM schema_version`)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		_, err = NewServer(path)
		assert.ErrorIs(t, err, storage.ErrSchema)
	})

	t.Run("server has all required components", func(t *testing.T) {
		s := setupServer(t)
		assert.NotNil(t, s.mcp, "MCP server should be initialized")
		assert.NotNil(t, s.storage, "Storage should be initialized")
		assert.NotNil(t, s.query, "Query service should be initialized")
		assert.Equal(t, "shapes-introspection", s.Name())
	})

	t.Run("default name", func(t *testing.T) {
		store, err := storage.NewSQLiteStorage(":memory:")
		require.NoError(t, err)
		s, err := newServer(store)
		require.NoError(t, err)
		defer s.Close()
		assert.Equal(t, DefaultServerName, s.Name())
	})
}

func TestHandleSearchAPI(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	result, err := s.handleSearchAPI(ctx, callRequest("search_api", map[string]interface{}{
		"query": "geometric",
		"limit": float64(5),
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, float64(2), out["total"])
	assert.Equal(t, false, out["cache_hit"])

	result, err = s.handleSearchAPI(ctx, callRequest("search_api", map[string]interface{}{"query": "geometric"}))
	require.NoError(t, err)
	assert.Equal(t, false, decodeResult(t, result)["cache_hit"], "default limit 10 is a different cache key")
	result, err = s.handleSearchAPI(ctx, callRequest("search_api", map[string]interface{}{"query": "geometric"}))
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, result)["cache_hit"])

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing query", map[string]interface{}{}, ErrorCodeEmptyQuery},
		{"blank query", map[string]interface{}{"query": "  "}, ErrorCodeEmptyQuery},
		{"limit too small", map[string]interface{}{"query": "x", "limit": float64(0)}, ErrorCodeInvalidParams},
		{"limit too large", map[string]interface{}{"query": "x", "limit": float64(101)}, ErrorCodeInvalidParams},
		{"wildcard only", map[string]interface{}{"query": "*"}, ErrorCodeEmptyQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleSearchAPI(ctx, callRequest("search_api", tt.args))
			requireMCPError(t, err, tt.code)
		})
	}
}

func TestHandleGetClassInfo(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	result, err := s.handleGetClassInfo(ctx, callRequest("get_class_info", map[string]interface{}{
		"class_name": "Shape",
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, "shapes.Shape", out["qualified_name"])
	methods, ok := out["methods"].([]interface{})
	require.True(t, ok)
	require.Len(t, methods, 1)
	assert.Equal(t, "area", methods[0].(map[string]interface{})["name"])

	result, err = s.handleGetClassInfo(ctx, callRequest("get_class_info", map[string]interface{}{
		"class_name":      "shapes.Circle",
		"include_methods": false,
	}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	assert.Equal(t, []interface{}{"Shape"}, out["bases"])
	assert.NotContains(t, out, "methods")

	_, err = s.handleGetClassInfo(ctx, callRequest("get_class_info", map[string]interface{}{"class_name": "Square"}))
	requireMCPError(t, err, ErrorCodeNotFound)

	_, err = s.handleGetClassInfo(ctx, callRequest("get_class_info", map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleGetFunctionInfo(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	result, err := s.handleGetFunctionInfo(ctx, callRequest("get_function_info", map[string]interface{}{
		"function_name": "Shape.area",
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, "shapes.Shape.area", out["qualified_name"])
	assert.Equal(t, "Shape", out["class"])
	assert.Equal(t, "float", out["return_annotation"])

	result, err = s.handleGetFunctionInfo(ctx, callRequest("get_function_info", map[string]interface{}{
		"function_name":      "scale",
		"include_parameters": false,
	}))
	require.NoError(t, err)
	assert.NotContains(t, decodeResult(t, result), "parameters")

	_, err = s.handleGetFunctionInfo(ctx, callRequest("get_function_info", map[string]interface{}{"function_name": "rotate"}))
	requireMCPError(t, err, ErrorCodeNotFound)
}

func TestHandleListTools(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	result, err := s.handleListClasses(ctx, callRequest("list_classes", map[string]interface{}{}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, float64(2), out["count"])
	classes := out["classes"].([]interface{})
	assert.Equal(t, "Circle", classes[0].(map[string]interface{})["name"])

	result, err = s.handleListFunctions(ctx, callRequest("list_functions", map[string]interface{}{
		"module": "shapes",
		"limit":  float64(10),
	}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	assert.Equal(t, float64(1), out["count"], "methods are not listed")

	result, err = s.handleListClasses(ctx, callRequest("list_classes", map[string]interface{}{"module": "nowhere"}))
	require.NoError(t, err)
	assert.Equal(t, float64(0), decodeResult(t, result)["count"])

	_, err = s.handleListFunctions(ctx, callRequest("list_functions", map[string]interface{}{"limit": float64(5000)}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleGetParameters(t *testing.T) {
	s := setupServer(t)

	result, err := s.handleGetParameters(context.Background(), callRequest("get_parameters", map[string]interface{}{
		"function_name": "shapes.scale",
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, "(shape, factor: float = 1.0)", out["signature"])

	params := out["parameters"].([]interface{})
	require.Len(t, params, 2)
	factor := params[1].(map[string]interface{})
	assert.Equal(t, "factor", factor["name"])
	assert.Equal(t, "1.0", factor["default"])
	assert.Equal(t, string(types.KindPositionalOrKeyword), factor["kind"])
}

func TestHandleFindExamples(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	scale, err := s.storage.GetFunction(ctx, "shapes.scale")
	require.NoError(t, err)
	require.NoError(t, s.storage.InsertExample(ctx, &storage.Example{
		Code:       "scale(circle, 2.0)",
		FunctionID: &scale.ID,
	}))

	result, err := s.handleFindExamples(ctx, callRequest("find_examples", map[string]interface{}{"query": "circle"}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, float64(1), out["count"])

	result, err = s.handleFindExamples(ctx, callRequest("find_examples", map[string]interface{}{"query": "triangle"}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	assert.Equal(t, []interface{}{}, out["examples"])
}

func TestHandleGetRelated(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	result, err := s.handleGetRelated(ctx, callRequest("get_related", map[string]interface{}{
		"entity_name":    "Shape",
		"relation_types": "inheritance",
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, []interface{}{"shapes.Circle"}, out["subclasses"])
	assert.Equal(t, []interface{}{"area"}, out["methods"])
	assert.NotContains(t, out, "siblings")

	_, err = s.handleGetRelated(ctx, callRequest("get_related", map[string]interface{}{
		"entity_name":    "Shape",
		"relation_types": "cousins",
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleGetRelated(ctx, callRequest("get_related", map[string]interface{}{"entity_name": "Polygon"}))
	requireMCPError(t, err, ErrorCodeNotFound)
}

func TestHandleGetStatistics(t *testing.T) {
	s := setupServer(t)

	result, err := s.handleGetStatistics(context.Background(), callRequest("get_statistics", nil))
	require.NoError(t, err)
	out := decodeResult(t, result)

	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["modules"])
	assert.Equal(t, float64(2), stats["classes"])
	assert.Equal(t, float64(1), stats["functions"])
	assert.Equal(t, float64(1), stats["methods"])
	assert.Equal(t, float64(2), stats["total_functions"])

	last := out["last_ingest"].(map[string]interface{})
	assert.Equal(t, "shapes.json", last["source"])
	assert.NotEmpty(t, last["run_id"])
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"flag":   false,
		"count":  float64(7),
		"native": 3,
		"name":   "x",
	}
	assert.False(t, getBoolDefault(args, "flag", true))
	assert.True(t, getBoolDefault(args, "missing", true))
	assert.Equal(t, 7, getIntDefault(args, "count", 1))
	assert.Equal(t, 3, getIntDefault(args, "native", 1))
	assert.Equal(t, 1, getIntDefault(args, "name", 1))
	assert.Equal(t, "x", getStringDefault(args, "name", "y"))
	assert.Equal(t, "y", getStringDefault(args, "count", "y"))

	_, err := arguments(callRequest("x", nil))
	assert.NoError(t, err)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = []string{"not", "an", "object"}
	_, err = arguments(req)
	requireMCPError(t, err, ErrorCodeInvalidParams)
}
