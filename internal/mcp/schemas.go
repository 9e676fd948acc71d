package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchAPITool returns the tool definition for search_api
func searchAPITool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_api",
		Description: "Full-text search across class and function names, qualified names, docstrings and signatures",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms; a trailing * matches a prefix",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getClassInfoTool returns the tool definition for get_class_info
func getClassInfoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_class_info",
		Description: "Get a class with its bases, methods and examples",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"class_name": map[string]interface{}{
					"type":        "string",
					"description": "Simple or fully qualified class name",
				},
				"include_methods": map[string]interface{}{
					"type":        "boolean",
					"description": "Include the method list",
					"default":     true,
				},
				"include_examples": map[string]interface{}{
					"type":        "boolean",
					"description": "Include code examples",
					"default":     true,
				},
			},
			Required: []string{"class_name"},
		},
	}
}

// getFunctionInfoTool returns the tool definition for get_function_info
func getFunctionInfoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_function_info",
		Description: "Get a function or method with its signature, parameters and examples",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"function_name": map[string]interface{}{
					"type":        "string",
					"description": "Function name, qualified name or ClassName.method_name",
				},
				"include_parameters": map[string]interface{}{
					"type":        "boolean",
					"description": "Include parameter details",
					"default":     true,
				},
				"include_examples": map[string]interface{}{
					"type":        "boolean",
					"description": "Include code examples",
					"default":     true,
				},
			},
			Required: []string{"function_name"},
		},
	}
}

func listTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"module": map[string]interface{}{
					"type":        "string",
					"description": "Only modules whose name contains this text",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-1000)",
					"default":     50,
					"minimum":     1,
					"maximum":     1000,
				},
			},
		},
	}
}

// listClassesTool returns the tool definition for list_classes
func listClassesTool() mcp.Tool {
	return listTool("list_classes", "List classes ordered by name, optionally filtered by module")
}

// listFunctionsTool returns the tool definition for list_functions
func listFunctionsTool() mcp.Tool {
	return listTool("list_functions", "List module-level functions ordered by name, optionally filtered by module")
}

// getParametersTool returns the tool definition for get_parameters
func getParametersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_parameters",
		Description: "Get the parameters of a function or method in declaration order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"function_name": map[string]interface{}{
					"type":        "string",
					"description": "Function name, qualified name or ClassName.method_name",
				},
			},
			Required: []string{"function_name"},
		},
	}
}

// findExamplesTool returns the tool definition for find_examples
func findExamplesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_examples",
		Description: "Find code examples whose code or description contains the query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Text to look for",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getRelatedTool returns the tool definition for get_related
func getRelatedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_related",
		Description: "Find classes and functions related by inheritance, module or name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entity_name": map[string]interface{}{
					"type":        "string",
					"description": "Class or function name",
				},
				"relation_types": map[string]interface{}{
					"type":        "string",
					"description": "Comma-separated subset of inheritance,module,similar (default: all)",
				},
			},
			Required: []string{"entity_name"},
		},
	}
}

// getStatisticsTool returns the tool definition for get_statistics
func getStatisticsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_statistics",
		Description: "Entity counts, database size and example coverage",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
