// Package mcp implements the Model Context Protocol (MCP) server that exposes
// a populated API database to AI coding assistants.
//
// The server registers nine read-only tools:
//   - search_api: full-text search over classes and functions
//   - get_class_info: a class with its bases, methods and examples
//   - get_function_info: a function or method with parameters and examples
//   - list_classes / list_functions: listings filtered by module
//   - get_parameters: parameters of one function in declaration order
//   - find_examples: examples whose code or description contains a string
//   - get_related: subclasses, bases, module siblings and similar names
//   - get_statistics: entity counts, size and example coverage
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started via the serve command against a database produced
// by ingest:
//
//	apidex serve ./api.db
//
// # Tool: search_api
//
//	Request:
//	{
//	  "name": "search_api",
//	  "arguments": {"query": "parse json*", "limit": 10}
//	}
//
//	Response:
//	{
//	  "query": "parse json*",
//	  "total": 2,
//	  "results": [
//	    {
//	      "type": "FUNCTION",
//	      "name": "loads",
//	      "qualified_name": "json.loads",
//	      "signature": "(s, *, cls=None, **kw)",
//	      "summary": "Deserialize s to a Python object.",
//	      "rank": -4.21
//	    }
//	  ],
//	  "cache_hit": false
//	}
//
// Every whitespace-separated term must match; operators such as AND, OR and
// NEAR are searched for literally.
//
// # Tool: get_function_info
//
// Names resolve as a simple name, a fully qualified name or Class.method.
// When several entities match, the exact qualified match wins, otherwise
// the first by qualified name, and the rest are listed as alternatives.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "api-introspection": {
//	      "command": "/usr/local/bin/apidex",
//	      "args": ["serve", "/path/to/api.db"]
//	    }
//	  }
//	}
//
// # Error Handling
//
// Handlers return *MCPError values which the framework encodes as JSON-RPC
// errors:
//   - -32602: Invalid params (missing or out-of-range arguments)
//   - -32603: Internal error (database failures)
//   - -32001: No class or function matches the name
//   - -32004: Query is empty or has no search terms
//
// # Logging
//
// stdout carries the protocol, so the server logs to stderr only.
package mcp
