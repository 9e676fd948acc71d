// Package types provides the shared document and entity types for apidex.
//
// # Input Document
//
// The ingestion input is one JSON object describing a root module, produced
// by an external introspection walker:
//
//	{
//	  "name": "json",
//	  "docstring": "JSON encoder and decoder.",
//	  "classes": [
//	    {
//	      "name": "JSONDecoder",
//	      "qualified_name": "json.JSONDecoder",
//	      "bases": ["object"],
//	      "methods": [ ... ]
//	    }
//	  ],
//	  "functions": [
//	    {
//	      "name": "loads",
//	      "qualified_name": "json.loads",
//	      "signature_string": "(s, *, cls=None, **kw)",
//	      "parameters": [
//	        {"name": "s", "kind": "POSITIONAL_OR_KEYWORD"},
//	        {"name": "kw", "kind": "VAR_KEYWORD"}
//	      ]
//	    }
//	  ],
//	  "submodules": [ ... ]
//	}
//
// Module, Class, Function and Parameter mirror that shape. Unknown keys are
// ignored when decoding; parameter kinds outside the five ParameterKind
// values are rejected. Default values are display text, never evaluated.
//
// # Entities
//
// Entity is the flattened {type, id, name, full_qualified_name} record the
// partitioner writes to group files. Class and function ids are only unique
// within their own kind, so EntityKey pairs the two.
package types
