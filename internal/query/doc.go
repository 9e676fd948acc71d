// Package query answers API questions against a populated store: full-text
// search, class and function detail, listings, examples and related
// entities. Search responses are cached in an LRU with a TTL; call
// InvalidateCache after the store changes.
package query
