package query

import (
	"cmp"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/apidex/internal/storage"
)

const (
	// DefaultSearchLimit applies to search and example lookups
	DefaultSearchLimit = 10
	// DefaultListLimit applies to class and function listings
	DefaultListLimit = 50
	// MaxLimit caps every limit
	MaxLimit = 1000

	// DefaultCacheSize is the number of search responses kept
	DefaultCacheSize = 1000
	// DefaultCacheTTL is how long a cached search response stays valid
	DefaultCacheTTL = time.Hour

	relatedLimit = 10
)

var (
	// ErrUnknownRelation is returned for a relation other than inheritance, module or similar
	ErrUnknownRelation = errors.New("unknown relation")
)

// Options configures a Service
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Service answers API questions against a populated store
type Service struct {
	store   storage.Reader
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
	ttl     time.Duration
}

// NewService creates a Service. Zero options select the defaults.
func NewService(store storage.Reader, opts Options) (*Service, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}

	cache, err := lru.New[[32]byte, *cacheEntry](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &Service{
		store: store,
		cache: cache,
		ttl:   opts.CacheTTL,
	}, nil
}

// SearchAPI runs a full-text search over classes and functions. Hits from
// both tables are merged by rank, best first, and cut to limit.
func (s *Service) SearchAPI(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	startTime := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, storage.ErrEmptyQuery
	}
	limit = clampLimit(limit, DefaultSearchLimit)

	key := cacheKey(query, limit)
	if cached := s.checkCache(key); cached != nil {
		cached.CacheHit = true
		cached.Duration = time.Since(startTime)
		return cached, nil
	}

	classes, err := s.store.SearchClasses(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("class search failed: %w", err)
	}
	functions, err := s.store.SearchFunctions(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("function search failed: %w", err)
	}

	// FTS5 ranks are negative BM25 scores, lower is better
	hits := slices.Concat(classes, functions)
	slices.SortStableFunc(hits, func(a, b storage.SearchHit) int {
		return cmp.Compare(a.Rank, b.Rank)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{
			Type:          h.Type,
			Name:          h.Name,
			QualifiedName: h.FullQualifiedName,
			Signature:     h.SignatureString,
			Summary:       summarize(h.Docstring),
			Rank:          h.Rank,
		}
	}

	response := &SearchResponse{
		Query:    query,
		Results:  results,
		Total:    len(results),
		Duration: time.Since(startTime),
	}
	s.storeInCache(key, response)
	return response, nil
}

// GetClassInfo resolves a class by simple or qualified name
func (s *Service) GetClassInfo(ctx context.Context, name string, includeMethods, includeExamples bool) (*ClassInfo, error) {
	class, alternatives, err := s.resolveClass(ctx, name)
	if err != nil {
		return nil, err
	}

	info := &ClassInfo{
		ClassSummary: classSummary(class),
		Alternatives: alternatives,
	}

	info.Bases, err = s.store.ListBases(ctx, class.ID)
	if err != nil {
		return nil, err
	}
	if info.Bases == nil {
		info.Bases = []string{}
	}

	if includeMethods {
		methods, err := s.store.ListMethods(ctx, class.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range methods {
			info.Methods = append(info.Methods, functionSummary(m))
		}
	}

	if includeExamples {
		examples, err := s.store.ListExamples(ctx, storage.ExampleRef{ClassID: &class.ID})
		if err != nil {
			return nil, err
		}
		info.Examples = exampleInfos(examples)
	}
	return info, nil
}

// GetFunctionInfo resolves a function by simple name, qualified name or
// Class.method form
func (s *Service) GetFunctionInfo(ctx context.Context, name string, includeParameters, includeExamples bool) (*FunctionInfo, error) {
	fn, alternatives, err := s.resolveFunction(ctx, name)
	if err != nil {
		return nil, err
	}

	info := &FunctionInfo{
		FunctionSummary: functionSummary(fn),
		Alternatives:    alternatives,
	}

	if includeParameters {
		if info.Parameters, err = s.parameters(ctx, fn.ID); err != nil {
			return nil, err
		}
	}

	if includeExamples {
		examples, err := s.store.ListExamples(ctx, storage.ExampleRef{FunctionID: &fn.ID})
		if err != nil {
			return nil, err
		}
		info.Examples = exampleInfos(examples)
	}
	return info, nil
}

// GetParameters returns a function with its parameters in declaration order
func (s *Service) GetParameters(ctx context.Context, function string) (*FunctionInfo, error) {
	return s.GetFunctionInfo(ctx, function, true, false)
}

// ListClasses lists classes ordered by name, optionally within matching modules
func (s *Service) ListClasses(ctx context.Context, module string, limit int) ([]ClassSummary, error) {
	classes, err := s.store.ListClasses(ctx, storage.ListFilter{
		Module: module,
		Limit:  clampLimit(limit, DefaultListLimit),
	})
	if err != nil {
		return nil, err
	}
	out := make([]ClassSummary, len(classes))
	for i, c := range classes {
		out[i] = classSummary(c)
	}
	return out, nil
}

// ListFunctions lists module-level functions ordered by name
func (s *Service) ListFunctions(ctx context.Context, module string, limit int) ([]FunctionSummary, error) {
	functions, err := s.store.ListFunctions(ctx, storage.ListFilter{
		Module: module,
		Limit:  clampLimit(limit, DefaultListLimit),
	})
	if err != nil {
		return nil, err
	}
	out := make([]FunctionSummary, len(functions))
	for i, f := range functions {
		out[i] = functionSummary(f)
	}
	return out, nil
}

// FindExamples matches query as a substring of example code or description
func (s *Service) FindExamples(ctx context.Context, query string, limit int) ([]ExampleInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, storage.ErrEmptyQuery
	}
	examples, err := s.store.SearchExamples(ctx, query, clampLimit(limit, DefaultSearchLimit))
	if err != nil {
		return nil, err
	}
	return exampleInfos(examples), nil
}

// Statistics returns aggregate store counts
func (s *Service) Statistics(ctx context.Context) (*storage.Statistics, error) {
	return s.store.GetStatistics(ctx)
}

// Coverage returns example coverage
func (s *Service) Coverage(ctx context.Context) (*storage.Coverage, error) {
	return s.store.GetCoverage(ctx)
}

// InvalidateCache clears all cached search responses
func (s *Service) InvalidateCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache.Purge()
}

// resolveClass picks the exact qualified match when there is one, else the
// first match by qualified name. The remaining matches are returned as
// alternatives.
func (s *Service) resolveClass(ctx context.Context, name string) (*storage.Class, []string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, fmt.Errorf("class name: %w", storage.ErrEmptyQuery)
	}
	classes, err := s.store.FindClasses(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if len(classes) == 0 {
		return nil, nil, fmt.Errorf("class %q: %w", name, storage.ErrNotFound)
	}

	best := 0
	for i, c := range classes {
		if c.FullQualifiedName == name {
			best = i
			break
		}
	}
	var alternatives []string
	for i, c := range classes {
		if i != best {
			alternatives = append(alternatives, c.FullQualifiedName)
		}
	}
	return classes[best], alternatives, nil
}

func (s *Service) resolveFunction(ctx context.Context, name string) (*storage.Function, []string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, fmt.Errorf("function name: %w", storage.ErrEmptyQuery)
	}
	functions, err := s.store.FindFunctions(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if len(functions) == 0 {
		if i := strings.LastIndex(name, "."); i > 0 && i < len(name)-1 {
			functions, err = s.store.FindMethods(ctx, name[:i], name[i+1:])
			if err != nil {
				return nil, nil, err
			}
		}
	}
	if len(functions) == 0 {
		return nil, nil, fmt.Errorf("function %q: %w", name, storage.ErrNotFound)
	}

	best := 0
	for i, f := range functions {
		if f.FullQualifiedName == name {
			best = i
			break
		}
	}
	var alternatives []string
	for i, f := range functions {
		if i != best {
			alternatives = append(alternatives, f.FullQualifiedName)
		}
	}
	return functions[best], alternatives, nil
}

func (s *Service) parameters(ctx context.Context, functionID int64) ([]ParameterInfo, error) {
	params, err := s.store.ListParameters(ctx, functionID)
	if err != nil {
		return nil, err
	}
	out := make([]ParameterInfo, len(params))
	for i, p := range params {
		out[i] = parameterInfo(p)
	}
	return out, nil
}

// checkCache returns a copy of a live cached response, or nil
func (s *Service) checkCache(key [32]byte) *SearchResponse {
	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	s.cacheMu.RUnlock()
	if !found {
		return nil
	}

	if time.Now().After(entry.expiresAt) {
		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil
	}

	// Copy so callers can't mutate the cached response
	response := *entry.response
	response.Results = slices.Clone(entry.response.Results)
	return &response
}

func (s *Service) storeInCache(key [32]byte, response *SearchResponse) {
	stored := *response
	stored.Results = slices.Clone(response.Results)

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache.Add(key, &cacheEntry{
		response:  &stored,
		expiresAt: time.Now().Add(s.ttl),
	})
}

func cacheKey(query string, limit int) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d", query, limit)))
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, MaxLimit)
}
