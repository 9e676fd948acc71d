// Package partition splits exported entities into balanced, reproducible
// groups and writes one JSON file per group for downstream workers.
package partition

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand/v2"

	"github.com/gobwas/glob"

	"github.com/dshills/apidex/pkg/types"
)

// Seed is the fixed shuffle seed. Changing it changes every group assignment,
// so existing group files stop being reproducible.
const Seed uint64 = 42

// DefaultGroups is the number of groups used when none is configured
const DefaultGroups = 10

// ErrInvalidGroupCount is returned when fewer than one group is requested
var ErrInvalidGroupCount = errors.New("number of groups must be at least 1")

// Divide shuffles a copy of entities with the fixed Seed and cuts it into
// numGroups contiguous slices. With total = len(entities), the first
// total % numGroups groups hold total/numGroups + 1 entities and the rest
// hold total/numGroups. The input is not modified and the result depends
// only on the input order and numGroups.
func Divide(entities []types.Entity, numGroups int) ([][]types.Entity, error) {
	return DivideWithSeed(entities, numGroups, Seed)
}

// DivideWithSeed is Divide with an explicit shuffle seed
func DivideWithSeed(entities []types.Entity, numGroups int, seed uint64) ([][]types.Entity, error) {
	if numGroups < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidGroupCount, numGroups)
	}

	shuffled := make([]types.Entity, len(entities))
	copy(shuffled, entities)

	// Fisher-Yates over a seeded PCG source. Indices are drawn here rather
	// than through rand.Rand.Shuffle, whose stream is not promised stable
	// across releases and differs on 32-bit platforms.
	src := rand.NewPCG(seed, 0)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := boundedIndex(src, uint64(i+1))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	total := len(shuffled)
	base := total / numGroups
	remainder := total % numGroups

	groups := make([][]types.Entity, numGroups)
	start := 0
	for i := range groups {
		size := base
		if i < remainder {
			size++
		}
		// Full slice expression keeps groups from aliasing each other on append
		groups[i] = shuffled[start : start+size : start+size]
		start += size
	}
	return groups, nil
}

// boundedIndex returns a uniform value in [0, n) from src using Lemire's
// multiply-and-reject reduction
func boundedIndex(src *rand.PCG, n uint64) uint64 {
	if n&(n-1) == 0 {
		return src.Uint64() & (n - 1)
	}
	hi, lo := bits.Mul64(src.Uint64(), n)
	if lo < n {
		thresh := -n % n
		for lo < thresh {
			hi, lo = bits.Mul64(src.Uint64(), n)
		}
	}
	return hi
}

// Filter drops entities whose qualified name matches any exclude pattern.
// Patterns are globs over dotted names: '*' stays within one segment and
// '**' crosses segments, so "pkg._internal.**" excludes a whole subtree.
func Filter(entities []types.Entity, excludes []string) ([]types.Entity, error) {
	if len(excludes) == 0 {
		return entities, nil
	}

	patterns := make([]glob.Glob, 0, len(excludes))
	for _, pattern := range excludes {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		patterns = append(patterns, g)
	}

	kept := make([]types.Entity, 0, len(entities))
	for _, e := range entities {
		if !matchesAny(patterns, e.FullQualifiedName) {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

func matchesAny(patterns []glob.Glob, name string) bool {
	for _, g := range patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Sizes returns the length of each group
func Sizes(groups [][]types.Entity) []int {
	sizes := make([]int, len(groups))
	for i, g := range groups {
		sizes[i] = len(g)
	}
	return sizes
}
