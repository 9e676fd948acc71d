package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyDatabasePath indicates a missing database path
	ErrEmptyDatabasePath = errors.New("empty database path")

	// ErrInvalidGroups indicates a group count below one
	ErrInvalidGroups = errors.New("invalid partition group count")

	// ErrEmptyOutputDir indicates a missing partition output directory
	ErrEmptyOutputDir = errors.New("empty partition output directory")

	// ErrInvalidExclude indicates an exclude glob that does not compile
	ErrInvalidExclude = errors.New("invalid exclude pattern")

	// ErrInvalidCacheSettings indicates invalid query cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidLogFormat indicates an unknown log format
	ErrInvalidLogFormat = errors.New("invalid log format")
)

var (
	validLevels  = []string{"debug", "info", "warn", "warning", "error", "silent", "off", "none"}
	validFormats = []string{"text", "json"}
)

// Validate checks that the configuration is valid and complete. All
// problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Database.Path) == "" {
		errs = append(errs, ErrEmptyDatabasePath)
	}

	if cfg.Partition.Groups < 1 {
		errs = append(errs, fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidGroups, cfg.Partition.Groups))
	}
	if strings.TrimSpace(cfg.Partition.OutputDir) == "" {
		errs = append(errs, ErrEmptyOutputDir)
	}
	for _, pattern := range cfg.Partition.Excludes {
		if _, err := glob.Compile(pattern, '.'); err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %v", ErrInvalidExclude, pattern, err))
		}
	}

	if cfg.Server.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("%w: cache_size must be positive, got %d", ErrInvalidCacheSettings, cfg.Server.CacheSize))
	}
	if cfg.Server.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: cache_ttl must be positive, got %s", ErrInvalidCacheSettings, cfg.Server.CacheTTL))
	}

	if !slices.Contains(validLevels, strings.ToLower(cfg.Log.Level)) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Log.Level))
	}
	if !slices.Contains(validFormats, strings.ToLower(cfg.Log.Format)) {
		errs = append(errs, fmt.Errorf("%w: must be 'text' or 'json', got %q", ErrInvalidLogFormat, cfg.Log.Format))
	}

	return errors.Join(errs...)
}
