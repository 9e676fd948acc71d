// Package config loads apidex settings from defaults, an optional YAML file
// and APIDEX_* environment variables.
package config

import (
	"time"

	"github.com/dshills/apidex/internal/partition"
)

// Config represents the complete apidex configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Partition PartitionConfig `yaml:"partition" mapstructure:"partition"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig locates the API database.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PartitionConfig controls how entities are divided for downstream workers.
type PartitionConfig struct {
	Groups    int      `yaml:"groups" mapstructure:"groups"`
	OutputDir string   `yaml:"output_dir" mapstructure:"output_dir"`
	Excludes  []string `yaml:"excludes" mapstructure:"excludes"` // globs over qualified names
}

// ServerConfig configures the MCP query server.
type ServerConfig struct {
	Name      string        `yaml:"name" mapstructure:"name"`
	CacheSize int           `yaml:"cache_size" mapstructure:"cache_size"` // cached search responses
	CacheTTL  time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// LogConfig configures the stderr logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error or silent
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "api.db",
		},
		Partition: PartitionConfig{
			Groups:    partition.DefaultGroups,
			OutputDir: "entity_groups",
			Excludes:  []string{},
		},
		Server: ServerConfig{
			Name:      "api-introspection",
			CacheSize: 1000,
			CacheTTL:  time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
