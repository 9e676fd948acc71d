package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "api.db", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Partition.Groups)
	assert.Equal(t, "entity_groups", cfg.Partition.OutputDir)
	assert.Empty(t, cfg.Partition.Excludes)
	assert.Equal(t, "api-introspection", cfg.Server.Name)
	assert.Equal(t, 1000, cfg.Server.CacheSize)
	assert.Equal(t, time.Hour, cfg.Server.CacheTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	assert.NoError(t, Validate(cfg))
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := NewLoader("", t.TempDir()).Load()
	require.NoError(t, err)

	defaults := Default()
	assert.Equal(t, defaults.Database, cfg.Database)
	assert.Equal(t, defaults.Server, cfg.Server)
	assert.Equal(t, defaults.Log, cfg.Log)
	assert.Equal(t, defaults.Partition.Groups, cfg.Partition.Groups)
	assert.Equal(t, defaults.Partition.OutputDir, cfg.Partition.OutputDir)
	assert.Empty(t, cfg.Partition.Excludes)
}

func TestLoad_SearchedFileMergesWithDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".apidex.yaml", `
database:
  path: /data/numpy.db
partition:
  groups: 4
  excludes:
    - "numpy._*"
    - "**.tests.**"
server:
  cache_ttl: 5m
`)

	cfg, err := NewLoader("", dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "/data/numpy.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Partition.Groups)
	assert.Equal(t, []string{"numpy._*", "**.tests.**"}, cfg.Partition.Excludes)
	assert.Equal(t, 5*time.Minute, cfg.Server.CacheTTL)

	// Untouched keys keep their defaults
	assert.Equal(t, "entity_groups", cfg.Partition.OutputDir)
	assert.Equal(t, 1000, cfg.Server.CacheSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "custom.yml", "log:\n  level: debug\n  format: json\n")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	_, err = NewLoader(filepath.Join(dir, "missing.yaml")).Load()
	assert.Error(t, err, "an explicit config file must exist")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".apidex.yaml", "database:\n  path: from-file.db\npartition:\n  groups: 3\n")

	t.Setenv("APIDEX_DATABASE_PATH", "from-env.db")
	t.Setenv("APIDEX_PARTITION_OUTPUT_DIR", "/tmp/groups")
	t.Setenv("APIDEX_SERVER_CACHE_SIZE", "64")

	cfg, err := NewLoader("", dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.Path)
	assert.Equal(t, "/tmp/groups", cfg.Partition.OutputDir)
	assert.Equal(t, 64, cfg.Server.CacheSize)
	assert.Equal(t, 3, cfg.Partition.Groups, "file value kept when no env override")
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".apidex.yaml", "partition: [groups: {\n")

	_, err := NewLoader("", dir).Load()
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".apidex.yaml", "partition:\n  groups: 0\n")

	_, err := NewLoader("", dir).Load()
	assert.ErrorIs(t, err, ErrInvalidGroups)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty database path", func(c *Config) { c.Database.Path = " " }, ErrEmptyDatabasePath},
		{"zero groups", func(c *Config) { c.Partition.Groups = 0 }, ErrInvalidGroups},
		{"negative groups", func(c *Config) { c.Partition.Groups = -2 }, ErrInvalidGroups},
		{"empty output dir", func(c *Config) { c.Partition.OutputDir = "" }, ErrEmptyOutputDir},
		{"bad exclude", func(c *Config) { c.Partition.Excludes = []string{"pkg.[oops"} }, ErrInvalidExclude},
		{"zero cache", func(c *Config) { c.Server.CacheSize = 0 }, ErrInvalidCacheSettings},
		{"zero ttl", func(c *Config) { c.Server.CacheTTL = 0 }, ErrInvalidCacheSettings},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLogLevel},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.wantErr)
		})
	}

	t.Run("level is case insensitive", func(t *testing.T) {
		cfg := Default()
		cfg.Log.Level = "WARN"
		assert.NoError(t, Validate(cfg))
	})

	t.Run("multiple errors", func(t *testing.T) {
		cfg := Default()
		cfg.Database.Path = ""
		cfg.Partition.Groups = 0
		cfg.Log.Format = "xml"

		err := Validate(cfg)
		assert.ErrorIs(t, err, ErrEmptyDatabasePath)
		assert.ErrorIs(t, err, ErrInvalidGroups)
		assert.ErrorIs(t, err, ErrInvalidLogFormat)
	})
}
