package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. APIDEX_DATABASE_PATH
const EnvPrefix = "APIDEX"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	configFile  string
	searchPaths []string
}

// NewLoader creates a loader. An explicit configFile must exist; otherwise
// .apidex.yaml is looked up in searchPaths, defaulting to the working
// directory and then $HOME.
func NewLoader(configFile string, searchPaths ...string) Loader {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
		if home, err := os.UserHomeDir(); err == nil {
			searchPaths = append(searchPaths, home)
		}
	}
	return &loader{
		configFile:  configFile,
		searchPaths: searchPaths,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (APIDEX_*)
// 2. Config file (--config or .apidex.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(".apidex")
		v.SetConfigType("yaml")
		for _, p := range l.searchPaths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., APIDEX_PARTITION_OUTPUT_DIR)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing searched-for file is fine, defaults and env still apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("database.path", defaults.Database.Path)

	v.SetDefault("partition.groups", defaults.Partition.Groups)
	v.SetDefault("partition.output_dir", defaults.Partition.OutputDir)
	v.SetDefault("partition.excludes", defaults.Partition.Excludes)

	v.SetDefault("server.name", defaults.Server.Name)
	v.SetDefault("server.cache_size", defaults.Server.CacheSize)
	v.SetDefault("server.cache_ttl", defaults.Server.CacheTTL)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
}

// LoadConfig loads configuration from the default search paths.
func LoadConfig() (*Config, error) {
	return NewLoader("").Load()
}
