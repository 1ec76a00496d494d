package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

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

// NewLoader creates a loader. A non-empty configFile is read as is and must
// exist; otherwise .tagsgen.yaml is looked up in searchPaths, in order.
func NewLoader(configFile string, searchPaths ...string) Loader {
	return &loader{
		configFile:  configFile,
		searchPaths: searchPaths,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (TAGSGEN_*)
// 2. Config file
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(".tagsgen")
		v.SetConfigType("yaml")
		for _, dir := range l.searchPaths {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("TAGSGEN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Scalars are bound so env vars apply even when no file sets the key
	v.BindEnv("output.path")
	v.BindEnv("runtime.mode")
	v.BindEnv("runtime.python")
	v.BindEnv("runtime.cache_dir")
	v.BindEnv("extract.min_name_length")
	v.BindEnv("extract.record_variables")
	v.BindEnv("extract.fallback")
	v.BindEnv("doc_import.source")
	v.BindEnv("doc_import.output")
	v.BindEnv("doc_import.download_dir")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
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

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("output.path", defaults.Output.Path)

	v.SetDefault("runtime.mode", defaults.Runtime.Mode)
	v.SetDefault("runtime.python", defaults.Runtime.Python)
	v.SetDefault("runtime.cache_dir", defaults.Runtime.CacheDir)

	v.SetDefault("extract.min_name_length", defaults.Extract.MinNameLength)
	v.SetDefault("extract.record_variables", defaults.Extract.RecordVariables)
	v.SetDefault("extract.fallback", defaults.Extract.Fallback)

	v.SetDefault("ignore.units", defaults.Ignore.Units)
	v.SetDefault("ignore.packages", defaults.Ignore.Packages)
	v.SetDefault("ignore.patterns", defaults.Ignore.Patterns)
	v.SetDefault("ignore.types", defaults.Ignore.Types)
	v.SetDefault("ignore.entry_points", defaults.Ignore.EntryPoints)
	v.SetDefault("ignore.paths", defaults.Ignore.Paths)

	v.SetDefault("doc_import.source", defaults.DocImport.Source)
	v.SetDefault("doc_import.output", defaults.DocImport.Output)
	v.SetDefault("doc_import.download_dir", defaults.DocImport.DownloadDir)
}

// LoadConfig loads configuration from configFile, or from .tagsgen.yaml in
// the working directory or the home directory.
func LoadConfig(configFile string) (*Config, error) {
	var paths []string
	if wd, err := os.Getwd(); err == nil {
		paths = append(paths, wd)
	} else {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	return NewLoader(configFile, paths...).Load()
}
