// Package config provides configuration loading for tagsgen.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (TAGSGEN_*)
//  2. Config file (--config, or .tagsgen.yaml in the working directory or $HOME)
//  3. Built-in defaults
//
// Nested fields map to environment variables with underscores, e.g.
// TAGSGEN_EXTRACT_MIN_NAME_LENGTH.
package config

import (
	"github.com/mvp-joe/tagsgen/internal/extract"
)

// Config represents the complete tagsgen configuration.
type Config struct {
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Runtime   RuntimeConfig   `yaml:"runtime" mapstructure:"runtime"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Ignore    IgnoreConfig    `yaml:"ignore" mapstructure:"ignore"`
	DocImport DocImportConfig `yaml:"doc_import" mapstructure:"doc_import"`
}

// OutputConfig names the generated tag file.
type OutputConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// RuntimeConfig selects the interpreter used for reflective extraction.
type RuntimeConfig struct {
	Mode     string `yaml:"mode" mapstructure:"mode"`           // "system" or "embedded"
	Python   string `yaml:"python" mapstructure:"python"`       // interpreter for system mode
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"` // extraction dir for embedded mode, empty for a temp dir
}

// ExtractConfig tunes what gets recorded.
type ExtractConfig struct {
	MinNameLength   int    `yaml:"min_name_length" mapstructure:"min_name_length"`
	RecordVariables bool   `yaml:"record_variables" mapstructure:"record_variables"`
	Fallback        string `yaml:"fallback" mapstructure:"fallback"` // "pattern" or "syntax"
}

// IgnoreConfig lists units and types that are never loaded or recorded.
type IgnoreConfig struct {
	Units       []string `yaml:"units" mapstructure:"units"`               // exact unit names, covering submodules
	Packages    []string `yaml:"packages" mapstructure:"packages"`         // substrings of unit names or paths
	Patterns    []string `yaml:"patterns" mapstructure:"patterns"`         // globs over dotted unit names
	Types       []string `yaml:"types" mapstructure:"types"`               // fully-qualified class names
	EntryPoints []string `yaml:"entry_points" mapstructure:"entry_points"` // units that run a program when loaded
	Paths       []string `yaml:"paths" mapstructure:"paths"`               // gitignore-style patterns over library-relative paths
}

// DocImportConfig configures import-doc.
type DocImportConfig struct {
	Source      string `yaml:"source" mapstructure:"source"`             // file or http(s) URL
	Output      string `yaml:"output" mapstructure:"output"`
	DownloadDir string `yaml:"download_dir" mapstructure:"download_dir"` // empty for a temp dir
}

const (
	RuntimeSystem   = "system"
	RuntimeEmbedded = "embedded"

	FallbackPattern = "pattern"
	FallbackSyntax  = "syntax"
)

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Path: "python.tags",
		},
		Runtime: RuntimeConfig{
			Mode:   RuntimeSystem,
			Python: "python3",
		},
		Extract: ExtractConfig{
			MinNameLength:   4,
			RecordVariables: false,
			Fallback:        FallbackPattern,
		},
		Ignore: IgnoreConfig{
			Units: []string{
				// self-referential jokes that print or open a browser on import
				"antigravity",
				"this",
				"__hello__",
				"__phello__",
				// GUI toolkits and demos
				"idlelib",
				"tkinter",
				"turtle",
				"turtledemo",
				// platform-specific
				"msilib",
				"msvcrt",
				"winreg",
				"winsound",
				"nturl2path",
				"asyncio.windows_events",
				"asyncio.windows_utils",
				"multiprocessing.popen_spawn_win32",
				"encodings.mbcs",
				"encodings.oem",
				// data-only packages
				"pydoc_data",
				"lib2to3",
			},
			Packages: []string{
				"site-packages",
				"dist-packages",
				"idle_test",
			},
			Patterns: []string{
				"test",
				"test.**",
				"**.test",
				"**.test.**",
				"**.tests",
				"**.tests.**",
			},
			Types: []string{
				"collections.abc.ByteString",
				"typing.ByteString",
			},
			EntryPoints: []string{
				"setup",
				"ez_setup",
			},
			Paths: []string{
				"test_*.py",
				"*_test.py",
			},
		},
		DocImport: DocImportConfig{
			Source: "http://doc.php.net/downloads/json/php_manual_en.json",
			Output: "std.php.tags",
		},
	}
}

// Rules converts the ignore and extract settings into extraction rules.
func (c *Config) Rules() extract.Rules {
	return extract.Rules{
		Units:           c.Ignore.Units,
		Packages:        c.Ignore.Packages,
		Patterns:        c.Ignore.Patterns,
		Types:           c.Ignore.Types,
		EntryPoints:     c.Ignore.EntryPoints,
		MinNameLength:   c.Extract.MinNameLength,
		RecordVariables: c.Extract.RecordVariables,
	}
}
