package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
)

var (
	// ErrEmptyOutput indicates a missing output path
	ErrEmptyOutput = errors.New("empty output path")

	// ErrInvalidRuntime indicates an unsupported runtime mode
	ErrInvalidRuntime = errors.New("invalid runtime mode")

	// ErrEmptyPython indicates system mode without an interpreter
	ErrEmptyPython = errors.New("empty python interpreter")

	// ErrInvalidFallback indicates an unsupported fallback strategy
	ErrInvalidFallback = errors.New("invalid fallback strategy")

	// ErrInvalidNameLength indicates a negative minimum name length
	ErrInvalidNameLength = errors.New("invalid minimum name length")

	// ErrInvalidPattern indicates an ignore pattern that does not compile
	ErrInvalidPattern = errors.New("invalid ignore pattern")
)

// Validate checks that the configuration is valid and complete. Every problem
// found is reported, not just the first.
func Validate(cfg *Config) error {
	var result *multierror.Error

	if strings.TrimSpace(cfg.Output.Path) == "" {
		result = multierror.Append(result, fmt.Errorf("%w: output.path is required", ErrEmptyOutput))
	}

	result = multierror.Append(result, validateRuntime(&cfg.Runtime)...)
	result = multierror.Append(result, validateExtract(&cfg.Extract)...)
	result = multierror.Append(result, validateIgnore(&cfg.Ignore)...)

	result.ErrorFormat = formatErrors
	return result.ErrorOrNil()
}

func validateRuntime(cfg *RuntimeConfig) []error {
	var errs []error

	switch strings.ToLower(cfg.Mode) {
	case RuntimeSystem:
		if strings.TrimSpace(cfg.Python) == "" {
			errs = append(errs, fmt.Errorf("%w: runtime.python is required in system mode", ErrEmptyPython))
		}
	case RuntimeEmbedded:
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'system' or 'embedded', got '%s'", ErrInvalidRuntime, cfg.Mode))
	}

	return errs
}

func validateExtract(cfg *ExtractConfig) []error {
	var errs []error

	if cfg.MinNameLength < 0 {
		errs = append(errs, fmt.Errorf("%w: min_name_length cannot be negative, got %d", ErrInvalidNameLength, cfg.MinNameLength))
	}

	switch strings.ToLower(cfg.Fallback) {
	case FallbackPattern, FallbackSyntax:
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'pattern' or 'syntax', got '%s'", ErrInvalidFallback, cfg.Fallback))
	}

	return errs
}

func validateIgnore(cfg *IgnoreConfig) []error {
	var errs []error

	for _, pattern := range cfg.Patterns {
		if _, err := glob.Compile(pattern, '.'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	return errs
}

// formatErrors lists errors one per line, without a heading for a single error.
func formatErrors(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}

	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
