package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/tagsgen/internal/tags"
)

// Rules is the exclusion and naming policy shared by every strategy.
type Rules struct {
	Units       []string // exact unit names
	Packages    []string // substrings of the dotted unit name or its path
	Patterns    []string // globs over the dotted unit name, '.' separated
	Types       []string // fully-qualified class names
	EntryPoints []string // units that run a program when loaded

	MinNameLength   int
	RecordVariables bool
}

type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Policy is the compiled, read-only form of Rules.
type Policy struct {
	units       map[string]bool
	packages    []string
	patterns    []compiledPattern
	types       map[string]bool
	entryPoints map[string]bool

	minNameLength   int
	recordVariables bool
}

// NewPolicy compiles rules. It fails on an invalid glob.
func NewPolicy(rules Rules) (*Policy, error) {
	p := &Policy{
		units:           toSet(rules.Units),
		packages:        rules.Packages,
		types:           toSet(rules.Types),
		entryPoints:     toSet(rules.EntryPoints),
		minNameLength:   rules.MinNameLength,
		recordVariables: rules.RecordVariables,
	}
	for _, pattern := range rules.Patterns {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		p.patterns = append(p.patterns, compiledPattern{pattern: pattern, glob: g})
	}
	return p, nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// IsEntryPoint reports whether loading unit would run a program.
func (p *Policy) IsEntryPoint(unit Unit) bool {
	if unit.Name == "__main__" || strings.HasSuffix(unit.Name, ".__main__") {
		return true
	}
	if unit.Path != "" && filepath.Base(unit.Path) == "__main__.py" {
		return true
	}
	return p.entryPoints[unit.Name]
}

// Excluded reports whether unit is on an ignore list, and which rule matched.
func (p *Policy) Excluded(unit Unit) (string, bool) {
	if p.units[unit.Name] {
		return "unit " + unit.Name, true
	}
	// a package ignore covers its submodules too
	for parent := unit.Name; parent != ""; {
		i := strings.LastIndexByte(parent, '.')
		if i < 0 {
			break
		}
		parent = parent[:i]
		if p.units[parent] {
			return "unit " + parent, true
		}
	}
	for _, substr := range p.packages {
		if substr == "" {
			continue
		}
		if strings.Contains(unit.Name, substr) || strings.Contains(filepath.ToSlash(unit.Path), substr) {
			return "package " + substr, true
		}
	}
	for _, cp := range p.patterns {
		if cp.glob.Match(unit.Name) {
			return "pattern " + cp.pattern, true
		}
	}
	return "", false
}

// TypeIgnored reports whether the class module.qualname must not be recorded.
func (p *Policy) TypeIgnored(module, qualname string) bool {
	return p.types[module+"."+qualname]
}

// NameAllowed applies the naming filter used at module and class level.
func (p *Policy) NameAllowed(name string) bool {
	return name != "" && !tags.IsPrivate(name) && len(name) >= p.minNameLength
}

// RecordVariables reports whether non-callable values are recorded.
func (p *Policy) RecordVariables() bool {
	return p.recordVariables
}
