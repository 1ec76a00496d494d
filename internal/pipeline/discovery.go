package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/mvp-joe/tagsgen/internal/extract"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const initFile = "__init__.py"

// Discovery turns library roots and command-line arguments into units.
type Discovery struct {
	policy *extract.Policy
	paths  *ignore.GitIgnore
}

// NewDiscovery creates a discovery applying policy to every unit. Files and
// directories matching one of the gitignore-style ignorePaths, relative to
// the enumerated root, are skipped.
func NewDiscovery(policy *extract.Policy, ignorePaths ...string) *Discovery {
	d := &Discovery{policy: policy}
	if len(ignorePaths) > 0 {
		d.paths = ignore.CompileIgnoreLines(ignorePaths...)
	}
	return d
}

// Root returns every importable source module under root, in lexical path
// order. Subdirectories count only when they are regular packages. Units
// excluded by the policy, ignored paths and entry points are left out, and
// excluded packages are not descended into.
func (d *Discovery) Root(root string) ([]extract.Unit, error) {
	return d.walk(root, "")
}

// walk enumerates dir, naming modules below it with the dotted prefix pkg.
func (d *Discovery) walk(dir, pkg string) ([]extract.Unit, error) {
	var units []extract.Unit

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			// unreadable subtrees are skipped
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		if path != dir && d.paths != nil && d.paths.MatchesPath(filepath.ToSlash(rel)) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if path == dir {
				return nil
			}
			name := moduleName(pkg, filepath.ToSlash(rel))
			if name == "" || !isFile(filepath.Join(path, initFile)) {
				return filepath.SkipDir
			}
			if _, excluded := d.policy.Excluded(extract.Unit{Name: name, Path: path}); excluded {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(entry.Name(), ".py") {
			return nil
		}
		modRel := strings.TrimSuffix(filepath.ToSlash(rel), ".py")
		if entry.Name() == initFile {
			modRel = filepath.ToSlash(filepath.Dir(rel))
		}
		name := moduleName(pkg, modRel)
		if name == "" {
			return nil
		}

		unit := extract.Unit{Name: name, Path: path}
		if d.policy.IsEntryPoint(unit) {
			return nil
		}
		if _, excluded := d.policy.Excluded(unit); excluded {
			return nil
		}
		units = append(units, unit)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", dir, err)
	}
	return units, nil
}

// moduleName joins pkg and a slash-separated relative path into a dotted
// name, or returns "" if any component is not an identifier.
func moduleName(pkg, rel string) string {
	var parts []string
	if pkg != "" {
		parts = append(parts, pkg)
	}
	if rel != "" && rel != "." {
		for _, part := range strings.Split(rel, "/") {
			if !identifier.MatchString(part) {
				return ""
			}
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ".")
}

// Resolve turns arguments into units. A .py file becomes a unit named after
// its stem, a directory is enumerated (as a package when it has __init__.py),
// and anything else is taken as a module name. Duplicate units are dropped.
func (d *Discovery) Resolve(args []string) ([]extract.Unit, error) {
	var units []extract.Unit
	seen := map[string]bool{}
	add := func(u extract.Unit) {
		if !seen[u.Name] {
			seen[u.Name] = true
			units = append(units, u)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			found, err := d.directory(arg)
			if err != nil {
				return nil, err
			}
			for _, u := range found {
				add(u)
			}
		case err == nil:
			abs, err := filepath.Abs(arg)
			if err != nil {
				return nil, err
			}
			stem := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
			if stem == "__init__" {
				stem = filepath.Base(filepath.Dir(abs))
			}
			add(extract.Unit{Name: stem, Path: abs})
		case strings.HasSuffix(arg, ".py") || strings.ContainsRune(arg, filepath.Separator):
			return nil, fmt.Errorf("source file %s: %w", arg, err)
		default:
			add(extract.Unit{Name: arg})
		}
	}
	return units, nil
}

func (d *Discovery) directory(dir string) ([]extract.Unit, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if !isFile(filepath.Join(abs, initFile)) {
		return d.walk(abs, "")
	}
	pkg := filepath.Base(abs)
	if !identifier.MatchString(pkg) {
		return nil, fmt.Errorf("package directory %s is not a valid module name", dir)
	}
	return d.walk(abs, pkg)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
