// Package resolve maps changed file paths to monorepo package boundaries.
package resolve

import (
	"sort"
	"strings"

	"github.com/commitward/commitward/internal/diff"
)

// Package is a resolved package root inside the repository.
type Package struct {
	Name string // identifier used as a commit scope
	Root string // repository-relative POSIX path, "" for the synthetic root
}

// IsRoot reports whether this is the synthetic root package.
func (p Package) IsRoot() bool {
	return p.Root == ""
}

// Ambiguity records a path that matched two or more package roots of equal
// length. The path is degraded to the synthetic root package; callers
// surface the ambiguity as a warning instead of aborting.
type Ambiguity struct {
	Path  string
	Roots []string
}

// Resolution is the deterministic mapping from changed paths to packages.
type Resolution struct {
	byPath      map[string]Package
	Ambiguities []Ambiguity
	Root        Package
}

// PackageFor returns the package a path resolved to. Unknown paths get the
// synthetic root package.
func (r *Resolution) PackageFor(path string) Package {
	if p, ok := r.byPath[path]; ok {
		return p
	}
	return r.Root
}

// Packages returns the distinct packages touched by the change set, sorted
// by name for deterministic output.
func (r *Resolution) Packages() []Package {
	seen := make(map[string]Package)
	for _, p := range r.byPath {
		seen[p.Name] = p
	}
	out := make([]Package, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve maps every file in the change set to its most specific enclosing
// package. Paths are sorted before resolving so the result does not depend
// on traversal order. Equal-length competing roots degrade the path to the
// synthetic root package and record an Ambiguity.
func Resolve(cs *diff.ChangeSet, packages []Package, rootScope string) *Resolution {
	res := &Resolution{
		byPath: make(map[string]Package, len(cs.Files)),
		Root:   Package{Name: rootScope},
	}

	for _, path := range cs.Paths() {
		matches := ancestorsOf(path, packages)
		switch len(matches) {
		case 0:
			res.byPath[path] = res.Root
		case 1:
			res.byPath[path] = matches[0]
		default:
			roots := make([]string, len(matches))
			for i, m := range matches {
				roots[i] = m.Root
			}
			sort.Strings(roots)
			res.Ambiguities = append(res.Ambiguities, Ambiguity{Path: path, Roots: roots})
			res.byPath[path] = res.Root
		}
	}

	return res
}

// ancestorsOf returns the packages whose roots are proper ancestors of path
// and share the longest matching prefix. One element is the normal case;
// more than one is an ambiguity.
func ancestorsOf(path string, packages []Package) []Package {
	best := -1
	var matches []Package

	for _, pkg := range packages {
		if pkg.Root == "" || !isAncestor(pkg.Root, path) {
			continue
		}
		switch l := len(pkg.Root); {
		case l > best:
			best = l
			matches = matches[:0]
			matches = append(matches, pkg)
		case l == best:
			matches = append(matches, pkg)
		}
	}

	return matches
}

// isAncestor reports whether root is a proper path ancestor of path.
func isAncestor(root, path string) bool {
	root = strings.Trim(root, "/")
	if path == root {
		return false
	}
	return strings.HasPrefix(path, root+"/")
}
