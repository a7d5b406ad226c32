package resolve

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/commitward/commitward/internal/config"
)

// Directories never treated as package roots during detection.
var skipDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

const maxDetectDepth = 4

// Detect finds package roots under repoRoot. Explicitly configured packages
// come first; marker files (go.mod, package.json, ...) fill in the rest.
// Returned roots are repository-relative POSIX paths.
func Detect(repoRoot string, cfg config.MonorepoConfig) []Package {
	if !cfg.Enabled {
		return nil
	}

	var packages []Package
	seen := make(map[string]bool)

	for _, pc := range cfg.Packages {
		root := filepath.ToSlash(strings.Trim(pc.Path, "/"))
		if root == "" || seen[root] {
			continue
		}
		name := pc.Scope
		if pc.Name != "" {
			name = pc.Name
		}
		if name == "" {
			name = filepath.Base(root)
		}
		packages = append(packages, Package{Name: name, Root: root})
		seen[root] = true
	}

	markers := make(map[string]bool, len(cfg.Markers))
	for _, m := range cfg.Markers {
		markers[m] = true
	}

	filepath.WalkDir(repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(repoRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			name := d.Name()
			if path != repoRoot && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			if strings.Count(rel, "/") >= maxDetectDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !markers[d.Name()] {
			return nil
		}
		root := filepath.ToSlash(filepath.Dir(rel))
		if root == "." || seen[root] {
			return nil
		}
		packages = append(packages, Package{
			Name: packageName(path, root),
			Root: root,
		})
		seen[root] = true
		return nil
	})

	return packages
}

// packageName extracts the package identifier from a manifest file,
// falling back to the directory name.
func packageName(manifestPath, root string) string {
	switch filepath.Base(manifestPath) {
	case "go.mod":
		if name := goModuleName(manifestPath); name != "" {
			return name
		}
	case "package.json":
		if name := npmPackageName(manifestPath); name != "" {
			return name
		}
	}
	return filepath.Base(root)
}

func goModuleName(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if module, ok := strings.CutPrefix(line, "module "); ok {
			module = strings.TrimSpace(module)
			if i := strings.LastIndex(module, "/"); i >= 0 {
				module = module[i+1:]
			}
			return module
		}
	}
	return ""
}

func npmPackageName(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var manifest struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ""
	}
	return manifest.Name
}
