package run

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// unexported variables.
var (
	//nolint:gochecknoglobals // Lookup table
	sourceExtensions = map[string]bool{".js": true, ".mjs": true, ".jsx": true}
)

// discover expands paths into the source files to process. Files named explicitly are always
// kept. Directories are walked for source files matching include and not exclude, with globs
// matched against the slash-separated path relative to the walked directory. node_modules and
// hidden directories are never entered.
func discover(fileSys FileSystem, paths, include, exclude []string) ([]string, error) {
	seen := make(map[string]bool)

	var files []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true

			files = append(files, path)
		}
	}

	for _, root := range paths {
		root = filepath.Clean(root)

		info, err := fileSys.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}

		if !info.IsDir() {
			add(root)
			continue
		}

		err = fileSys.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if entry.IsDir() {
				if path != root && skipDir(entry.Name()) {
					return filepath.SkipDir
				}

				return nil
			}

			if !isSource(path) {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return fmt.Errorf("failed to relativize %s: %w", path, err)
			}

			if selected(filepath.ToSlash(rel), include, exclude) {
				add(path)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	slices.Sort(files)

	return files, nil
}

func isSource(path string) bool {
	return sourceExtensions[filepath.Ext(path)]
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}

	return false
}

func selected(name string, include, exclude []string) bool {
	if len(include) > 0 && !matchAny(include, name) {
		return false
	}

	return !matchAny(exclude, name)
}

func skipDir(name string) bool {
	return name == "node_modules" || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}
