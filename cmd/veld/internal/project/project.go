// Package project locates component sources in a workspace.
package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Scan returns all .veld files under root in sorted order. Directories
// named testdata, hidden directories, and directories starting with "_"
// are skipped, matching the Go toolchain's notion of ignored trees.
func Scan(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if IsComponent(root) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsComponent(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// IsComponent reports whether path names a component source file.
func IsComponent(path string) bool {
	return strings.HasSuffix(path, ".veld")
}

func skipDir(name string) bool {
	return name == "testdata" ||
		strings.HasPrefix(name, ".") ||
		strings.HasPrefix(name, "_")
}
