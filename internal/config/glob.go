package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveFilterFiles expands filter file paths and glob patterns. Rules run
// in file order, so the result keeps the order of patterns; matches of one
// glob are sorted among themselves. A file named twice is kept at its first
// position. An empty list means the built-in filters and returns nil.
func ResolveFilterFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if hasGlobMeta(pattern) {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("filter pattern %q: %w", pattern, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no filter files match %q", pattern)
			}
			sort.Strings(matches)
			for _, match := range matches {
				add(match)
			}
			continue
		}

		info, err := os.Stat(pattern)
		if err != nil {
			return nil, fmt.Errorf("filter file: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("filter file %s is a directory", pattern)
		}
		add(pattern)
	}

	return files, nil
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
