// Package scanner discovers indexable files under a directory, honoring
// exclusion globs and the recursion flag.
package scanner

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options configures one scan.
type Options struct {
	// Exclude holds glob patterns matched against path segments and against
	// the path relative to the scan root.
	Exclude []string
	// Recursive descends into subdirectories when set.
	Recursive bool
	// Extensions lists the supported file extensions (without dot).
	Extensions []string
}

// Scanner walks directories and yields candidate file paths.
type Scanner struct{}

// New creates a Scanner.
func New() *Scanner {
	return &Scanner{}
}

// Scan returns the absolute paths of supported files under root in
// traversal order. Unreadable entries are logged and skipped.
func (s *Scanner) Scan(root string, opts Options) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "scan", Path: absRoot, Err: fs.ErrInvalid}
	}

	exts := map[string]bool{}
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	var paths []string
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("scan_entry_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == absRoot {
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			rel = d.Name()
		}

		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			if excluded(rel, d.Name(), opts.Exclude) {
				return filepath.SkipDir
			}
			return nil
		}

		if excluded(rel, d.Name(), opts.Exclude) {
			return nil
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if !exts[ext] {
			slog.Warn("scan_unsupported_skipped", slog.String("path", path))
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return paths, nil
}

// excluded matches a pattern against the relative path, its basename, and
// every individual path segment, so a bare "node_modules" excludes the
// directory at any depth.
func excluded(rel, name string, patterns []string) bool {
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, filepath.ToSlash(rel)); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
		for _, seg := range segments {
			if ok, _ := filepath.Match(pattern, seg); ok {
				return true
			}
		}
	}
	return false
}
