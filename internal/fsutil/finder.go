// Package fsutil provides the file lookups used to discover declaration files
// and to select build outputs for package rules.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths in
// lexical order. A root that is itself a matching file is returned as is.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		return nil, errors.New("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// MatchesPattern reports whether a file name satisfies a package-rule
// pattern. A pattern starting with a dot is a suffix (".a"); anything else is
// an exact file name ("libz.a").
func MatchesPattern(name, pattern string) bool {
	if strings.HasPrefix(pattern, ".") {
		return strings.HasSuffix(name, pattern)
	}
	return name == pattern
}

// MatchFiles walks dir inside fsys and returns the slash-separated paths of
// every regular file whose name matches any of patterns, in lexical order.
func MatchFiles(fsys fs.FS, dir string, patterns []string) ([]string, error) {
	var out []string
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, pattern := range patterns {
			if MatchesPattern(d.Name(), pattern) {
				out = append(out, p)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IsDir reports whether p exists and is a directory.
func IsDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// CleanRel normalizes a declared relative directory for use with fs.FS.
// Empty and "." both mean the root.
func CleanRel(dir string) string {
	dir = path.Clean(filepath.ToSlash(dir))
	if dir == "" || dir == "/" {
		return "."
	}
	return strings.TrimPrefix(dir, "/")
}
