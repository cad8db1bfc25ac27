package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"docsearch/internal/port"
)

// Walker lists the files of an upload directory and filters names against
// doublestar include/exclude patterns.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// List returns the entries directly inside dir in listing order. Entries are
// stat'ed through symlinks; anything that is not a regular file comes back
// with Regular unset.
func (w *Walker) List(dir string) ([]port.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]port.FileInfo, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		fi := port.FileInfo{
			Name: entry.Name(),
			Path: path,
		}

		info, err := os.Stat(path)
		if err == nil {
			fi.Regular = info.Mode().IsRegular()
			fi.ModTime = info.ModTime().Unix()
			fi.Size = info.Size()
		}
		files = append(files, fi)
	}

	return files, nil
}

// Accepts reports whether a file name passes the include and exclude patterns.
// Matching is case-insensitive on the base name.
func (w *Walker) Accepts(name string) bool {
	name = strings.ToLower(filepath.Base(name))
	return w.shouldInclude(name) && !w.shouldExclude(name)
}

func (w *Walker) shouldInclude(name string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(strings.ToLower(pattern), name)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(name string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(strings.ToLower(pattern), name)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// ValidPatterns returns the first malformed pattern, if any.
func ValidPatterns(patterns []string) (string, bool) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return p, false
		}
	}
	return "", true
}
