package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// AllowPattern is matched against lower-cased file names.
const AllowPattern = "*.{png,jpg,jpeg,pdf}"

// DefaultExcludes skips hidden directories.
var DefaultExcludes = []string{".*"}

// Discover walks the input root once and returns, sorted, every paper that
// matches the allow-list and has no sidecar yet. Directories matching an
// exclude pattern (by relative path or base name) are not entered, nor is
// the error-artifact directory.
func (o *Orchestrator) Discover(ctx context.Context) ([]string, error) {
	root := filepath.Clean(o.inputDir)
	info, err := o.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("input dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input dir %s is not a directory", root)
	}

	var docs []string
	err = afero.Walk(o.fs, root, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			o.logger.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if path != root && o.excludedDir(root, path) {
				return filepath.SkipDir
			}
			return nil
		}

		if !allowed(info.Name()) {
			return nil
		}
		if o.store.Exists(path) {
			return nil
		}
		docs = append(docs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(docs)
	return docs, nil
}

func allowed(name string) bool {
	ok, err := doublestar.Match(AllowPattern, strings.ToLower(name))
	return err == nil && ok
}

func (o *Orchestrator) excludedDir(root, dir string) bool {
	if o.artifactsDir != "" && absPath(dir) == o.artifactsDir {
		return true
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(dir)
	for _, pattern := range o.excludes {
		if matchesExcludePattern(pattern, rel, base) {
			return true
		}
	}
	return false
}

// absPath resolves p against the working directory so relative and
// absolute spellings of the same directory compare equal. Empty stays empty.
func absPath(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// matchesExcludePattern checks a pattern against relative and base names.
func matchesExcludePattern(pattern, rel, base string) bool {
	matched, err := doublestar.Match(pattern, rel)
	if err == nil && matched {
		return true
	}
	matched, err = doublestar.Match(pattern, base)
	return err == nil && matched
}
