package stage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	cp "github.com/otiai10/copy"
)

// ReplaceMatching removes every file in dstDir matching pattern, then copies
// every file in srcDir matching pattern into dstDir. Both directories are
// searched non-recursively unless pattern contains "**".
//
// It returns the copied file names, sorted. Returns [ErrSourceMissing] when
// srcDir does not exist; dstDir is left untouched in that case. dstDir is
// created if needed.
func ReplaceMatching(srcDir, dstDir, pattern string) ([]string, error) {
	if !isDir(srcDir) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, srcDir)
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dstDir, err)
	}

	stale, err := doublestar.Glob(os.DirFS(dstDir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dstDir, err)
	}
	for _, rel := range stale {
		p := filepath.Join(dstDir, filepath.FromSlash(rel))
		if err := os.Remove(p); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", p, err)
		}
		slog.Debug("removed stale file", "path", p)
	}

	fresh, err := doublestar.Glob(os.DirFS(srcDir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", srcDir, err)
	}
	sort.Strings(fresh)
	for _, rel := range fresh {
		from := filepath.Join(srcDir, filepath.FromSlash(rel))
		to := filepath.Join(dstDir, filepath.FromSlash(rel))
		if err := cp.Copy(from, to, cp.Options{PreserveTimes: true}); err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", from, err)
		}
	}
	return fresh, nil
}
