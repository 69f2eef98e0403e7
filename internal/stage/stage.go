// Package stage copies build outputs into the directories downstream steps
// read from.
//
// A [Request] names candidate source directories in preference order. The
// first candidate that exists wins; candidates containing glob
// metacharacters are searched with doublestar so "**" spans directories.
// The destination is always removed and recreated before copying, so
// staging the same request twice produces identical output and never leaves
// stale files behind.
//
// Key types:
//   - [Stager] performs staging
//   - [Request] describes one staging operation
//   - [Result] reports what was copied
package stage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	cp "github.com/otiai10/copy"
)

// ErrSourceMissing indicates no staging source candidate exists.
// Callers should warn and continue; nothing was written.
var ErrSourceMissing = errors.New("staging source not found")

// Request describes one staging operation.
type Request struct {
	// Sources are candidate source directories in preference order. Entries
	// containing *, ?, [ or { are treated as doublestar patterns.
	Sources []string

	// Target is the staging root. Files land in Target/RuntimeID.
	Target string

	// RuntimeID names the destination subdirectory (e.g., "linux-x64").
	RuntimeID string

	// ExcludeSuffixes lists file suffixes that are never copied. Matching
	// is case-insensitive.
	ExcludeSuffixes []string
}

// Destination returns the directory the request writes into.
func (r Request) Destination() string {
	return filepath.Join(r.Target, r.RuntimeID)
}

// Result reports the outcome of a staging operation.
type Result struct {
	// Source is the candidate that was copied from.
	Source string

	// Destination is Target/RuntimeID.
	Destination string

	// Copied lists the copied files relative to Destination, sorted, with
	// forward slashes.
	Copied []string

	// Skipped lists excluded files relative to Source, sorted, with
	// forward slashes.
	Skipped []string
}

// Stager copies staging sources into place.
//
// The zero value is ready to use.
type Stager struct{}

// NewStager returns a [Stager].
func NewStager() *Stager {
	return &Stager{}
}

// Stage resolves the first existing source in req and copies it into
// req.Destination(), replacing whatever was there.
//
// Returns [ErrSourceMissing] when no candidate resolves; the destination is
// left untouched in that case.
func (s *Stager) Stage(req Request) (Result, error) {
	if req.Target == "" || req.RuntimeID == "" {
		return Result{}, fmt.Errorf("staging request needs a target and runtime id")
	}

	src, err := Resolve(req.Sources)
	if err != nil {
		return Result{}, err
	}

	dst := req.Destination()
	res := Result{Source: src, Destination: dst}

	if err := os.RemoveAll(dst); err != nil {
		return res, fmt.Errorf("failed to clear %s: %w", dst, err)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return res, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	slog.Debug("stage", "src", src, "dest", dst)

	err = cp.Copy(src, dst, cp.Options{
		Skip: func(info os.FileInfo, path, _ string) (bool, error) {
			if info.IsDir() || !hasSuffix(path, req.ExcludeSuffixes) {
				return false, nil
			}
			rel, relErr := filepath.Rel(src, path)
			if relErr != nil {
				return false, relErr
			}
			res.Skipped = append(res.Skipped, filepath.ToSlash(rel))
			return true, nil
		},
	})
	if err != nil {
		return res, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	res.Copied, err = listFiles(dst)
	if err != nil {
		return res, err
	}
	sort.Strings(res.Skipped)
	return res, nil
}

// Resolve returns the first candidate in sources that names an existing
// directory. Pattern candidates resolve to their lexically first directory
// match.
func Resolve(sources []string) (string, error) {
	for _, src := range sources {
		if IsPattern(src) {
			if dir, ok := firstDirMatch(src); ok {
				return dir, nil
			}
			slog.Debug("stage source pattern matched nothing", "pattern", src)
			continue
		}
		if isDir(src) {
			return src, nil
		}
		slog.Debug("stage source not found", "path", src)
	}
	return "", fmt.Errorf("%w: tried %s", ErrSourceMissing, strings.Join(sources, ", "))
}

// IsPattern reports whether path contains glob metacharacters.
func IsPattern(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

func firstDirMatch(pattern string) (string, bool) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		slog.Debug("stage source pattern invalid", "pattern", pattern, "error", err)
		return "", false
	}
	sort.Strings(matches)
	for _, m := range matches {
		if isDir(m) {
			return m, true
		}
	}
	return "", false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func hasSuffix(path string, suffixes []string) bool {
	lower := strings.ToLower(path)
	for _, s := range suffixes {
		if s != "" && strings.HasSuffix(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// listFiles returns regular files under root, relative, sorted, slash-separated.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
