// Package nupkg injects native libraries into a pre-built NuGet package.
//
// A .nupkg is a zip archive. Native assets for a runtime identifier live at
// runtimes/<rid>/native/<file>. [Repackage] extracts the archive to a scratch
// directory, places each [Injection] at its runtime path, and rewrites the
// archive in place with every entry deflate-compressed.
//
// Key types:
//   - [Injection] pairs a runtime identifier with a native library file
//   - [Result] reports the rewritten archive's entries
package nupkg

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zip"
)

// Sentinel errors for repackaging.
var (
	// ErrNoInjections indicates there was nothing to inject. The archive is
	// left untouched; callers should warn and continue.
	ErrNoInjections = errors.New("no native libraries to inject")

	// ErrUnsafeEntry indicates an archive entry whose path escapes the
	// extraction root.
	ErrUnsafeEntry = errors.New("archive entry escapes extraction root")
)

// Injection is one native library to place in the package.
type Injection struct {
	// RuntimeID is the runtime identifier directory (e.g., "win-x64").
	RuntimeID string

	// Path is the library file on disk.
	Path string
}

// EntryName returns the archive entry the injection is written to.
func (i Injection) EntryName() string {
	return path.Join("runtimes", i.RuntimeID, "native", filepath.Base(i.Path))
}

// Result describes a rewritten archive.
type Result struct {
	// Entries lists every entry in the new archive, sorted. Empty
	// directories appear with a trailing slash.
	Entries []string

	// Injected lists the entries written from injections, in injection order.
	Injected []string
}

// Repackage rewrites the archive at archivePath with injections added under
// runtimes/<rid>/native/.
//
// An existing entry at an injection's path is overwritten. The original
// archive is replaced only after the new one is fully written. Every other
// entry is carried over, including empty directory entries.
func Repackage(archivePath string, injections []Injection) (Result, error) {
	if len(injections) == 0 {
		return Result{}, ErrNoInjections
	}

	scratch, err := os.MkdirTemp("", "nupkg-*")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := extract(archivePath, scratch); err != nil {
		return Result{}, err
	}

	var res Result
	for _, inj := range injections {
		name := inj.EntryName()
		dst := filepath.Join(scratch, filepath.FromSlash(name))
		if err := copyFile(inj.Path, dst); err != nil {
			return Result{}, fmt.Errorf("failed to inject %s: %w", inj.Path, err)
		}
		slog.Debug("nupkg inject", "entry", name, "src", inj.Path)
		res.Injected = append(res.Injected, name)
	}

	res.Entries, err = write(scratch, archivePath)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Entries returns the sorted entry names of the archive at archivePath.
// Directory entries keep their trailing slash.
func Entries(archivePath string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", archivePath, err)
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names, nil
}

// extract unpacks archivePath into root, rejecting entries that escape it.
func extract(archivePath, root string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", archivePath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		dst, err := safeJoin(root, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, dst); err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// safeJoin resolves an entry name under root, rejecting absolute paths and
// any ".." traversal out of root.
func safeJoin(root, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsafeEntry, name)
	}
	dst := filepath.Join(root, clean)
	rel, err := filepath.Rel(root, dst)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeEntry, name)
	}
	return dst, nil
}

// write archives every regular file and empty directory under root into a temp file next to
// archivePath and renames it over archivePath.
func write(root, archivePath string) ([]string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(archivePath), filepath.Base(archivePath)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	tmpPath := tmp.Name()

	names, err := writeZip(tmp, root)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}

	if err := os.Rename(tmpPath, archivePath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to replace %s: %w", archivePath, err)
	}

	slog.Debug("nupkg rewritten", "path", archivePath, "entries", len(names))
	return names, nil
}

func writeZip(w io.Writer, root string) ([]string, error) {
	var files, dirs []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch {
		case d.Type().IsRegular():
			files = append(files, p)
		case d.IsDir() && p != root:
			// Directories with content are implied by their files.
			children, err := os.ReadDir(p)
			if err != nil {
				return err
			}
			if len(children) == 0 {
				dirs = append(dirs, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zw := zip.NewWriter(w)
	names := make([]string, 0, len(files)+len(dirs))
	for _, p := range dirs {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil, err
		}
		name := filepath.ToSlash(rel) + "/"
		if err := addDir(zw, p, name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	for _, p := range files {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil, err
		}
		name := filepath.ToSlash(rel)
		if err := addFile(zw, p, name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func addFile(zw *zip.Writer, src, name string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}

func addDir(zw *zip.Writer, src, name string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Store
	_, err = zw.CreateHeader(hdr)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// FindInjections returns an [Injection] for every file under root at
// runtimes/<rid>/native/<file> whose base name contains libraryName.
// Results are sorted by path.
func FindInjections(root, libraryName string) ([]Injection, error) {
	matches, err := doublestar.Glob(os.DirFS(root), "**/runtimes/*/native/*", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}
	sort.Strings(matches)

	var out []Injection
	for _, m := range matches {
		if !strings.Contains(path.Base(m), libraryName) {
			continue
		}
		rid, ok := RuntimeIDFromPath(m)
		if !ok {
			continue
		}
		out = append(out, Injection{RuntimeID: rid, Path: filepath.Join(root, filepath.FromSlash(m))})
	}
	return out, nil
}

// RuntimeIDFromPath returns the path segment following "runtimes". The
// boolean is false when there is no such segment.
func RuntimeIDFromPath(p string) (string, bool) {
	parts := strings.Split(filepath.ToSlash(p), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "runtimes" && parts[i+1] != "" {
			return parts[i+1], true
		}
	}
	return "", false
}
