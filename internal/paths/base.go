package paths

import (
	"os"
	"path/filepath"
)

// ResolveBaseDir determines the workspace root.
//
// Resolution order:
//  1. explicit, if non-empty
//  2. cwd, when it holds Cargo.toml, build.py and a proton-sdk-rs directory
//     (running from the top-level checkout, as in CI)
//  3. the grandparent of cwd, when cwd is proton-sdk-rs inside proton-sdk-rs
//  4. the parent of cwd, when cwd is proton-sdk-rs
//  5. the parent of cwd
//
// The result is absolute.
func ResolveBaseDir(explicit, cwd string) (string, error) {
	if explicit != "" {
		return filepath.Abs(explicit)
	}

	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return "", err
	}

	if isFile(filepath.Join(cwd, "Cargo.toml")) &&
		isFile(filepath.Join(cwd, "build.py")) &&
		isDir(filepath.Join(cwd, RustWorkspace)) {
		return cwd, nil
	}

	parent := filepath.Dir(cwd)
	if filepath.Base(cwd) == RustWorkspace && filepath.Base(parent) == RustWorkspace {
		return filepath.Dir(parent), nil
	}
	return parent, nil
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
