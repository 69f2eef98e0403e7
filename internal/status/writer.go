package status

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"protonbuild/internal/paths"
)

// Writer writes the run report to a YAML file.
type Writer struct {
	path string
}

// NewWriter creates a new Writer for the report at path. The
// PROTONBUILD_REPORT_PATH override applies.
func NewWriter(path string) *Writer {
	return &Writer{path: ResolvePath(path)}
}

// Path returns the resolved report path.
func (w *Writer) Path() string {
	return w.path
}

// Write replaces the report with r, creating the parent directory if needed.
func (w *Writer) Write(r Report) error {
	if r.Version == 0 {
		r.Version = ReportVersion
	}

	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("failed to marshal build report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(w.path), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("failed to write build report: %w", err)
	}

	// Write atomically (write to temp, then rename)
	tmpPath := w.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, paths.DefaultFileMode); err != nil {
		return fmt.Errorf("failed to write build report: %w", err)
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		// Clean up temp file on rename failure
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write build report: %w", err)
	}

	return nil
}
