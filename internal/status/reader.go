package status

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReportPathEnv overrides the report location for both reading and writing.
const ReportPathEnv = "PROTONBUILD_REPORT_PATH"

// ErrNoReport indicates no run has been recorded yet.
var ErrNoReport = errors.New("no build has been recorded")

// ResolvePath returns the report path.
//
// Resolution order:
//  1. PROTONBUILD_REPORT_PATH environment variable (used as-is if set)
//  2. defaultPath
func ResolvePath(defaultPath string) string {
	if envPath := os.Getenv(ReportPathEnv); envPath != "" {
		return envPath
	}
	return defaultPath
}

// Reader reads the persisted run report.
//
// Use [NewReader] with the workspace default path; the environment override
// is applied at construction.
type Reader struct {
	path string
}

// NewReader creates a new [Reader] for the report at path.
func NewReader(path string) *Reader {
	return &Reader{path: ResolvePath(path)}
}

// Path returns the resolved report path.
func (r *Reader) Path() string {
	return r.path
}

// Read loads and parses the report.
//
// Returns [ErrNoReport] when the file does not exist.
func (r *Reader) Read() (*Report, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoReport, r.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read build report: %w", err)
	}

	var report Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to read build report: %w", err)
	}
	return &report, nil
}
