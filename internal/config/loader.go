package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"protonbuild/internal/paths"
	"protonbuild/internal/router"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "PROTONBUILD"

// ConfigPathEnv names the environment variable holding an explicit config
// file path.
const ConfigPathEnv = "PROTONBUILD_CONFIG_PATH"

// LocalConfigFile is the project-local config file checked last.
const LocalConfigFile = "protonbuild.yaml"

// ErrInvalidConfig indicates a configuration value failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Loader handles configuration loading using Viper.
//
// Create with [NewLoader] and call [Loader.Load] for discovery or
// [Loader.LoadFromFile] for an explicit file. Each Loader owns its own
// Viper instance so loads never share state.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Load discovers and loads configuration.
//
// See the package documentation for the search order. A missing config file
// is not an error; the defaults apply. A file that exists but cannot be
// parsed is an error.
func (l *Loader) Load() (*Config, error) {
	return l.load(l.discover())
}

// LoadFromFile loads configuration from path, with defaults and
// environment overrides still applied.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	return l.load(path)
}

// ConfigFileUsed returns the config file read by the last load, or empty.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) load(path string) (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// discover returns the highest-priority config file that exists, or empty.
func (l *Loader) discover() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	for _, p := range []string{paths.UserConfig(), LocalConfigFile} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// setDefaults registers every key so environment overrides and partial
// files both resolve against the defaults.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("steps", d.Steps)
	l.v.SetDefault("repositories", d.Repositories)

	l.v.SetDefault("tools.required", d.Tools.Required)
	l.v.SetDefault("tools.probe_timeout", d.Tools.ProbeTimeout)

	l.v.SetDefault("toolchain.fallback", d.Toolchain.Fallback)

	l.v.SetDefault("crypto.library_name", d.Crypto.LibraryName)
	l.v.SetDefault("crypto.build_modes", d.Crypto.BuildModes)
	l.v.SetDefault("crypto.nuget_source", d.Crypto.NuGetSource)
	l.v.SetDefault("crypto.package_version", d.Crypto.PackageVersion)

	l.v.SetDefault("sdk.framework", d.SDK.Framework)
	l.v.SetDefault("sdk.exclude_suffixes", d.SDK.ExcludeSuffixes)

	l.v.SetDefault("rust.package", d.Rust.Package)
	l.v.SetDefault("rust.projects", d.Rust.Projects)
	l.v.SetDefault("rust.lib_dir_env", d.Rust.LibDirEnv)

	l.v.SetDefault("output.no_color", d.Output.NoColor)

	l.v.SetDefault("log.level", d.Log.Level)
	l.v.SetDefault("log.format", d.Log.Format)
}

// Validate checks values that would otherwise fail deep inside a step.
func (c *Config) Validate() error {
	var problems []string

	for _, id := range c.Steps {
		if _, err := router.Canonical(id); err != nil {
			problems = append(problems, fmt.Sprintf("steps: unknown step %q", id))
		}
	}
	if c.Tools.ProbeTimeout <= 0 {
		problems = append(problems, "tools.probe_timeout must be positive")
	}
	if c.Crypto.LibraryName == "" {
		problems = append(problems, "crypto.library_name must be set")
	}
	for _, m := range c.Crypto.BuildModes {
		if m != "c-shared" && m != "c-archive" {
			problems = append(problems, fmt.Sprintf("crypto.build_modes: unsupported mode %q", m))
		}
	}
	for i, r := range c.Repositories {
		if r.URL == "" || r.Dir == "" {
			problems = append(problems, fmt.Sprintf("repositories[%d] needs url and dir", i))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format: unknown format %q", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
