// Package config provides configuration loading and management for protonbuild.
//
// Configuration is loaded using Viper, supporting YAML config files and environment
// variable overrides. The package provides defaults that reproduce the standard
// build out of the box, with the ability to customize the step sequence, the
// repositories to clone, tool checks, and per-step settings.
//
// Key types:
//   - [Config] is the root configuration container with all settings
//   - [Loader] handles Viper-based configuration loading
//   - [RepositoryConfig] defines one repository the clone step fetches
//   - [CryptoConfig], [SDKConfig] and [RustConfig] hold per-step settings
//
// Configuration priority (highest to lowest):
//  1. Environment variables (PROTONBUILD_ prefix, "." replaced by "_")
//  2. Config file specified by PROTONBUILD_CONFIG_PATH
//  3. User config directory (platform-standard):
//     - Linux: ~/.config/protonbuild/config.yaml
//     - macOS: ~/Library/Application Support/protonbuild/config.yaml
//     - Windows: %LOCALAPPDATA%\protonbuild\config.yaml
//  4. ./protonbuild.yaml
//  5. [DefaultConfig] defaults
package config

import "time"

// Config represents the root configuration structure.
//
// This is the main configuration container loaded by [Loader] and used throughout
// the application. Use [DefaultConfig] to get the defaults.
type Config struct {
	// Steps is the ordered step sequence the "all" selector runs.
	// Default: ["clone", "crypto", "protos", "sdk"]
	Steps []string `mapstructure:"steps"`

	// Repositories lists the repositories the clone step fetches into the
	// base directory.
	Repositories []RepositoryConfig `mapstructure:"repositories"`

	// Tools controls the preflight tool check.
	Tools ToolsConfig `mapstructure:"tools"`

	// Toolchain controls native compiler selection.
	Toolchain ToolchainConfig `mapstructure:"toolchain"`

	// Crypto contains settings for the crypto step.
	Crypto CryptoConfig `mapstructure:"crypto"`

	// SDK contains settings for the sdk step.
	SDK SDKConfig `mapstructure:"sdk"`

	// Rust contains settings for the rust step.
	Rust RustConfig `mapstructure:"rust"`

	// Output contains terminal output configuration.
	Output OutputConfig `mapstructure:"output"`

	// Log contains structured logging configuration.
	Log LogConfig `mapstructure:"log"`
}

// RepositoryConfig is one repository cloned by the clone step.
type RepositoryConfig struct {
	// URL is the git remote to clone.
	URL string `mapstructure:"url"`

	// Dir is the checkout directory name under the base directory.
	// The clone is skipped when it already exists.
	Dir string `mapstructure:"dir"`
}

// ToolsConfig controls the preflight tool check.
type ToolsConfig struct {
	// Required lists executables that must answer a version probe.
	// Default: ["git", "dotnet", "cargo", "rustc", "go", "gcc"]
	Required []string `mapstructure:"required"`

	// ProbeTimeout bounds each version probe, for tools and compiler
	// candidates alike.
	// Default: 10s
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// ToolchainConfig controls native compiler selection on Windows.
type ToolchainConfig struct {
	// Fallback enables the single MinGW retry after a failed native build.
	// Default: true
	Fallback bool `mapstructure:"fallback"`
}

// CryptoConfig contains settings for the crypto step.
type CryptoConfig struct {
	// LibraryName is the base name of the native crypto library.
	// Default: "proton_crypto"
	LibraryName string `mapstructure:"library_name"`

	// BuildModes are the cgo build modes to produce, in order.
	// Default: ["c-shared", "c-archive"]
	BuildModes []string `mapstructure:"build_modes"`

	// NuGetSource is the name under which the local package cache is
	// registered with dotnet.
	// Default: "ProtonRepository"
	NuGetSource string `mapstructure:"nuget_source"`

	// PackageVersion is the version passed to dotnet pack.
	// Default: "1.0.0"
	PackageVersion string `mapstructure:"package_version"`
}

// SDKConfig contains settings for the sdk step.
type SDKConfig struct {
	// Framework is the target framework moniker of the published output.
	// Default: "net9.0"
	Framework string `mapstructure:"framework"`

	// ExcludeSuffixes lists file suffixes never staged.
	// Default: [".pdb"]
	ExcludeSuffixes []string `mapstructure:"exclude_suffixes"`
}

// RustConfig contains settings for the rust step.
type RustConfig struct {
	// Package is the cargo package run to exercise the bindings.
	// Default: "proton-drive"
	Package string `mapstructure:"package"`

	// Projects lists the crate directories (under the base directory) in
	// which the package is run and which clean mode runs cargo clean in.
	// Default: ["proton-sdk-rs", "proton-sdk-sys"]
	Projects []string `mapstructure:"projects"`

	// LibDirEnv names the environment variable that tells cargo where the
	// staged native libraries are.
	// Default: "PROTON_SDK_LIB_DIR"
	LibDirEnv string `mapstructure:"lib_dir_env"`
}

// OutputConfig contains terminal output configuration.
type OutputConfig struct {
	// NoColor disables styled output.
	// Default: false
	NoColor bool `mapstructure:"no_color"`
}

// LogConfig contains structured logging configuration.
type LogConfig struct {
	// Level is the minimum slog level: "debug", "info", "warn" or "error".
	// Default: "warn"
	Level string `mapstructure:"level"`

	// Format is "text" or "json".
	// Default: "text"
	Format string `mapstructure:"format"`
}

// DefaultConfig returns a new [Config] with the default settings.
//
// The defaults reproduce the standard build: clone dotnet-crypto and
// Proton.SDK, build and pack the crypto package, copy protobufs, and publish
// the SDK's C-exports library. These defaults work without any
// configuration file.
func DefaultConfig() *Config {
	return &Config{
		Steps: []string{"clone", "crypto", "protos", "sdk"},
		Repositories: []RepositoryConfig{
			{URL: "https://github.com/4tkbytes/dotnet-crypto", Dir: "dotnet-crypto"},
			{URL: "https://github.com/4tkbytes/Proton.SDK", Dir: "Proton.SDK"},
		},
		Tools: ToolsConfig{
			Required:     []string{"git", "dotnet", "cargo", "rustc", "go", "gcc"},
			ProbeTimeout: 10 * time.Second,
		},
		Toolchain: ToolchainConfig{
			Fallback: true,
		},
		Crypto: CryptoConfig{
			LibraryName:    "proton_crypto",
			BuildModes:     []string{"c-shared", "c-archive"},
			NuGetSource:    "ProtonRepository",
			PackageVersion: "1.0.0",
		},
		SDK: SDKConfig{
			Framework:       "net9.0",
			ExcludeSuffixes: []string{".pdb"},
		},
		Rust: RustConfig{
			Package:   "proton-drive",
			Projects:  []string{"proton-sdk-rs", "proton-sdk-sys"},
			LibDirEnv: "PROTON_SDK_LIB_DIR",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}
