package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// Name used for directory and file naming.
	appName = "protonbuild"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Workspace directory names, relative to the base directory.
const (
	CryptoRepo    = "dotnet-crypto"
	SDKRepo       = "Proton.SDK"
	RustWorkspace = "proton-sdk-rs"
	RustSys       = "proton-sdk-sys"
	NativeLibs    = "native-libs"
	LocalNuGet    = "local-nuget-repository"
	StateDir      = ".protonbuild"
)

// Path to the user configuration file.
//
//	Linux:   $XDG_CONFIG_HOME/protonbuild/config.yaml
//	macOS:   ~/Library/Application Support/protonbuild/config.yaml
//	Windows: %LOCALAPPDATA%\protonbuild\config.yaml
func UserConfig() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// Layout resolves every workspace path from a base directory.
type Layout struct {
	// Base is the absolute workspace root.
	Base string
}

// NewLayout returns a [Layout] rooted at base, made absolute.
func NewLayout(base string) (Layout, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return Layout{}, err
	}
	return Layout{Base: abs}, nil
}

// Join returns a path under the base directory.
func (l Layout) Join(elem ...string) string {
	return filepath.Join(append([]string{l.Base}, elem...)...)
}

// Crypto is the dotnet-crypto checkout.
func (l Layout) Crypto() string { return l.Join(CryptoRepo) }

// SDK is the Proton.SDK checkout.
func (l Layout) SDK() string { return l.Join(SDKRepo) }

// Rust is the Rust workspace crate directory.
func (l Layout) Rust() string { return l.Join(RustWorkspace) }

// Sys is the native bindings crate directory.
func (l Layout) Sys() string { return l.Join(RustSys) }

// NativeLibs is the staging root exported to cargo as the library directory.
func (l Layout) NativeLibs() string { return l.Join(NativeLibs) }

// LocalNuGet is the persistent package cache registered as a NuGet source.
func (l Layout) LocalNuGet() string { return l.Join(LocalNuGet) }

// CryptoGoSource is the Go source tree built into the native crypto library.
func (l Layout) CryptoGoSource() string { return filepath.Join(l.Crypto(), "src", "go") }

// CryptoProject is the managed crypto project packed into a NuGet package.
func (l Layout) CryptoProject() string {
	return filepath.Join(l.Crypto(), "src", "dotnet", "Proton.Cryptography.csproj")
}

// CryptoBin is the crypto build output root searched for native libraries.
func (l Layout) CryptoBin() string { return filepath.Join(l.Crypto(), "bin") }

// CryptoNative is the native library output directory for a runtime id.
func (l Layout) CryptoNative(rid string) string {
	return filepath.Join(l.CryptoBin(), "runtimes", rid, "native")
}

// CryptoPackOutput is the scratch directory dotnet pack writes into before
// packages move to [Layout.LocalNuGet].
func (l Layout) CryptoPackOutput() string { return filepath.Join(l.Crypto(), LocalNuGet) }

// SDKSource is the Proton.SDK source root.
func (l Layout) SDKSource() string { return filepath.Join(l.SDK(), "src") }

// DriveProject is the C-exports project published ahead-of-time.
func (l Layout) DriveProject() string {
	return filepath.Join(l.SDKSource(), "Proton.Sdk.Drive.CExports", "Proton.Sdk.Drive.CExports.csproj")
}

// DriveOutput is the Release output directory of the C-exports project for
// a target framework.
func (l Layout) DriveOutput(framework string) string {
	return filepath.Join(l.SDKSource(), "Proton.Sdk.Drive.CExports", "bin", "Release", framework)
}

// SDKProtos is the upstream protobuf directory.
func (l Layout) SDKProtos() string { return filepath.Join(l.SDK(), "protos") }

// SysProtos is the protobuf directory the bindings crate compiles.
func (l Layout) SysProtos() string { return filepath.Join(l.Sys(), "protos") }

// State is the directory holding orchestrator state.
func (l Layout) State() string { return l.Join(StateDir) }

// LastRun is the persisted report of the most recent run.
func (l Layout) LastRun() string { return filepath.Join(l.State(), "last-run.yaml") }
