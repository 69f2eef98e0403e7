package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBaseDir(t *testing.T) {
	root := t.TempDir()

	ci := filepath.Join(root, "ci")
	require.NoError(t, os.MkdirAll(filepath.Join(ci, RustWorkspace), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ci, "Cargo.toml"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ci, "build.py"), nil, 0o644))

	partial := filepath.Join(root, "partial")
	require.NoError(t, os.MkdirAll(filepath.Join(partial, RustWorkspace), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(partial, "Cargo.toml"), nil, 0o644))

	tests := []struct {
		name     string
		explicit string
		cwd      string
		want     string
	}{
		{
			name:     "explicit wins",
			explicit: filepath.Join(root, "chosen"),
			cwd:      ci,
			want:     filepath.Join(root, "chosen"),
		},
		{
			name: "top-level checkout uses cwd",
			cwd:  ci,
			want: ci,
		},
		{
			name: "missing build script falls through to parent",
			cwd:  partial,
			want: root,
		},
		{
			name: "inner crate resolves to grandparent",
			cwd:  filepath.Join(root, "ws", RustWorkspace, RustWorkspace),
			want: filepath.Join(root, "ws"),
		},
		{
			name: "outer crate resolves to parent",
			cwd:  filepath.Join(root, "ws", RustWorkspace),
			want: filepath.Join(root, "ws"),
		},
		{
			name: "anything else resolves to parent",
			cwd:  filepath.Join(root, "ws", "elsewhere"),
			want: filepath.Join(root, "ws"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveBaseDir(tt.explicit, tt.cwd)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestLayout(t *testing.T) {
	base := t.TempDir()
	l, err := NewLayout(base)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "dotnet-crypto"), l.Crypto())
	assert.Equal(t, filepath.Join(base, "Proton.SDK"), l.SDK())
	assert.Equal(t, filepath.Join(base, "native-libs"), l.NativeLibs())
	assert.Equal(t, filepath.Join(base, "local-nuget-repository"), l.LocalNuGet())
	assert.Equal(t, filepath.Join(base, "dotnet-crypto", "local-nuget-repository"), l.CryptoPackOutput())
	assert.Equal(t, filepath.Join(base, "dotnet-crypto", "src", "go"), l.CryptoGoSource())
	assert.Equal(t, filepath.Join(base, "dotnet-crypto", "bin", "runtimes", "win-x64", "native"), l.CryptoNative("win-x64"))
	assert.Equal(t, filepath.Join(base, "Proton.SDK", "protos"), l.SDKProtos())
	assert.Equal(t, filepath.Join(base, "proton-sdk-sys", "protos"), l.SysProtos())
	assert.Equal(t, filepath.Join(base, ".protonbuild", "last-run.yaml"), l.LastRun())
	assert.Equal(t,
		filepath.Join(base, "Proton.SDK", "src", "Proton.Sdk.Drive.CExports", "bin", "Release", "net9.0"),
		l.DriveOutput("net9.0"))
	assert.True(t, strings.HasSuffix(l.DriveProject(), "Proton.Sdk.Drive.CExports.csproj"))
}

func TestNewLayout_MakesAbsolute(t *testing.T) {
	l, err := NewLayout("relative")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(l.Base))
}

func TestUserConfig(t *testing.T) {
	p := UserConfig()
	assert.Equal(t, "config.yaml", filepath.Base(p))
	assert.Equal(t, "protonbuild", filepath.Base(filepath.Dir(p)))
}
