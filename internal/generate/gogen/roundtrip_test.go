package gogen

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/jptrs93/pbgen/internal/compiler"
	"github.com/jptrs93/pbgen/internal/generate"
)

// TestGeneratedCodeRoundTrips generates testdata/roundtrip into a package of
// this module, then vets it and runs testdata/roundtrip/roundtrip_test.go
// against it. That test compares the generated codecs with protobuf-go.
func TestGeneratedCodeRoundTrips(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the generated package")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skipf("go command not found: %v", err)
	}

	// Inside the module so that the wire runtime and the test dependencies
	// resolve through go.mod.
	dir, err := os.MkdirTemp(".", "roundtrip")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	src := filepath.Join("testdata", "roundtrip")
	fs := afero.NewOsFs()
	c := &compiler.Compiler{Fs: fs, ImportPaths: []string{src}}
	files, err := c.Compile(t.Context(), []string{"roundtrip.proto"})
	require.NoError(t, err)
	outputs, err := Generator{}.Generate(files, generate.Options{OutputDirectory: dir, GoPackage: "roundtrip"})
	require.NoError(t, err)
	require.Len(t, outputs, 4)
	require.NoError(t, generate.WriteFiles(fs, outputs))

	for _, name := range []string{"roundtrip.proto", "shared.proto", "roundtrip_test.go"} {
		content, err := os.ReadFile(filepath.Join(src, name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o644))
	}

	for _, args := range [][]string{{"vet", "."}, {"test", "-count=1", "."}} {
		cmd := exec.CommandContext(t.Context(), goBin, args...)
		cmd.Dir = dir
		cmd.Env = os.Environ()
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "go %s\n%s", strings.Join(args, " "), out)
	}
}
