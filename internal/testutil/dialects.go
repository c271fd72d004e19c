package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/irdl/internal/asmformat"
	"github.com/roach88/irdl/internal/compiler"
	"github.com/roach88/irdl/internal/opdef"
)

// Testdata returns the absolute path of a file or directory under the
// repository's testdata directory.
func Testdata(elem ...string) string {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "..", "..", "testdata")
	return filepath.Join(append([]string{root}, elem...)...)
}

// QuietRegistry returns a registry that discards its logs and compiles
// assembly formats.
func QuietRegistry() *opdef.Registry {
	return opdef.NewRegistry(
		opdef.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		opdef.WithFormatCompiler(asmformat.Compiler{}),
	)
}

// LoadDialects loads the named dialects from testdata/dialects into a
// fresh quiet registry.
func LoadDialects(t testing.TB, names ...string) *opdef.Registry {
	t.Helper()
	reg := QuietRegistry()
	for _, name := range names {
		d, err := compiler.LoadDialect(Testdata("dialects", name))
		require.NoError(t, err, "loading dialect %s", name)
		require.NoError(t, d.Register(reg), "registering dialect %s", name)
	}
	return reg
}
