package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestSetup_FileFanout(t *testing.T) {
	prev := L
	t.Cleanup(func() {
		L = prev
		SetLevel("info")
	})

	path := filepath.Join(t.TempDir(), "echoal.log")
	closeFn := Setup("debug", path)

	L.Debug("hello from test", "k", "v")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello from test"`)
	require.Contains(t, string(data), `"k":"v"`)
}
