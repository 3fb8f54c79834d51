//go:build !windows

package venvstart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestWithShebangEmptyCommand(t *testing.T) {
	out, err := withShebang(false)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestWithShebangPassthroughWhenOnlyForWindows(t *testing.T) {
	script := writeScript(t, t.TempDir(), "tool", "#!/usr/bin/env python3\nprint('hi')\n")

	out, err := withShebang(true, script, "--flag")
	require.NoError(t, err)
	assert.Equal(t, []string{script, "--flag"}, out)
}

func TestWithShebangPassthroughWithoutMarker(t *testing.T) {
	binary := writeScript(t, t.TempDir(), "tool", "\x7fELF not a script")

	out, err := withShebang(false, binary, "--flag")
	require.NoError(t, err)
	assert.Equal(t, []string{binary, "--flag"}, out)
}

func TestWithShebangPrependsInterpreter(t *testing.T) {
	script := writeScript(t, t.TempDir(), "tool", "#!/venv/bin/python\nprint('hi')\n")

	out, err := withShebang(false, script, "--flag")
	require.NoError(t, err)
	assert.Equal(t, []string{"/venv/bin/python", script, "--flag"}, out)
}

func TestWithShebangSplitsInterpreterArguments(t *testing.T) {
	script := writeScript(t, t.TempDir(), "tool", "#!/usr/bin/env python3\nprint('hi')\n")

	out, err := withShebang(false, script)
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/bin/env", "python3", script}, out)
}

func TestWithShebangResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := writeScript(t, dir, "real-tool", "#!/venv/bin/python\nprint('hi')\n")

	link := filepath.Join(dir, "tool")
	require.NoError(t, os.Symlink(target, link))

	out, err := withShebang(false, link)
	require.NoError(t, err)
	assert.Equal(t, []string{"/venv/bin/python", link}, out)
}

func TestShebangLineMissingFile(t *testing.T) {
	_, err := shebangLine(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
