package venvstart

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerDefaults(t *testing.T) {
	here := t.TempDir()
	m := NewManager(ScriptProgram("black"), here)

	assert.Equal(t, ".black", m.VenvFolderName())
	assert.Equal(t, here, m.VenvFolder())
}

func TestManagerVenvFolderNameShapes(t *testing.T) {
	here := t.TempDir()

	assert.Equal(t, ".harpoon", NewManager(ScriptProgram("harpoon"), here).VenvFolderName())
	assert.Equal(t, ".venv", NewManager(PythonProgram(), here).VenvFolderName())
	assert.Equal(t, ".venv", NewManager(CommandProgram("black", "--check"), here).VenvFolderName())
	assert.Equal(t, ".venv", NewManager(ScriptProgram("0degenerate"), here).VenvFolderName())
	assert.Equal(t, "custom", NewManager(ScriptProgram("black"), here).Named("custom").VenvFolderName())
}

func TestManagerStarter(t *testing.T) {
	here := t.TempDir()
	venvs := t.TempDir()

	s, err := NewManager(ScriptProgram("black"), here).
		PlaceVenvIn(venvs).
		MinPython(3.9).
		MaxPython("3.12").
		AddPypiDeps("black==23.9.1", "dict2xml>=1.7,<2").
		AddNoBinary("pycapnp").
		Starter()
	require.NoError(t, err)

	assert.Equal(t, venvs, s.VenvFolder)
	assert.Equal(t, ".black", s.VenvFolderName)
	assert.Equal(t, []string{"black==23.9.1", "dict2xml>=1.7,<2"}, s.Deps)
	assert.Equal(t, []string{"pycapnp"}, s.NoBinary)
	assert.Equal(t, "3.9.0", s.MinPython.String())
	require.NotNil(t, s.MaxPython)
	assert.Equal(t, "3.12.0", s.MaxPython.String())
}

func TestManagerRejectsInvalidWindow(t *testing.T) {
	here := t.TempDir()

	_, err := NewManager(PythonProgram(), here).MinPython(3.12).MaxPython(3.9).Starter()
	require.Error(t, err)

	_, err = NewManager(PythonProgram(), here).MinPython(3.6).Starter()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only python3.7 and above")
}

func TestManagerAddEnv(t *testing.T) {
	here := t.TempDir()

	s, err := NewManager(PythonProgram(), here).
		AddEnv(map[string]string{"TOOL_DEBUG": "1"}).
		AddEnvPath("TOOL_CONFIG", "{here}", "etc", "tool.yaml").
		Starter()
	require.NoError(t, err)

	require.Len(t, s.Env, 2)
	for _, entry := range s.Env {
		assert.Equal(t, here, entry.Here)
	}
}

func TestManagerAddRequirementsFile(t *testing.T) {
	here := t.TempDir()
	content := "black==23.9.1\n\n  dict2xml>=1.7,<2  \n\n"
	require.NoError(t, os.WriteFile(filepath.Join(here, "requirements.txt"), []byte(content), 0o644))

	s, err := NewManager(PythonProgram(), here).
		AddRequirementsFile("{here}", "requirements.txt").
		Starter()
	require.NoError(t, err)

	assert.Equal(t, []string{"black==23.9.1", "dict2xml>=1.7,<2"}, s.Deps)
}

func TestManagerAddRequirementsFileMissing(t *testing.T) {
	here := t.TempDir()

	_, err := NewManager(PythonProgram(), here).
		AddRequirementsFile("{here}", "nope.txt").
		Starter()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be read")
}

func TestManagerAddLocalDep(t *testing.T) {
	here := t.TempDir()
	pkg := filepath.Join(here, "mylib")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "version.py"), []byte("VERSION = \"0.5.8\"\n"), 0o644))

	s, err := NewManager(PythonProgram(), here).
		AddLocalDep(LocalDep{
			Path:        []string{"{here}", "mylib"},
			Name:        "mylib=={version}",
			VersionFile: []string{"version.py"},
			Editable:    true,
			WithTests:   true,
		}).
		Starter()
	require.NoError(t, err)

	require.Len(t, s.Deps, 1)
	expected := fmt.Sprintf("-e file://%s#egg=mylib[tests]==0.5.8", pkg)
	assert.Equal(t, expected, s.Deps[0])
}

func TestManagerAddLocalDepWithoutVersionPlaceholder(t *testing.T) {
	here := t.TempDir()
	pkg := filepath.Join(here, "mylib")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "version.py"), []byte("VERSION = \"0.5.8\"\n"), 0o644))

	_, err := NewManager(PythonProgram(), here).
		AddLocalDep(LocalDep{
			Path:        []string{"{here}", "mylib"},
			Name:        "mylib",
			VersionFile: []string{"version.py"},
		}).
		Starter()
	require.Error(t, err)

	var notSpecified *VersionNotSpecifiedError
	assert.ErrorAs(t, err, &notSpecified)
}

func TestManagerAddLocalDepPlain(t *testing.T) {
	here := t.TempDir()
	pkg := filepath.Join(here, "mylib")
	require.NoError(t, os.MkdirAll(pkg, 0o755))

	s, err := NewManager(PythonProgram(), here).
		AddLocalDep(LocalDep{Path: []string{"{here}", "mylib"}, Name: "mylib"}).
		Starter()
	require.NoError(t, err)

	assert.Equal(t, []string{fmt.Sprintf("file://%s#egg=mylib", pkg)}, s.Deps)
}

func TestManagerFirstErrorWins(t *testing.T) {
	here := t.TempDir()

	_, err := NewManager(PythonProgram(), here).
		AddRequirementsFile("{here}", "nope.txt").
		AddLocalDep(LocalDep{Path: []string{"{here}", "missing"}, Name: "x", VersionFile: []string{"v.py"}}).
		Starter()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.txt")
}
