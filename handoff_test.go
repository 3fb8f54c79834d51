//go:build !windows

package venvstart

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandoff struct {
	calls int
	argv  []string
	env   []string
}

func (h *recordingHandoff) Exec(argv []string, env []string) {
	h.calls++
	h.argv = argv
	h.env = env
}

func programStarter(t *testing.T, program Program) *Starter {
	t.Helper()
	s := testStarter(t, StarterConfig{
		Program:        program,
		VenvFolder:     t.TempDir(),
		VenvFolderName: ".tool",
	})
	materializeVenv(t, mustLocation(t, s), "black")
	return s
}

func TestDetermineCommandPython(t *testing.T) {
	s := programStarter(t, PythonProgram())

	args := []string{"-c", "print('hi')"}
	cmd, err := s.determineCommand(&args)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(mustLocation(t, s), "bin", "python")}, cmd)
	assert.Equal(t, []string{"-c", "print('hi')"}, args, "args are left for the caller to append")
}

func TestDetermineCommandScript(t *testing.T) {
	s := programStarter(t, ScriptProgram("black"))

	args := []string{}
	cmd, err := s.determineCommand(&args)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(mustLocation(t, s), "bin", "black")}, cmd)
}

func TestDetermineCommandScriptMissing(t *testing.T) {
	s := programStarter(t, ScriptProgram("missing"))

	args := []string{}
	_, err := s.determineCommand(&args)
	require.Error(t, err)

	var notFound *ScriptNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDetermineCommandArgvResolvesFirstElement(t *testing.T) {
	s := programStarter(t, CommandProgram("black", "--check", "."))

	args := []string{}
	cmd, err := s.determineCommand(&args)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(mustLocation(t, s), "bin", "black"),
		"--check", ".",
	}, cmd)
}

func TestDetermineCommandArgvPassesThroughExternal(t *testing.T) {
	s := programStarter(t, CommandProgram("/usr/bin/env", "true"))

	args := []string{}
	cmd, err := s.determineCommand(&args)
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/bin/env", "true"}, cmd)
}

func TestDetermineCommandEmptyArgv(t *testing.T) {
	s := programStarter(t, CommandProgram())

	args := []string{}
	cmd, err := s.determineCommand(&args)
	require.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestDetermineCommandFunc(t *testing.T) {
	var s *Starter
	s = programStarter(t, FuncProgram(func(venvLocation string, args *[]string) (*Program, error) {
		assert.Equal(t, mustLocation(t, s), venvLocation)

		// Consume the first argument and pick the program from it.
		name := (*args)[0]
		*args = (*args)[1:]
		program := ScriptProgram(name)
		return &program, nil
	}))

	args := []string{"black", "--check"}
	cmd, err := s.determineCommand(&args)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(mustLocation(t, s), "bin", "black")}, cmd)
	assert.Equal(t, []string{"--check"}, args)
}

func TestDetermineCommandFuncNothingToRun(t *testing.T) {
	s := programStarter(t, FuncProgram(func(string, *[]string) (*Program, error) {
		return nil, nil
	}))

	args := []string{}
	cmd, err := s.determineCommand(&args)
	require.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestDetermineCommandFuncCannotNest(t *testing.T) {
	s := programStarter(t, FuncProgram(func(string, *[]string) (*Program, error) {
		nested := FuncProgram(func(string, *[]string) (*Program, error) { return nil, nil })
		return &nested, nil
	}))

	args := []string{}
	_, err := s.determineCommand(&args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not return another program function")
}

func TestEnvForProgram(t *testing.T) {
	t.Setenv("__PYVENV_LAUNCHER__", "/Applications/Python.app/python")

	s := programStarter(t, PythonProgram())
	s.Env = []EnvVar{
		{Here: "/origin", Name: "TOOL_CONFIG", Value: []string{"{here}", "etc", "tool.yaml"}},
		{Here: "/origin", Name: "VENV_HOME", Value: []string{"{venv_parent}"}},
	}

	env, err := s.envForProgram()
	require.NoError(t, err)
	envMap := environMap(env)

	assert.Equal(t, filepath.Join("/origin", "etc", "tool.yaml"), envMap["TOOL_CONFIG"])
	assert.Equal(t, filepath.Dir(mustLocation(t, s)), envMap["VENV_HOME"])
	assert.NotContains(t, envMap, "__PYVENV_LAUNCHER__")
}

func TestEnvForProgramExpandsHome(t *testing.T) {
	s := programStarter(t, PythonProgram())
	s.Env = []EnvVar{{Name: "CACHE", Value: []string{"{home}", ".cache"}}}

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	env, err := s.envForProgram()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".cache"), environMap(env)["CACHE"])
}

func TestStartProgramOnlyMakeVenv(t *testing.T) {
	t.Setenv("VENVSTARTER_ONLY_MAKE_VENV", "1")

	s := programStarter(t, ScriptProgram("black"))
	handoff := &recordingHandoff{}
	s.handoff = handoff

	require.NoError(t, s.startProgram(nil))
	assert.Zero(t, handoff.calls)
}

func TestStartProgramHandsOff(t *testing.T) {
	t.Setenv("VENVSTARTER_ONLY_MAKE_VENV", "")

	s := programStarter(t, ScriptProgram("black"))
	location := mustLocation(t, s)

	// Venv console scripts are python files with a shebang naming the venv's
	// interpreter; the handoff reinterprets that line itself.
	venvPython := filepath.Join(location, "bin", "python")
	script := filepath.Join(location, "bin", "black")
	content := fmt.Sprintf("#!%s\nimport black\n", venvPython)
	require.NoError(t, os.WriteFile(script, []byte(content), 0o755))

	handoff := &recordingHandoff{}
	s.handoff = handoff

	require.NoError(t, s.startProgram([]string{"--check", "."}))
	require.Equal(t, 1, handoff.calls)
	assert.Equal(t, []string{venvPython, script, "--check", "."}, handoff.argv)
	assert.NotEmpty(t, handoff.env)
}
