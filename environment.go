package venvstart

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"
)

// Venv represents a provisioned virtualenv directory. The locations of its
// python and companion tools follow the host convention: bin/ on POSIX,
// Scripts\ with an optional .exe suffix on Windows.
type Venv struct {
	// Dir is the root directory of the virtualenv.
	Dir string
}

// Script resolves a named executable inside the virtualenv. On Windows the
// extension-less name is tried first, then the .exe fallback. When all
// conventions miss, fallback is returned if non-empty, otherwise a
// *ScriptNotFoundError describing what is available.
func (v Venv) Script(name, fallback string) (string, error) {
	var location string
	if runtime.GOOS == "windows" {
		location = filepath.Join(v.Dir, "Scripts", name)
	} else {
		location = filepath.Join(v.Dir, "bin", name)
	}

	if fileExists(location) {
		return location, nil
	}

	if runtime.GOOS == "windows" {
		if exe := location + ".exe"; fileExists(exe) {
			return exe, nil
		}
	}

	if fallback != "" {
		return fallback, nil
	}
	return "", &ScriptNotFoundError{Name: name, Location: location}
}

// Python resolves the virtualenv's own interpreter.
func (v Venv) Python() (string, error) {
	return v.Script("python", "")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// VenvLocation resolves and memoizes where the virtualenv lives. A venv
// folder pointing at a file means "the folder that file sits in", so
// bootstrap programs can pass their own path. The folder is created (one
// level) if it does not exist yet.
func (s *Starter) VenvLocation() (string, error) {
	if s.venvLocation != "" {
		return s.venvLocation, nil
	}

	folder := s.VenvFolder
	if info, err := os.Stat(folder); err == nil && !info.IsDir() {
		folder = filepath.Dir(folder)
	}

	if _, err := os.Stat(folder); os.IsNotExist(err) {
		if err := os.Mkdir(folder, 0o755); err != nil {
			return "", fmt.Errorf("error creating venv folder: %w", err)
		}
	}

	location, err := filepath.Abs(filepath.Join(folder, s.VenvFolderName))
	if err != nil {
		return "", err
	}

	s.venvLocation = location
	return location, nil
}

// makeVirtualenv ensures the virtualenv exists and contains a suitable
// python, creating or recreating it as needed. It reports true only when a
// fresh virtualenv was materialized.
//
// An existing virtualenv with an unsuitable python is only deleted after a
// replacement interpreter has been confirmed to exist; the destructive step
// is never taken speculatively.
func (s *Starter) makeVirtualenv() (bool, error) {
	location, err := s.VenvLocation()
	if err != nil {
		return false, err
	}

	venv := Venv{Dir: location}
	pythonExe := ""

	if fileExists(location) {
		finder := s.newFinder()

		var version *Version
		if venvPython, err := venv.Python(); err == nil {
			version, _ = probeVersion(s.runner, venvPython, false)
		}

		if finder.Suitable(version) {
			return false, nil
		}

		// Make sure we can find a suitable python before removing anything.
		pythonExe, err = finder.Find()
		if err != nil {
			return false, fmt.Errorf("the current virtualenv has a python that's too old, but can't find a suitable replacement: %w", err)
		}

		if err := os.RemoveAll(location); err != nil {
			return false, fmt.Errorf("error removing stale virtualenv: %w", err)
		}
	}

	if !fileExists(location) {
		if pythonExe == "" {
			pythonExe, err = s.newFinder().Find()
			if err != nil {
				return false, err
			}
		}

		log.Info("Creating virtualenv")
		log.Infof("Destination: %s", location)
		log.Infof("Using: %s", pythonExe)

		// The embedded pip is unreliable on Windows; it gets bootstrapped as
		// a follow-up step there instead.
		withPip := runtime.GOOS != "windows"

		if err := s.runner.Checked(pythonExe, createVenvScript(location, withPip)); err != nil {
			return false, fmt.Errorf("failed to create virtualenv: %w", err)
		}

		if !withPip {
			venvPython, err := venv.Python()
			if err != nil {
				return false, err
			}
			cmd := exec.Command(venvPython, "-m", "ensurepip")
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			if err := cmd.Run(); err != nil {
				return false, fmt.Errorf("failed to bootstrap pip: %w", err)
			}
		}

		return true, nil
	}

	return false, nil
}

// createVenvScript renders the inline program that materializes a fresh
// virtualenv using the located interpreter's own venv module.
func createVenvScript(location string, withPip bool) string {
	encoded, _ := json.Marshal(location)
	return fmt.Sprintf("import venv\nvenv.create(%s, with_pip=%s, symlinks=True)\n", encoded, pyBool(withPip))
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
