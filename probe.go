package venvstart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// versionProbeScript makes a candidate interpreter report its own version as
// a JSON array on stdout. The probe and the probed interpreter may be wildly
// different versions, so the contract is structured data over stdout rather
// than anything richer.
const versionProbeScript = `print(__import__("json").dumps(list(__import__("sys").version_info)))`

// pyRunner runs a small inline program inside a python executable. The
// program is written to a scoped temporary file which is removed on every
// exit path.
type pyRunner interface {
	// Output runs the program, captures stdout and fails with
	// *FailedToGetOutputError on a non-zero exit.
	Output(exe, script string) (string, error)

	// Status runs the program with inherited stdio and reports its exit code.
	Status(exe, script string) (int, error)

	// Checked runs the program with inherited stdio and fails with
	// *FailedToGetOutputError on a non-zero exit.
	Checked(exe, script string) error
}

// subprocessRunner is the real pyRunner, backed by os/exec.
type subprocessRunner struct{}

func (subprocessRunner) Output(exe, script string) (string, error) {
	var stdout, stderr bytes.Buffer
	code, err := runScript(exe, script, &stdout, &stderr)
	if err != nil {
		return "", &FailedToGetOutputError{Stderr: stderr.String(), Err: err}
	}
	if code != 0 {
		return "", &FailedToGetOutputError{
			Stderr: stderr.String(),
			Err:    fmt.Errorf("%s exited with status %d", exe, code),
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (subprocessRunner) Status(exe, script string) (int, error) {
	return runScript(exe, script, os.Stdout, os.Stderr)
}

func (r subprocessRunner) Checked(exe, script string) error {
	code, err := r.Status(exe, script)
	if err != nil {
		return &FailedToGetOutputError{Err: err}
	}
	if code != 0 {
		return &FailedToGetOutputError{Err: fmt.Errorf("%s exited with status %d", exe, code)}
	}
	return nil
}

// runScript writes script to a temporary .py file, invokes exe against it and
// returns the process exit code. Failures to even start the process are
// returned as an error; a started process that exits non-zero is not.
func runScript(exe, script string, stdout, stderr io.Writer) (int, error) {
	fle, err := os.CreateTemp("", "venvstart-*.py")
	if err != nil {
		return -1, fmt.Errorf("error creating temporary script: %w", err)
	}
	defer os.Remove(fle.Name())

	if _, err := fle.WriteString(script); err != nil {
		fle.Close()
		return -1, fmt.Errorf("error writing temporary script: %w", err)
	}
	if err := fle.Close(); err != nil {
		return -1, err
	}

	argv, err := withShebang(true, exe, fle.Name())
	if err != nil {
		return -1, err
	}

	log.Debugf("running %s against %s", exe, fle.Name())

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if cmd.ProcessState != nil && cmd.ProcessState.Exited() {
			return cmd.ProcessState.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

// probeVersion asks a candidate executable for its version. An empty exe
// yields (nil, nil) with no side effects. A candidate that fails to answer
// yields (nil, nil) unless strict is set, because the caller usually wants to
// keep searching rather than abort.
func probeVersion(runner pyRunner, exe string, strict bool) (*Version, error) {
	if exe == "" {
		return nil, nil
	}

	out, err := runner.Output(exe, versionProbeScript)
	if err != nil {
		if strict {
			return nil, err
		}
		log.Debugf("candidate %s did not report a version: %v", exe, err)
		return nil, nil
	}

	version, err := parseProbeOutput(out)
	if err != nil {
		return nil, fmt.Errorf("failed to figure out python version from %q: %w", out, err)
	}
	return version, nil
}

// parseProbeOutput decodes the last non-empty stdout line of the probe as a
// JSON array and takes its leading integer entries as (major, minor, patch).
// sys.version_info also carries the release level strings; they are ignored.
func parseProbeOutput(out string) (*Version, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])

	var parts []any
	if err := json.Unmarshal([]byte(last), &parts); err != nil {
		return nil, err
	}

	numbers := []int{}
	for _, part := range parts {
		f, ok := part.(float64)
		if !ok {
			break
		}
		numbers = append(numbers, int(f))
		if len(numbers) == 3 {
			break
		}
	}
	if len(numbers) == 0 {
		return nil, fmt.Errorf("no version components in %q", last)
	}

	version, err := NewVersion(numbers)
	if err != nil {
		return nil, err
	}
	return &version, nil
}
