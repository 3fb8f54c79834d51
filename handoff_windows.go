//go:build windows
// +build windows

package venvstart

import (
	"fmt"
	"os"
	"os/exec"
)

// spawnHandoff runs the target program as a child and forwards its exact
// exit code, since Windows has no process-replacement primitive.
type spawnHandoff struct{}

func (spawnHandoff) Exec(argv []string, env []string) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if cmd.ProcessState != nil && cmd.ProcessState.Exited() {
			os.Exit(cmd.ProcessState.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", argv[0], err)
		os.Exit(1)
	}
	os.Exit(0)
}

func newHandoff() processHandoff {
	return spawnHandoff{}
}
