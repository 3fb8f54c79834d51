//go:build !windows
// +build !windows

package venvstart

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// execHandoff replaces the current process image, so no parent lingers and
// the shell sees the target program's own signals and exit status.
type execHandoff struct{}

func (execHandoff) Exec(argv []string, env []string) {
	err := unix.Exec(argv[0], argv, env)
	// Exec only returns on failure. This is past the point of no return, so
	// the error becomes our exit status rather than a propagated condition.
	fmt.Fprintf(os.Stderr, "%s: %v\n", argv[0], err)
	os.Exit(1)
}

func newHandoff() processHandoff {
	return execHandoff{}
}
