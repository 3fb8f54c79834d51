package venvstart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InvalidVersionError is returned when a version value could not be parsed
// from any of the accepted input shapes.
type InvalidVersionError struct {
	// Value is the original input that failed to parse.
	Value any
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("Version needs to be an int, float or string, got %v", e.Value)
}

// NoSuitablePythonError is returned when no interpreter on the host satisfies
// the requested version window. The message carries the window and every
// candidate name that was attempted, in order.
type NoSuitablePythonError struct {
	Min   Version
	Max   Version
	Tried []string
}

func (e *NoSuitablePythonError) Error() string {
	return strings.Join([]string{
		"\nCouldn't find a suitable python!",
		fmt.Sprintf("Wanted between %s and %s", e.Min, e.Max),
		fmt.Sprintf("Tried %s", strings.Join(e.Tried, ", ")),
	}, "\n")
}

// ScriptNotFoundError is returned when a named executable cannot be located
// inside the virtualenv under any recognized convention. The message includes
// a listing of what is available next to the wanted location, for diagnosis.
type ScriptNotFoundError struct {
	// Name is the executable name that was wanted.
	Name string

	// Location is the path that was tried first.
	Location string
}

func (e *ScriptNotFoundError) Error() string {
	var available []string
	entries, err := os.ReadDir(filepath.Dir(e.Location))
	if err == nil {
		for _, entry := range entries {
			if !strings.Contains(entry.Name(), ".") {
				available = append(available, entry.Name())
			}
		}
	}
	return strings.Join([]string{
		"\nCouldn't find the executable!",
		fmt.Sprintf("Wanted %s", e.Name),
		fmt.Sprintf("Available is %s", strings.Join(available, ", ")),
	}, "\n")
}

// FailedToGetOutputError is returned when a candidate executable could not
// run an inline program. During interpreter search this is soft: the locator
// skips the candidate and keeps going. It is only surfaced when probing the
// virtualenv's own python in strict mode.
type FailedToGetOutputError struct {
	Stderr string
	Err    error
}

func (e *FailedToGetOutputError) Error() string {
	return fmt.Sprintf("Failed to get output\nstderr: %s\nerror: %v", e.Stderr, e.Err)
}

func (e *FailedToGetOutputError) Unwrap() error {
	return e.Err
}

// ErrInstallDidNotConverge is returned when pip install reported success but
// the dependency verification still fails afterwards, for example because of
// conflicting pins. It is never retried.
var ErrInstallDidNotConverge = errors.New("couldn't install the requirements")

// VersionNotSpecifiedError is returned when a local dependency declares a
// version file but its name has no {version} placeholder to substitute into.
type VersionNotSpecifiedError struct {
	Name string
}

func (e *VersionNotSpecifiedError) Error() string {
	return fmt.Sprintf("a version_file was specified for a local dependency, but '{version}' not found in the name: %s", e.Name)
}
