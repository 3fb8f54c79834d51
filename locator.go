package venvstart

import (
	"fmt"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// assumedLastMinor is what the candidate walk assumes the highest minor of a
// previous major release series to be when it steps down across a major
// boundary. It is a heuristic, not a discovered fact, and may skip candidates
// on future major boundaries.
const assumedLastMinor = 9

// PythonFinder locates a python executable on the host whose version falls
// inside [Min, Max]. Acceptance only considers major.minor; any patch level
// of an acceptable minor will do.
//
// Candidates are re-probed on every Find call. That costs a few subprocess
// launches but always reflects the current host state.
type PythonFinder struct {
	// Min is the inclusive lower bound of acceptable versions.
	Min Version

	// Max is the inclusive upper bound. When nil the bound is derived from
	// whatever ambient interpreters the host already has.
	Max *Version

	// CurrentPython is an interpreter the caller is already committed to, if
	// any. When it falls inside the window and no explicit Max was given it
	// is returned immediately, without consulting the search path.
	CurrentPython string

	// runner and lookPath are replaced by tests to simulate hosts.
	runner   pyRunner
	lookPath func(name string) (string, error)
}

// NewPythonFinder builds a finder for the given window. min and max accept
// any shape NewVersion does; max may be nil for "no declared maximum".
func NewPythonFinder(min any, max any) (*PythonFinder, error) {
	minVersion, err := NewVersionNoPatch(min)
	if err != nil {
		return nil, err
	}

	finder := &PythonFinder{
		Min:      minVersion,
		runner:   subprocessRunner{},
		lookPath: exec.LookPath,
	}

	if max != nil {
		maxVersion, err := NewVersionNoPatch(max)
		if err != nil {
			return nil, err
		}
		finder.Max = &maxVersion
	}
	return finder, nil
}

// Suitable reports whether a probed version falls inside the window. A nil
// version (probe failed or executable missing) is never suitable.
func (f *PythonFinder) Suitable(version *Version) bool {
	if version == nil {
		return false
	}
	if version.Compare(f.Min) < 0 {
		return false
	}
	if f.Max != nil && version.Compare(*f.Max) > 0 {
		return false
	}
	return true
}

// Find returns the path to the first suitable python executable, or a
// *NoSuitablePythonError naming the window and every candidate that was
// tried.
func (f *PythonFinder) Find() (string, error) {
	if f.Max == nil && f.CurrentPython != "" {
		version, _ := probeVersion(f.runner, f.CurrentPython, false)
		if f.Suitable(version) {
			return f.CurrentPython, nil
		}
	}

	maxPython := f.effectiveMax()

	var tried []string
	for _, name := range f.candidateNames(maxPython) {
		tried = append(tried, name)

		executable, err := f.lookPath(name)
		if err != nil {
			continue
		}

		version, _ := probeVersion(f.runner, executable, false)
		if f.Suitable(version) {
			log.Debugf("found suitable python %s at %s", version, executable)
			return executable, nil
		}
	}

	return "", &NoSuitablePythonError{Min: f.Min, Max: maxPython, Tried: tried}
}

// effectiveMax resolves the upper bound of the search window. Without an
// explicit maximum it probes the ambient interpreters (the committed one plus
// the generic "python3" and "python" aliases) and takes the highest version
// that exceeds Min. If nothing does, the window collapses to Min itself.
func (f *PythonFinder) effectiveMax() Version {
	if f.Max != nil {
		return *f.Max
	}

	maxPython := f.Min
	for _, exe := range []string{f.CurrentPython, f.which("python3"), f.which("python")} {
		version, _ := probeVersion(f.runner, exe, false)
		if version != nil && version.Compare(maxPython) > 0 {
			maxPython = mustVersion(*version, true)
		}
	}
	return maxPython
}

func (f *PythonFinder) which(name string) string {
	executable, err := f.lookPath(name)
	if err != nil {
		return ""
	}
	return executable
}

// candidateNames generates the executable names to try, in order: dotted
// names descending by minor from the starting version down to Min, stepping
// to the previous major's assumed last minor at each ".0" boundary; then
// bare-major names descending from the starting major while it stays >= 3;
// then the unversioned alias as a last resort.
func (f *PythonFinder) candidateNames(starting Version) []string {
	var names []string

	version := starting
	for version.Compare(f.Min) >= 0 {
		names = append(names, fmt.Sprintf("python%d.%d", version.Major, version.Minor))

		if version.Minor == 0 {
			if version.Major == 0 {
				break
			}
			version = Version{Major: version.Major - 1, Minor: assumedLastMinor, withoutPatch: true}
		} else {
			version = Version{Major: version.Major, Minor: version.Minor - 1, withoutPatch: true}
		}
	}

	version = starting
	for version.Compare(f.Min) >= 0 {
		names = append(names, fmt.Sprintf("python%d", version.Major))
		if version.Major <= 3 {
			break
		}
		version = Version{Major: version.Major - 1, withoutPatch: true}
	}

	return append(names, "python")
}
