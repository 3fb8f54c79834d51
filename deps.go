package venvstart

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// packagingVersion pins the version of the packaging module the verification
// program bootstraps into the virtualenv for requirement parsing.
const packagingVersion = "23.2"

//go:embed scripts/check_deps.py
var checkDepsScript string

//go:embed scripts/find_binary_installs.py
var findBinaryInstallsScript string

// depNames canonicalizes requirement strings for the satisfaction check.
// A local reference like "file:///src/thing#egg=thinger==0.1" contributes
// only the name embedded in its egg fragment.
func depNames(deps []string) []string {
	names := make([]string, 0, len(deps))
	for _, dep := range deps {
		if i := strings.IndexByte(dep, '#'); i >= 0 {
			for _, arg := range strings.Split(dep[i+1:], "&") {
				key, value, found := strings.Cut(arg, "=")
				if found && key == "egg" {
					dep = value
				}
			}
		}
		names = append(names, dep)
	}
	return names
}

// renderScript substitutes the JSON-encoded values into an embedded
// verification program.
func renderScript(script string, values map[string]any) string {
	for key, value := range values {
		encoded, _ := json.Marshal(value)
		script = strings.ReplaceAll(script, key, string(encoded))
	}
	return script
}

// checkDeps runs the verification program inside the virtualenv's own python
// and reports its exit status: zero means every requirement is satisfied and
// every no-binary name really is a source install.
func (s *Starter) checkDeps(deps []string, checkNoBinary bool) (int, error) {
	noBinary := []string{}
	if checkNoBinary {
		noBinary = append(noBinary, s.NoBinary...)
	}

	script := renderScript(checkDepsScript, map[string]any{
		"__VENVSTART_DEPS__":      depNames(deps),
		"__VENVSTART_NO_BINARY__": noBinary,
	})
	script = strings.ReplaceAll(script, `"__VENVSTART_PACKAGING_VERSION__"`, fmt.Sprintf("%q", packagingVersion))

	venvPython, err := s.venvPython()
	if err != nil {
		return 0, err
	}
	return s.runner.Status(venvPython, script)
}

// findDepsToBeMadeNotBinary returns the no-binary names that are currently
// importable as compiled extensions and must be uninstalled before a source
// reinstall.
func (s *Starter) findDepsToBeMadeNotBinary() ([]string, error) {
	venvPython, err := s.venvPython()
	if err != nil {
		return nil, err
	}

	script := renderScript(findBinaryInstallsScript, map[string]any{
		"__VENVSTART_NO_BINARY__": s.NoBinary,
	})

	out, err := s.runner.Output(venvPython, script)
	if err != nil {
		return nil, err
	}

	var found []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			found = append(found, name)
		}
	}
	return found, nil
}

// installDeps reconciles the declared dependencies: if the virtualenv already
// satisfies them nothing happens; otherwise the requirements are handed to
// pip once and the check is run again. A second failure means the install
// did not converge and is fatal.
func (s *Starter) installDeps(deps []string, checkNoBinary bool) error {
	ret, err := s.checkDeps(deps, checkNoBinary)
	if err != nil {
		return err
	}
	if ret == 0 {
		return nil
	}

	if checkNoBinary {
		toRemove, err := s.findDepsToBeMadeNotBinary()
		if err != nil {
			return err
		}
		if len(toRemove) > 0 {
			log.Infof("Uninstalling binary installations of %s", strings.Join(toRemove, ", "))
			if err := s.pip(append([]string{"uninstall", "-y"}, toRemove...)...); err != nil {
				return fmt.Errorf("failed to uninstall binary installations: %w", err)
			}
		}
	}

	if err := s.installRequirements(deps, checkNoBinary); err != nil {
		return err
	}

	ret, err = s.checkDeps(deps, checkNoBinary)
	if err != nil {
		return err
	}
	if ret != 0 {
		return ErrInstallDidNotConverge
	}
	return nil
}

// installRequirements writes the requirements to a scoped temporary file in
// the current directory and invokes pip against it. The file is removed on
// every exit path.
func (s *Starter) installRequirements(deps []string, checkNoBinary bool) error {
	reqs, err := os.CreateTemp(".", "*venvstarter_requirements")
	if err != nil {
		return fmt.Errorf("error creating requirements file: %w", err)
	}
	defer os.Remove(reqs.Name())

	for _, dep := range deps {
		if _, err := fmt.Fprintf(reqs, "\n%s", dep); err != nil {
			reqs.Close()
			return fmt.Errorf("error writing requirements file: %w", err)
		}
	}
	if checkNoBinary {
		for _, dep := range s.NoBinary {
			if _, err := fmt.Fprintf(reqs, "\n--no-binary %s", dep); err != nil {
				reqs.Close()
				return fmt.Errorf("error writing requirements file: %w", err)
			}
		}
	}
	if err := reqs.Close(); err != nil {
		return err
	}

	log.Infof("Installing %s", strings.Join(deps, ", "))
	if err := s.pip("install", "-r", filepath.Base(reqs.Name())); err != nil {
		return fmt.Errorf("pip install failed: %w", err)
	}
	return nil
}
