package venvstart

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	asciiNameRegex        = regexp.MustCompile(`^([a-zA-Z]+[0-9]*)+`)
	versionSpecifierRegex = regexp.MustCompile(`^([^=><]+)(.*)$`)
	versionVarRegex       = regexp.MustCompile(`(?m)^VERSION\s*=\s*["']([^"']+)["']`)
)

// Manager is the chained entry point for configuring and running a bootstrap.
//
//	err := venvstart.NewManager(venvstart.ScriptProgram("black"), here).
//		AddPypiDeps("black==23.9.1").
//		MinPython(3.9).
//		Run(nil)
type Manager struct {
	here    string
	program Program

	deps           []string
	noBinary       []string
	env            []EnvVar
	minPython      any
	maxPython      any
	venvFolder     string
	venvFolderName string

	// err holds the first configuration failure; Run reports it.
	err error
}

// NewManager starts configuring a bootstrap for program. here is the
// directory {here} expands to and the default home of the virtualenv; when
// empty it defaults to the running executable's directory.
func NewManager(program Program, here string) *Manager {
	m := &Manager{program: program}
	if here == "" {
		if executable, err := os.Executable(); err == nil {
			here = filepath.Dir(executable)
		} else {
			here, _ = os.Getwd()
		}
	}
	m.here = here
	return m
}

// PlaceVenvIn configures the folder the virtualenv will sit in.
func (m *Manager) PlaceVenvIn(location string) *Manager {
	m.venvFolder = location
	return m
}

// MinPython sets the minimum acceptable python version, in any shape
// NewVersion accepts.
func (m *Manager) MinPython(version any) *Manager {
	m.minPython = version
	return m
}

// MaxPython sets the maximum acceptable python version.
func (m *Manager) MaxPython(version any) *Manager {
	m.maxPython = version
	return m
}

// Named sets the name of the virtualenv folder.
func (m *Manager) Named(name string) *Manager {
	m.venvFolderName = name
	return m
}

// AddPypiDeps appends pip requirement strings. May be called many times.
func (m *Manager) AddPypiDeps(deps ...string) *Manager {
	m.deps = append(m.deps, deps...)
	return m
}

// AddNoBinary registers dependencies that must be installed from source.
func (m *Manager) AddNoBinary(names ...string) *Manager {
	m.noBinary = append(m.noBinary, names...)
	return m
}

// AddEnv declares environment variables for the target program. Values are
// template-expanded with {here}, {home} and {venv_parent}, where {here} is
// this manager's origin directory.
func (m *Manager) AddEnv(vars map[string]string) *Manager {
	for name, value := range vars {
		m.env = append(m.env, EnvVar{Here: m.here, Name: name, Value: []string{value}})
	}
	return m
}

// AddEnvPath declares one path-valued environment variable whose parts are
// template-expanded and then joined into a single filesystem path.
func (m *Manager) AddEnvPath(name string, parts ...string) *Manager {
	m.env = append(m.env, EnvVar{Here: m.here, Name: name, Value: parts})
	return m
}

// AddRequirementsFile reads one requirements file, adding each non-empty line
// as a dependency. The parts are template-expanded and joined into the path.
func (m *Manager) AddRequirementsFile(parts ...string) *Manager {
	if m.err != nil {
		return m
	}

	path := m.expandPath(parts)
	content, err := os.ReadFile(path)
	if err != nil {
		m.err = fmt.Errorf("resolved requirements file (%s) to %q but it could not be read: %w", strings.Join(parts, ", "), path, err)
		return m
	}

	for _, line := range strings.Split(string(content), "\n") {
		if stripped := strings.TrimSpace(line); stripped != "" {
			m.deps = append(m.deps, stripped)
		}
	}
	return m
}

// LocalDep declares a dependency that lives next to the bootstrap rather
// than on PyPI.
type LocalDep struct {
	// Path leads to the folder holding the dependency's setup.py. The parts
	// are template-expanded with {here}, {home} and {venv_parent} and joined.
	Path []string

	// Name tells pip what the installed dependency is called. When
	// VersionFile is set it must contain a {version} placeholder.
	Name string

	// VersionFile is an optional path, relative to Path, of a file declaring
	// a VERSION variable. The dependency is reinstalled whenever that version
	// changes, which picks up new sub-dependencies.
	VersionFile []string

	// Editable installs the dependency as a symlink (`pip install -e`).
	Editable bool

	// WithTests also installs the dependency's "tests" extra.
	WithTests bool
}

// AddLocalDep adds a local dependency as a file:// requirement with an
// explicit egg name fragment.
func (m *Manager) AddLocalDep(dep LocalDep) *Manager {
	if m.err != nil {
		return m
	}

	path := m.expandPath(dep.Path)
	name := dep.Name

	if len(dep.VersionFile) > 0 {
		if !strings.Contains(name, "{version}") {
			m.err = &VersionNotSpecifiedError{Name: name}
			return m
		}

		version, err := readVersionVar(filepath.Join(append([]string{path}, dep.VersionFile...)...))
		if err != nil {
			m.err = err
			return m
		}
		name = strings.ReplaceAll(name, "{version}", version)
	}

	if dep.WithTests {
		if groups := versionSpecifierRegex.FindStringSubmatch(name); groups != nil {
			name = fmt.Sprintf("%s[tests]%s", groups[1], groups[2])
		}
	}

	absolute, err := filepath.Abs(path)
	if err != nil {
		m.err = err
		return m
	}

	uri := url.URL{Scheme: "file", Path: filepath.ToSlash(absolute)}
	requirement := fmt.Sprintf("%s#egg=%s", uri.String(), name)
	if dep.Editable {
		requirement = "-e " + requirement
	}

	m.deps = append(m.deps, requirement)
	return m
}

// VenvFolderName returns the virtualenv folder name: the explicit name if one
// was set, a dotted form of the program name when the program is a plain
// word, and ".venv" otherwise.
func (m *Manager) VenvFolderName() string {
	if m.venvFolderName != "" {
		return m.venvFolderName
	}
	if name, ok := m.program.scriptName(); ok && asciiNameRegex.MatchString(name) {
		return "." + name
	}
	return ".venv"
}

// VenvFolder returns the folder the virtualenv will sit in, defaulting to
// the manager's origin directory.
func (m *Manager) VenvFolder() string {
	if m.venvFolder != "" {
		return m.venvFolder
	}
	return m.here
}

// Starter finalizes the configuration into a validated Starter.
func (m *Manager) Starter() (*Starter, error) {
	if m.err != nil {
		return nil, m.err
	}
	return NewStarter(StarterConfig{
		Program:        m.program,
		VenvFolder:     m.VenvFolder(),
		VenvFolderName: m.VenvFolderName(),
		Deps:           m.deps,
		NoBinary:       m.noBinary,
		Env:            m.env,
		MinPython:      m.minPython,
		MaxPython:      m.maxPython,
	})
}

// Run finalizes the configuration and runs the bootstrap.
func (m *Manager) Run(args []string) error {
	starter, err := m.Starter()
	if err != nil {
		return err
	}
	return starter.Run(args)
}

func (m *Manager) expandPath(parts []string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	expander := strings.NewReplacer(
		"{here}", m.here,
		"{home}", home,
		"{venv_parent}", m.VenvFolder(),
	)

	expanded := make([]string, 0, len(parts))
	for _, part := range parts {
		expanded = append(expanded, expander.Replace(part))
	}
	return filepath.Join(expanded...)
}

// readVersionVar extracts the VERSION variable from a python source file.
func readVersionVar(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("error reading version file: %w", err)
	}
	groups := versionVarRegex.FindSubmatch(content)
	if groups == nil {
		return "", fmt.Errorf("no VERSION variable found in %s", path)
	}
	return string(groups[1]), nil
}
