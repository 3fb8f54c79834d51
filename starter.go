package venvstart

import (
	"fmt"
	"os"
	"os/exec"
)

// StarterConfig carries everything a Starter needs. Most callers build one
// through the Manager chain instead of filling this in by hand.
type StarterConfig struct {
	// Program is what to execute once the environment is ready.
	Program Program

	// VenvFolder is the folder the virtualenv sits in. Passing a file path
	// means "the folder that file sits in".
	VenvFolder string

	// VenvFolderName is the name of the virtualenv directory itself.
	VenvFolderName string

	// Deps are pip requirement strings to reconcile in the virtualenv.
	Deps []string

	// NoBinary names dependencies that must be installed from source. An
	// existing binary installation of one of these is uninstalled and
	// reinstalled from source.
	NoBinary []string

	// Env declares environment variable overlays for the target program.
	Env []EnvVar

	// MinPython is the minimum acceptable interpreter version, in any shape
	// NewVersion accepts. Defaults to 3.7; anything older is refused.
	MinPython any

	// MaxPython is the optional maximum acceptable interpreter version. When
	// set it must not be below MinPython.
	MaxPython any
}

// Starter ensures a virtualenv exists with a suitable python and the declared
// dependencies, then hands the process over to the target program.
//
// Two invocations against the same virtualenv are not synchronized in any
// way; exactly one bootstrap owns an environment root at a time.
type Starter struct {
	Program        Program
	VenvFolder     string
	VenvFolderName string
	Deps           []string
	NoBinary       []string
	Env            []EnvVar
	MinPython      Version
	MaxPython      *Version

	venvLocation string

	// Seams replaced by tests; production values are set in NewStarter.
	runner   pyRunner
	handoff  processHandoff
	pip      func(args ...string) error
	lookPath func(name string) (string, error)
}

// NewStarter validates the configuration and builds a Starter.
func NewStarter(cfg StarterConfig) (*Starter, error) {
	if cfg.MinPython == nil {
		cfg.MinPython = 3.7
	}

	minPython, err := NewVersionNoPatch(cfg.MinPython)
	if err != nil {
		return nil, err
	}
	if minPython.Compare(mustVersion(3.7, true)) < 0 {
		return nil, fmt.Errorf("only python3.7 and above is supported, got minimum %s", minPython)
	}

	var maxPython *Version
	if cfg.MaxPython != nil {
		v, err := NewVersionNoPatch(cfg.MaxPython)
		if err != nil {
			return nil, err
		}
		if minPython.Compare(v) > 0 {
			return nil, fmt.Errorf("minimum python version must not be greater than the maximum (%s > %s)", minPython, v)
		}
		maxPython = &v
	}

	s := &Starter{
		Program:        cfg.Program,
		VenvFolder:     cfg.VenvFolder,
		VenvFolderName: cfg.VenvFolderName,
		Deps:           cfg.Deps,
		NoBinary:       cfg.NoBinary,
		Env:            cfg.Env,
		MinPython:      minPython,
		MaxPython:      maxPython,
		runner:         subprocessRunner{},
		handoff:        newHandoff(),
		lookPath:       exec.LookPath,
	}
	s.pip = s.runPip
	return s, nil
}

// newFinder builds a PythonFinder for the configured version window. The
// VENVSTART_PYTHON variable, when set, nominates the interpreter the caller
// is already committed to.
func (s *Starter) newFinder() *PythonFinder {
	return &PythonFinder{
		Min:           s.MinPython,
		Max:           s.MaxPython,
		CurrentPython: os.Getenv("VENVSTART_PYTHON"),
		runner:        s.runner,
		lookPath:      s.lookPath,
	}
}

// venvPython resolves the virtualenv's own interpreter.
func (s *Starter) venvPython() (string, error) {
	location, err := s.VenvLocation()
	if err != nil {
		return "", err
	}
	return Venv{Dir: location}.Python()
}

// runPip invokes the virtualenv's pip via `python -m pip`. The inherited
// __PYVENV_LAUNCHER__ is removed so the child python identifies its own
// executable correctly.
func (s *Starter) runPip(args ...string) error {
	venvPython, err := s.venvPython()
	if err != nil {
		return err
	}

	cmd := exec.Command(venvPython, append([]string{"-m", "pip"}, args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	env := environMap(os.Environ())
	delete(env, "__PYVENV_LAUNCHER__")
	for key, value := range env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	return cmd.Run()
}

// Run performs the whole bootstrap: ensure the virtualenv, reconcile pip
// itself, reconcile the declared dependencies, then hand over to the target
// program. args of nil means os.Args[1:].
//
// Reconciliation of the declared dependencies can be skipped for
// startup-latency-sensitive repeated runs with VENV_STARTER_CHECK_DEPS=0,
// except on the run that created the virtualenv. VENVSTARTER_UPGRADE_PIP=0
// skips the pip self-upgrade.
func (s *Starter) Run(args []string) error {
	if args == nil {
		args = os.Args[1:]
	}

	made, err := s.makeVirtualenv()
	if err != nil {
		return err
	}

	if os.Getenv("VENVSTARTER_UPGRADE_PIP") != "0" {
		if err := s.installDeps([]string{"pip>=23"}, false); err != nil {
			return err
		}
	}

	if made || os.Getenv("VENV_STARTER_CHECK_DEPS") != "0" {
		if err := s.installDeps(s.Deps, true); err != nil {
			return err
		}
	}

	return s.startProgram(args)
}
