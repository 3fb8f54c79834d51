package venvstart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// processHandoff transfers control to the final target program. Exec never
// returns: it either replaces the process image or exits with the child's
// status. The backend is selected at composition time per OS family.
type processHandoff interface {
	Exec(argv []string, env []string)
}

// programKind enumerates the closed set of shapes a target program can take.
type programKind int

const (
	// programPython runs the virtualenv's own interpreter with the raw args.
	programPython programKind = iota

	// programScript runs a named executable from the virtualenv.
	programScript

	// programArgv runs a command list; only its first element is resolved
	// against the virtualenv, falling back to itself so absolute and external
	// paths pass through unchanged.
	programArgv

	// programFunc defers to a callback that may compute any of the above.
	programFunc
)

// ProgramFunc computes a program once the virtualenv location is known. It
// may consume or rewrite args. Returning nil means "do nothing further".
type ProgramFunc func(venvLocation string, args *[]string) (*Program, error)

// Program specifies what to execute once the environment is ready. Use one
// of PythonProgram, ScriptProgram, CommandProgram or FuncProgram.
type Program struct {
	kind programKind
	name string
	argv []string
	fn   ProgramFunc
}

// PythonProgram runs the virtualenv's python with the caller's arguments.
func PythonProgram() Program {
	return Program{kind: programPython}
}

// ScriptProgram runs the named executable from the virtualenv's scripts.
func ScriptProgram(name string) Program {
	return Program{kind: programScript, name: name}
}

// CommandProgram runs argv, resolving only argv[0] against the virtualenv.
func CommandProgram(argv ...string) Program {
	return Program{kind: programArgv, argv: argv}
}

// FuncProgram defers the choice of program to fn.
func FuncProgram(fn ProgramFunc) Program {
	return Program{kind: programFunc, fn: fn}
}

// scriptName reports the venv script name when the program is one, which is
// what default virtualenv folder names derive from.
func (p Program) scriptName() (string, bool) {
	if p.kind == programScript {
		return p.name, true
	}
	return "", false
}

// EnvVar is one environment variable overlay for the target program. Values
// are template-expanded with {here}, {home} and {venv_parent}; multi-part
// values are joined into a single filesystem path after expansion.
type EnvVar struct {
	// Here is the origin directory substituted for {here}. Usually the
	// directory of whatever declared the variable.
	Here string

	Name  string
	Value []string
}

// determineCommand resolves the configured program into the command to
// execute, without the trailing args. A nil command with a nil error means
// the program asked for nothing to be run.
func (s *Starter) determineCommand(args *[]string) ([]string, error) {
	location, err := s.VenvLocation()
	if err != nil {
		return nil, err
	}
	venv := Venv{Dir: location}

	program := s.Program
	if program.kind == programFunc {
		// One level of indirection only; the callback must not return
		// another FuncProgram.
		result, err := program.fn(location, args)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, nil
		}
		if result.kind == programFunc {
			return nil, fmt.Errorf("a program function must not return another program function")
		}
		program = *result
	}

	switch program.kind {
	case programPython:
		venvPython, err := venv.Python()
		if err != nil {
			return nil, err
		}
		return []string{venvPython}, nil

	case programScript:
		script, err := venv.Script(program.name, "")
		if err != nil {
			return nil, err
		}
		return []string{script}, nil

	case programArgv:
		if len(program.argv) == 0 {
			return nil, nil
		}
		first, err := venv.Script(program.argv[0], program.argv[0])
		if err != nil {
			return nil, err
		}
		return append([]string{first}, program.argv[1:]...), nil

	default:
		return nil, fmt.Errorf("not sure what to do with this program: %v", program)
	}
}

// envForProgram assembles the environment the target program runs with: the
// current process environment, overlaid with the declared variables after
// template expansion. The inherited __PYVENV_LAUNCHER__ is always dropped;
// it makes a relocated virtualenv's python misidentify its own executable.
func (s *Starter) envForProgram() ([]string, error) {
	location, err := s.VenvLocation()
	if err != nil {
		return nil, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	venvParent := filepath.Dir(location)

	env := environMap(os.Environ())
	for _, entry := range s.Env {
		expander := strings.NewReplacer(
			"{here}", entry.Here,
			"{home}", home,
			"{venv_parent}", venvParent,
		)

		expanded := make([]string, 0, len(entry.Value))
		for _, part := range entry.Value {
			expanded = append(expanded, expander.Replace(part))
		}
		env[entry.Name] = filepath.Join(expanded...)
	}

	delete(env, "__PYVENV_LAUNCHER__")

	flat := make([]string, 0, len(env))
	for key, value := range env {
		flat = append(flat, key+"="+value)
	}
	return flat, nil
}

func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, pair := range environ {
		key, value, _ := strings.Cut(pair, "=")
		env[key] = value
	}
	return env
}

// startProgram resolves the final command, applies the shebang rule and
// transfers control. On POSIX the current process image is replaced; on
// Windows a child is spawned and its exit code forwarded. It only returns
// when provision-only mode is active or the program resolved to nothing.
func (s *Starter) startProgram(args []string) error {
	if os.Getenv("VENVSTARTER_ONLY_MAKE_VENV") == "1" {
		return nil
	}

	cmd, err := s.determineCommand(&args)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}

	argv, err := withShebang(false, append(cmd, args...)...)
	if err != nil {
		return err
	}

	env, err := s.envForProgram()
	if err != nil {
		return err
	}

	s.handoff.Exec(argv, env)
	return nil
}
