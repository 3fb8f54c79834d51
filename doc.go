// Package venvstart turns a Go binary into a self-bootstrapping launcher for
// a Python program: it finds a suitable interpreter on the machine, creates
// and maintains a virtualenv next to the binary, reconciles the installed
// dependencies, and then hands the process over to the target program.
//
// Venvstart never stays resident. On POSIX systems the final step replaces
// the current process image with the target program; on Windows it spawns the
// program with inherited standard streams and exits with its status.
//
// # Bootstrap Pipeline
//
// A bootstrap runs the same four stages every time:
//
//  1. Locate: walk the versioned interpreter names on PATH (python3.12,
//     python3.11, ..., python3, python) until one reports a version inside
//     the configured window.
//
//  2. Provision: create the virtualenv if it is missing, or rebuild it when
//     its interpreter is broken or has drifted outside the version window.
//     A rebuild only destroys the old environment after a replacement
//     interpreter has been found.
//
//  3. Reconcile: run a verification program inside the virtualenv that walks
//     the declared requirements and their transitive dependencies, and
//     invoke pip only when something is missing or mismatched. A satisfied
//     environment starts with no pip traffic at all.
//
//  4. Hand off: resolve the target program into an argv, build its
//     environment, and exec (or spawn, on Windows) it.
//
// # Configuring a Bootstrap
//
// Manager is the chained entry point:
//
//	err := venvstart.NewManager(venvstart.ScriptProgram("harpoon"), here).
//		AddPypiDeps("harpoon==0.18.1").
//		MinPython(3.9).
//		MaxPython("3.12").
//		Run(os.Args[1:])
//
// Programs come in four shapes: PythonProgram runs the virtualenv's own
// interpreter, ScriptProgram names an installed console script,
// ArgvProgram supplies an explicit argv, and FuncProgram defers the choice
// until the virtualenv exists.
//
// Versions are accepted in several shapes wherever one is expected: "3",
// 3.11, "3.9.2" or a Version value. A version given without a patch level
// compares with the patch ignored, so MaxPython(3.11) admits any 3.11.x.
//
// # Environment Variables
//
// A few variables adjust a bootstrap at runtime:
//
//   - VENVSTART_PYTHON: path of an interpreter to try before walking PATH.
//   - VENVSTARTER_ONLY_MAKE_VENV=1: provision and reconcile, then exit
//     without running the program.
//   - VENV_STARTER_CHECK_DEPS=0: skip dependency verification for an
//     environment that already exists.
//   - VENVSTARTER_UPGRADE_PIP=0: do not ensure pip>=23 in the virtualenv.
package venvstart
