package venvstart

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// withShebang inspects the first element of cmd for a shebang line and,
// where the host shell cannot interpret one itself, prepends the interpreter
// it names. Symlinks are resolved before the file is inspected.
//
// On POSIX the kernel honours shebangs natively, so when onlyForWindows is
// set (subprocess launches during probing) the command passes through
// untouched. The final process handoff inspects on every platform so that a
// resolved venv script is always launched with the interpreter it asks for.
func withShebang(onlyForWindows bool, cmd ...string) ([]string, error) {
	if len(cmd) == 0 {
		return nil, nil
	}

	if onlyForWindows && runtime.GOOS != "windows" {
		return cmd, nil
	}

	prefix, err := shebangLine(cmd[0])
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		return cmd, nil
	}

	var out []string
	if runtime.GOOS == "windows" {
		// cmd.exe has no notion of a shebang and no `env`; strip the
		// indirection and keep the rest of the line as one command.
		if i := strings.IndexByte(prefix, ' '); i >= 0 {
			if filepath.Base(strings.SplitN(prefix, " ", 2)[0]) == "env" {
				prefix = prefix[i+1:]
			}
		}
		out = append(out, prefix)
	} else {
		out = append(out, strings.Fields(prefix)...)
	}
	return append(out, cmd...), nil
}

// shebangLine returns the interpreter line of path, or "" when the file does
// not start with the shebang marker.
func shebangLine(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}

	fle, err := os.Open(resolved)
	if err != nil {
		return "", err
	}
	defer fle.Close()

	reader := bufio.NewReader(fle)
	marker := make([]byte, 2)
	if _, err := reader.Read(marker); err != nil || string(marker) != "#!" {
		return "", nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", nil
	}
	return strings.TrimSpace(line), nil
}
