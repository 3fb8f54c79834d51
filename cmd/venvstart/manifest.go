package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/venvstart/venvstart"
)

// Manifest is the YAML description of a bootstrap. Exactly one of Program or
// Argv names the target; min_python and max_python take any shape a version
// can be written in (3, 3.11, "3.9.2").
type Manifest struct {
	Program string   `yaml:"program"`
	Argv    []string `yaml:"argv"`

	Deps     []string `yaml:"deps"`
	NoBinary []string `yaml:"no_binary"`

	MinPython any `yaml:"min_python"`
	MaxPython any `yaml:"max_python"`

	VenvFolder string `yaml:"venv_folder"`
	VenvName   string `yaml:"venv_name"`

	// Env values may be a single string or a list of path parts that get
	// joined into one filesystem path.
	Env map[string]stringList `yaml:"env"`
}

// stringList accepts either a YAML scalar or a sequence of scalars.
type stringList []string

func (s *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var one string
		if err := node.Decode(&one); err != nil {
			return err
		}
		*s = stringList{one}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*s = stringList(many)
		return nil
	default:
		return fmt.Errorf("env value must be a string or a list of strings (line %d)", node.Line)
	}
}

func loadManifest(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	if err := manifest.validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return &manifest, nil
}

func (m *Manifest) validate() error {
	if m.Program != "" && len(m.Argv) > 0 {
		return fmt.Errorf("program and argv are mutually exclusive")
	}
	return nil
}

// manager builds the configured Manager, rooted at the manifest's directory
// so {here} expands relative to the manifest rather than the working
// directory.
func (m *Manifest) manager(manifestPath string) (*venvstart.Manager, error) {
	here, err := filepath.Abs(filepath.Dir(manifestPath))
	if err != nil {
		return nil, err
	}

	var program venvstart.Program
	switch {
	case m.Program != "":
		program = venvstart.ScriptProgram(m.Program)
	case len(m.Argv) > 0:
		program = venvstart.CommandProgram(m.Argv...)
	default:
		program = venvstart.PythonProgram()
	}

	manager := venvstart.NewManager(program, here).
		AddPypiDeps(m.Deps...).
		AddNoBinary(m.NoBinary...)

	if m.MinPython != nil {
		manager = manager.MinPython(m.MinPython)
	}
	if m.MaxPython != nil {
		manager = manager.MaxPython(m.MaxPython)
	}
	if m.VenvFolder != "" {
		manager = manager.PlaceVenvIn(expandHere(m.VenvFolder, here))
	}
	if m.VenvName != "" {
		manager = manager.Named(m.VenvName)
	}
	for name, parts := range m.Env {
		manager = manager.AddEnvPath(name, parts...)
	}
	return manager, nil
}

func expandHere(value, here string) string {
	return filepath.Clean(strings.ReplaceAll(value, "{here}", here))
}
