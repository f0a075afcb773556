package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the optional per-directory configuration.
const ProjectFile = "lark.yaml"

// Project is the parsed lark.yaml.
type Project struct {
	// Entry is a script to run when the binary starts with no arguments.
	Entry string `yaml:"entry,omitempty"`

	// Trace prints the disassembled instruction stream before running.
	Trace bool `yaml:"trace,omitempty"`

	// History overrides the REPL history file path.
	History string `yaml:"history,omitempty"`
}

// LoadProject reads lark.yaml from the working directory. A missing file
// is not an error; a malformed one is.
func LoadProject() (*Project, error) {
	data, err := os.ReadFile(ProjectFile)
	if errors.Is(err, os.ErrNotExist) {
		return &Project{}, nil
	}
	if err != nil {
		return nil, err
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ProjectFile, err)
	}
	return &p, nil
}
