package mkfile

import "gopkg.in/yaml.v3"

// Mkfile represents the structure of the mkfile.yaml rule file.
//
// Targets stays a raw node on purpose: the loader walks it itself so that
// declaration order survives (the first target is the default) and duplicate
// keys merge instead of being dropped by map decoding.
type Mkfile struct {
	Version string            `yaml:"version"`
	Vars    map[string]string `yaml:"vars"`
	Phony   []string          `yaml:"phony"`
	Targets yaml.Node         `yaml:"targets"`
}

// TargetDTO represents one target definition in the rule file.
type TargetDTO struct {
	Deps []string `yaml:"deps"`
	Run  []string `yaml:"run"`
}
