// Package schema loads record type definitions into an lsfile.Registry.
//
// Definitions are written in YAML:
//
//	types:
//	  - name: Player
//	    fields: [name, friends]
//
// A set of built-in definitions is always available through Builtin.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/liteser/lsfile"
	"github.com/liteser/lsfile/errors"
	"gopkg.in/yaml.v3"
)

// Type is the definition of a record type.
type Type struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
}

type file struct {
	Types []Type `yaml:"types"`
}

//go:embed builtin.yaml
var builtin []byte

// Builtin returns the built-in record types.
func Builtin() []Type {
	types, err := Load(bytes.NewReader(builtin))
	if err != nil {
		panic("schema: invalid built-in types: " + err.Error())
	}
	return types
}

// Load parses type definitions from r. Unknown keys are rejected.
func Load(r io.Reader) ([]Type, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f file
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			// Empty document.
			return nil, nil
		}
		return nil, err
	}
	for i, t := range f.Types {
		if t.Name == "" {
			return nil, fmt.Errorf("type #%d has no name", i)
		}
	}
	return f.Types, nil
}

// LoadFile parses type definitions from the file at path.
func LoadFile(path string) ([]Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	types, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return types, nil
}

// Apply registers each type with reg. All types are attempted; the errors of
// those that fail are returned together.
func Apply(reg *lsfile.Registry, types []Type) error {
	var errs errors.Errors
	for _, t := range types {
		errs = errs.Append(reg.Register(t.Name, t.Fields...))
	}
	return errs.Return()
}

// NewRegistry returns a Registry containing the built-in types and the types
// defined in each of the given files.
func NewRegistry(paths ...string) (*lsfile.Registry, error) {
	reg := lsfile.NewRegistry()
	if err := Apply(reg, Builtin()); err != nil {
		return nil, err
	}
	for _, path := range paths {
		types, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := Apply(reg, types); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return reg, nil
}
