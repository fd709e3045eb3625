// Package definition loads rotini program definitions from YAML, TOML, JSON
// and HCL files. Handlers cannot live in a file, so operations are attached
// afterwards with Bind and BindPositional.
package definition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matthewgetz/rotini-sub000/rotini"
)

// ErrNotFound is returned by Bind and BindPositional for an unknown target
var ErrNotFound = errors.New("not found in definition")

type decoder func(data []byte, filename string, def *rotini.ProgramDefinition) error

var decoders = map[string]decoder{
	".yaml": decodeYAML,
	".yml":  decodeYAML,
	".toml": decodeTOML,
	".json": decodeJSON,
	".hcl":  decodeHCL,
}

// Load reads the definition file at path. The format is chosen by extension.
func Load(path string) (*rotini.ProgramDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return Parse(data, filepath.Base(path))
}

// Parse decodes data as the format implied by filename's extension. Unknown
// keys are an error in every format.
func Parse(data []byte, filename string) (*rotini.ProgramDefinition, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("definition %s: unsupported extension %q", filename, ext)
	}

	def := &rotini.ProgramDefinition{}
	if err := decode(data, filename, def); err != nil {
		return nil, fmt.Errorf("definition %s: %w", filename, err)
	}
	return def, nil
}

func decodeYAML(data []byte, _ string, def *rotini.ProgramDefinition) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(def)
}

func decodeTOML(data []byte, _ string, def *rotini.ProgramDefinition) error {
	md, err := toml.Decode(string(data), def)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func decodeJSON(data []byte, _ string, def *rotini.ProgramDefinition) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(def)
}

// Bind attaches op to the command at path, e.g. "order pizza". A timeout
// declared in the file is kept when op does not set one.
func Bind(def *rotini.ProgramDefinition, path string, op *rotini.OperationDefinition) error {
	cmd := findCommand(def.Commands, strings.Fields(path))
	if cmd == nil {
		return fmt.Errorf("command %q: %w", path, ErrNotFound)
	}

	bound := *op
	if bound.Timeout == 0 && cmd.Operation != nil {
		bound.Timeout = cmd.Operation.Timeout
	}
	cmd.Operation = &bound
	return nil
}

// BindPositional attaches fn to the positional flag named name
func BindPositional(def *rotini.ProgramDefinition, name string, fn rotini.PositionalOperation) error {
	for i := range def.PositionalFlags {
		if def.PositionalFlags[i].Name == name {
			def.PositionalFlags[i].Operation = fn
			return nil
		}
	}
	return fmt.Errorf("positional flag %q: %w", name, ErrNotFound)
}

func findCommand(cmds []rotini.CommandDefinition, path []string) *rotini.CommandDefinition {
	if len(path) == 0 {
		return nil
	}
	for i := range cmds {
		if cmds[i].Name != path[0] {
			continue
		}
		if len(path) == 1 {
			return &cmds[i]
		}
		return findCommand(cmds[i].Commands, path[1:])
	}
	return nil
}
