// Package configfile is the registry of configuration files a program
// declares. Handlers read and write them by id; the encoding follows the file
// extension (.json, .yaml, .yml or .toml). Contents are not validated.
package configfile

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
)

// Definition declares one configuration file
type Definition struct {
	ID        string `yaml:"id" toml:"id" json:"id"`
	Directory string `yaml:"directory" toml:"directory" json:"directory"`
	File      string `yaml:"file" toml:"file" json:"file"`
}

// FieldError reports an invalid Definition
type FieldError struct {
	ID      string
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("configuration file %q: %s %s", e.ID, e.Field, e.Message)
}

// UnknownFileError is returned for an id that was never registered
type UnknownFileError struct {
	ID string
}

func (e *UnknownFileError) Error() string {
	return fmt.Sprintf("configuration file %q is not registered", e.ID)
}

// ContentResult is the outcome of reading a file
type ContentResult struct {
	Data     any
	Error    error
	HasError bool
}

// WriteResult is the outcome of writing a file
type WriteResult struct {
	Error    error
	HasError bool
}

type codec struct {
	decode func(data []byte, v any) error
	encode func(v any) ([]byte, error)
}

var codecs = map[string]codec{
	".json": {
		decode: json.Unmarshal,
		encode: func(v any) ([]byte, error) {
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return nil, err
			}
			return append(b, '\n'), nil
		},
	},
	".yaml": {decode: yaml.Unmarshal, encode: yaml.Marshal},
	".yml":  {decode: yaml.Unmarshal, encode: yaml.Marshal},
	".toml": {
		decode: toml.Unmarshal,
		encode: func(v any) ([]byte, error) {
			var buf bytes.Buffer
			if err := toml.NewEncoder(&buf).Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	},
}

// File is one registered configuration file
type File struct {
	id    string
	path  string
	codec codec
}

// ID returns the id the file was registered under
func (f *File) ID() string { return f.id }

// Path returns the expanded location of the file
func (f *File) Path() string { return f.path }

// Exists reports whether the file is present on disk
func (f *File) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// GetContent reads and decodes the file. Mappings decode to map[string]any.
func (f *File) GetContent() ContentResult {
	var data any
	if err := f.Decode(&data); err != nil {
		return ContentResult{Error: err, HasError: true}
	}
	return ContentResult{Data: data}
}

// Decode reads the file into v
func (f *File) Decode(v any) error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.path, err)
	}
	if err := f.codec.decode(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", f.path, err)
	}
	return nil
}

// SetContent encodes data and writes it, creating the directory if needed
func (f *File) SetContent(data any) WriteResult {
	raw, err := f.codec.encode(data)
	if err != nil {
		err = fmt.Errorf("encode %s: %w", f.path, err)
		return WriteResult{Error: err, HasError: true}
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return WriteResult{Error: err, HasError: true}
	}
	if err := os.WriteFile(f.path, raw, 0o644); err != nil {
		return WriteResult{Error: err, HasError: true}
	}
	return WriteResult{}
}

// Registry maps ids to files. It holds no locks; concurrent writers to the
// same path race on disk.
type Registry struct {
	files map[string]*File
	ids   []string
}

// NewRegistry validates defs and builds the registry
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{files: make(map[string]*File, len(defs))}
	for _, d := range defs {
		if d.ID == "" {
			return nil, &FieldError{ID: d.ID, Field: "id", Message: "must not be empty"}
		}
		if _, dup := r.files[d.ID]; dup {
			return nil, &FieldError{ID: d.ID, Field: "id", Message: "is declared twice"}
		}
		if d.File == "" {
			return nil, &FieldError{ID: d.ID, Field: "file", Message: "must not be empty"}
		}
		ext := strings.ToLower(filepath.Ext(d.File))
		c, ok := codecs[ext]
		if !ok {
			return nil, &FieldError{ID: d.ID, Field: "file", Message: fmt.Sprintf("has unsupported extension %q", ext)}
		}
		dir, err := expandHome(d.Directory)
		if err != nil {
			return nil, &FieldError{ID: d.ID, Field: "directory", Message: err.Error()}
		}
		r.files[d.ID] = &File{id: d.ID, path: filepath.Join(dir, d.File), codec: c}
		r.ids = append(r.ids, d.ID)
	}
	return r, nil
}

// Get returns the file registered under id
func (r *Registry) Get(id string) (*File, error) {
	if f, ok := r.files[id]; ok {
		return f, nil
	}
	return nil, &UnknownFileError{ID: id}
}

// IDs returns the registered ids in declaration order
func (r *Registry) IDs() []string { return append([]string(nil), r.ids...) }

func expandHome(dir string) (string, error) {
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("cannot expand ~: " + err.Error())
	}
	return filepath.Join(home, strings.TrimPrefix(dir, "~")), nil
}
