package definition

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/matthewgetz/rotini-sub000/configfile"
	"github.com/matthewgetz/rotini-sub000/rotini"
)

// hclProgram mirrors rotini.ProgramDefinition with labelled blocks:
//
//	name    = "pizza"
//	version = "1.0.0"
//	global_flag "verbose" { long_key = "verbose" }
//	command "order" {
//	  argument "amount" { type = "number" }
//	  command "pizza" {
//	    flag "type" { variant = "value", values = ["cheese", "veggie"] }
//	    operation { timeout = 500 }
//	  }
//	}
type hclProgram struct {
	Name               string           `hcl:"name,optional"`
	Description        string           `hcl:"description,optional"`
	Version            string           `hcl:"version,optional"`
	GlobalFlags        []*hclFlag       `hcl:"global_flag,block"`
	PositionalFlags    []*hclFlag       `hcl:"positional_flag,block"`
	ConfigurationFiles []*hclConfigFile `hcl:"configuration_file,block"`
	Commands           []*hclCommand    `hcl:"command,block"`
}

type hclCommand struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Aliases     []string       `hcl:"aliases,optional"`
	Deprecated  bool           `hcl:"deprecated,optional"`
	Force       bool           `hcl:"force,optional"`
	Examples    []string       `hcl:"examples,optional"`
	Arguments   []*hclArgument `hcl:"argument,block"`
	Flags       []*hclFlag     `hcl:"flag,block"`
	Commands    []*hclCommand  `hcl:"command,block"`
	Operation   *hclOperation  `hcl:"operation,block"`
}

type hclArgument struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Variant     string         `hcl:"variant,optional"`
	Type        string         `hcl:"type,optional"`
	Values      hcl.Expression `hcl:"values,optional"`
}

type hclFlag struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Variant     string         `hcl:"variant,optional"`
	Type        string         `hcl:"type,optional"`
	ShortKey    string         `hcl:"short_key,optional"`
	LongKey     string         `hcl:"long_key,optional"`
	Values      hcl.Expression `hcl:"values,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Required    bool           `hcl:"required,optional"`
}

type hclOperation struct {
	Timeout int `hcl:"timeout,optional"`
}

type hclConfigFile struct {
	ID        string `hcl:"id,label"`
	Directory string `hcl:"directory,optional"`
	File      string `hcl:"file,optional"`
}

func decodeHCL(data []byte, filename string, def *rotini.ProgramDefinition) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return diags
	}

	var root hclProgram
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return diags
	}

	def.Name, def.Description, def.Version = root.Name, root.Description, root.Version
	for _, f := range root.GlobalFlags {
		fd, err := f.definition()
		if err != nil {
			return err
		}
		def.GlobalFlags = append(def.GlobalFlags, fd)
	}
	for _, f := range root.PositionalFlags {
		fd, err := f.definition()
		if err != nil {
			return err
		}
		def.PositionalFlags = append(def.PositionalFlags, fd)
	}
	for _, c := range root.ConfigurationFiles {
		def.ConfigurationFiles = append(def.ConfigurationFiles, configfile.Definition{ID: c.ID, Directory: c.Directory, File: c.File})
	}
	for _, c := range root.Commands {
		cd, err := c.definition()
		if err != nil {
			return err
		}
		def.Commands = append(def.Commands, cd)
	}
	return nil
}

func (c *hclCommand) definition() (rotini.CommandDefinition, error) {
	def := rotini.CommandDefinition{
		Name:        c.Name,
		Description: c.Description,
		Aliases:     c.Aliases,
		Deprecated:  c.Deprecated,
		Force:       c.Force,
		Examples:    c.Examples,
	}
	if c.Operation != nil {
		def.Operation = &rotini.OperationDefinition{Timeout: c.Operation.Timeout}
	}

	for _, a := range c.Arguments {
		values, err := listValue(a.Values)
		if err != nil {
			return def, fmt.Errorf("argument %q values: %w", a.Name, err)
		}
		def.Arguments = append(def.Arguments, rotini.ArgumentDefinition{
			Name:        a.Name,
			Description: a.Description,
			Variant:     rotini.ArgumentVariant(a.Variant),
			Type:        rotini.Type(a.Type),
			Values:      values,
		})
	}
	for _, f := range c.Flags {
		fd, err := f.definition()
		if err != nil {
			return def, err
		}
		def.Flags = append(def.Flags, fd)
	}
	for _, child := range c.Commands {
		cd, err := child.definition()
		if err != nil {
			return def, err
		}
		def.Commands = append(def.Commands, cd)
	}
	return def, nil
}

func (f *hclFlag) definition() (rotini.FlagDefinition, error) {
	def := rotini.FlagDefinition{
		Name:        f.Name,
		Description: f.Description,
		Variant:     rotini.FlagVariant(f.Variant),
		Type:        rotini.Type(f.Type),
		ShortKey:    f.ShortKey,
		LongKey:     f.LongKey,
		Required:    f.Required,
	}
	values, err := listValue(f.Values)
	if err != nil {
		return def, fmt.Errorf("flag %q values: %w", f.Name, err)
	}
	def.Values = values

	if def.Default, err = exprValue(f.Default); err != nil {
		return def, fmt.Errorf("flag %q default: %w", f.Name, err)
	}
	return def, nil
}

// exprValue evaluates a constant expression to a Go value. Absent
// attributes evaluate to nil.
func exprValue(expr hcl.Expression) (any, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return toNative(v)
}

func listValue(expr hcl.Expression) ([]any, error) {
	v, err := exprValue(expr)
	if err != nil || v == nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	return list, nil
}

// toNative converts strings, numbers, bools and sequences of them
func toNative(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, errors.New("value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			item, err := toNative(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
	}
}
