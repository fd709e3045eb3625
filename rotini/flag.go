package rotini

import (
	"context"
	"strings"
)

// FlagStyle is the scope a flag is matched in
type FlagStyle string

const (
	FlagLocal      FlagStyle = "local"
	FlagGlobal     FlagStyle = "global"
	FlagPositional FlagStyle = "positional"
)

// FlagVariant says whether a flag is presence-only, takes one value, or
// collects every occurrence
type FlagVariant string

const (
	FlagBoolean  FlagVariant = "boolean"
	FlagValue    FlagVariant = "value"
	FlagVariadic FlagVariant = "variadic"
)

// FlagKind marks the flags the engine itself reacts to
type FlagKind int

const (
	FlagPlain FlagKind = iota
	FlagHelp
	FlagForce
)

func (k FlagKind) String() string {
	switch k {
	case FlagHelp:
		return "help"
	case FlagForce:
		return "force"
	default:
		return "plain"
	}
}

// PositionalOperation runs when a positional flag is the first token. It
// receives the flag's bound value.
type PositionalOperation func(ctx context.Context, value any) (any, error)

// FlagDefinition is the raw description of a flag
type FlagDefinition struct {
	Name        string      `yaml:"name" toml:"name" json:"name"`
	Description string      `yaml:"description" toml:"description" json:"description"`
	Variant     FlagVariant `yaml:"variant,omitempty" toml:"variant,omitempty" json:"variant,omitempty"`
	Type        Type        `yaml:"type,omitempty" toml:"type,omitempty" json:"type,omitempty"`
	ShortKey    string      `yaml:"short_key,omitempty" toml:"short_key,omitempty" json:"short_key,omitempty"`
	LongKey     string      `yaml:"long_key,omitempty" toml:"long_key,omitempty" json:"long_key,omitempty"`
	Values      []any       `yaml:"values,omitempty" toml:"values,omitempty" json:"values,omitempty"`
	Default     any         `yaml:"default,omitempty" toml:"default,omitempty" json:"default,omitempty"`
	Required    bool        `yaml:"required,omitempty" toml:"required,omitempty" json:"required,omitempty"`

	Validator Validator           `yaml:"-" toml:"-" json:"-"`
	Parser    Parser              `yaml:"-" toml:"-" json:"-"`
	Operation PositionalOperation `yaml:"-" toml:"-" json:"-"`
}

// Flag is a validated flag. Style and kind together form its variant:
// {local, global, positional} x {plain, help, force}.
type Flag struct {
	name        string
	description string
	style       FlagStyle
	kind        FlagKind
	variant     FlagVariant
	typ         Type
	shortKey    string
	longKey     string
	values      []any
	def         any
	hasDefault  bool
	required    bool
	handler     callbacks
	operation   PositionalOperation
}

var (
	helpFlagDefinition = FlagDefinition{
		Name:        "help",
		Description: "output the help for this command",
		Variant:     FlagBoolean,
		ShortKey:    "h",
		LongKey:     "help",
	}
	forceFlagDefinition = FlagDefinition{
		Name:        "force",
		Description: "skip the confirmation prompt",
		Variant:     FlagBoolean,
		ShortKey:    "f",
		LongKey:     "force",
	}
)

// NewFlag validates def strictly as a plain flag of the given style
func NewFlag(def FlagDefinition, style FlagStyle) (*Flag, error) {
	return newFlag(def, style, FlagPlain, true)
}

//nolint:gocognit,funlen // validation order is significant and reads best top to bottom
func newFlag(def FlagDefinition, style FlagStyle, kind FlagKind, strict bool) (*Flag, error) {
	const entity = "Flag"

	f := &Flag{
		name:        def.Name,
		description: def.Description,
		style:       style,
		kind:        kind,
		variant:     def.Variant,
		typ:         def.Type,
		shortKey:    def.ShortKey,
		longKey:     def.LongKey,
		required:    def.Required,
		handler:     callbacks{validate: def.Validator, parse: def.Parser},
		operation:   def.Operation,
	}
	if f.variant == "" {
		f.variant = FlagBoolean
	}
	if f.typ == "" {
		switch f.variant {
		case FlagBoolean:
			f.typ = TypeBoolean
		case FlagVariadic:
			f.typ = TypeStringArray
		default:
			f.typ = TypeString
		}
	}

	if !strict {
		f.values = append([]any(nil), def.Values...)
		f.def, f.hasDefault = def.Default, def.Default != nil
		return f, nil
	}

	if err := checkName(entity, def.Name, "name", def.Name); err != nil {
		return nil, err
	}
	if err := checkDescription(entity, def.Name, def.Description); err != nil {
		return nil, err
	}

	switch style {
	case FlagLocal, FlagGlobal, FlagPositional:
	default:
		return nil, definitionError(entity, def.Name, "style", "%q is not a flag style", style)
	}

	switch f.variant {
	case FlagBoolean:
		if f.typ != TypeBoolean {
			return nil, definitionError(entity, def.Name, "type", "boolean flags must have type %q, got %q", TypeBoolean, f.typ)
		}
	case FlagValue:
		if !f.typ.valid() || f.typ.IsArray() {
			return nil, definitionError(entity, def.Name, "type", "value flags need a scalar type, got %q", f.typ)
		}
	case FlagVariadic:
		if !f.typ.valid() || !f.typ.IsArray() {
			return nil, definitionError(entity, def.Name, "type", "variadic flags need an array type, got %q", f.typ)
		}
	default:
		return nil, definitionError(entity, def.Name, "variant", "%q must be %q, %q or %q", f.variant, FlagBoolean, FlagValue, FlagVariadic)
	}

	if def.ShortKey == "" && def.LongKey == "" {
		return nil, definitionError(entity, def.Name, "short_key", "a flag needs a short_key, a long_key, or both")
	}
	if def.ShortKey != "" {
		if err := checkName(entity, def.Name, "short_key", def.ShortKey); err != nil {
			return nil, err
		}
	}
	if def.LongKey != "" {
		if err := checkName(entity, def.Name, "long_key", def.LongKey); err != nil {
			return nil, err
		}
	}
	if def.ShortKey != "" && def.ShortKey == def.LongKey {
		return nil, definitionError(entity, def.Name, "long_key", "must differ from short_key %q", def.ShortKey)
	}

	values, err := normalizeAllowed(def.Values, f.typ)
	if err != nil {
		return nil, definitionError(entity, def.Name, "values", "%v", err)
	}
	f.values = values

	if def.Default != nil {
		d, err := normalizeValue(def.Default, f.typ)
		if err != nil {
			return nil, definitionError(entity, def.Name, "default", "%v", err)
		}
		for _, item := range elements(d) {
			if !allows(f.values, item) {
				return nil, definitionError(entity, def.Name, "default", "%v is not one of the allowed values: %s", item, formatValues(f.values))
			}
		}
		f.def, f.hasDefault = d, true
	}

	if def.Required && style == FlagPositional {
		return nil, definitionError(entity, def.Name, "required", "positional flags cannot be required")
	}

	if style == FlagPositional && def.Operation == nil {
		return nil, definitionError(entity, def.Name, "operation", "positional flags need an operation")
	}
	if style != FlagPositional && def.Operation != nil {
		return nil, definitionError(entity, def.Name, "operation", "only positional flags carry an operation")
	}

	return f, nil
}

func (f *Flag) Name() string         { return f.name }
func (f *Flag) Description() string  { return f.description }
func (f *Flag) Style() FlagStyle     { return f.style }
func (f *Flag) Kind() FlagKind       { return f.kind }
func (f *Flag) Variant() FlagVariant { return f.variant }
func (f *Flag) Type() Type           { return f.typ }
func (f *Flag) ShortKey() string     { return f.shortKey }
func (f *Flag) LongKey() string      { return f.longKey }
func (f *Flag) Required() bool       { return f.required }

// Default returns the default value and whether one was declared
func (f *Flag) Default() (any, bool) { return f.def, f.hasDefault }

// Values returns the closed set of allowed values, if any
func (f *Flag) Values() []any { return append([]any(nil), f.values...) }

// Keys returns the dash-prefixed forms, short first
func (f *Flag) Keys() []string {
	keys := make([]string, 0, 2)
	if f.shortKey != "" {
		keys = append(keys, "-"+f.shortKey)
	}
	if f.longKey != "" {
		keys = append(keys, "--"+f.longKey)
	}
	return keys
}

// Usage returns the keys as shown in help, e.g. "-t, --type <string>"
func (f *Flag) Usage() string {
	usage := strings.Join(f.Keys(), ", ")
	switch f.variant {
	case FlagValue:
		usage += " <" + string(f.typ) + ">"
	case FlagVariadic:
		usage += " <" + string(f.typ.Element()) + ">..."
	}
	return usage
}

func (f *Flag) matches(tok FlagToken) bool {
	switch tok.Dashes {
	case 1:
		return f.shortKey != "" && tok.Key == f.shortKey
	case 2:
		return f.longKey != "" && tok.Key == f.longKey
	default:
		return false
	}
}

// matchesRaw reports whether a raw token is exactly one of the flag's keys
func (f *Flag) matchesRaw(raw string) bool {
	for _, k := range f.Keys() {
		if raw == k {
			return true
		}
	}
	return false
}
