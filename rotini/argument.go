package rotini

import "fmt"

// ArgumentVariant says whether an argument takes one token or a run of tokens
type ArgumentVariant string

const (
	ArgumentValue    ArgumentVariant = "value"
	ArgumentVariadic ArgumentVariant = "variadic"
)

// ArgumentDefinition is the raw description of a positional argument
type ArgumentDefinition struct {
	Name        string          `yaml:"name" toml:"name" json:"name"`
	Description string          `yaml:"description" toml:"description" json:"description"`
	Variant     ArgumentVariant `yaml:"variant,omitempty" toml:"variant,omitempty" json:"variant,omitempty"`
	Type        Type            `yaml:"type,omitempty" toml:"type,omitempty" json:"type,omitempty"`
	Values      []any           `yaml:"values,omitempty" toml:"values,omitempty" json:"values,omitempty"`

	Validator Validator `yaml:"-" toml:"-" json:"-"`
	Parser    Parser    `yaml:"-" toml:"-" json:"-"`
}

// Argument is a validated positional argument
type Argument struct {
	name        string
	description string
	variant     ArgumentVariant
	typ         Type
	values      []any
	handler     callbacks
}

// NewArgument validates def strictly
func NewArgument(def ArgumentDefinition) (*Argument, error) {
	return newArgument(def, true)
}

func newArgument(def ArgumentDefinition, strict bool) (*Argument, error) {
	const entity = "Argument"

	a := &Argument{
		name:        def.Name,
		description: def.Description,
		variant:     def.Variant,
		typ:         def.Type,
		handler:     callbacks{validate: def.Validator, parse: def.Parser},
	}
	if a.variant == "" {
		a.variant = ArgumentValue
	}
	if a.typ == "" {
		a.typ = TypeString
		if a.variant == ArgumentVariadic {
			a.typ = TypeStringArray
		}
	}

	if !strict {
		a.values = append([]any(nil), def.Values...)
		return a, nil
	}

	if err := checkName(entity, def.Name, "name", def.Name); err != nil {
		return nil, err
	}
	if err := checkDescription(entity, def.Name, def.Description); err != nil {
		return nil, err
	}

	switch a.variant {
	case ArgumentValue, ArgumentVariadic:
	default:
		return nil, definitionError(entity, def.Name, "variant", "%q must be %q or %q", a.variant, ArgumentValue, ArgumentVariadic)
	}

	if !a.typ.valid() {
		return nil, definitionError(entity, def.Name, "type", "%q is not a supported type", a.typ)
	}
	if a.variant == ArgumentVariadic && !a.typ.IsArray() {
		return nil, definitionError(entity, def.Name, "type", "variadic arguments need an array type, got %q", a.typ)
	}
	if a.variant == ArgumentValue && a.typ.IsArray() {
		return nil, definitionError(entity, def.Name, "type", "value arguments need a scalar type, got %q", a.typ)
	}

	values, err := normalizeAllowed(def.Values, a.typ)
	if err != nil {
		return nil, definitionError(entity, def.Name, "values", "%v", err)
	}
	a.values = values

	return a, nil
}

// normalizeAllowed converts an allowed-value set to the element type of t
func normalizeAllowed(values []any, t Type) ([]any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]any, 0, len(values))
	for i, v := range values {
		n, err := normalizeScalar(v, t)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (a *Argument) Name() string             { return a.name }
func (a *Argument) Description() string      { return a.description }
func (a *Argument) Variant() ArgumentVariant { return a.variant }
func (a *Argument) Type() Type               { return a.typ }

// Values returns the closed set of allowed values, if any
func (a *Argument) Values() []any { return append([]any(nil), a.values...) }

func (a *Argument) accept(raw string) (any, error) {
	return acceptValue(raw, a.typ, a.values, a.handler)
}
