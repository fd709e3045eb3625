package rotini

import "strings"

// CommandDefinition is the raw description of a command and its subtree
type CommandDefinition struct {
	Name        string               `yaml:"name" toml:"name" json:"name"`
	Description string               `yaml:"description" toml:"description" json:"description"`
	Aliases     []string             `yaml:"aliases,omitempty" toml:"aliases,omitempty" json:"aliases,omitempty"`
	Deprecated  bool                 `yaml:"deprecated,omitempty" toml:"deprecated,omitempty" json:"deprecated,omitempty"`
	Force       bool                 `yaml:"force,omitempty" toml:"force,omitempty" json:"force,omitempty"`
	Arguments   []ArgumentDefinition `yaml:"arguments,omitempty" toml:"arguments,omitempty" json:"arguments,omitempty"`
	Flags       []FlagDefinition     `yaml:"flags,omitempty" toml:"flags,omitempty" json:"flags,omitempty"`
	Commands    []CommandDefinition  `yaml:"commands,omitempty" toml:"commands,omitempty" json:"commands,omitempty"`
	Examples    []string             `yaml:"examples,omitempty" toml:"examples,omitempty" json:"examples,omitempty"`
	Operation   *OperationDefinition `yaml:"operation,omitempty" toml:"operation,omitempty" json:"operation,omitempty"`
}

// Command is a validated node of the command tree. It is never modified after
// construction.
type Command struct {
	name        string
	description string
	path        string
	aliases     []string
	deprecated  bool
	force       bool
	arguments   []*Argument
	flags       []*Flag
	commands    []*Command
	examples    []string
	operation   *Operation

	// children's names and aliases
	identifiers []string
}

// NewCommand validates def and its subtree strictly
func NewCommand(def CommandDefinition) (*Command, error) {
	return newCommand(def, "", true)
}

//nolint:gocognit,funlen // each property is checked in a fixed order
func newCommand(def CommandDefinition, parent string, strict bool) (*Command, error) {
	const entity = "Command"

	c := &Command{
		name:        def.Name,
		description: def.Description,
		path:        strings.TrimSpace(parent + " " + def.Name),
		aliases:     append([]string(nil), def.Aliases...),
		deprecated:  def.Deprecated,
		force:       def.Force,
		examples:    append([]string(nil), def.Examples...),
	}

	if strict {
		if err := checkName(entity, def.Name, "name", def.Name); err != nil {
			return nil, err
		}
		if err := checkDescription(entity, def.Name, def.Description); err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(def.Aliases))
		for _, alias := range def.Aliases {
			if err := checkName(entity, def.Name, "aliases", alias); err != nil {
				return nil, err
			}
			if alias == def.Name {
				return nil, definitionError(entity, def.Name, "aliases", "alias %q repeats the command name", alias)
			}
			if seen[alias] {
				return nil, definitionError(entity, def.Name, "aliases", "alias %q is declared twice", alias)
			}
			seen[alias] = true
		}
	}

	names := make(uniqueSet, len(def.Arguments))
	for i, ad := range def.Arguments {
		arg, err := newArgument(ad, strict)
		if err != nil {
			return nil, err
		}
		if strict {
			if _, ok := names.claim(arg.name, arg.name); !ok {
				return nil, definitionError(entity, def.Name, "arguments", "argument %q is declared twice", arg.name)
			}
			if arg.variant == ArgumentVariadic && i != len(def.Arguments)-1 {
				return nil, definitionError(entity, def.Name, "arguments", "variadic argument %q must be the last argument", arg.name)
			}
		}
		c.arguments = append(c.arguments, arg)
	}

	help, _ := newFlag(helpFlagDefinition, FlagLocal, FlagHelp, false)
	c.flags = append(c.flags, help)
	if def.Force {
		force, _ := newFlag(forceFlagDefinition, FlagLocal, FlagForce, false)
		c.flags = append(c.flags, force)
	}
	for _, fd := range def.Flags {
		f, err := newFlag(fd, FlagLocal, FlagPlain, strict)
		if err != nil {
			return nil, err
		}
		c.flags = append(c.flags, f)
	}
	if strict {
		if err := checkFlagSet(entity, def.Name, c.flags); err != nil {
			return nil, err
		}
	}

	for _, cd := range def.Commands {
		child, err := newCommand(cd, c.path, strict)
		if err != nil {
			return nil, err
		}
		c.commands = append(c.commands, child)
	}
	if strict {
		if err := checkSiblings(c.commands); err != nil {
			return nil, err
		}
	}
	c.identifiers = identifiers(c.commands)

	if def.Operation != nil {
		op, err := newOperation(def.Operation, c.path, strict)
		if err != nil {
			return nil, err
		}
		c.operation = op
	}

	return c, nil
}

// checkFlagSet enforces unique names and keys within one scope. The
// implicit flags come first, so a user flag reusing -h or --help is the one
// reported.
func checkFlagSet(entity, owner string, flags []*Flag) error {
	names := make(uniqueSet, len(flags))
	keys := make(uniqueSet, len(flags)*2)
	for _, f := range flags {
		if prev, ok := names.claim(f.name, f.name); !ok {
			return definitionError(entity, owner, "flags", "flag %q is declared twice (first by %q)", f.name, prev)
		}
		for _, key := range f.Keys() {
			if prev, ok := keys.claim(key, f.name); !ok {
				return definitionError(entity, owner, "flags", "flag %q reuses key %q of flag %q", f.name, key, prev)
			}
		}
	}
	return nil
}

// checkSiblings enforces that names and aliases are unique across one level
// of the tree.
func checkSiblings(cmds []*Command) error {
	ids := make(uniqueSet, len(cmds)*2)
	for _, c := range cmds {
		if prev, ok := ids.claim(c.name, c.name); !ok {
			return definitionError("Command", c.name, "name", "%q is already used by command %q", c.name, prev)
		}
	}
	for _, c := range cmds {
		for _, alias := range c.aliases {
			if prev, ok := ids.claim(alias, c.name); !ok {
				return definitionError("Command", c.name, "aliases", "alias %q is already used by command %q", alias, prev)
			}
		}
	}
	return nil
}

func identifiers(cmds []*Command) []string {
	var ids []string
	for _, c := range cmds {
		ids = append(ids, c.name)
		ids = append(ids, c.aliases...)
	}
	return ids
}

func (c *Command) Name() string           { return c.name }
func (c *Command) Description() string    { return c.description }
func (c *Command) Aliases() []string      { return append([]string(nil), c.aliases...) }
func (c *Command) Deprecated() bool       { return c.deprecated }
func (c *Command) Force() bool            { return c.force }
func (c *Command) Arguments() []*Argument { return c.arguments }
func (c *Command) Flags() []*Flag         { return c.flags }
func (c *Command) Commands() []*Command   { return c.commands }
func (c *Command) Examples() []string     { return append([]string(nil), c.examples...) }
func (c *Command) Operation() *Operation  { return c.operation }
func (c *Command) Identifiers() []string  { return append([]string(nil), c.identifiers...) }

// Path returns the names from the root command down to c, space separated
func (c *Command) Path() string { return c.path }

// answersTo reports whether token is the command's name or one of its aliases
func (c *Command) answersTo(token string) bool {
	if token == c.name {
		return true
	}
	for _, a := range c.aliases {
		if token == a {
			return true
		}
	}
	return false
}

func (c *Command) isIdentifier(token string) bool {
	for _, id := range c.identifiers {
		if id == token {
			return true
		}
	}
	return false
}

func (c *Command) helpFlag() *Flag {
	for _, f := range c.flags {
		if f.kind == FlagHelp {
			return f
		}
	}
	return nil
}

func findCommand(cmds []*Command, token string) *Command {
	for _, c := range cmds {
		if c.answersTo(token) {
			return c
		}
	}
	return nil
}

// Find walks path (names or aliases) from cmds down and returns the command
// it ends at, or nil.
func Find(cmds []*Command, path ...string) *Command {
	var found *Command
	for _, p := range path {
		found = findCommand(cmds, p)
		if found == nil {
			return nil
		}
		cmds = found.commands
	}
	return found
}
