package rotini

import "fmt"

// matchCommands walks the tree one token at a time. A token naming one of
// the current candidates becomes a frame, and that command's arguments are
// parsed before the walk continues among its children. The first miss ends
// the walk; everything from there on is returned unconsumed.
func matchCommands(roots []*Command, tokens []Token) ([]*Frame, []Token, error) {
	var frames []*Frame
	candidates := roots
	pos := 0

	for pos < len(tokens) {
		cmd := findCommand(candidates, tokens[pos].Value)
		if cmd == nil {
			break
		}
		pos++

		args, n, err := parseArguments(cmd, tokens[pos:])
		if err != nil {
			return frames, tokens[pos:], err
		}
		pos += n

		frames = append(frames, &Frame{Command: cmd, Arguments: args, Flags: map[string]any{}})
		candidates = cmd.commands
	}
	return frames, tokens[pos:], nil
}

// parseArguments binds cmd's declared arguments from the front of tokens and
// reports how many tokens it consumed. A variadic argument stops at a
// subcommand identifier or a flag-shaped token, but only after it holds at
// least one value.
//
//nolint:gocognit // variadic boundary rules read best inline
func parseArguments(cmd *Command, tokens []Token) (map[string]any, int, error) {
	args := make(map[string]any, len(cmd.arguments))
	help := cmd.helpFlag()
	pos := 0

	for _, arg := range cmd.arguments {
		if arg.variant == ArgumentValue {
			if pos >= len(tokens) {
				return nil, pos, argumentError(cmd, arg, ErrorTypeMissingValue, nil, "missing value for argument %q", arg.name)
			}
			tok := tokens[pos]
			if help != nil && help.matchesRaw(tok.Value) {
				return nil, pos, &HelpRequestedError{Command: cmd}
			}
			if tok.flagShaped() {
				return nil, pos, argumentError(cmd, arg, ErrorTypeInvalidArgument, nil,
					"expected a value for argument %q, got flag %q", arg.name, tok.Value)
			}
			v, err := arg.accept(tok.Value)
			if err != nil {
				return nil, pos, argumentError(cmd, arg, ErrorTypeInvalidArgument, err, "argument %q: %v", arg.name, err)
			}
			args[arg.name] = v
			pos++
			continue
		}

		var items []any
		for pos < len(tokens) {
			tok := tokens[pos]
			if help != nil && help.matchesRaw(tok.Value) {
				return nil, pos, &HelpRequestedError{Command: cmd}
			}
			if len(items) > 0 && (tok.flagShaped() || cmd.isIdentifier(tok.Value)) {
				break
			}
			if tok.flagShaped() {
				return nil, pos, argumentError(cmd, arg, ErrorTypeInvalidArgument, nil,
					"expected a value for argument %q, got flag %q", arg.name, tok.Value)
			}
			v, err := arg.accept(tok.Value)
			if err != nil {
				return nil, pos, argumentError(cmd, arg, ErrorTypeInvalidArgument, err, "argument %q: %v", arg.name, err)
			}
			items = append(items, v)
			pos++
		}
		if len(items) == 0 {
			return nil, pos, argumentError(cmd, arg, ErrorTypeMissingValue, nil, "missing values for argument %q", arg.name)
		}
		args[arg.name] = collect(items, arg.typ, arg.handler.parse != nil)
	}
	return args, pos, nil
}

func argumentError(cmd *Command, arg *Argument, typ ErrorType, cause error, format string, a ...any) *ParseError {
	return &ParseError{
		Type:     typ,
		Message:  fmt.Sprintf(format, a...),
		Command:  cmd.path,
		Argument: arg.name,
		Cause:    cause,
	}
}
