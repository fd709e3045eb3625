package rotini

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// flagScope carries what the flag matcher needs besides the tokens: the
// command path for error reports and the environment fallback.
type flagScope struct {
	command   string
	envPrefix string
	lookupEnv func(string) (string, bool)
}

// envName returns the environment variable consulted for f, or "" when no
// prefix is configured.
func (s flagScope) envName(f *Flag) string {
	if s.envPrefix == "" {
		return ""
	}
	return strings.ToUpper(s.envPrefix) + "_" + strcase.ToScreamingSnake(f.name)
}

// matchFlags binds declared flags from the pool. Scalar flags take their
// first matching token; variadic flags take every matching token in order.
// Unbound flags fall back to the environment, then the default; an unbound
// required flag is an error. It returns the bound values, the tokens nobody
// claimed, and lookahead values that boolean flags handed back.
//
//nolint:gocognit // binding, fallback and required checks share the loop state
func matchFlags(flags []*Flag, pool []FlagToken, scope flagScope) (map[string]any, []FlagToken, []Token, error) {
	pool = append([]FlagToken(nil), pool...)
	used := make([]bool, len(pool))
	bound := make(map[string]any)
	var released []Token

	for _, f := range flags {
		if f.kind == FlagHelp {
			continue
		}

		var items []any
		matched := false
		for i := range pool {
			if used[i] || !f.matches(pool[i]) {
				continue
			}
			v, back, err := bindFlag(f, &pool[i], scope)
			if err != nil {
				return nil, nil, nil, err
			}
			if back != nil {
				released = append(released, *back)
			}
			used[i], matched = true, true
			if f.variant != FlagVariadic {
				bound[f.name] = v
				break
			}
			items = append(items, v)
		}

		if matched {
			if f.variant == FlagVariadic {
				bound[f.name] = collect(items, f.typ, f.handler.parse != nil)
			}
			continue
		}

		v, ok, err := resolveUnbound(f, scope)
		if err != nil {
			return nil, nil, nil, err
		}
		if ok {
			bound[f.name] = v
		}
	}

	var rest []FlagToken
	for i, tok := range pool {
		if !used[i] {
			rest = append(rest, tok)
		}
	}
	return bound, rest, released, nil
}

// bindFlag checks the token against the flag's variant and runs the value
// pipeline. A boolean flag only keeps a looked-ahead value when it reads
// true or false; any other lookahead is handed back.
func bindFlag(f *Flag, tok *FlagToken, scope flagScope) (any, *Token, error) {
	var back *Token
	raw := tok.Value

	switch f.variant {
	case FlagBoolean:
		switch {
		case tok.Explicit:
		case tok.ValueID >= 0 && isBoolLiteral(tok.Value):
		default:
			if t, ok := tok.release(); ok {
				back = &t
			}
			raw = "true"
		}
	default:
		if !tok.hasValue() {
			return nil, nil, flagError(tok.Name(), scope, ErrorTypeMissingValue, nil, "flag %q requires a value", tok.Name())
		}
	}

	v, err := acceptValue(raw, f.typ, f.values, f.handler)
	if err != nil {
		return nil, nil, flagError(tok.Name(), scope, ErrorTypeInvalidValue, err, "flag %q: %v", tok.Name(), err)
	}
	return v, back, nil
}

func isBoolLiteral(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "false"
}

// resolveUnbound applies the environment fallback, the default and the
// required check, in that order.
func resolveUnbound(f *Flag, scope flagScope) (any, bool, error) {
	if name := scope.envName(f); name != "" && scope.lookupEnv != nil {
		if raw, ok := scope.lookupEnv(name); ok {
			v, err := envValue(f, raw)
			if err != nil {
				return nil, false, flagError(name, scope, ErrorTypeInvalidValue, err, "environment variable %s: %v", name, err)
			}
			return v, true, nil
		}
	}
	if f.hasDefault {
		return f.def, true, nil
	}
	if f.required {
		return nil, false, flagError(displayKey(f), scope, ErrorTypeMissingRequired, nil, "required flag %q not set", displayKey(f))
	}
	return nil, false, nil
}

// envValue reads a flag value from the environment. Variadic flags split
// the variable on commas.
func envValue(f *Flag, raw string) (any, error) {
	if f.variant != FlagVariadic {
		return acceptValue(raw, f.typ, f.values, f.handler)
	}
	parts := strings.Split(raw, ",")
	items := make([]any, 0, len(parts))
	for _, p := range parts {
		v, err := acceptValue(strings.TrimSpace(p), f.typ, f.values, f.handler)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return collect(items, f.typ, f.handler.parse != nil), nil
}

// displayKey prefers the long form
func displayKey(f *Flag) string {
	keys := f.Keys()
	return keys[len(keys)-1]
}

func flagError(key string, scope flagScope, typ ErrorType, cause error, format string, a ...any) *ParseError {
	return &ParseError{
		Type:    typ,
		Message: fmt.Sprintf(format, a...),
		Command: scope.command,
		Flag:    key,
		Cause:   cause,
	}
}
