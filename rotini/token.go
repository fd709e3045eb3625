package rotini

import (
	"regexp"
	"slices"
	"strings"
)

// Token is one process argument and its position in the original list
type Token struct {
	ID    int
	Value string
}

func newTokens(args []string) []Token {
	tokens := make([]Token, len(args))
	for i, a := range args {
		tokens[i] = Token{ID: i, Value: a}
	}
	return tokens
}

// flagShaped reports whether the token looks like a flag. A lone "-" is a
// value, by the usual convention for stdin.
func (t Token) flagShaped() bool {
	return len(t.Value) > 1 && t.Value[0] == '-'
}

// FlagToken is a recognized flag form. Value comes either from "=value"
// (Explicit) or from the following token (ValueID >= 0).
type FlagToken struct {
	ID       int
	Raw      string
	Dashes   int
	Key      string
	Value    string
	Explicit bool
	ValueID  int
}

// hasValue reports whether the token carries a value in either form
func (f FlagToken) hasValue() bool { return f.Explicit || f.ValueID >= 0 }

// Name returns the dashes and key without any "=value" part
func (f FlagToken) Name() string { return strings.Repeat("-", f.Dashes) + f.Key }

// tokens returns the original tokens the flag token was built from
func (f FlagToken) tokens() []Token {
	out := []Token{{ID: f.ID, Value: f.Raw}}
	if f.ValueID >= 0 {
		out = append(out, Token{ID: f.ValueID, Value: f.Value})
	}
	return out
}

// release drops a looked-ahead value and returns it as a plain token
func (f *FlagToken) release() (Token, bool) {
	if f.ValueID < 0 {
		return Token{}, false
	}
	t := Token{ID: f.ValueID, Value: f.Value}
	f.ValueID, f.Value = -1, ""
	return t, true
}

var flagPattern = regexp.MustCompile(`^(-{1,2})([^-=\s][^=\s]*)(?:=(.*))?$`)

// tokenizeFlags splits tokens into recognized flag forms and everything else.
// "--key" and "-key" take the next token as their value unless it is
// flag-shaped or absent.
func tokenizeFlags(tokens []Token) ([]FlagToken, []Token) {
	var flags []FlagToken
	var rest []Token

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		m := flagPattern.FindStringSubmatch(tok.Value)
		if m == nil {
			rest = append(rest, tok)
			continue
		}

		ft := FlagToken{
			ID:      tok.ID,
			Raw:     tok.Value,
			Dashes:  len(m[1]),
			Key:     m[2],
			ValueID: -1,
		}
		if strings.Contains(tok.Value, "=") {
			ft.Value, ft.Explicit = m[3], true
		} else if i+1 < len(tokens) && !tokens[i+1].flagShaped() {
			i++
			ft.Value, ft.ValueID = tokens[i].Value, tokens[i].ID
		}
		flags = append(flags, ft)
	}
	return flags, rest
}

// remainder flattens leftover flag tokens and plain tokens back into the
// original order.
func remainder(flags []FlagToken, rest []Token) []Token {
	out := append([]Token(nil), rest...)
	for _, f := range flags {
		out = append(out, f.tokens()...)
	}
	slices.SortFunc(out, func(a, b Token) int { return a.ID - b.ID })
	return out
}

func tokenValues(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Value
	}
	return out
}
