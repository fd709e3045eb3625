//nolint:testpackage // using package name 'rotini' to access unexported fields for testing
package rotini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/shlex"
)

func TestTokenizeFlags(t *testing.T) {
	tokens := newTokens([]string{"--type=veggie", "-t", "cheese", "plain", "--verbose", "--size", "-", "--bad=", "--", "-x", "-y"})
	flags, rest := tokenizeFlags(tokens)

	want := []FlagToken{
		{ID: 0, Raw: "--type=veggie", Dashes: 2, Key: "type", Value: "veggie", Explicit: true, ValueID: -1},
		{ID: 1, Raw: "-t", Dashes: 1, Key: "t", Value: "cheese", ValueID: 2},
		{ID: 4, Raw: "--verbose", Dashes: 2, Key: "verbose", ValueID: -1},
		{ID: 5, Raw: "--size", Dashes: 2, Key: "size", Value: "-", ValueID: 6},
		{ID: 7, Raw: "--bad=", Dashes: 2, Key: "bad", Value: "", Explicit: true, ValueID: -1},
		{ID: 9, Raw: "-x", Dashes: 1, Key: "x", ValueID: -1},
		{ID: 10, Raw: "-y", Dashes: 1, Key: "y", ValueID: -1},
	}
	if diff := cmp.Diff(want, flags); diff != "" {
		t.Errorf("flag tokens mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Token{{ID: 3, Value: "plain"}, {ID: 8, Value: "--"}}, rest); diff != "" {
		t.Errorf("rest mismatch (-want +got):\n%s", diff)
	}

	// flattening restores the original order and values
	if diff := cmp.Diff(tokens, remainder(flags, rest)); diff != "" {
		t.Errorf("remainder mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderPizzaScenario(t *testing.T) {
	p, _ := newPizza(t)
	res, err := p.Parse([]string{"order", "3", "pizza", "--type", "veggie"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(res.Frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(res.Frames))
	}
	if diff := cmp.Diff(map[string]any{"amount": 3.0}, res.Frames[0].Arguments); diff != "" {
		t.Errorf("order arguments mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"type": "veggie"}, res.Frames[1].Flags); diff != "" {
		t.Errorf("pizza flags mismatch (-want +got):\n%s", diff)
	}
	if got := res.Path(); got != "order pizza" {
		t.Errorf("Path() = %q", got)
	}
	if len(res.Unmatched) != 0 || len(res.GlobalFlags) != 0 {
		t.Errorf("Unmatched = %v, GlobalFlags = %v", res.Unmatched, res.GlobalFlags)
	}
}

func TestUnknownCommandScenario(t *testing.T) {
	p, err := New(ProgramDefinition{
		Name: "p", Description: "d", Version: "0.1.0",
		Commands: []CommandDefinition{
			{Name: "order", Description: "d"},
			{Name: "list", Description: "d"},
			{Name: "delete", Description: "d"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.Parse([]string{"foo"})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse() error = %v, want *ParseError", err)
	}
	if perr.Type != ErrorTypeUnknownCommand {
		t.Errorf("Type = %s", perr.Type)
	}
	if diff := cmp.Diff([]string{"foo"}, perr.Unmatched); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"order"}, perr.Suggestions); diff != "" {
		t.Errorf("Suggestions mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(perr.Help, "Commands:") {
		t.Errorf("Help = %q, want program help", perr.Help)
	}
}

func TestAliasMatches(t *testing.T) {
	p, _ := newPizza(t)
	res, err := p.Parse([]string{"o", "2", "pizza"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := res.Command().Path(); got != "order pizza" {
		t.Errorf("Path() = %q", got)
	}
}

func TestArgumentErrors(t *testing.T) {
	p, _ := newPizza(t)
	tests := []struct {
		name    string
		args    []string
		typ     ErrorType
		command string
		help    string
	}{
		{"missing value", []string{"order"}, ErrorTypeMissingValue, "order", "Order food\n"},
		{"flag-shaped value", []string{"order", "--type"}, ErrorTypeInvalidArgument, "order", "Order food\n"},
		{"not a number", []string{"order", "three", "pizza"}, ErrorTypeInvalidArgument, "order", "Order food\n"},
		{"variadic starts with flag", []string{"delete", "--force"}, ErrorTypeInvalidArgument, "delete", "Delete orders\n"},
		{"variadic empty", []string{"delete"}, ErrorTypeMissingValue, "delete", "Delete orders\n"},
		{"variadic bad element", []string{"delete", "1", "x"}, ErrorTypeInvalidArgument, "delete", "Delete orders\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.args)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse(%v) error = %v, want *ParseError", tt.args, err)
			}
			if perr.Type != tt.typ {
				t.Errorf("Type = %s, want %s (%v)", perr.Type, tt.typ, perr)
			}
			if perr.Argument == "" {
				t.Errorf("Argument is empty")
			}
			if perr.Command != tt.command {
				t.Errorf("Command = %q, want %q", perr.Command, tt.command)
			}
			if !strings.HasPrefix(perr.Help, tt.help) {
				t.Errorf("Help = %q, want it to start with %q", perr.Help, tt.help)
			}
		})
	}
}

func TestFlagErrorsNameDeclaringCommand(t *testing.T) {
	def := ProgramDefinition{
		Name:        "deploy",
		Description: "Deploy things",
		Version:     "0.1.0",
		Commands: []CommandDefinition{{
			Name:        "env",
			Description: "Pick an environment",
			Flags: []FlagDefinition{
				{Name: "region", Description: "target region", Variant: FlagValue, LongKey: "region", Required: true},
			},
			Commands: []CommandDefinition{{
				Name:        "push",
				Description: "Push a release",
				Flags: []FlagDefinition{
					{Name: "tag", Description: "release tag", Variant: FlagValue, LongKey: "tag"},
				},
				Operation: &OperationDefinition{Handler: func(context.Context, *Input) (any, error) { return nil, nil }},
			}},
		}},
	}
	p, err := New(def, WithIO(newTestIO("").io))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name    string
		args    []string
		typ     ErrorType
		command string
		help    string
	}{
		{"root frame required", []string{"env", "push", "--tag", "v1"}, ErrorTypeMissingRequired, "env", "Pick an environment\n"},
		{"leaf frame missing value", []string{"env", "push", "--region", "eu", "--tag"}, ErrorTypeMissingValue, "env push", "Push a release\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.args)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse(%v) error = %v, want *ParseError", tt.args, err)
			}
			if perr.Type != tt.typ {
				t.Errorf("Type = %s, want %s (%v)", perr.Type, tt.typ, perr)
			}
			if perr.Command != tt.command {
				t.Errorf("Command = %q, want %q", perr.Command, tt.command)
			}
			if !strings.HasPrefix(perr.Help, tt.help) {
				t.Errorf("Help = %q, want it to start with %q", perr.Help, tt.help)
			}
		})
	}
}

func TestVariadicBoundary(t *testing.T) {
	p, _ := newPizza(t)
	tests := []struct {
		name    string
		args    []string
		items   []string
		path    string
		globals map[string]any
	}{
		{"stream end", []string{"batch", "a", "b"}, []string{"a", "b"}, "batch", map[string]any{}},
		{"stops at subcommand", []string{"batch", "a", "b", "run"}, []string{"a", "b"}, "batch run", map[string]any{}},
		{"stops at flag", []string{"batch", "a", "--verbose"}, []string{"a"}, "batch", map[string]any{"verbose": true}},
		{"first token is never a boundary", []string{"batch", "run"}, []string{"run"}, "batch", map[string]any{}},
		{"subcommand after first value", []string{"batch", "run", "run"}, []string{"run"}, "batch run", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Parse(tt.args)
			if err != nil {
				t.Fatalf("Parse(%v) error = %v", tt.args, err)
			}
			if diff := cmp.Diff(tt.items, res.Frames[0].Arguments["items"]); diff != "" {
				t.Errorf("items mismatch (-want +got):\n%s", diff)
			}
			if got := res.Path(); got != tt.path {
				t.Errorf("Path() = %q, want %q", got, tt.path)
			}
			if diff := cmp.Diff(tt.globals, res.GlobalFlags); diff != "" {
				t.Errorf("globals mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVariadicParserKeepsValues(t *testing.T) {
	p, err := New(ProgramDefinition{
		Name: "p", Description: "d", Version: "1.0.0",
		Commands: []CommandDefinition{{
			Name: "sum", Description: "d",
			Arguments: []ArgumentDefinition{{
				Name: "n", Description: "d", Variant: ArgumentVariadic, Type: TypeNumberArray,
				Parser: func(v Value) (any, error) { return int(v.Coerced.(float64)) * 10, nil },
			}},
		}},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := p.Parse([]string{"sum", "1", "2"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff([]any{10, 20}, res.Frames[0].Arguments["n"]); diff != "" {
		t.Errorf("parsed values mismatch (-want +got):\n%s", diff)
	}
}

func TestFlagBinding(t *testing.T) {
	p, _ := newPizza(t)
	tests := []struct {
		name    string
		args    []string
		flags   map[string]any
		globals map[string]any
	}{
		{"default applies", []string{"order", "1", "pizza"}, map[string]any{"type": "cheese"}, map[string]any{}},
		{"explicit overrides default", []string{"order", "1", "pizza", "--type=veggie"}, map[string]any{"type": "veggie"}, map[string]any{}},
		{"short key with lookahead", []string{"order", "1", "pizza", "-t", "pepperoni"}, map[string]any{"type": "pepperoni"}, map[string]any{}},
		{"variadic collects in order", []string{"order", "1", "pizza", "--topping", "olive", "--topping=basil"},
			map[string]any{"type": "cheese", "topping": []string{"olive", "basil"}}, map[string]any{}},
		{"number flag", []string{"order", "1", "pizza", "--size", "12"}, map[string]any{"type": "cheese", "size": 12.0}, map[string]any{}},
		{"boolean implicit true", []string{"order", "1", "pizza", "-V"}, map[string]any{"type": "cheese"}, map[string]any{"verbose": true}},
		{"boolean explicit false", []string{"order", "1", "pizza", "--verbose=false"}, map[string]any{"type": "cheese"}, map[string]any{"verbose": false}},
		{"boolean lookahead literal", []string{"order", "1", "pizza", "--verbose", "false"}, map[string]any{"type": "cheese"}, map[string]any{"verbose": false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Parse(tt.args)
			if err != nil {
				t.Fatalf("Parse(%v) error = %v", tt.args, err)
			}
			if diff := cmp.Diff(tt.flags, res.Frames[1].Flags); diff != "" {
				t.Errorf("flags mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.globals, res.GlobalFlags); diff != "" {
				t.Errorf("globals mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFlagErrors(t *testing.T) {
	p, _ := newPizza(t)
	tests := []struct {
		name string
		args []string
		typ  ErrorType
		flag string
	}{
		{"value flag without value", []string{"order", "1", "pizza", "--type"}, ErrorTypeMissingValue, "--type"},
		{"value not allowed", []string{"order", "1", "pizza", "--type", "hawaiian"}, ErrorTypeInvalidValue, "--type"},
		{"number flag not a number", []string{"order", "1", "pizza", "--size=big"}, ErrorTypeInvalidValue, "--size"},
		{"boolean with non-boolean value", []string{"order", "1", "pizza", "--verbose=maybe"}, ErrorTypeInvalidValue, "--verbose"},
		{"required flag missing", []string{"list"}, ErrorTypeMissingRequired, "--status"},
		{"long key with one dash", []string{"order", "1", "pizza", "-type", "veggie"}, ErrorTypeUnknownFlag, "-type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.args)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse(%v) error = %v, want *ParseError", tt.args, err)
			}
			if perr.Type != tt.typ || perr.Flag != tt.flag {
				t.Errorf("error = %s %q, want %s %q (%v)", perr.Type, perr.Flag, tt.typ, tt.flag, perr)
			}
		})
	}
}

func TestRequiredSatisfied(t *testing.T) {
	p, _ := newPizza(t)
	res, err := p.Parse([]string{"list", "--status", "open"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := res.Frames[0].Flags["status"]; got != "open" {
		t.Errorf("status = %v", got)
	}
}

func TestEnvironmentFallback(t *testing.T) {
	t.Setenv("PIZZA_STATUS", "closed")
	t.Setenv("PIZZA_TOPPING", "olive, basil")
	p, _ := newPizza(t, WithEnvPrefix("pizza"))

	res, err := p.Parse([]string{"list"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := res.Frames[0].Flags["status"]; got != "closed" {
		t.Errorf("status from env = %v, want closed", got)
	}

	res, err = p.Parse([]string{"list", "--status=open"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := res.Frames[0].Flags["status"]; got != "open" {
		t.Errorf("explicit status = %v, want open", got)
	}

	res, err = p.Parse([]string{"order", "1", "pizza"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff([]string{"olive", "basil"}, res.Frames[1].Flags["topping"]); diff != "" {
		t.Errorf("topping from env mismatch (-want +got):\n%s", diff)
	}

	t.Setenv("PIZZA_TYPE", "hawaiian")
	if _, err := p.Parse([]string{"order", "1", "pizza"}); err == nil {
		t.Error("Parse() with disallowed env value succeeded")
	}
}

func TestStrictUnmatchedListsExactly(t *testing.T) {
	p, _ := newPizza(t)
	_, err := p.Parse([]string{"order", "3", "pizza", "extra", "--bogus", "1", "--type", "veggie"})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse() error = %v, want *ParseError", err)
	}
	if perr.Type != ErrorTypeUnknownCommand {
		t.Errorf("Type = %s", perr.Type)
	}
	if diff := cmp.Diff([]string{"extra", "--bogus", "1"}, perr.Unmatched); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}
	if perr.Command != "order pizza" {
		t.Errorf("Command = %q", perr.Command)
	}
}

func TestUnknownFlagSuggestion(t *testing.T) {
	p, _ := newPizza(t)
	_, err := p.Parse([]string{"order", "3", "pizza", "--tpye", "veggie"})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse() error = %v, want *ParseError", err)
	}
	if perr.Type != ErrorTypeUnknownFlag || perr.Flag != "--tpye" {
		t.Errorf("error = %s %q", perr.Type, perr.Flag)
	}
	if diff := cmp.Diff([]string{"--tpye", "veggie"}, perr.Unmatched); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}
	if len(perr.Suggestions) == 0 || perr.Suggestions[0] != "--type" {
		t.Errorf("Suggestions = %v, want --type first", perr.Suggestions)
	}
}

func TestBooleanLookaheadIsReleased(t *testing.T) {
	p, _ := newPizza(t)
	_, err := p.Parse([]string{"order", "3", "pizza", "--verbose", "extra"})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse() error = %v, want *ParseError", err)
	}
	if diff := cmp.Diff([]string{"extra"}, perr.Unmatched); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}
}

func TestScalarFlagBindsFirstMatch(t *testing.T) {
	p, _ := newPizza(t, WithStrictFlags(false))
	res, err := p.Parse([]string{"order", "3", "pizza", "--type", "veggie", "--type", "cheese"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := res.Frames[1].Flags["type"]; got != "veggie" {
		t.Errorf("type = %v, want veggie", got)
	}
	want := []Token{{ID: 5, Value: "--type"}, {ID: 6, Value: "cheese"}}
	if diff := cmp.Diff(want, res.Unmatched); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}
}

func TestLenientUnmatched(t *testing.T) {
	p, _ := newPizza(t, WithStrictCommands(false), WithStrictFlags(false))
	res, err := p.Parse([]string{"order", "3", "pizza", "extra", "--bogus"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []Token{{ID: 3, Value: "extra"}, {ID: 4, Value: "--bogus"}}
	if diff := cmp.Diff(want, res.Unmatched); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}

	// strict flags alone still rejects a leftover flag
	strict, _ := newPizza(t, WithStrictCommands(false))
	if _, err := strict.Parse([]string{"order", "3", "pizza", "--bogus"}); err == nil {
		t.Error("Parse() with strict flags accepted --bogus")
	}
	if _, err := strict.Parse([]string{"order", "3", "pizza", "extra"}); err != nil {
		t.Errorf("Parse() with lenient commands error = %v", err)
	}
}

func TestHelpRequests(t *testing.T) {
	p, _ := newPizza(t)
	tests := []struct {
		name string
		args []string
		path string
	}{
		{"in argument position", []string{"order", "-h"}, "order"},
		{"after arguments", []string{"order", "3", "-h"}, "order"},
		{"leaf", []string{"order", "3", "pizza", "--help"}, "order pizza"},
		{"inside variadic run", []string{"batch", "a", "--help"}, "batch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.args)
			var help *HelpRequestedError
			if !errors.As(err, &help) {
				t.Fatalf("Parse(%v) error = %v, want *HelpRequestedError", tt.args, err)
			}
			if help.Command.Path() != tt.path {
				t.Errorf("help for %q, want %q", help.Command.Path(), tt.path)
			}
			if !errors.Is(err, ErrHelpShown) {
				t.Error("help request does not match ErrHelpShown")
			}
		})
	}
}

func TestRoundTripCommandLine(t *testing.T) {
	p, _ := newPizza(t)
	tests := []struct {
		line string
		path string
	}{
		{`order 3 pizza --type veggie --topping "extra cheese"`, "order pizza"},
		{`o 1.5 pizza -t=cheese`, "order pizza"},
		{`list --status 'on the way'`, "list"},
		{`delete 1 2 3 --force`, "delete"},
		{`batch "first item" second run`, "batch run"},
		{`legacy`, "legacy"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			args, err := shlex.Split(tt.line)
			if err != nil {
				t.Fatalf("shlex.Split() error = %v", err)
			}
			res, err := p.Parse(args)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", args, err)
			}
			if got := res.Path(); got != tt.path {
				t.Errorf("Path() = %q, want %q", got, tt.path)
			}
		})
	}

	res, err := p.Parse(mustSplit(t, `order 3 pizza --topping "extra cheese"`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff([]string{"extra cheese"}, res.Frames[1].Flags["topping"]); diff != "" {
		t.Errorf("quoted value mismatch (-want +got):\n%s", diff)
	}
}

func mustSplit(t *testing.T, line string) []string {
	t.Helper()
	args, err := SplitCommandLine(line)
	if err != nil {
		t.Fatalf("SplitCommandLine(%q) error = %v", line, err)
	}
	return args
}
