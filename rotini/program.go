package rotini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matthewgetz/rotini-sub000/configfile"
	"github.com/matthewgetz/rotini-sub000/internal/ctxlog"
	"github.com/matthewgetz/rotini-sub000/internal/fuzzy"
	"github.com/matthewgetz/rotini-sub000/internal/pool"
	rotiniio "github.com/matthewgetz/rotini-sub000/io"
	"github.com/matthewgetz/rotini-sub000/middleware"
)

// ProgramDefinition is the raw description of a whole program
type ProgramDefinition struct {
	Name               string                  `yaml:"name" toml:"name" json:"name"`
	Description        string                  `yaml:"description" toml:"description" json:"description"`
	Version            string                  `yaml:"version" toml:"version" json:"version"`
	Commands           []CommandDefinition     `yaml:"commands,omitempty" toml:"commands,omitempty" json:"commands,omitempty"`
	GlobalFlags        []FlagDefinition        `yaml:"global_flags,omitempty" toml:"global_flags,omitempty" json:"global_flags,omitempty"`
	PositionalFlags    []FlagDefinition        `yaml:"positional_flags,omitempty" toml:"positional_flags,omitempty" json:"positional_flags,omitempty"`
	ConfigurationFiles []configfile.Definition `yaml:"configuration_files,omitempty" toml:"configuration_files,omitempty" json:"configuration_files,omitempty"`
}

// Updater backs the update positional flag
type Updater interface {
	// LatestVersion returns the newest available version
	LatestVersion(ctx context.Context) (string, error)
	// Update installs version
	Update(ctx context.Context, version string) error
}

// Program is a validated definition ready to run
type Program struct {
	name            string
	description     string
	version         *semver.Version
	commands        []*Command
	globalFlags     []*Flag
	positionalFlags []*Flag
	files           *configfile.Registry

	strictCommands bool
	strictFlags    bool
	envPrefix      string
	lookupEnv      func(string) (string, bool)

	io         *rotiniio.IOManager
	log        *rotiniio.Logger
	slog       *slog.Logger
	middleware middleware.MiddlewareChain
	updater    Updater
	errors     *ErrorHandler
	exitCodes  *ExitCodeManager
}

// Option configures a Program
type Option func(p *Program)

// WithStrictCommands makes leftover positional tokens an error (default on)
func WithStrictCommands(strict bool) Option {
	return func(p *Program) { p.strictCommands = strict }
}

// WithStrictFlags makes leftover flag tokens an error (default on)
func WithStrictFlags(strict bool) Option {
	return func(p *Program) { p.strictFlags = strict }
}

// WithIO sets the streams the program reads and writes
func WithIO(io *rotiniio.IOManager) Option {
	return func(p *Program) { p.io = io }
}

// WithLogger sets the structured logger handlers find in their context
func WithLogger(logger *slog.Logger) Option {
	return func(p *Program) { p.slog = logger }
}

// WithMiddleware appends middleware around every handler
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(p *Program) { p.middleware = p.middleware.Use(mw...) }
}

// WithUpdater adds the -u/--update positional flag
func WithUpdater(u Updater) Option {
	return func(p *Program) { p.updater = u }
}

// WithEnvPrefix lets unbound flags read PREFIX_FLAG_NAME from the environment
func WithEnvPrefix(prefix string) Option {
	return func(p *Program) { p.envPrefix = prefix }
}

// New validates def strictly and builds the program
//
//nolint:funlen // builds each part of the program in turn
func New(def ProgramDefinition, opts ...Option) (*Program, error) {
	const entity = "Program"

	p := &Program{
		name:           def.Name,
		description:    def.Description,
		strictCommands: true,
		strictFlags:    true,
		lookupEnv:      os.LookupEnv,
		io:             rotiniio.New(),
		middleware:     middleware.Chain(middleware.Logger(slog.LevelDebug)),
		exitCodes:      newExitCodeManager(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.slog == nil {
		p.slog = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p.log = rotiniio.NewLogger(p.io)
	p.errors = NewErrorHandler(p.io)

	if err := checkName(entity, def.Name, "name", def.Name); err != nil {
		return nil, err
	}
	if err := checkDescription(entity, def.Name, def.Description); err != nil {
		return nil, err
	}
	v, err := semver.NewVersion(def.Version)
	if err != nil {
		return nil, definitionError(entity, def.Name, "version", "%q is not a semantic version: %v", def.Version, err)
	}
	p.version = v

	for _, cd := range def.Commands {
		c, err := newCommand(cd, "", true)
		if err != nil {
			return nil, err
		}
		p.commands = append(p.commands, c)
	}
	if err := checkSiblings(p.commands); err != nil {
		return nil, err
	}

	for _, fd := range def.GlobalFlags {
		f, err := newFlag(fd, FlagGlobal, FlagPlain, true)
		if err != nil {
			return nil, err
		}
		p.globalFlags = append(p.globalFlags, f)
	}
	// every command carries the help flag, so global flags may not shadow it
	help, _ := newFlag(helpFlagDefinition, FlagLocal, FlagHelp, false)
	if err := checkFlagSet(entity, def.Name, append([]*Flag{help}, p.globalFlags...)); err != nil {
		return nil, err
	}

	p.positionalFlags = p.builtinPositionalFlags()
	for _, fd := range def.PositionalFlags {
		f, err := newFlag(fd, FlagPositional, FlagPlain, true)
		if err != nil {
			return nil, err
		}
		p.positionalFlags = append(p.positionalFlags, f)
	}
	if err := checkFlagSet(entity, def.Name, p.positionalFlags); err != nil {
		return nil, err
	}

	global := make(map[string]string)
	for _, f := range p.globalFlags {
		for _, k := range f.Keys() {
			global[k] = f.name
		}
	}
	for _, f := range p.positionalFlags {
		for _, k := range f.Keys() {
			if owner, ok := global[k]; ok {
				return nil, definitionError(entity, def.Name, "positional_flags",
					"positional flag %q reuses key %q of global flag %q", f.name, k, owner)
			}
		}
	}

	files, err := configfile.NewRegistry(def.ConfigurationFiles)
	if err != nil {
		var fe *configfile.FieldError
		if errors.As(err, &fe) {
			return nil, definitionError("ConfigurationFile", fe.ID, fe.Field, "%s", fe.Message)
		}
		return nil, err
	}
	p.files = files

	return p, nil
}

// builtinPositionalFlags returns help, version, and update when an updater
// is configured.
func (p *Program) builtinPositionalFlags() []*Flag {
	defs := []FlagDefinition{
		{
			Name:        "help",
			Description: "output the program help",
			ShortKey:    "h",
			LongKey:     "help",
			Operation: func(context.Context, any) (any, error) {
				fmt.Fprint(p.io.Out(), p.ProgramHelp())
				return nil, ErrHelpShown
			},
		},
		{
			Name:        "version",
			Description: "output the program version",
			ShortKey:    "v",
			LongKey:     "version",
			Operation: func(context.Context, any) (any, error) {
				fmt.Fprintln(p.io.Out(), p.version.String())
				return nil, ErrVersionShown
			},
		},
	}
	if p.updater != nil {
		defs = append(defs, FlagDefinition{
			Name:        "update",
			Description: "update the program to the latest version",
			ShortKey:    "u",
			LongKey:     "update",
			Operation: func(ctx context.Context, _ any) (any, error) {
				return p.update(ctx)
			},
		})
	}

	flags := make([]*Flag, 0, len(defs))
	for _, d := range defs {
		kind := FlagPlain
		if d.Name == "help" {
			kind = FlagHelp
		}
		f, _ := newFlag(d, FlagPositional, kind, false)
		flags = append(flags, f)
	}
	return flags
}

func (p *Program) Name() string                { return p.name }
func (p *Program) Description() string         { return p.description }
func (p *Program) Version() string             { return p.version.String() }
func (p *Program) Commands() []*Command        { return p.commands }
func (p *Program) GlobalFlags() []*Flag        { return p.globalFlags }
func (p *Program) PositionalFlags() []*Flag    { return p.positionalFlags }
func (p *Program) IO() *rotiniio.IOManager     { return p.io }
func (p *Program) Logger() *rotiniio.Logger    { return p.log }
func (p *Program) ErrorHandler() *ErrorHandler { return p.errors }

// ExitCodes returns the exit-code manager. Use it to map error types to codes.
func (p *Program) ExitCodes() *ExitCodeManager { return p.exitCodes }

// Use appends middleware around every handler
func (p *Program) Use(mw ...middleware.Middleware) *Program {
	p.middleware = p.middleware.Use(mw...)
	return p
}

// ConfigurationFile returns a registered configuration file
func (p *Program) ConfigurationFile(id string) (*configfile.File, error) {
	return p.files.Get(id)
}

// Parse matches args against the command tree without running anything.
// Commands and their arguments are matched first; the remaining tokens go to
// the flag matcher, each frame's local flags from root to leaf and then the
// global flags.
//
//nolint:gocognit,funlen // the matching pipeline reads best as one sequence
func (p *Program) Parse(args []string) (*ParseResult, error) {
	tokens := newTokens(args)

	frames, rest, err := matchCommands(p.commands, tokens)
	if err != nil {
		return nil, p.decorate(err)
	}
	result := &ParseResult{Frames: frames}

	flagTokens, plain := tokenizeFlags(rest)

	var deepest *Command
	if len(frames) > 0 {
		deepest = frames[len(frames)-1].Command
	}
	for _, ft := range flagTokens {
		if deepest != nil && deepest.helpFlag().matches(ft) {
			return result, &HelpRequestedError{Command: deepest}
		}
	}

	scope := flagScope{envPrefix: p.envPrefix, lookupEnv: p.lookupEnv}
	pool := flagTokens
	for _, frame := range frames {
		scope.command = frame.Command.path
		bound, left, released, err := matchFlags(frame.Command.flags, pool, scope)
		if err != nil {
			return result, p.decorate(err)
		}
		frame.Flags = bound
		pool = left
		plain = append(plain, released...)
	}
	scope.command = result.Path()
	globals, left, released, err := matchFlags(p.globalFlags, pool, scope)
	if err != nil {
		return result, p.decorate(err)
	}
	result.GlobalFlags = globals
	pool = left
	plain = append(plain, released...)

	leftover := remainder(pool, plain)
	if len(leftover) == 0 {
		return result, nil
	}

	commandLeft := len(plain) > 0
	flagLeft := len(pool) > 0
	if (commandLeft && p.strictCommands) || (flagLeft && p.strictFlags) {
		return result, p.unmatchedError(deepest, leftover)
	}
	result.Unmatched = leftover
	return result, nil
}

// unmatchedError describes leftover tokens. The first leftover decides the
// error type and what suggestions are ranked against.
func (p *Program) unmatchedError(deepest *Command, leftover []Token) *ParseError {
	first := leftover[0]
	perr := &ParseError{
		Unmatched: tokenValues(leftover),
		Help:      p.helpFor(deepest),
	}
	if deepest != nil {
		perr.Command = deepest.path
	}

	if !first.flagShaped() {
		candidates := identifiers(p.commands)
		if deepest != nil {
			candidates = deepest.identifiers
		}
		perr.Type = ErrorTypeUnknownCommand
		perr.Message = fmt.Sprintf("unknown command %q", first.Value)
		perr.Suggestions = fuzzy.FindSuggestions(first.Value, candidates, -1)
		return perr
	}

	var candidates []string
	if deepest != nil {
		for _, f := range deepest.flags {
			candidates = append(candidates, f.Keys()...)
		}
	}
	for _, f := range p.globalFlags {
		candidates = append(candidates, f.Keys()...)
	}
	key, _, _ := strings.Cut(first.Value, "=")
	perr.Type = ErrorTypeUnknownFlag
	perr.Flag = key
	perr.Message = fmt.Sprintf("unknown flag %q", key)
	perr.Suggestions = fuzzy.FindSuggestions(key, candidates, -1)
	return perr
}

// decorate attaches the help text of the command the error names, or the
// program help when it names none
func (p *Program) decorate(err error) error {
	var perr *ParseError
	if !errors.As(err, &perr) {
		return err
	}
	if perr.Help == "" {
		var cmd *Command
		if perr.Command != "" {
			cmd = Find(p.commands, strings.Fields(perr.Command)...)
		}
		perr.Help = p.helpFor(cmd)
	}
	return perr
}

// Run parses args and runs the matched operation. A positional flag as the
// first token runs its own operation instead. Help and version requests
// return errors matching ErrHelpShown and ErrVersionShown.
//
//nolint:gocognit,funlen // dispatch covers positional flags, help, force and execution
func (p *Program) Run(ctx context.Context, args []string) (*OperationResult, error) {
	ctx = ctxlog.WithLogger(ctx, p.slog)

	if len(args) == 0 {
		fmt.Fprint(p.io.Out(), p.ProgramHelp())
		return nil, ErrHelpShown
	}

	if f := p.positionalFlag(args[0]); f != nil {
		return p.runPositional(ctx, f, args)
	}

	result, err := p.Parse(args)
	if err != nil {
		var help *HelpRequestedError
		if errors.As(err, &help) {
			fmt.Fprint(p.io.Out(), p.helpFor(help.Command))
		}
		return nil, err
	}

	for _, f := range result.Frames {
		if f.Command.deprecated {
			p.log.Warning("command '%s' is deprecated", f.Command.path)
		}
	}

	cmd := result.Command()
	if cmd == nil || cmd.operation == nil {
		fmt.Fprint(p.io.Out(), p.helpFor(cmd))
		return nil, ErrHelpShown
	}

	leaf := result.Frames[len(result.Frames)-1]
	if cmd.force && leaf.Flags["force"] != true {
		ok, err := p.io.Confirm(fmt.Sprintf("Run '%s %s'?", p.name, cmd.path))
		if err != nil {
			return nil, fmt.Errorf("confirmation for '%s' (pass --force to skip): %w", cmd.path, err)
		}
		if !ok {
			return nil, ErrNotConfirmed
		}
	}

	in := newInput(ctx, result, p.files)
	res, err := cmd.operation.execute(ctx, in, p.middleware)
	if err != nil {
		return res, err
	}
	if err := p.writeOutput(res.Value()); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Program) positionalFlag(arg string) *Flag {
	tok := Token{Value: arg}
	if !tok.flagShaped() {
		return nil
	}
	flags, _ := tokenizeFlags([]Token{tok})
	if len(flags) == 0 {
		return nil
	}
	for _, f := range p.positionalFlags {
		if f.matches(flags[0]) {
			return f
		}
	}
	return nil
}

// runPositional binds the positional flag from the first token and runs its
// operation. Other tokens are leftovers.
func (p *Program) runPositional(ctx context.Context, f *Flag, args []string) (*OperationResult, error) {
	flagTokens, plain := tokenizeFlags(newTokens(args))
	scope := flagScope{command: "", envPrefix: p.envPrefix, lookupEnv: p.lookupEnv}

	v, back, err := bindFlag(f, &flagTokens[0], scope)
	if err != nil {
		return nil, p.decorate(err)
	}
	if back != nil {
		plain = append(plain, *back)
	}

	if leftover := remainder(flagTokens[1:], plain); len(leftover) > 0 {
		if (len(plain) > 0 && p.strictCommands) || (len(flagTokens) > 1 && p.strictFlags) {
			return nil, p.unmatchedError(nil, leftover)
		}
	}

	out, err := f.operation(ctx, v)
	res := &OperationResult{}
	if err != nil {
		return res, err
	}
	res.Handler = &PhaseResult{Value: out}
	if err := p.writeOutput(out); err != nil {
		return res, err
	}
	return res, nil
}

// update asks the updater for the newest version and installs it when it is
// newer than the running one.
func (p *Program) update(ctx context.Context) (any, error) {
	latest, err := p.updater.LatestVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("check for updates: %w", err)
	}
	lv, err := semver.NewVersion(latest)
	if err != nil {
		return nil, fmt.Errorf("latest version %q: %w", latest, err)
	}
	if !lv.GreaterThan(p.version) {
		p.log.Info("%s %s is up to date", p.name, p.version)
		return nil, nil
	}
	if err := p.updater.Update(ctx, lv.String()); err != nil {
		return nil, fmt.Errorf("update to %s: %w", lv, err)
	}
	p.log.Success("updated %s from %s to %s", p.name, p.version, lv)
	return nil, nil
}

// writeOutput prints a handler value: strings as they are, anything else as
// indented JSON.
func (p *Program) writeOutput(v any) error {
	switch out := v.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(p.io.Out(), out)
		return err
	default:
		buf := pool.GetBuffer()
		defer pool.PutBuffer(buf)

		enc := json.NewEncoder(buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		_, err := buf.WriteTo(p.io.Out())
		return err
	}
}

// RunAndGetExitCode runs the program, displays any error, and returns the
// mapped exit code. Useful for embedding in your own main() without os.Exit.
func (p *Program) RunAndGetExitCode(ctx context.Context, args []string) int {
	_, err := p.Run(ctx, args)
	p.errors.Display(err)
	return p.exitCodes.Resolve(err)
}

// RunAndExit runs the program with the process arguments and exits with the
// mapped code.
func (p *Program) RunAndExit() {
	os.Exit(p.RunAndGetExitCode(context.Background(), os.Args[1:]))
}
