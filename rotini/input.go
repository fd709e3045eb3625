package rotini

import (
	"context"
	"sync"

	"github.com/matthewgetz/rotini-sub000/configfile"
	"github.com/matthewgetz/rotini-sub000/middleware"
)

// Frame is one matched level of the command path
type Frame struct {
	Command   *Command
	Arguments map[string]any
	Flags     map[string]any
}

// ParseResult is the outcome of matching tokens against the command tree
type ParseResult struct {
	Frames      []*Frame
	GlobalFlags map[string]any

	// Unmatched holds leftover tokens when strict matching is off
	Unmatched []Token
}

// Command returns the deepest matched command, or nil
func (r *ParseResult) Command() *Command {
	if len(r.Frames) == 0 {
		return nil
	}
	return r.Frames[len(r.Frames)-1].Command
}

// Path returns the matched command names, space separated
func (r *ParseResult) Path() string {
	if c := r.Command(); c != nil {
		return c.path
	}
	return ""
}

// CommandInput is what a handler sees of one matched command
type CommandInput struct {
	Name      string
	Arguments map[string]any
	Flags     map[string]any
}

// Input is passed to every handler and hook of an operation
type Input struct {
	Commands    []CommandInput
	GlobalFlags map[string]any

	ctx   context.Context
	path  string
	files *configfile.Registry

	// a handler that lost its timeout race may still touch these
	mu       sync.Mutex
	metadata map[string]any
	failure  error
}

var _ middleware.Invocation = (*Input)(nil)

func newInput(ctx context.Context, result *ParseResult, files *configfile.Registry) *Input {
	in := &Input{
		GlobalFlags: result.GlobalFlags,
		ctx:         ctx,
		path:        result.Path(),
		metadata:    make(map[string]any),
		files:       files,
	}
	for _, f := range result.Frames {
		in.Commands = append(in.Commands, CommandInput{
			Name:      f.Command.name,
			Arguments: f.Arguments,
			Flags:     f.Flags,
		})
	}
	return in
}

// Context returns the context the program was run with
func (in *Input) Context() context.Context {
	if in.ctx == nil {
		return context.Background()
	}
	return in.ctx
}

// CommandPath returns the matched command names, e.g. "order pizza"
func (in *Input) CommandPath() string { return in.path }

// Set stores a metadata value. It is safe for concurrent use.
func (in *Input) Set(key string, value any) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.metadata[key] = value
}

// Get returns a metadata value, or nil. It is safe for concurrent use.
func (in *Input) Get(key string) any {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.metadata[key]
}

// Command returns the input of the command named name, matching the last
// frame with that name.
func (in *Input) Command(name string) (CommandInput, bool) {
	for i := len(in.Commands) - 1; i >= 0; i-- {
		if in.Commands[i].Name == name {
			return in.Commands[i], true
		}
	}
	return CommandInput{}, false
}

// Leaf returns the input of the deepest matched command
func (in *Input) Leaf() CommandInput {
	if len(in.Commands) == 0 {
		return CommandInput{}
	}
	return in.Commands[len(in.Commands)-1]
}

// Failure returns the handler error while a failure or timeout hook runs
func (in *Input) Failure() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.failure
}

func (in *Input) setFailure(err error) {
	in.mu.Lock()
	in.failure = err
	in.mu.Unlock()
}

// ConfigurationFile returns the registered configuration file with the given id
func (in *Input) ConfigurationFile(id string) (*configfile.File, error) {
	if in.files == nil {
		return nil, &configfile.UnknownFileError{ID: id}
	}
	return in.files.Get(id)
}
