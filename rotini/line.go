package rotini

import (
	"context"

	"github.com/google/shlex"
)

// SplitCommandLine splits a command line into arguments using shell-like
// quoting rules. It does not expand variables or globs.
func SplitCommandLine(line string) ([]string, error) {
	return shlex.Split(line)
}

// RunLine splits line and runs it
func (p *Program) RunLine(ctx context.Context, line string) (*OperationResult, error) {
	args, err := SplitCommandLine(line)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, args)
}
