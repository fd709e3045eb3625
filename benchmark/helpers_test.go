package benchmark_test

import (
	"context"
	"io"
	"testing"

	rotiniio "github.com/matthewgetz/rotini-sub000/io"
	"github.com/matthewgetz/rotini-sub000/rotini"
)

func noop(context.Context, *rotini.Input) (any, error) { return nil, nil }

func quietIO() *rotiniio.IOManager {
	return rotiniio.New().WithOut(io.Discard).WithErr(io.Discard).NoColor()
}

func mustProgram(b *testing.B, def rotini.ProgramDefinition, opts ...rotini.Option) *rotini.Program {
	b.Helper()
	p, err := rotini.New(def, append([]rotini.Option{rotini.WithIO(quietIO())}, opts...)...)
	if err != nil {
		b.Fatal(err)
	}
	return p
}
