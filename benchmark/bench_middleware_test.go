package benchmark_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	mw "github.com/matthewgetz/rotini-sub000/middleware"
	"github.com/matthewgetz/rotini-sub000/rotini"
)

// Category: middleware

func BenchmarkMiddlewareChain(b *testing.B) {
	p := mustProgram(b, rotini.ProgramDefinition{
		Name: "bench", Description: "bench", Version: "1.0.0",
		Commands: []rotini.CommandDefinition{{
			Name: "bake", Description: "bake",
			Operation: &rotini.OperationDefinition{Timeout: 10, Handler: noop},
		}},
	})
	p.Use(mw.Logger(slog.LevelInfo), mw.Recovery(), mw.TimeoutWithDefault(mw.WithTimeout(time.Second)))

	args := []string{"bake"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Run(context.Background(), args)
	}
}

type invocation struct{ meta map[string]any }

func (i *invocation) Context() context.Context  { return context.Background() }
func (i *invocation) CommandPath() string       { return "bake" }
func (i *invocation) Set(key string, value any) { i.meta[key] = value }
func (i *invocation) Get(key string) any        { return i.meta[key] }

func BenchmarkTimeoutRace(b *testing.B) {
	action := mw.Chain(mw.Timeout(time.Second), mw.Recovery()).Apply(func(mw.Invocation) (any, error) {
		return "done", nil
	})
	inv := &invocation{meta: map[string]any{}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = action(inv)
	}
}
