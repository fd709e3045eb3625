// Package middleware provides composable wrappers around rotini operation handlers.
// Built-ins: Logger, Recovery, and the Timeout race used by the operation executor.
package middleware

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// This package defines middleware against the Invocation interface to avoid
// import cycles. *rotini.Input satisfies it.

// Invocation describes the parsed invocation a handler runs for.
type Invocation interface {
	// Context returns the context the program was run with.
	Context() context.Context

	// CommandPath returns the matched command names joined by spaces,
	// e.g. "order pizza".
	CommandPath() string

	// Set stores a key/value pair for later middleware or the handler.
	// Keys should be namespaced (e.g. "logger.invocation_id").
	Set(key string, value any)

	// Get retrieves a value previously stored via Set, or nil.
	Get(key string) any
}

// ActionFunc is the handler signature middleware wraps. The returned value
// becomes the program's output.
type ActionFunc func(inv Invocation) (any, error)

// Middleware defines the middleware function signature
type Middleware func(next ActionFunc) ActionFunc

// MiddlewareChain represents a chain of middleware functions
type MiddlewareChain []Middleware

// Apply applies the middleware chain to an ActionFunc. The first middleware
// in the chain is the outermost.
func (chain MiddlewareChain) Apply(action ActionFunc) ActionFunc {
	for i := len(chain) - 1; i >= 0; i-- {
		action = chain[i](action)
	}
	return action
}

// Use returns a new chain with the provided middleware appended.
func (chain MiddlewareChain) Use(middleware ...Middleware) MiddlewareChain {
	out := make(MiddlewareChain, 0, len(chain)+len(middleware))
	out = append(out, chain...)
	return append(out, middleware...)
}

// Chain creates a new middleware chain from the provided middleware, preserving
// order.
func Chain(middleware ...Middleware) MiddlewareChain {
	return MiddlewareChain(middleware)
}

// TimeoutError is reported when a handler loses the race against its timer
type TimeoutError struct {
	Duration time.Duration
	Command  string
}

func (e *TimeoutError) Error() string {
	return "command '" + e.Command + "' timed out after " + e.Duration.String()
}

// RecoveryError represents a recovered handler panic
type RecoveryError struct {
	Panic   any
	Command string
	Stack   []byte
}

func (e *RecoveryError) Error() string {
	return "command '" + e.Command + "' panicked: " + toString(e.Panic)
}

// Unwrap exposes a panicked error value.
func (e *RecoveryError) Unwrap() error {
	err, _ := e.Panic.(error)
	return err
}

// DefaultTimeout bounds a handler when its operation declares no timeout.
const DefaultTimeout = 300000 * time.Millisecond

// MiddlewareConfig contains configuration for middleware behavior
type MiddlewareConfig struct {
	PrintStack     bool
	StackSize      int
	StackOutput    io.Writer
	DefaultTimeout time.Duration
}

// MiddlewareOption configures built-in middleware
type MiddlewareOption func(config *MiddlewareConfig)

// DefaultConfig returns the configuration built-ins start from
func DefaultConfig() *MiddlewareConfig {
	return &MiddlewareConfig{
		PrintStack:     false,
		StackSize:      4096,
		StackOutput:    os.Stderr,
		DefaultTimeout: DefaultTimeout,
	}
}

func WithTimeout(timeout time.Duration) MiddlewareOption {
	return func(config *MiddlewareConfig) {
		config.DefaultTimeout = timeout
	}
}

func WithStackTrace(enabled bool) MiddlewareOption {
	return func(config *MiddlewareConfig) {
		config.PrintStack = enabled
	}
}

func WithStackOutput(w io.Writer) MiddlewareOption {
	return func(config *MiddlewareConfig) {
		config.StackOutput = w
	}
}

func toString(v any) string {
	switch p := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return p
	case error:
		return p.Error()
	default:
		return fmt.Sprint(p)
	}
}

func getCommandName(inv Invocation) string {
	if inv == nil || inv.CommandPath() == "" {
		return "unknown"
	}
	return inv.CommandPath()
}
