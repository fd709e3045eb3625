package rotini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matthewgetz/rotini-sub000/internal/ctxlog"
	"github.com/matthewgetz/rotini-sub000/middleware"
)

// HandlerFunc is the signature of an operation handler and of every hook
// around it. The value a handler returns is the program's output.
type HandlerFunc func(ctx context.Context, in *Input) (any, error)

// OperationDefinition describes what runs when a command is the deepest match.
// Timeout is in milliseconds; zero means DefaultTimeout.
type OperationDefinition struct {
	Timeout int `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty"`

	BeforeHandler    HandlerFunc `yaml:"-" toml:"-" json:"-"`
	Handler          HandlerFunc `yaml:"-" toml:"-" json:"-"`
	AfterHandler     HandlerFunc `yaml:"-" toml:"-" json:"-"`
	OnHandlerSuccess HandlerFunc `yaml:"-" toml:"-" json:"-"`
	OnHandlerFailure HandlerFunc `yaml:"-" toml:"-" json:"-"`
	OnHandlerTimeout HandlerFunc `yaml:"-" toml:"-" json:"-"`
}

// DefaultTimeout bounds a handler whose operation sets no timeout
const DefaultTimeout = middleware.DefaultTimeout

// Phase names one step of the operation lifecycle
type Phase string

const (
	PhaseBeforeHandler    Phase = "before_handler"
	PhaseHandler          Phase = "handler"
	PhaseAfterHandler     Phase = "after_handler"
	PhaseOnHandlerSuccess Phase = "on_handler_success"
	PhaseOnHandlerFailure Phase = "on_handler_failure"
	PhaseOnHandlerTimeout Phase = "on_handler_timeout"
)

// PhaseResult holds the value a phase returned
type PhaseResult struct {
	Value any
}

// OperationResult records the phases that ran. Slots of phases that did not
// run stay nil.
type OperationResult struct {
	BeforeHandler    *PhaseResult
	Handler          *PhaseResult
	AfterHandler     *PhaseResult
	OnHandlerSuccess *PhaseResult
	OnHandlerFailure *PhaseResult
	OnHandlerTimeout *PhaseResult
}

// Value returns the handler's value, or nil when the handler did not settle
func (r *OperationResult) Value() any {
	if r == nil || r.Handler == nil {
		return nil
	}
	return r.Handler.Value
}

// OperationError reports a failed lifecycle phase
type OperationError struct {
	Phase   Phase
	Command string
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("command '%s' %s failed: %v", e.Command, e.Phase, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Operation is a validated operation definition
type Operation struct {
	timeout time.Duration

	before    HandlerFunc
	handler   HandlerFunc
	after     HandlerFunc
	onSuccess HandlerFunc
	onFailure HandlerFunc
	onTimeout HandlerFunc
}

func newOperation(def *OperationDefinition, command string, strict bool) (*Operation, error) {
	const entity = "Operation"

	op := &Operation{
		timeout:   time.Duration(def.Timeout) * time.Millisecond,
		before:    def.BeforeHandler,
		handler:   def.Handler,
		after:     def.AfterHandler,
		onSuccess: def.OnHandlerSuccess,
		onFailure: def.OnHandlerFailure,
		onTimeout: def.OnHandlerTimeout,
	}
	if op.timeout == 0 {
		op.timeout = DefaultTimeout
	}
	if !strict {
		return op, nil
	}

	if def.Timeout < 0 {
		return nil, definitionError(entity, command, "timeout", "must not be negative, got %d", def.Timeout)
	}
	if def.Handler == nil {
		return nil, definitionError(entity, command, "handler", "an operation needs a handler")
	}
	return op, nil
}

// Timeout returns the bound on the handler
func (o *Operation) Timeout() time.Duration { return o.timeout }

// execute runs the lifecycle: before, then the handler raced against the
// timer, then after and success, or failure, or timeout. chain wraps the
// handler inside the timeout race.
func (o *Operation) execute(ctx context.Context, in *Input, chain middleware.MiddlewareChain) (*OperationResult, error) {
	logger := ctxlog.FromContext(ctx).With(slog.String("command", in.CommandPath()))
	res := &OperationResult{}

	if o.before != nil {
		v, err := o.hook(ctx, logger, PhaseBeforeHandler, o.before, in)
		if err != nil {
			return res, &OperationError{Phase: PhaseBeforeHandler, Command: in.CommandPath(), Err: err}
		}
		res.BeforeHandler = &PhaseResult{Value: v}
	}

	action := func(inv middleware.Invocation) (any, error) {
		return o.handler(inv.Context(), in)
	}
	race := middleware.Chain(middleware.Timeout(o.timeout)).
		Use(chain...).
		Use(middleware.Recovery()).
		Apply(action)

	logger.DebugContext(ctx, "phase started", slog.String("phase", string(PhaseHandler)), slog.Duration("timeout", o.timeout))
	v, err := race(in)

	var timeout *middleware.TimeoutError
	switch {
	case err == nil:
		res.Handler = &PhaseResult{Value: v}
	case errors.As(err, &timeout):
		logger.WarnContext(ctx, "handler timed out", slog.Duration("timeout", o.timeout))
		return res, o.settleFailure(ctx, logger, in, res, PhaseOnHandlerTimeout, o.onTimeout, err)
	default:
		return res, o.settleFailure(ctx, logger, in, res, PhaseOnHandlerFailure, o.onFailure, err)
	}

	if o.after != nil {
		v, err := o.hook(ctx, logger, PhaseAfterHandler, o.after, in)
		if err != nil {
			return res, &OperationError{Phase: PhaseAfterHandler, Command: in.CommandPath(), Err: err}
		}
		res.AfterHandler = &PhaseResult{Value: v}
	}
	if o.onSuccess != nil {
		v, err := o.hook(ctx, logger, PhaseOnHandlerSuccess, o.onSuccess, in)
		if err != nil {
			return res, &OperationError{Phase: PhaseOnHandlerSuccess, Command: in.CommandPath(), Err: err}
		}
		res.OnHandlerSuccess = &PhaseResult{Value: v}
	}
	return res, nil
}

// settleFailure runs the failure or timeout hook and returns the handler
// error, joined with the hook's own error if it failed too.
func (o *Operation) settleFailure(ctx context.Context, logger *slog.Logger, in *Input, res *OperationResult,
	phase Phase, fn HandlerFunc, cause error,
) error {
	failure := &OperationError{Phase: PhaseHandler, Command: in.CommandPath(), Err: cause}
	if fn == nil {
		return failure
	}

	in.setFailure(cause)
	v, err := o.hook(ctx, logger, phase, fn, in)
	if err != nil {
		return errors.Join(failure, &OperationError{Phase: phase, Command: in.CommandPath(), Err: err})
	}
	slot := &PhaseResult{Value: v}
	if phase == PhaseOnHandlerTimeout {
		res.OnHandlerTimeout = slot
	} else {
		res.OnHandlerFailure = slot
	}
	return failure
}

// hook runs one sequential phase, turning a panic into an error
func (o *Operation) hook(ctx context.Context, logger *slog.Logger, phase Phase, fn HandlerFunc, in *Input) (v any, err error) {
	logger.DebugContext(ctx, "phase started", slog.String("phase", string(phase)))
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			logger.DebugContext(ctx, "phase failed", slog.String("phase", string(phase)), slog.String("error", err.Error()))
		}
	}()
	return fn(ctx, in)
}
