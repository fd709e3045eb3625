package middleware

import (
	"fmt"
	"runtime"
)

// Recovery converts a handler panic into a *RecoveryError
func Recovery(options ...MiddlewareOption) Middleware {
	config := DefaultConfig()
	for _, option := range options {
		option(config)
	}

	return func(next ActionFunc) ActionFunc {
		return func(inv Invocation) (value any, err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := make([]byte, config.StackSize)
					stack = stack[:runtime.Stack(stack, false)]

					recoveryErr := &RecoveryError{
						Panic:   r,
						Command: getCommandName(inv),
						Stack:   stack,
					}

					if config.PrintStack && config.StackOutput != nil {
						fmt.Fprintf(config.StackOutput, "PANIC in command '%s': %v\n", recoveryErr.Command, r)
						fmt.Fprintf(config.StackOutput, "Stack trace:\n%s\n", stack)
					}

					value, err = nil, recoveryErr
				}
			}()

			return next(inv)
		}
	}
}

// RecoveryWithHandler lets handler turn the panic into the returned error
func RecoveryWithHandler(handler func(panicVal any, command string, stack []byte) error) Middleware {
	return func(next ActionFunc) ActionFunc {
		return func(inv Invocation) (value any, err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := make([]byte, 4096)
					stack = stack[:runtime.Stack(stack, false)]
					value, err = nil, handler(r, getCommandName(inv), stack)
				}
			}()

			return next(inv)
		}
	}
}
