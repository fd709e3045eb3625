package middleware

import (
	"runtime/debug"
	"time"
)

type outcome struct {
	value any
	err   error
}

// Timeout races the handler against a timer of the given duration. The first
// to settle wins and the timer is always stopped. A handler that loses keeps
// running in its goroutine; its result is dropped and its context is not
// cancelled. A cancelled parent context ends the wait with the context error.
// Durations <= 0 fall back to DefaultTimeout.
func Timeout(duration time.Duration) Middleware {
	if duration <= 0 {
		duration = DefaultTimeout
	}

	return func(next ActionFunc) ActionFunc {
		return func(inv Invocation) (any, error) {
			// Buffered so a late handler never blocks after losing the race
			results := make(chan outcome, 1)

			go func() {
				defer func() {
					if r := recover(); r != nil {
						results <- outcome{err: &RecoveryError{
							Panic:   r,
							Command: getCommandName(inv),
							Stack:   debug.Stack(),
						}}
					}
				}()
				value, err := next(inv)
				results <- outcome{value: value, err: err}
			}()

			timer := time.NewTimer(duration)
			defer timer.Stop()

			ctx := inv.Context()
			select {
			case res := <-results:
				return res.value, res.err
			case <-timer.C:
				return nil, &TimeoutError{
					Duration: duration,
					Command:  getCommandName(inv),
				}
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
}

// TimeoutWithDefault creates a timeout middleware with the default timeout from config
func TimeoutWithDefault(options ...MiddlewareOption) Middleware {
	config := DefaultConfig()
	for _, option := range options {
		option(config)
	}
	return Timeout(config.DefaultTimeout)
}

// TimeoutPerCommand picks the timeout by command path, falling back to
// defaultTimeout for paths not present in commandTimeouts.
func TimeoutPerCommand(commandTimeouts map[string]time.Duration, defaultTimeout time.Duration) Middleware {
	return func(next ActionFunc) ActionFunc {
		return func(inv Invocation) (any, error) {
			timeout, exists := commandTimeouts[inv.CommandPath()]
			if !exists {
				timeout = defaultTimeout
			}
			return Timeout(timeout)(next)(inv)
		}
	}
}
