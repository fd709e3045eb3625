package rotini

import (
	"errors"
	"fmt"

	"github.com/matthewgetz/rotini-sub000/internal/pool"
	rotiniio "github.com/matthewgetz/rotini-sub000/io"
)

// ErrorType represents parse error categories.
// These categories drive suggestion logic and the displayed message.
type ErrorType string

const (
	ErrorTypeUnknownCommand  ErrorType = "unknown_command"
	ErrorTypeUnknownFlag     ErrorType = "unknown_flag"
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	ErrorTypeInvalidValue    ErrorType = "invalid_value"
	ErrorTypeMissingValue    ErrorType = "missing_value"
	ErrorTypeMissingRequired ErrorType = "missing_required"
)

// Special error types for graceful exits
var (
	ErrHelpShown    = errors.New("help shown")
	ErrVersionShown = errors.New("version shown")
	ErrNotConfirmed = errors.New("operation not confirmed")
)

// ParseError reports tokens that do not fit a valid definition
type ParseError struct {
	Type     ErrorType
	Message  string
	Command  string // path of the deepest matched command, if any
	Flag     string
	Argument string

	// Unmatched lists the leftover tokens in their original order
	Unmatched []string
	// Suggestions are ranked closest first
	Suggestions []string
	// Help is the help text of the command the error belongs to
	Help string

	Cause error
}

func (e *ParseError) Error() string { return e.Message }

func (e *ParseError) Unwrap() error { return e.Cause }

// HelpRequestedError is returned by Parse when a help flag was given.
// Command is nil for program help.
type HelpRequestedError struct {
	Command *Command
}

func (e *HelpRequestedError) Error() string {
	if e.Command == nil {
		return "help requested"
	}
	return "help requested for command '" + e.Command.path + "'"
}

// Is makes a help request match ErrHelpShown
func (e *HelpRequestedError) Is(target error) bool { return target == ErrHelpShown }

// ErrorHandler writes errors for humans: the message, a "did you mean"
// line, and optionally the help of the command the error belongs to.
type ErrorHandler struct {
	io              *rotiniio.IOManager
	showHelpOnError bool
	maxSuggestions  int
}

// NewErrorHandler creates a handler that writes to io's error stream
func NewErrorHandler(io *rotiniio.IOManager) *ErrorHandler {
	return &ErrorHandler{io: io, showHelpOnError: true, maxSuggestions: 1}
}

// ShowHelpOnError controls whether the command help follows a parse error
func (eh *ErrorHandler) ShowHelpOnError(enabled bool) *ErrorHandler {
	eh.showHelpOnError = enabled
	return eh
}

// MaxSuggestions caps the "did you mean" lines; zero disables them
func (eh *ErrorHandler) MaxSuggestions(n int) *ErrorHandler {
	eh.maxSuggestions = n
	return eh
}

// Format renders err the way Display writes it
func (eh *ErrorHandler) Format(err error) string {
	b := pool.GetBuffer()
	defer pool.PutBuffer(b)

	var perr *ParseError
	if !errors.As(err, &perr) {
		fmt.Fprintf(b, "%s %s\n", eh.io.Style(colorError).Sprint("Error:"), err.Error())
		return b.String()
	}

	fmt.Fprintf(b, "%s %s\n", eh.io.Style(colorError).Sprint("Error:"), perr.Message)
	for i, s := range perr.Suggestions {
		if i >= eh.maxSuggestions {
			break
		}
		fmt.Fprintf(b, "  Did you mean '%s'?\n", s)
	}
	if eh.showHelpOnError && perr.Help != "" {
		b.WriteString("\n")
		b.WriteString(perr.Help)
	}
	return b.String()
}

// Display writes err to the error stream. Help and version short-circuits
// are not errors and print nothing.
func (eh *ErrorHandler) Display(err error) {
	if err == nil || errors.Is(err, ErrHelpShown) || errors.Is(err, ErrVersionShown) {
		return
	}
	fmt.Fprint(eh.io.Err(), eh.Format(err))
}
