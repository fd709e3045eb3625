package rotini

import (
	"errors"
	"reflect"
)

// ExitError lets a handler request a specific exit code
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "exit"
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCodeDefaults holds the codes used when no mapping matches
type ExitCodeDefaults struct {
	Success      int // default: 0
	GeneralError int // default: 1
}

type typeCode struct {
	typ  reflect.Type
	code int
}

// ExitCodeManager maps errors to process exit codes
type ExitCodeManager struct {
	codesByType []typeCode // registration order
	defaults    ExitCodeDefaults
}

func newExitCodeManager() *ExitCodeManager {
	return &ExitCodeManager{
		defaults: ExitCodeDefaults{Success: 0, GeneralError: 1},
	}
}

// DefineError maps errors of err's dynamic type to code. When several
// defined types match one error, the one defined first wins; redefining a
// type keeps its place. An ExitError requested by a handler still takes
// precedence.
func (e *ExitCodeManager) DefineError(err error, code int) *ExitCodeManager {
	if err == nil {
		return e
	}
	t := reflect.TypeOf(err)
	for i := range e.codesByType {
		if e.codesByType[i].typ == t {
			e.codesByType[i].code = code
			return e
		}
	}
	e.codesByType = append(e.codesByType, typeCode{typ: t, code: code})
	return e
}

// Default replaces the default codes
func (e *ExitCodeManager) Default(d ExitCodeDefaults) *ExitCodeManager { e.defaults = d; return e }

// Resolve converts an error to an exit code.
// Precedence:
//  1. ExitError (requested code)
//  2. help and version short-circuits (success)
//  3. concrete error type mapping (DefineError), in definition order
//  4. GeneralError
func (e *ExitCodeManager) Resolve(err error) int {
	if err == nil {
		return e.defaults.Success
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if errors.Is(err, ErrHelpShown) || errors.Is(err, ErrVersionShown) {
		return e.defaults.Success
	}

	for _, tc := range e.codesByType {
		if errors.As(err, reflect.New(tc.typ).Interface()) {
			return tc.code
		}
	}

	return e.defaults.GeneralError
}
