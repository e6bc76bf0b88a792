package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSolution is returned by Postsolve when the solver left no .sol file.
	ErrNoSolution = errors.New("solver produced no solution file")

	// ErrExecutableNotFound is returned when the solver binary cannot be located.
	ErrExecutableNotFound = errors.New("solver executable not found")

	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("solver already registered")

	// ErrNotPresolved is returned when Execute or Postsolve run before Presolve.
	ErrNotPresolved = errors.New("solver has not been presolved")
)

// UnknownSolverError is returned by Registry lookups for unregistered names.
type UnknownSolverError struct {
	Name string
}

func (e *UnknownSolverError) Error() string {
	return "unknown solver: " + e.Name
}

// ValidationError represents invalid solver options or model input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// ExitError reports a solver process that exited unsuccessfully.
type ExitError struct {
	Solver string
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Solver, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
