// Package gjh plugs the AMPL gjh "solver" into the solver registry.
//
// gjh does not optimize. It evaluates the gradient, Jacobian and Hessian of
// a model at its current point and writes them to <stub>.gjh next to the
// solution file. The adapter wraps a base invoker, registers that extra file
// for cleanup, and returns its parsed content in Results.Auxiliary.
package gjh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/gjh/internal/gjhfile"
	"github.com/cwbudde/gjh/internal/solver"
)

const (
	// Name is the registry key.
	Name = "contrib.gjh"

	// Doc is the registry description.
	Doc = `Interface to the AMPL GJH "solver"`

	solverName = "gjh"
	auxExt     = "gjh"
)

// ErrNoModel is returned by Postsolve when InitializeCallbacks was never called.
var ErrNoModel = errors.New("gjh: postsolve without a model")

// PostsolveError is returned when the base postsolve fails after the gjh
// output was read. Info holds that output; Err is the base error.
type PostsolveError struct {
	Info *gjhfile.Info
	Err  error
}

func (e *PostsolveError) Error() string {
	return e.Err.Error()
}

func (e *PostsolveError) Unwrap() error {
	return e.Err
}

// Registrar registers a temp path for cleanup.
type Registrar interface {
	Add(path string, exists bool) error
}

// Solver is the gjh adapter. One solve at a time.
type Solver struct {
	base   solver.Invoker
	temp   Registrar
	read   gjhfile.ReadFunc
	logger *slog.Logger

	gjhFile string
	model   *solver.Model
	info    *gjhfile.Info // set only while Postsolve runs
}

// ForceOptions applies the settings gjh always runs with. Symbolic labels
// are required so that the .gjh indices can be mapped back to names.
func ForceOptions(opts solver.Options) solver.Options {
	opts = opts.Clone()
	opts.Type = solverName
	opts.Solver = solverName
	opts.SymbolicLabels = true
	opts.MetaSolver = false
	return opts
}

// New builds the base invoker with the forced options and wraps it.
func New(opts solver.Options, env solver.Env, base solver.Factory, read gjhfile.ReadFunc) (*Solver, error) {
	if base == nil {
		return nil, &solver.ValidationError{Field: "base", Reason: "cannot be nil"}
	}
	if env.Temp == nil {
		return nil, &solver.ValidationError{Field: "Env.Temp", Reason: "cannot be nil"}
	}
	if read == nil {
		read = gjhfile.Read
	}
	inv, err := base(ForceOptions(opts), env)
	if err != nil {
		return nil, err
	}
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Solver{base: inv, temp: env.Temp, read: read, logger: logger}, nil
}

// Factory returns a solver.Factory producing gjh adapters over base.
func Factory(base solver.Factory, read gjhfile.ReadFunc) solver.Factory {
	return func(opts solver.Options, env solver.Env) (solver.Invoker, error) {
		s, err := New(opts, env, base, read)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Options returns the effective (forced) options.
func (s *Solver) Options() solver.Options {
	return s.base.Options()
}

// SolutionFile delegates to the base invoker.
func (s *Solver) SolutionFile() string {
	return s.base.SolutionFile()
}

// GJHFile is the auxiliary output path chosen by the last Presolve.
func (s *Solver) GJHFile() string {
	return s.gjhFile
}

// Presolve runs the base presolve, then registers <stub>.gjh. The file does
// not exist yet and may never be written.
func (s *Solver) Presolve(ctx context.Context, m *solver.Model) error {
	if err := s.base.Presolve(ctx, m); err != nil {
		return err
	}
	path, err := AuxPath(s.base.SolutionFile())
	if err != nil {
		return err
	}
	s.gjhFile = path
	return s.temp.Add(s.gjhFile, false)
}

// InitializeCallbacks holds on to m until Postsolve and clears any
// previously parsed output.
func (s *Solver) InitializeCallbacks(m *solver.Model) {
	s.model = m
	s.info = nil
	s.base.InitializeCallbacks(m)
}

// Execute delegates to the base invoker.
func (s *Solver) Execute(ctx context.Context) error {
	return s.base.Execute(ctx)
}

// Postsolve parses the .gjh file, then runs the base postsolve and attaches
// the parsed info to its results. Parse errors are returned unchanged; a base
// postsolve error comes back as a *PostsolveError still carrying the info.
func (s *Solver) Postsolve(ctx context.Context) (*solver.Results, error) {
	if s.model == nil {
		return nil, ErrNoModel
	}
	model := s.model
	s.model = nil
	defer func() { s.info = nil }()

	info, err := s.read(s.gjhFile)
	if err != nil {
		return nil, err
	}
	s.info = info

	res, err := s.base.Postsolve(ctx)
	if err != nil {
		return nil, &PostsolveError{Info: s.info, Err: err}
	}
	res.Auxiliary = s.info
	s.logger.Debug("Parsed gjh output",
		"model", model.Stem(),
		"gradient", len(info.Gradient),
		"jacobian", len(info.Jacobian),
		"hessian", len(info.Hessian),
	)
	return res, nil
}

// Reset drops the held model and parsed output.
func (s *Solver) Reset() {
	s.model = nil
	s.info = nil
	if r, ok := s.base.(solver.Resetter); ok {
		r.Reset()
	}
}

// AuxPath swaps the three-character extension of a .sol path for "gjh".
func AuxPath(solnFile string) (string, error) {
	if len(solnFile) < 4 || solnFile[len(solnFile)-4] != '.' {
		return "", fmt.Errorf("gjh: solution file %q has no three-letter extension", solnFile)
	}
	return solnFile[:len(solnFile)-3] + auxExt, nil
}

// InfoFrom extracts the gjh output from results produced by this adapter.
func InfoFrom(res *solver.Results) (*gjhfile.Info, bool) {
	if res == nil {
		return nil, false
	}
	info, ok := res.Auxiliary.(*gjhfile.Info)
	return info, ok && info != nil
}
