// Package solver runs AMPL-style external solvers.
//
// A solve is a fixed sequence of hooks on an Invoker:
//
//	Presolve -> InitializeCallbacks -> Execute -> Postsolve
//
// Solve drives that sequence inside one temp-file scope. ASL is the generic
// invoker for executables built on the AMPL Solver Library; specialised
// solvers wrap an Invoker and override the hooks they care about.
package solver

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.uber.org/multierr"
)

// Invoker is the capability set a solver exposes to the driver.
type Invoker interface {
	// Presolve prepares the problem files. SolutionFile is valid afterwards.
	Presolve(ctx context.Context, m *Model) error

	// InitializeCallbacks is called with the model right before execution.
	InitializeCallbacks(m *Model)

	// Execute runs the solver process.
	Execute(ctx context.Context) error

	// Postsolve collects the results once the process has exited.
	Postsolve(ctx context.Context) (*Results, error)

	// SolutionFile is the .sol path established by Presolve.
	SolutionFile() string

	// Options returns the effective options.
	Options() Options
}

// Resetter is implemented by invokers that hold per-solve state. Solve calls
// Reset when a solve stops before Postsolve.
type Resetter interface {
	Reset()
}

// TempFiles is the scoped temp-file manager used during a solve.
type TempFiles interface {
	Push()
	Pop(remove bool) error
	Add(path string, exists bool) error
	MkdirTemp(pattern string) (string, error)
}

// LineSink receives solver output one line at a time.
type LineSink interface {
	WriteLine(stream, line string) error
}

// Env carries the collaborators shared by every invoker.
type Env struct {
	Temp   TempFiles
	Logger *slog.Logger

	// RunID tags logs and results; a random ID is used when empty.
	RunID string

	// Tee, when set, receives a copy of the solver's stdout and stderr.
	Tee io.Writer

	// Sink, when set, records every output line.
	Sink LineSink
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Factory builds an Invoker from options.
type Factory func(opts Options, env Env) (Invoker, error)

// Solve runs one complete solve of m. The temp scope opened here is released
// on every path; files are kept when Options.KeepFiles is set. Hook errors are
// returned as-is.
func Solve(ctx context.Context, inv Invoker, temp TempFiles, m *Model) (res *Results, err error) {
	temp.Push()
	defer func() {
		if err != nil {
			if r, ok := inv.(Resetter); ok {
				r.Reset()
			}
		}
		if cerr := temp.Pop(!inv.Options().KeepFiles); cerr != nil {
			err = multierr.Append(err, cerr)
		}
	}()

	start := time.Now()
	if err := inv.Presolve(ctx, m); err != nil {
		return nil, err
	}
	inv.InitializeCallbacks(m)
	if err := inv.Execute(ctx); err != nil {
		return nil, err
	}
	res, err = inv.Postsolve(ctx)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}
