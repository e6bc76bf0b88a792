package solver

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Options configures an AMPL solver invocation.
type Options struct {
	// Type is the solver kind reported in results (e.g. "asl", "gjh").
	Type string `toml:"type"`

	// Solver names the AMPL executable to run. It is resolved on PATH unless
	// Executable is set.
	Solver string `toml:"solver"`

	// Executable overrides the binary path.
	Executable string `toml:"executable"`

	// SymbolicLabels ships the .col/.row label files with the problem.
	SymbolicLabels bool `toml:"symbolic_labels"`

	// MetaSolver marks solvers that drive other solvers.
	MetaSolver bool `toml:"metasolver"`

	// KeepFiles leaves temporary files on disk after the solve.
	KeepFiles bool `toml:"keep_files"`

	// Timeout bounds the solver process; zero means no limit.
	Timeout time.Duration `toml:"timeout"`

	// SolverOptions are exported to the process as <solver>_options.
	SolverOptions map[string]string `toml:"options"`
}

// Validate checks that the options can drive an invocation.
func (o Options) Validate() error {
	if o.Solver == "" && o.Executable == "" {
		return &ValidationError{Field: "Solver", Reason: "cannot be empty"}
	}
	if o.Timeout < 0 {
		return &ValidationError{Field: "Timeout", Reason: "cannot be negative"}
	}
	for k := range o.SolverOptions {
		if k == "" || strings.ContainsAny(k, " \t=") {
			return &ValidationError{Field: "SolverOptions", Reason: "invalid key " + `"` + k + `"`}
		}
	}
	return nil
}

// Clone returns a copy with its own option map.
func (o Options) Clone() Options {
	c := o
	if o.SolverOptions != nil {
		c.SolverOptions = make(map[string]string, len(o.SolverOptions))
		for k, v := range o.SolverOptions {
			c.SolverOptions[k] = v
		}
	}
	return c
}

// solverName is the basename used for the <name>_options variable.
func (o Options) solverName() string {
	name := o.Solver
	if name == "" {
		name = o.Executable
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OptionsEnv renders SolverOptions as the AMPL <solver>_options environment
// entry, keys sorted. Options with an empty value are passed as bare flags.
func (o Options) OptionsEnv() (string, bool) {
	if len(o.SolverOptions) == 0 {
		return "", false
	}
	keys := lo.Keys(o.SolverOptions)
	sort.Strings(keys)
	parts := lo.Map(keys, func(k string, _ int) string {
		if v := o.SolverOptions[k]; v != "" {
			return k + "=" + v
		}
		return k
	})
	return o.solverName() + "_options=" + strings.Join(parts, " "), true
}
