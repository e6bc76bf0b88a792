package main

import (
	"github.com/cwbudde/gjh/internal/gjhfile"
	"github.com/cwbudde/gjh/internal/solver"
	"github.com/cwbudde/gjh/internal/solver/gjh"
)

// registry is populated once in main before any command runs.
var registry *solver.Registry

func newRegistry() *solver.Registry {
	r := solver.NewRegistry()
	mustRegister(r, "asl", "Interface for solvers built on the AMPL Solver Library", solver.NewASL)
	mustRegister(r, gjh.Name, gjh.Doc, gjh.Factory(solver.NewASL, gjhfile.Read))
	return r
}

func mustRegister(r *solver.Registry, name, doc string, f solver.Factory) {
	if err := r.Register(name, doc, f); err != nil {
		panic(err)
	}
}
