package solver

import (
	"path/filepath"
	"strings"
	"time"
)

// Model is a caller-owned problem already written as an AMPL .nl stub.
// With symbolic labels the .col and .row label files sit next to it.
type Model struct {
	Name   string
	NLFile string
}

// Stem returns the model name, falling back to the .nl file's base name.
func (m *Model) Stem() string {
	if m.Name != "" {
		return m.Name
	}
	base := filepath.Base(m.NLFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LabelFiles returns the .col and .row paths next to the .nl stub.
func (m *Model) LabelFiles() (col, row string) {
	stem := strings.TrimSuffix(m.NLFile, filepath.Ext(m.NLFile))
	return stem + ".col", stem + ".row"
}

// Status summarizes a solve outcome.
type Status string

const (
	StatusOK         Status = "ok"
	StatusWarning    Status = "warning"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusLimit      Status = "limit"
	StatusError      Status = "error"
	StatusUnknown    Status = "unknown"
)

// statusFromCode maps an AMPL solve_result_num to a Status.
func statusFromCode(code int) Status {
	switch {
	case code < 0:
		return StatusUnknown
	case code < 100:
		return StatusOK
	case code < 200:
		return StatusWarning
	case code < 300:
		return StatusInfeasible
	case code < 400:
		return StatusUnbounded
	case code < 500:
		return StatusLimit
	default:
		return StatusError
	}
}

// Results is returned from a completed solve.
type Results struct {
	RunID        string        `json:"runId" yaml:"runId"`
	Solver       string        `json:"solver" yaml:"solver"`
	Model        string        `json:"model" yaml:"model"`
	Status       Status        `json:"status" yaml:"status"`
	ResultCode   int           `json:"resultCode" yaml:"resultCode"`
	Message      string        `json:"message" yaml:"message"`
	SolutionFile string        `json:"solutionFile" yaml:"solutionFile"`
	Duration     time.Duration `json:"duration" yaml:"duration"`

	// Auxiliary carries solver-specific output. Its shape is owned by the
	// solver that set it.
	Auxiliary any `json:"auxiliary,omitempty" yaml:"auxiliary,omitempty"`
}
