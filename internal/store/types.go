package store

import (
	"time"

	"github.com/cwbudde/gjh/internal/gjhfile"
	"github.com/cwbudde/gjh/internal/solver"
)

// RunConfig records how a run was invoked.
type RunConfig struct {
	Solver        string            `json:"solver"`
	NLFile        string            `json:"nlFile"`
	SolverOptions map[string]string `json:"solverOptions,omitempty"`
}

// Run is a persisted solve.
type Run struct {
	RunID      string        `json:"runId"`
	Solver     string        `json:"solver"`
	Model      string        `json:"model"`
	Status     solver.Status `json:"status"`
	ResultCode int           `json:"resultCode"`
	Message    string        `json:"message"`
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
	Config     RunConfig     `json:"config"`

	// GJH holds the parsed gjh output for runs of the gjh solver.
	GJH *gjhfile.Info `json:"gjh,omitempty"`
}

// RunInfo is run metadata without the gjh payload.
type RunInfo struct {
	RunID     string        `json:"runId"`
	Solver    string        `json:"solver"`
	Model     string        `json:"model"`
	Status    solver.Status `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	HasGJH    bool          `json:"hasGjh"`
}

// NewRun converts solve results into a persistable run.
func NewRun(res *solver.Results, config RunConfig) *Run {
	run := &Run{
		RunID:      res.RunID,
		Solver:     res.Solver,
		Model:      res.Model,
		Status:     res.Status,
		ResultCode: res.ResultCode,
		Message:    res.Message,
		Duration:   res.Duration,
		Timestamp:  time.Now(),
		Config:     config,
	}
	if info, ok := res.Auxiliary.(*gjhfile.Info); ok {
		run.GJH = info
	}
	return run
}

// ToInfo converts a full Run to RunInfo.
func (r *Run) ToInfo() RunInfo {
	return RunInfo{
		RunID:     r.RunID,
		Solver:    r.Solver,
		Model:     r.Model,
		Status:    r.Status,
		Timestamp: r.Timestamp,
		HasGJH:    r.GJH != nil,
	}
}

// Validate checks if the run has the fields needed to be stored and listed.
func (r *Run) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if r.Solver == "" {
		return &ValidationError{Field: "Solver", Reason: "cannot be empty"}
	}
	if r.Status == "" {
		return &ValidationError{Field: "Status", Reason: "cannot be empty"}
	}
	if r.Duration < 0 {
		return &ValidationError{Field: "Duration", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a run validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
