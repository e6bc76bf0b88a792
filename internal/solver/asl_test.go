package solver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/gjh/internal/tempfiles"
)

// writeScript creates an executable shell script standing in for a solver.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "fakesolver")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

// writeModel creates rosen.nl (and label files when labels is true).
func writeModel(t *testing.T, labels bool) *Model {
	t.Helper()
	dir := t.TempDir()
	nl := filepath.Join(dir, "rosen.nl")
	require.NoError(t, os.WriteFile(nl, []byte("g3 1 1 0\n"), 0644))
	if labels {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "rosen.col"), []byte("x\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "rosen.row"), []byte("c\n"), 0644))
	}
	return &Model{NLFile: nl}
}

const writeSol = `stub="${1%.nl}"
printf 'Optimal solution found\nsecond line\n\nOptions\n3\n0\n0\n0\nobjno 0 0\n' > "$stub.sol"
`

func newTestASL(t *testing.T, opts Options, env Env) (*ASL, *tempfiles.Manager) {
	t.Helper()
	temp := tempfiles.NewManager(t.TempDir(), nil)
	env.Temp = temp
	inv, err := NewASL(opts, env)
	require.NoError(t, err)
	return inv.(*ASL), temp
}

func TestASLPresolve(t *testing.T) {
	a, temp := newTestASL(t, Options{Solver: "ipopt", SymbolicLabels: true}, Env{})
	temp.Push()
	defer temp.Pop(true)

	m := writeModel(t, true)
	require.NoError(t, a.Presolve(context.Background(), m))

	dir := filepath.Dir(a.ProblemFile())
	assert.Equal(t, filepath.Join(dir, "rosen.nl"), a.ProblemFile())
	assert.Equal(t, filepath.Join(dir, "rosen.sol"), a.SolutionFile())
	for _, ext := range []string{".nl", ".col", ".row"} {
		_, err := os.Stat(filepath.Join(dir, "rosen"+ext))
		assert.NoError(t, err, "expected %s to be copied", ext)
	}
	assert.Contains(t, temp.Paths(), a.SolutionFile())
	assert.Contains(t, temp.Paths(), dir)
}

func TestASLPresolveMissingLabels(t *testing.T) {
	a, temp := newTestASL(t, Options{Solver: "ipopt", SymbolicLabels: true}, Env{})
	temp.Push()
	defer temp.Pop(true)

	err := a.Presolve(context.Background(), writeModel(t, false))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestASLPresolveValidation(t *testing.T) {
	a, temp := newTestASL(t, Options{}, Env{})
	temp.Push()
	defer temp.Pop(true)

	var ve *ValidationError
	assert.ErrorAs(t, a.Presolve(context.Background(), writeModel(t, false)), &ve)

	a, _ = newTestASL(t, Options{Solver: "ipopt"}, Env{})
	assert.ErrorAs(t, a.Presolve(context.Background(), &Model{}), &ve)
	assert.ErrorIs(t, a.Presolve(context.Background(), &Model{NLFile: "/no/such.nl"}), os.ErrNotExist)
}

func TestASLExecuteBeforePresolve(t *testing.T) {
	a, _ := newTestASL(t, Options{Solver: "ipopt"}, Env{})
	assert.ErrorIs(t, a.Execute(context.Background()), ErrNotPresolved)
	_, err := a.Postsolve(context.Background())
	assert.ErrorIs(t, err, ErrNotPresolved)
}

func TestNewASLRequiresTemp(t *testing.T) {
	_, err := NewASL(Options{Solver: "x"}, Env{})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

type lineRecorder struct {
	lines []string
}

func (r *lineRecorder) WriteLine(stream, line string) error {
	r.lines = append(r.lines, stream+": "+line)
	return nil
}

func TestASLSolve(t *testing.T) {
	script := writeScript(t, writeSol+`echo "running with $ipopt_options"
echo "warning" >&2
`)
	var tee bytes.Buffer
	sink := &lineRecorder{}
	a, temp := newTestASL(t, Options{
		Executable:    script,
		Solver:        "ipopt",
		SolverOptions: map[string]string{"max_iter": "5"},
	}, Env{Tee: &tee, Sink: sink})

	res, err := Solve(context.Background(), a, temp, writeModel(t, false))
	require.NoError(t, err)

	assert.Equal(t, "asl", res.Solver)
	assert.Equal(t, "rosen", res.Model)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 0, res.ResultCode)
	assert.Equal(t, "Optimal solution found\nsecond line", res.Message)
	assert.NotEmpty(t, res.RunID)
	assert.Greater(t, res.Duration, time.Duration(0))

	assert.Contains(t, tee.String(), "running with max_iter=5")
	assert.Contains(t, sink.lines, "stderr: warning")
	assert.Contains(t, sink.lines, "stdout: running with max_iter=5")

	_, err = os.Stat(res.SolutionFile)
	assert.True(t, os.IsNotExist(err))
}

func TestASLSolveKeepFiles(t *testing.T) {
	script := writeScript(t, writeSol)
	a, temp := newTestASL(t, Options{Executable: script, KeepFiles: true}, Env{})

	res, err := Solve(context.Background(), a, temp, writeModel(t, false))
	require.NoError(t, err)
	_, err = os.Stat(res.SolutionFile)
	assert.NoError(t, err)
}

func TestASLNonZeroExit(t *testing.T) {
	script := writeScript(t, "echo 'license expired' >&2\nexit 3\n")
	a, temp := newTestASL(t, Options{Executable: script}, Env{})

	_, err := Solve(context.Background(), a, temp, writeModel(t, false))
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "license expired", exitErr.Stderr)
	assert.Nil(t, a.model, "reset after failure")
	assert.Equal(t, 0, temp.Depth())
}

func TestASLMissingSolution(t *testing.T) {
	script := writeScript(t, "exit 0\n")
	a, temp := newTestASL(t, Options{Executable: script}, Env{})

	_, err := Solve(context.Background(), a, temp, writeModel(t, false))
	assert.ErrorIs(t, err, ErrNoSolution)
}

func TestASLExecutableNotFound(t *testing.T) {
	a, temp := newTestASL(t, Options{Solver: "definitely-not-a-solver-binary"}, Env{})

	_, err := Solve(context.Background(), a, temp, writeModel(t, false))
	assert.ErrorIs(t, err, ErrExecutableNotFound)
}

func TestASLTimeout(t *testing.T) {
	script := writeScript(t, "exec sleep 5\n")
	a, temp := newTestASL(t, Options{Executable: script, Timeout: 100 * time.Millisecond}, Env{})

	start := time.Now()
	_, err := Solve(context.Background(), a, temp, writeModel(t, false))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestASLTimeoutKillsChildProcesses(t *testing.T) {
	// The shell forks sleep, which inherits stdout and stderr.
	script := writeScript(t, "sleep 3\necho done\n")
	a, temp := newTestASL(t, Options{Executable: script, Timeout: 100 * time.Millisecond}, Env{})

	start := time.Now()
	_, err := Solve(context.Background(), a, temp, writeModel(t, false))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestASLCancelKillsChildProcesses(t *testing.T) {
	script := writeScript(t, "sleep 3 &\nwait\n")
	a, temp := newTestASL(t, Options{Executable: script}, Env{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Solve(ctx, a, temp, writeModel(t, false))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestReadSolHeader(t *testing.T) {
	tests := []struct {
		name string
		in   string
		msg  string
		code int
	}{
		{"message and code", "Ipopt 3.14: Optimal\n\nOptions\n3\nobjno 0 0\n", "Ipopt 3.14: Optimal", 0},
		{"infeasible", "gjh: infeasible\n\nobjno 0 220\n", "gjh: infeasible", 220},
		{"no code", "only message\n", "only message", -1},
		{"empty", "", "", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, code, err := readSolHeader(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.msg, msg)
			assert.Equal(t, tt.code, code)
		})
	}
}
