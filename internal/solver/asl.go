package solver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// stderrTail bounds how much stderr is kept for ExitError.
	stderrTail = 4096

	// waitDelay bounds how long Wait blocks on output pipes after the
	// process is killed or exits.
	waitDelay = time.Second
)

// ASL invokes an executable built on the AMPL Solver Library:
//
//	<solver> <dir>/<stub>.nl -AMPL
//
// The solver writes <dir>/<stub>.sol, whose leading message is returned in
// Results.Message.
type ASL struct {
	opts Options
	env  Env

	runID       string
	model       *Model
	problemFile string
	solnFile    string
}

// NewASL is the Factory for the generic AMPL invoker.
func NewASL(opts Options, env Env) (Invoker, error) {
	if env.Temp == nil {
		return nil, &ValidationError{Field: "Env.Temp", Reason: "cannot be nil"}
	}
	opts = opts.Clone()
	if opts.Type == "" {
		opts.Type = "asl"
	}
	return &ASL{opts: opts, env: env}, nil
}

// Options returns the effective options.
func (a *ASL) Options() Options {
	return a.opts.Clone()
}

// SolutionFile is the .sol path chosen by Presolve.
func (a *ASL) SolutionFile() string {
	return a.solnFile
}

// ProblemFile is the .nl path handed to the solver.
func (a *ASL) ProblemFile() string {
	return a.problemFile
}

// Presolve copies the model's .nl stub (plus its label files when symbolic
// labels are on) into a fresh temp directory and registers the .sol path.
func (a *ASL) Presolve(ctx context.Context, m *Model) error {
	if err := a.opts.Validate(); err != nil {
		return err
	}
	if m == nil || m.NLFile == "" {
		return &ValidationError{Field: "Model.NLFile", Reason: "cannot be empty"}
	}
	if _, err := os.Stat(m.NLFile); err != nil {
		return fmt.Errorf("failed to stat problem file: %w", err)
	}

	dir, err := a.env.Temp.MkdirTemp(a.opts.Type + "-*")
	if err != nil {
		return err
	}

	stem := filepath.Join(dir, m.Stem())
	if err := copyFile(m.NLFile, stem+".nl"); err != nil {
		return err
	}
	if a.opts.SymbolicLabels {
		col, row := m.LabelFiles()
		if err := copyFile(col, stem+".col"); err != nil {
			return err
		}
		if err := copyFile(row, stem+".row"); err != nil {
			return err
		}
	}

	a.runID = a.env.RunID
	if a.runID == "" {
		a.runID = uuid.NewString()
	}
	a.problemFile = stem + ".nl"
	a.solnFile = stem + ".sol"
	if err := a.env.Temp.Add(a.solnFile, false); err != nil {
		return err
	}

	a.env.logger().Debug("Presolve complete",
		"run_id", a.runID,
		"solver", a.opts.Type,
		"problem", a.problemFile,
		"solution", a.solnFile,
	)
	return nil
}

// InitializeCallbacks records the model for result reporting.
func (a *ASL) InitializeCallbacks(m *Model) {
	a.model = m
}

// Reset drops the per-solve model reference.
func (a *ASL) Reset() {
	a.model = nil
}

// Execute runs the solver and streams its output to the logger.
func (a *ASL) Execute(ctx context.Context) error {
	if a.problemFile == "" {
		return ErrNotPresolved
	}

	name := a.opts.Executable
	if name == "" {
		name = a.opts.Solver
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExecutableNotFound, name, err)
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, a.problemFile, "-AMPL")
	cmd.Dir = filepath.Dir(a.problemFile)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)
	cmd.Env = os.Environ()
	if entry, ok := a.opts.OptionsEnv(); ok {
		cmd.Env = append(cmd.Env, entry)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr: %w", err)
	}

	logger := a.env.logger().With("run_id", a.runID, "solver", a.opts.Type)
	logger.Info("Starting solver", "path", path, "problem", a.problemFile)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", path, err)
	}

	var (
		mu   sync.Mutex
		tail bytes.Buffer
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		return a.pump("stdout", stdout, &mu, nil)
	})
	g.Go(func() error {
		return a.pump("stderr", stderr, &mu, &tail)
	})
	pumpErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s interrupted: %w", a.opts.Type, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ExitError{
				Solver: a.opts.Type,
				Code:   exitErr.ExitCode(),
				Stderr: strings.TrimSpace(tail.String()),
				Err:    waitErr,
			}
		}
		return fmt.Errorf("failed to wait for %s: %w", path, waitErr)
	}
	if pumpErr != nil {
		return fmt.Errorf("failed to read solver output: %w", pumpErr)
	}

	logger.Info("Solver finished")
	return nil
}

// pump copies r line by line to the logger, the tee writer and the sink.
// mu serializes writes to the shared tee and sink.
func (a *ASL) pump(stream string, r io.Reader, mu *sync.Mutex, tail *bytes.Buffer) error {
	logger := a.env.logger()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("Solver output", "stream", stream, "line", line)

		mu.Lock()
		var err error
		if a.env.Tee != nil {
			_, err = fmt.Fprintln(a.env.Tee, line)
		}
		if err == nil && a.env.Sink != nil {
			err = a.env.Sink.WriteLine(stream, line)
		}
		if tail != nil {
			tail.WriteString(line)
			tail.WriteByte('\n')
			if over := tail.Len() - stderrTail; over > 0 {
				tail.Next(over)
			}
		}
		mu.Unlock()
		if err != nil {
			// Keep draining so the process is not blocked on a full pipe.
			io.Copy(io.Discard, r)
			return err
		}
	}
	return scanner.Err()
}

// Postsolve reads the solver message and result code from the .sol file.
func (a *ASL) Postsolve(ctx context.Context) (*Results, error) {
	if a.solnFile == "" {
		return nil, ErrNotPresolved
	}
	defer a.Reset()

	f, err := os.Open(a.solnFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNoSolution, a.solnFile)
	} else if err != nil {
		return nil, fmt.Errorf("failed to open solution file: %w", err)
	}
	defer f.Close()

	msg, code, err := readSolHeader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read solution file: %w", err)
	}

	res := &Results{
		RunID:        a.runID,
		Solver:       a.opts.Type,
		Status:       statusFromCode(code),
		ResultCode:   code,
		Message:      msg,
		SolutionFile: a.solnFile,
	}
	if a.model != nil {
		res.Model = a.model.Stem()
	}

	a.env.logger().Info("Solve complete",
		"run_id", a.runID,
		"solver", a.opts.Type,
		"status", res.Status,
		"message", res.Message,
	)
	return res, nil
}

// readSolHeader returns the solver message (the lines before the first blank
// line) and the solve_result_num from the trailing "objno 0 N" line, or -1
// when the file has none.
func readSolHeader(r io.Reader) (string, int, error) {
	scanner := bufio.NewScanner(r)
	var msg []string
	code := -1
	inMessage := true
	for scanner.Scan() {
		line := scanner.Text()
		if inMessage {
			if strings.TrimSpace(line) == "" {
				inMessage = false
				continue
			}
			msg = append(msg, strings.TrimSpace(line))
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 3 && fields[0] == "objno" {
			if n, err := strconv.Atoi(fields[2]); err == nil {
				code = n
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", -1, err
	}
	return strings.Join(msg, "\n"), code, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
