package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/gjh/internal/gjhfile"
	"github.com/cwbudde/gjh/internal/solver"
	"github.com/cwbudde/gjh/internal/solver/gjh"
	"github.com/cwbudde/gjh/internal/store"
	"github.com/cwbudde/gjh/internal/tempfiles"
)

var (
	solverName    string
	nlPath        string
	modelName     string
	executable    string
	solverOptions map[string]string
	keepFiles     bool
	tee           bool
	timeout       time.Duration
	outputFormat  string
	saveRun       bool
	solveDataDir  string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run a registered solver on an .nl problem",
	Long: `Runs a registered solver on an AMPL .nl problem file and prints the results.
With the contrib.gjh solver the output includes the gradient, Jacobian and
Hessian evaluated at the model's current point.`,
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&solverName, "solver", "", "Registered solver name (default from config, contrib.gjh)")
	solveCmd.Flags().StringVar(&nlPath, "nl", "", "Path to the .nl problem file (required)")
	solveCmd.Flags().StringVar(&modelName, "name", "", "Model name (defaults to the .nl base name)")
	solveCmd.Flags().StringVar(&executable, "executable", "", "Path to the solver binary")
	solveCmd.Flags().StringToStringVar(&solverOptions, "opt", nil, "Solver option key=value (repeatable)")
	solveCmd.Flags().BoolVar(&keepFiles, "keep-files", false, "Keep temporary files after the solve")
	solveCmd.Flags().BoolVar(&tee, "tee", false, "Copy solver output to stderr")
	solveCmd.Flags().DurationVar(&timeout, "timeout", 0, "Kill the solver after this long (0 = no limit)")
	solveCmd.Flags().StringVar(&outputFormat, "format", "text", "Output format: text, json, yaml")
	solveCmd.Flags().BoolVar(&saveRun, "save", false, "Persist the run and solver log under --data-dir")
	solveCmd.Flags().StringVar(&solveDataDir, "data-dir", "", "Base directory for saved runs (default from config)")
	solveCmd.MarkFlagRequired("nl")
	rootCmd.AddCommand(solveCmd)
}

// solveOptions merges config-file defaults with flags that were set.
func solveOptions(cmd *cobra.Command) (string, solver.Options) {
	name := cfg.Solver.Name
	opts := cfg.Solver.InvokeOptions()

	changed := func(flag string) bool {
		return cmd != nil && cmd.Flags().Changed(flag)
	}
	if solverName != "" {
		name = solverName
	}
	if executable != "" {
		opts.Executable = executable
	}
	if changed("keep-files") || keepFiles {
		opts.KeepFiles = keepFiles
	}
	if changed("timeout") || timeout > 0 {
		opts.Timeout = timeout
	}
	if len(solverOptions) > 0 && opts.SolverOptions == nil {
		opts.SolverOptions = make(map[string]string, len(solverOptions))
	}
	for k, v := range solverOptions {
		opts.SolverOptions[k] = v
	}
	return name, opts
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := currentLogger()

	switch outputFormat {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown format: %s", outputFormat)
	}

	name, opts := solveOptions(cmd)
	runID := uuid.NewString()
	temp := tempfiles.NewManager(cfg.TempDir, log)
	env := solver.Env{Temp: temp, Logger: log, RunID: runID}
	if tee {
		env.Tee = cmd.ErrOrStderr()
	}

	var runStore *store.FSStore
	if saveRun {
		dataDir := solveDataDir
		if dataDir == "" {
			dataDir = cfg.DataDir
		}
		s, err := store.NewFSStore(dataDir, log)
		if err != nil {
			return fmt.Errorf("failed to create run store: %w", err)
		}
		lw, err := store.NewLogWriter(dataDir, runID)
		if err != nil {
			return fmt.Errorf("failed to create solver log: %w", err)
		}
		defer lw.Close()
		runStore = s
		env.Sink = lw
	}

	inv, err := registry.New(name, opts, env)
	if err != nil {
		return err
	}

	log.Info("Starting solve", "solver", name, "nl", nlPath, "run_id", runID)
	model := &solver.Model{Name: modelName, NLFile: nlPath}
	res, err := solver.Solve(ctx, inv, temp, model)
	if err != nil {
		return fmt.Errorf("solve failed: %w", err)
	}

	if runStore != nil {
		run := store.NewRun(res, store.RunConfig{
			Solver:        name,
			NLFile:        nlPath,
			SolverOptions: opts.SolverOptions,
		})
		if err := runStore.SaveRun(run); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		log.Info("Saved run", "run_id", run.RunID, "dir", runStore.RunDir(run.RunID))
	}

	return printResults(cmd.OutOrStdout(), res, outputFormat)
}

func printResults(w io.Writer, res *solver.Results, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "Run:      %s\n", res.RunID)
	fmt.Fprintf(w, "Solver:   %s\n", res.Solver)
	fmt.Fprintf(w, "Model:    %s\n", res.Model)
	fmt.Fprintf(w, "Status:   %s\n", res.Status)
	fmt.Fprintf(w, "Duration: %s\n", res.Duration.Round(time.Millisecond))
	if res.Message != "" {
		fmt.Fprintf(w, "Message:  %s\n", res.Message)
	}
	if info, ok := gjh.InfoFrom(res); ok {
		printInfo(w, info)
	}
	return nil
}

// printInfo renders the gradient by variable name plus matrix sizes.
func printInfo(w io.Writer, info *gjhfile.Info) {
	fmt.Fprintf(w, "\nGradient (%d nonzeros):\n", len(info.Gradient))
	grad := info.GradientByName()
	names := make([]string, 0, len(grad))
	for name := range grad {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  VARIABLE\tVALUE")
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%g\n", name, grad[name])
	}
	tw.Flush()

	fmt.Fprintf(w, "\nJacobian: %d nonzeros over %d constraints\n", len(info.Jacobian), info.NumConstraints())
	fmt.Fprintf(w, "Hessian:  %d nonzeros over %d variables\n", len(info.Hessian), info.NumVariables())
}
