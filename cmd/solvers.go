package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var solversCmd = &cobra.Command{
	Use:   "solvers",
	Short: "List registered solvers",
	RunE:  runListSolvers,
}

func init() {
	rootCmd.AddCommand(solversCmd)
}

func runListSolvers(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, e := range registry.List() {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Doc)
	}
	return w.Flush()
}
