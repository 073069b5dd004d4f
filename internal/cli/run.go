package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/orchestrate/internal/command"
	"github.com/gyaneshwarpardhi/orchestrate/internal/dag"
	"github.com/gyaneshwarpardhi/orchestrate/internal/engine"
	"github.com/gyaneshwarpardhi/orchestrate/internal/telemetry"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var runList []string
	var strict bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run routines once in dependency order",
		Long: `Run every routine in the policy file, or only the routines given with
--run-list and everything they depend on. A routine whose dependency failed
or was skipped is skipped too, unless it is listed under [ignoreDepErrors].`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(g.jsonOutput, cmd.OutOrStdout(), cmd.ErrOrStderr())

			// Child output must not interleave with the JSON report.
			childOut := cmd.OutOrStdout()
			if g.jsonOutput {
				childOut = cmd.ErrOrStderr()
			}
			reg := newRegistry(g.configPath, command.WithOutput(childOut, cmd.ErrOrStderr()))

			_, snap, err := loadSnapshot(g.configPath, reg)
			if err != nil {
				return err
			}
			list, err := runListFlag(cmd, runList)
			if err != nil {
				return err
			}
			order, err := planOrder(snap, list)
			if err != nil {
				return err
			}
			if !g.jsonOutput {
				out.Plan(dag.Names(order))
			}

			ctx := telemetry.WithLogger(cmd.Context(), slog.Default().With("policy", g.configPath))
			rep, err := engine.Run(ctx, order, snap.Policy, reg)
			if rep != nil {
				out.Report(rep)
			}
			var fatal *engine.FatalError
			if errors.As(err, &fatal) {
				return &ExitError{Code: 1, Err: err}
			}
			if err != nil {
				return err
			}
			if strict && !rep.OK() {
				return &ExitError{Code: 1, Err: fmt.Errorf("run %s: %s", rep.RunID, rep.Status())}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&runList, "run-list", "r", nil, "Routines to run, comma separated (default all)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit 1 when any routine failed or was skipped because of a failed dependency")
	return cmd
}

func newPlanCmd(g *globalFlags) *cobra.Command {
	var runList []string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the execution order without running anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, snap, err := loadSnapshot(g.configPath, newRegistry(g.configPath))
			if err != nil {
				return err
			}
			list, err := runListFlag(cmd, runList)
			if err != nil {
				return err
			}
			order, err := planOrder(snap, list)
			if err != nil {
				return err
			}
			out := NewOutput(g.jsonOutput, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if g.jsonOutput {
				out.Plan(dag.Names(order))
				return nil
			}
			printPlanTable(out, order, snap.Policy)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&runList, "run-list", "r", nil, "Routines to plan, comma separated (default all)")
	return cmd
}

func printPlanTable(out *Output, order []*dag.Node, pol engine.Policy) {
	rows := make([][]string, len(order))
	for i, n := range order {
		note := ""
		switch {
		case pol.Skip.Has(n.Name()):
			note = "skip"
		case pol.IgnoreDependencyFailure.Has(n.Name()):
			note = "ignore-dep-errors"
		}
		deps := "-"
		if d := n.Dependencies(); len(d) > 0 {
			deps = fmt.Sprint(d)
		}
		rows[i] = []string{fmt.Sprint(i + 1), n.Name(), n.Command().String(), deps, note}
	}
	out.Table([]string{"#", "ROUTINE", "COMMAND", "DEPENDS ON", "POLICY"}, rows)
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a policy file for errors and dependency cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, snap, err := loadSnapshot(g.configPath, newRegistry(g.configPath))
			if err != nil {
				return err
			}
			if _, err := snap.Graph.Ordering(); err != nil {
				return fmt.Errorf("%s: %w", g.configPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d routines OK\n", g.configPath, snap.Graph.Len())
			return nil
		},
	}
}
