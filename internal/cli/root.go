package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/orchestrate/internal/command"
	"github.com/gyaneshwarpardhi/orchestrate/internal/config"
	"github.com/gyaneshwarpardhi/orchestrate/internal/dag"
	"github.com/gyaneshwarpardhi/orchestrate/internal/engine"
	"github.com/gyaneshwarpardhi/orchestrate/internal/telemetry"
)

// ExitError carries a process exit status out of a command. Err may be nil
// when the command already reported the problem.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	jsonOutput bool
}

// NewRootCmd builds the orchestrate command tree.
func NewRootCmd(version string) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "orchestrate",
		Short:         "Run routines in dependency order",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			telemetry.SetupLogger(cmd.ErrOrStderr(), g.logLevel, g.logFormat)
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "policy.conf", "Policy file (.yaml, .yml, .hcl or policy.conf format)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: text or json (default $LOG_FORMAT or text)")
	root.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(
		newRunCmd(g),
		newPlanCmd(g),
		newValidateCmd(g),
		newServeCmd(g),
	)
	return root
}

// newRegistry returns the executors for routines from configPath. Children
// see the policy path as ORCHESTRATE_POLICY.
func newRegistry(configPath string, opts ...command.Option) *command.Registry {
	opts = append(opts, command.WithEnv("ORCHESTRATE_POLICY="+configPath))
	return command.NewDefaultRegistry(opts...)
}

// loadSnapshot reads the policy file and builds the graph.
func loadSnapshot(path string, reg *command.Registry) (*config.Loader, *engine.Snapshot, error) {
	loader, err := config.NewLoader(path, engine.CheckPolicy(reg))
	if err != nil {
		return nil, nil, err
	}
	snap, err := engine.NewSnapshot(loader.Config(), reg)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return loader, snap, nil
}

// planOrder resolves the run list against the graph.
func planOrder(snap *engine.Snapshot, runList []string) ([]*dag.Node, error) {
	order, err := snap.Graph.Ordering(runList...)
	if errors.Is(err, dag.ErrUnknownNode) {
		return nil, fmt.Errorf("%w; check the routine names passed with --run-list (comma separated)", err)
	}
	return order, err
}

// runListFlag returns the --run-list names, or nil for the whole graph when
// the flag was not given.
func runListFlag(cmd *cobra.Command, names []string) ([]string, error) {
	if !cmd.Flags().Changed("run-list") {
		return nil, nil
	}
	list, err := dag.ParseRunList(names)
	if err != nil {
		return nil, fmt.Errorf("--run-list: %w", err)
	}
	return list, nil
}
