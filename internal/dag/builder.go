package dag

import (
	"fmt"

	"github.com/gyaneshwarpardhi/orchestrate/internal/command"
	"github.com/gyaneshwarpardhi/orchestrate/internal/config"
)

// SpecValidator checks a command spec at build time; *command.Registry satisfies it.
type SpecValidator interface {
	Validate(spec command.Spec) error
}

var _ SpecValidator = (*command.Registry)(nil)

// Build constructs a Graph from a policy. All routines are added before any
// dependency so the policy may list them in any order. v may be nil.
// Cycles are not rejected here; Ordering reports them.
func Build(cfg *config.Policy, v SpecValidator) (*Graph, error) {
	g := NewGraph()
	for _, r := range cfg.Routines {
		spec := SpecFor(r)
		if v != nil {
			if err := v.Validate(spec); err != nil {
				return nil, fmt.Errorf("routine %s: %w", r.ID, err)
			}
		}
		if _, err := g.AddNode(r.ID, spec); err != nil {
			return nil, err
		}
	}
	for _, r := range cfg.Routines {
		if len(r.DependsOn) == 0 {
			continue
		}
		if err := g.AddDependencies(r.ID, r.DependsOn...); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// SpecFor converts a configured routine into its command spec.
func SpecFor(r config.Routine) command.Spec {
	argv := make([]string, 0, 1+len(r.Args))
	argv = append(argv, r.Command)
	argv = append(argv, r.Args...)
	return command.Spec{Kind: r.Kind, Argv: argv, Dir: r.Dir}
}
