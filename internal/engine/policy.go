package engine

import (
	"fmt"

	"github.com/gyaneshwarpardhi/orchestrate/internal/config"
	"github.com/gyaneshwarpardhi/orchestrate/internal/dag"
)

// Policy holds the run-wide name sets. It is read-only during a run.
type Policy struct {
	// Skip lists routines that are never executed.
	Skip dag.NameSet
	// IgnoreDependencyFailure lists routines that execute even when a
	// dependency failed or was skipped.
	IgnoreDependencyFailure dag.NameSet
	// Source is the configuration file the routines came from; it is
	// quoted in fatal diagnostics.
	Source string
}

// NewPolicy builds a Policy, rejecting names that are not in g.
func NewPolicy(g *dag.Graph, skip, ignore []string) (Policy, error) {
	for _, list := range [][]string{skip, ignore} {
		for _, name := range list {
			if g.Node(name) == nil {
				return Policy{}, &dag.GraphError{Kind: dag.ErrUnknownNode, Node: name}
			}
		}
	}
	return Policy{
		Skip:                    dag.NewNameSet(skip...),
		IgnoreDependencyFailure: dag.NewNameSet(ignore...),
	}, nil
}

// Snapshot is a graph together with the policy it was configured with.
// The engine swaps whole snapshots on reload.
type Snapshot struct {
	Graph  *dag.Graph
	Policy Policy
	// Config is the policy file content the snapshot was built from.
	Config *config.Policy
}

// NewSnapshot validates cfg and builds its graph and policy. v checks each
// command spec and may be nil.
func NewSnapshot(cfg *config.Policy, v dag.SpecValidator) (*Snapshot, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	g, err := dag.Build(cfg, v)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	pol, err := NewPolicy(g, cfg.Skip, cfg.IgnoreDepErrors)
	if err != nil {
		return nil, err
	}
	pol.Source = cfg.Source
	return &Snapshot{Graph: g, Policy: pol, Config: cfg}, nil
}

// CheckPolicy returns a config.Loader validate hook that rejects any policy
// NewSnapshot would reject.
func CheckPolicy(v dag.SpecValidator) func(*config.Policy) error {
	return func(cfg *config.Policy) error {
		_, err := NewSnapshot(cfg, v)
		return err
	}
}
