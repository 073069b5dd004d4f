package dag

import (
	"sort"
	"strings"

	"github.com/gyaneshwarpardhi/orchestrate/internal/command"
)

// Node is a routine in the graph. Its dependencies are references to other
// nodes owned by the same Graph.
type Node struct {
	name string
	cmd  command.Spec
	deps []*Node
}

func (n *Node) Name() string          { return n.name }
func (n *Node) Command() command.Spec { return n.cmd }
func (n *Node) String() string        { return n.name }

// Dependencies returns the names of the direct dependencies in declaration order.
func (n *Node) Dependencies() []string {
	out := make([]string, len(n.deps))
	for i, d := range n.deps {
		out[i] = d.name
	}
	return out
}

func (n *Node) dependsOn(other *Node) bool {
	for _, d := range n.deps {
		if d == other {
			return true
		}
	}
	return false
}

// NameSet is a set of routine names.
type NameSet map[string]struct{}

// NewNameSet builds a set from names.
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s NameSet) Add(name string) { s[name] = struct{}{} }

// Sorted returns the members in lexical order.
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Names returns the names of nodes in slice order.
func Names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.name
	}
	return out
}

// ParseRunList trims each name and drops empty entries. It is for run lists
// the caller explicitly supplied: one that names nothing is rejected rather
// than treated as the whole graph.
func ParseRunList(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, &GraphError{Kind: ErrInvalidArgument, Msg: "run list names no routines"}
	}
	return out, nil
}
