package dag

import (
	"fmt"

	"github.com/gyaneshwarpardhi/orchestrate/internal/command"
)

// Graph holds routines and their dependency edges.
// It is mutated while the policy is loaded and read-only afterwards;
// a reload builds a new Graph rather than editing the live one.
type Graph struct {
	nodes map[string]*Node // name → Node
	order []*Node          // AddNode order
}

// NewGraph allocates an empty Graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode registers a routine. The graph is unchanged on error.
func (g *Graph) AddNode(name string, cmd command.Spec) (*Node, error) {
	if name == "" {
		return nil, &GraphError{Kind: ErrInvalidArgument, Msg: "routine name is empty"}
	}
	if _, exists := g.nodes[name]; exists {
		return nil, duplicate(name)
	}
	n := &Node{name: name, cmd: cmd}
	g.nodes[name] = n
	g.order = append(g.order, n)
	return n, nil
}

// AddDependencies appends edges from name to each of deps, in order.
// Every name is resolved before anything is mutated, so a failed call
// leaves the graph as it was. Edges that already exist are not repeated.
func (g *Graph) AddDependencies(name string, deps ...string) error {
	n, ok := g.nodes[name]
	if !ok {
		return unknown(name)
	}
	targets := make([]*Node, 0, len(deps))
	for _, d := range deps {
		t, ok := g.nodes[d]
		if !ok {
			return &GraphError{Kind: ErrUnknownNode, Node: d, Msg: fmt.Sprintf("%s (dependency of %s)", d, name)}
		}
		targets = append(targets, t)
	}
	for _, t := range targets {
		if !n.dependsOn(t) {
			n.deps = append(n.deps, t)
		}
	}
	return nil
}

// Dependencies returns the direct dependency names of a routine.
func (g *Graph) Dependencies(name string) ([]string, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, unknown(name)
	}
	return n.Dependencies(), nil
}

// Node returns a node by name (nil if not found).
func (g *Graph) Node(name string) *Node {
	return g.nodes[name]
}

// Names returns all routine names in insertion order.
func (g *Graph) Names() []string {
	return Names(g.order)
}

// Len returns the number of routines.
func (g *Graph) Len() int {
	return len(g.nodes)
}

type visitState uint8

const (
	unvisited visitState = iota
	inProgress
	done
)

// frame is one entry of the explicit DFS stack: a node and the index of
// the next dependency to descend into.
type frame struct {
	node *Node
	next int
}

// Ordering returns routines so that every dependency precedes its dependents.
//
// With no start names the whole graph is ordered. Otherwise only the start
// routines and everything they transitively depend on are returned.
// Roots are visited in start order (insertion order when start is empty) and
// dependencies in declaration order, so the result is reproducible.
func (g *Graph) Ordering(start ...string) ([]*Node, error) {
	roots := g.order
	if len(start) > 0 {
		roots = make([]*Node, 0, len(start))
		for _, name := range start {
			n, ok := g.nodes[name]
			if !ok {
				return nil, unknown(name)
			}
			roots = append(roots, n)
		}
	}

	state := make(map[*Node]visitState, len(g.nodes))
	order := make([]*Node, 0, len(roots))
	var stack []frame

	for _, root := range roots {
		if state[root] != unvisited {
			continue
		}
		state[root] = inProgress
		stack = append(stack[:0], frame{node: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(top.node.deps) {
				state[top.node] = done
				order = append(order, top.node)
				stack = stack[:len(stack)-1]
				continue
			}
			dep := top.node.deps[top.next]
			top.next++

			switch state[dep] {
			case unvisited:
				state[dep] = inProgress
				stack = append(stack, frame{node: dep})
			case inProgress:
				return nil, cycle(cyclePath(stack, dep))
			}
		}
	}
	return order, nil
}

// cyclePath renders the back edge to dep as "dep -> ... -> dep".
func cyclePath(stack []frame, dep *Node) []string {
	i := len(stack) - 1
	for i > 0 && stack[i].node != dep {
		i--
	}
	path := make([]string, 0, len(stack)-i+1)
	for _, f := range stack[i:] {
		path = append(path, f.node.name)
	}
	return append(path, dep.name)
}
