package dag_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/orchestrate/internal/command"
	"github.com/gyaneshwarpardhi/orchestrate/internal/dag"
)

// edges maps a routine to the routines it depends on.
type edges map[string][]string

func buildGraph(t *testing.T, names []string, deps edges) *dag.Graph {
	t.Helper()
	g := dag.NewGraph()
	for _, n := range names {
		if _, err := g.AddNode(n, command.Spec{Argv: []string{"./" + n}}); err != nil {
			t.Fatalf("AddNode(%s): %v", n, err)
		}
	}
	for _, n := range names {
		if d, ok := deps[n]; ok {
			if err := g.AddDependencies(n, d...); err != nil {
				t.Fatalf("AddDependencies(%s): %v", n, err)
			}
		}
	}
	return g
}

// assertTopological checks every node appears once and every dependency
// precedes its dependent.
func assertTopological(t *testing.T, g *dag.Graph, order []*dag.Node) {
	t.Helper()
	pos := make(map[string]int, len(order))
	for i, n := range order {
		if _, dup := pos[n.Name()]; dup {
			t.Fatalf("%s appears twice in %v", n.Name(), dag.Names(order))
		}
		pos[n.Name()] = i
	}
	for _, n := range order {
		deps, err := g.Dependencies(n.Name())
		if err != nil {
			t.Fatalf("Dependencies(%s): %v", n.Name(), err)
		}
		for _, d := range deps {
			dp, ok := pos[d]
			if !ok {
				t.Errorf("dependency %s of %s missing from ordering", d, n.Name())
				continue
			}
			if dp >= pos[n.Name()] {
				t.Errorf("dependency %s must precede %s in %v", d, n.Name(), dag.Names(order))
			}
		}
	}
}

func TestOrdering_Chain(t *testing.T) {
	g := buildGraph(t, []string{"C", "B", "A"}, edges{"C": {"B"}, "B": {"A"}})

	order, err := g.Ordering()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dag.Names(order); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("expected [A B C], got %v", got)
	}
}

func TestOrdering_WholeGraphCoversEveryNode(t *testing.T) {
	// a → b → d, a → c → d, plus unrelated e → f
	g := buildGraph(t,
		[]string{"a", "b", "c", "d", "e", "f"},
		edges{"a": {"b", "c"}, "b": {"d"}, "c": {"d"}, "e": {"f"}},
	)
	order, err := g.Ordering()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != g.Len() {
		t.Fatalf("expected %d nodes, got %v", g.Len(), dag.Names(order))
	}
	assertTopological(t, g, order)
}

func TestOrdering_Deterministic(t *testing.T) {
	g := buildGraph(t,
		[]string{"deploy", "test", "lint", "build", "fetch"},
		edges{"deploy": {"test", "lint"}, "test": {"build"}, "lint": {"fetch"}, "build": {"fetch"}},
	)
	want := []string{"fetch", "build", "test", "lint", "deploy"}
	for i := 0; i < 20; i++ {
		order, err := g.Ordering()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := dag.Names(order); !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestOrdering_IndependentRootsInInsertionOrder(t *testing.T) {
	g := buildGraph(t, []string{"z", "m", "a"}, nil)
	order, err := g.Ordering()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dag.Names(order); !reflect.DeepEqual(got, []string{"z", "m", "a"}) {
		t.Errorf("expected insertion order, got %v", got)
	}
}

func TestOrdering_SubsetClosure(t *testing.T) {
	g := buildGraph(t,
		[]string{"a", "b", "c", "d", "e", "f"},
		edges{"a": {"b"}, "b": {"c"}, "d": {"c"}, "e": {"f"}},
	)
	cases := []struct {
		start []string
		want  []string
	}{
		{start: []string{"a"}, want: []string{"a", "b", "c"}},
		{start: []string{"d"}, want: []string{"c", "d"}},
		{start: []string{"c"}, want: []string{"c"}},
		{start: []string{"d", "e"}, want: []string{"c", "d", "e", "f"}},
		{start: []string{"b", "b"}, want: []string{"b", "c"}},
	}
	for _, tc := range cases {
		t.Run(strings.Join(tc.start, ","), func(t *testing.T) {
			order, err := g.Ordering(tc.start...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := dag.NewNameSet(dag.Names(order)...)
			if !reflect.DeepEqual(got, dag.NewNameSet(tc.want...)) || len(order) != len(tc.want) {
				t.Errorf("expected closure %v, got %v", tc.want, dag.Names(order))
			}
			assertTopological(t, g, order)
		})
	}
}

func TestOrdering_UnknownStart(t *testing.T) {
	g := buildGraph(t, []string{"a"}, nil)
	_, err := g.Ordering("a", "ghost")
	if !errors.Is(err, dag.ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
}

func TestOrdering_Cycles(t *testing.T) {
	cases := []struct {
		name  string
		names []string
		deps  edges
		start []string
	}{
		{name: "two node", names: []string{"A", "B"}, deps: edges{"A": {"B"}, "B": {"A"}}},
		{name: "self loop", names: []string{"A"}, deps: edges{"A": {"A"}}},
		{name: "three node", names: []string{"A", "B", "C"}, deps: edges{"A": {"B"}, "B": {"C"}, "C": {"A"}}},
		{
			name:  "scoped to cycle member",
			names: []string{"x", "A", "B"},
			deps:  edges{"A": {"B"}, "B": {"A"}},
			start: []string{"B"},
		},
		{
			name:  "scoped to node reaching cycle",
			names: []string{"top", "A", "B"},
			deps:  edges{"top": {"A"}, "A": {"B"}, "B": {"A"}},
			start: []string{"top"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := buildGraph(t, tc.names, tc.deps)
			_, err := g.Ordering(tc.start...)
			if !errors.Is(err, dag.ErrCyclicDependency) {
				t.Fatalf("expected ErrCyclicDependency, got %v", err)
			}
		})
	}
}

func TestOrdering_CycleOutsideScopeIsIgnored(t *testing.T) {
	g := buildGraph(t, []string{"ok", "A", "B"}, edges{"A": {"B"}, "B": {"A"}})
	order, err := g.Ordering("ok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dag.Names(order); !reflect.DeepEqual(got, []string{"ok"}) {
		t.Errorf("expected [ok], got %v", got)
	}
}

func TestOrdering_CyclePathInMessage(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "C"}, edges{"A": {"B"}, "B": {"C"}, "C": {"B"}})
	_, err := g.Ordering()
	if err == nil || !strings.Contains(err.Error(), "B -> C -> B") {
		t.Errorf("expected cycle path B -> C -> B, got %v", err)
	}
}

func TestOrdering_DeepChainDoesNotRecurse(t *testing.T) {
	const depth = 100_000
	g := dag.NewGraph()
	for i := 0; i < depth; i++ {
		name := fmt.Sprintf("n%d", i)
		if _, err := g.AddNode(name, command.Spec{}); err != nil {
			t.Fatal(err)
		}
		if i > 0 {
			if err := g.AddDependencies(name, fmt.Sprintf("n%d", i-1)); err != nil {
				t.Fatal(err)
			}
		}
	}
	order, err := g.Ordering(fmt.Sprintf("n%d", depth-1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != depth || order[0].Name() != "n0" {
		t.Errorf("expected %d nodes starting at n0, got %d", depth, len(order))
	}
}

func TestAddNode_Duplicate(t *testing.T) {
	g := dag.NewGraph()
	if _, err := g.AddNode("a", command.Spec{Argv: []string{"./first"}}); err != nil {
		t.Fatal(err)
	}
	_, err := g.AddNode("a", command.Spec{Argv: []string{"./second"}})
	if !errors.Is(err, dag.ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got %v", err)
	}
	if g.Len() != 1 || g.Node("a").Command().Argv[0] != "./first" {
		t.Errorf("graph changed after duplicate insert")
	}
	if _, err := g.AddNode("", command.Spec{}); !errors.Is(err, dag.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty name, got %v", err)
	}
}

func TestAddDependencies_UnknownIsAtomic(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"}, edges{"a": {"b"}})

	if err := g.AddDependencies("ghost", "a"); !errors.Is(err, dag.ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode for unknown source, got %v", err)
	}
	if err := g.AddDependencies("a", "c", "ghost"); !errors.Is(err, dag.ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode for unknown dependency, got %v", err)
	}
	deps, err := g.Dependencies("a")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(deps, []string{"b"}) {
		t.Errorf("expected partial mutation to be rejected, deps are %v", deps)
	}
}

func TestAddDependencies_AppendsInOrderWithoutRepeats(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c", "d"}, nil)
	if err := g.AddDependencies("a", "c", "b"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddDependencies("a", "b", "d", "d"); err != nil {
		t.Fatal(err)
	}
	deps, _ := g.Dependencies("a")
	if !reflect.DeepEqual(deps, []string{"c", "b", "d"}) {
		t.Errorf("expected [c b d], got %v", deps)
	}
}

func TestDependencies_DirectOnly(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"}, edges{"a": {"b"}, "b": {"c"}})
	deps, err := g.Dependencies("a")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(deps, []string{"b"}) {
		t.Errorf("expected [b], got %v", deps)
	}
	if _, err := g.Dependencies("ghost"); !errors.Is(err, dag.ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
}

func TestParseRunList(t *testing.T) {
	got, err := dag.ParseRunList([]string{" a", "", "b ", " "})
	if err != nil || !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v (%v)", got, err)
	}
	for _, in := range [][]string{nil, {}, {""}, {" ", ""}} {
		if _, err := dag.ParseRunList(in); !errors.Is(err, dag.ErrInvalidArgument) {
			t.Errorf("ParseRunList(%q): expected ErrInvalidArgument, got %v", in, err)
		}
	}
}
