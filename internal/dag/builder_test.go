package dag_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gyaneshwarpardhi/orchestrate/internal/command"
	"github.com/gyaneshwarpardhi/orchestrate/internal/config"
	"github.com/gyaneshwarpardhi/orchestrate/internal/dag"
)

func TestBuild_OrderIndependent(t *testing.T) {
	// "report" depends on routines declared after it.
	cfg := &config.Policy{
		Routines: []config.Routine{
			{ID: "report", Command: "./report.sh", DependsOn: []string{"build", "fetch"}},
			{ID: "build", Command: "make", Args: []string{"all"}, DependsOn: []string{"fetch"}},
			{ID: "fetch", Command: "./fetch.sh", Kind: command.KindShell, Dir: "/tmp"},
		},
	}
	g, err := dag.Build(cfg, command.NewDefaultRegistry())
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if g.Len() != 3 {
		t.Fatalf("expected 3 nodes, got %d", g.Len())
	}

	build := g.Node("build").Command()
	if !reflect.DeepEqual(build.Argv, []string{"make", "all"}) {
		t.Errorf("unexpected argv %v", build.Argv)
	}
	fetch := g.Node("fetch").Command()
	if fetch.Kind != command.KindShell || fetch.Dir != "/tmp" {
		t.Errorf("unexpected fetch spec %+v", fetch)
	}

	order, err := g.Ordering()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dag.Names(order); !reflect.DeepEqual(got, []string{"fetch", "build", "report"}) {
		t.Errorf("expected [fetch build report], got %v", got)
	}
}

func TestBuild_Errors(t *testing.T) {
	cases := []struct {
		name    string
		cfg     *config.Policy
		wantErr error
	}{
		{
			name: "duplicate",
			cfg: &config.Policy{Routines: []config.Routine{
				{ID: "a", Command: "./a"}, {ID: "a", Command: "./b"},
			}},
			wantErr: dag.ErrDuplicateNode,
		},
		{
			name: "unknown dependency",
			cfg: &config.Policy{Routines: []config.Routine{
				{ID: "a", Command: "./a", DependsOn: []string{"missing"}},
			}},
			wantErr: dag.ErrUnknownNode,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dag.Build(tc.cfg, nil)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestBuild_ValidatesCommandKind(t *testing.T) {
	cfg := &config.Policy{Routines: []config.Routine{
		{ID: "a", Command: "./a", Kind: "docker"},
	}}
	if _, err := dag.Build(cfg, command.NewDefaultRegistry()); err == nil {
		t.Error("expected error for unregistered command kind")
	}
}

func TestBuild_CycleReportedByOrdering(t *testing.T) {
	cfg := &config.Policy{Routines: []config.Routine{
		{ID: "a", Command: "./a", DependsOn: []string{"b"}},
		{ID: "b", Command: "./b", DependsOn: []string{"a"}},
	}}
	g, err := dag.Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build should accept cycles, got %v", err)
	}
	if _, err := g.Ordering(); !errors.Is(err, dag.ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
}
