package config

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const samplePolicy = `
# nightly routines
[ID]
fetch: ./scripts/fetch.sh
build : ./scripts/build.sh --fast  -v
report: ./scripts/report.sh

[dependency]
build -> fetch
report -> fetch, build

[ignoreDepErrors]
report

[skip]
fetch
`

func TestParsePolicyFile(t *testing.T) {
	cfg, err := ParsePolicyFile(strings.NewReader(samplePolicy))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Routines) != 3 {
		t.Fatalf("expected 3 routines, got %d", len(cfg.Routines))
	}

	build := cfg.Routine("build")
	if build == nil {
		t.Fatal("routine build missing")
	}
	if build.Command != "./scripts/build.sh" || !reflect.DeepEqual(build.Args, []string{"--fast", "-v"}) {
		t.Errorf("unexpected build command %q %v", build.Command, build.Args)
	}
	if !reflect.DeepEqual(build.DependsOn, []string{"fetch"}) {
		t.Errorf("unexpected build deps %v", build.DependsOn)
	}
	if deps := cfg.Routine("report").DependsOn; !reflect.DeepEqual(deps, []string{"fetch", "build"}) {
		t.Errorf("unexpected report deps %v", deps)
	}
	if !reflect.DeepEqual(cfg.IgnoreDepErrors, []string{"report"}) {
		t.Errorf("unexpected ignore list %v", cfg.IgnoreDepErrors)
	}
	if !reflect.DeepEqual(cfg.Skip, []string{"fetch"}) {
		t.Errorf("unexpected skip list %v", cfg.Skip)
	}
}

func TestParsePolicyFile_RepeatedDependencyLinesAppend(t *testing.T) {
	src := "[id]\na: ./a\nb: ./b\nc: ./c\n[dependency]\nc->a\nc->b\n"
	cfg, err := ParsePolicyFile(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deps := cfg.Routine("c").DependsOn; !reflect.DeepEqual(deps, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", deps)
	}
}

func TestParsePolicyFile_Errors(t *testing.T) {
	cases := []struct {
		name    string
		src     string
		line    int
		wantErr error
	}{
		{name: "line before tag", src: "a: ./a\n", line: 1, wantErr: ErrNoSection},
		{name: "unknown tag", src: "# c\n[routines]\n", line: 2, wantErr: ErrUnknownTag},
		{name: "id without colon", src: "[id]\njust-a-name\n", line: 2, wantErr: ErrMalformedLine},
		{name: "id without routine", src: "[id]\na:   \n", line: 2, wantErr: ErrMalformedLine},
		{name: "dependency without arrow", src: "[id]\na: ./a\n[dependency]\na\n", line: 4, wantErr: ErrMalformedLine},
		{name: "empty dependency entry", src: "[id]\na: ./a\nb: ./b\n[dependency]\nb->a,\n", line: 5, wantErr: ErrMalformedLine},
		{name: "dependency on unknown", src: "[id]\na: ./a\n[dependency]\na->zzz\n", line: 4, wantErr: ErrUnknownRoutine},
		{name: "dependency before id", src: "[dependency]\na->b\n[id]\na: ./a\nb: ./b\n", line: 2, wantErr: ErrUnknownRoutine},
		{name: "skip unknown", src: "[id]\na: ./a\n[skip]\nb\n", line: 4, wantErr: ErrUnknownRoutine},
		{name: "ignore unknown", src: "[id]\na: ./a\n[ignoreDepError]\nb\n", line: 4, wantErr: ErrUnknownRoutine},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePolicyFile(strings.NewReader(tc.src))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Line != tc.line {
				t.Errorf("expected line %d, got %d", tc.line, pe.Line)
			}
		})
	}
}
