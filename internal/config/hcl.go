package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// hclPolicyFile is the decoding target for .hcl policies:
//
//	schedule = "0 3 * * *"
//	skip     = ["lint"]
//
//	routine "build" {
//	  command = "./scripts/build.sh"
//	}
//	routine "test" {
//	  command    = "./scripts/test.sh"
//	  depends_on = ["build"]
//	}
type hclPolicyFile struct {
	Version         string       `hcl:"version,optional"`
	Schedule        string       `hcl:"schedule,optional"`
	Skip            []string     `hcl:"skip,optional"`
	IgnoreDepErrors []string     `hcl:"ignore_dep_errors,optional"`
	Engine          *hclEngine   `hcl:"engine,block"`
	Routines        []hclRoutine `hcl:"routine,block"`
}

type hclEngine struct {
	RunWorkers   int `hcl:"run_workers,optional"`
	QueueDepth   int `hcl:"queue_depth,optional"`
	RunTimeoutMs int `hcl:"run_timeout_ms,optional"`
	HistorySize  int `hcl:"history_size,optional"`
}

type hclRoutine struct {
	ID        string   `hcl:"id,label"`
	Command   string   `hcl:"command"`
	Args      []string `hcl:"args,optional"`
	Kind      string   `hcl:"kind,optional"`
	Dir       string   `hcl:"dir,optional"`
	DependsOn []string `hcl:"depends_on,optional"`
}

// ParseHCL decodes an HCL policy. filename is only used in diagnostics.
func ParseHCL(src []byte, filename string) (*Policy, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var raw hclPolicyFile
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	cfg := &Policy{
		Version:         raw.Version,
		Schedule:        raw.Schedule,
		Skip:            raw.Skip,
		IgnoreDepErrors: raw.IgnoreDepErrors,
		Routines:        make([]Routine, 0, len(raw.Routines)),
	}
	if raw.Engine != nil {
		cfg.Engine = EngineConf{
			RunWorkers:   raw.Engine.RunWorkers,
			QueueDepth:   raw.Engine.QueueDepth,
			RunTimeoutMs: raw.Engine.RunTimeoutMs,
			HistorySize:  raw.Engine.HistorySize,
		}
	}
	for _, r := range raw.Routines {
		cfg.Routines = append(cfg.Routines, Routine{
			ID:        r.ID,
			Command:   r.Command,
			Args:      r.Args,
			Kind:      r.Kind,
			Dir:       r.Dir,
			DependsOn: r.DependsOn,
		})
	}
	return cfg, nil
}
