package config

// Policy is the top-level routine configuration, whatever format it was read from.
type Policy struct {
	Version         string     `yaml:"version" json:"version,omitempty"`
	Engine          EngineConf `yaml:"engine" json:"engine"`
	Routines        []Routine  `yaml:"routines" json:"routines"`
	Skip            []string   `yaml:"skip" json:"skip,omitempty"`
	IgnoreDepErrors []string   `yaml:"ignore_dep_errors" json:"ignore_dep_errors,omitempty"`
	Schedule        string     `yaml:"schedule" json:"schedule,omitempty"` // cron expression, serve mode only

	// Source is the file the policy was loaded from.
	Source string `yaml:"-" json:"source,omitempty"`
}

// EngineConf holds tunable run-service settings.
type EngineConf struct {
	RunWorkers   int `yaml:"run_workers" json:"run_workers"`
	QueueDepth   int `yaml:"queue_depth" json:"queue_depth"`
	RunTimeoutMs int `yaml:"run_timeout_ms" json:"run_timeout_ms"`
	HistorySize  int `yaml:"history_size" json:"history_size"`
}

// Routine is a named command with the routines it depends on.
type Routine struct {
	ID        string   `yaml:"id" json:"id"`
	Command   string   `yaml:"command" json:"command"`
	Args      []string `yaml:"args" json:"args,omitempty"`
	Kind      string   `yaml:"kind" json:"kind,omitempty"` // "exec" (default) | "shell"
	Dir       string   `yaml:"dir" json:"dir,omitempty"`
	DependsOn []string `yaml:"depends_on" json:"depends_on,omitempty"`
}

// Routine returns the routine with the given id, or nil.
func (p *Policy) Routine(id string) *Routine {
	for i := range p.Routines {
		if p.Routines[i].ID == id {
			return &p.Routines[i]
		}
	}
	return nil
}

func applyDefaults(cfg *Policy) {
	if cfg.Engine.RunWorkers == 0 {
		cfg.Engine.RunWorkers = 1
	}
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = 64
	}
	if cfg.Engine.RunTimeoutMs == 0 {
		cfg.Engine.RunTimeoutMs = 3_600_000
	}
	if cfg.Engine.HistorySize == 0 {
		cfg.Engine.HistorySize = 100
	}
}
