package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks the policy for:
//   - Missing or duplicate routine IDs
//   - Empty commands
//   - Dependencies, skip and ignore_dep_errors entries naming unknown routines
//   - An unparsable cron schedule
//
// Cycles are not checked here; they surface when an ordering is requested.
func Validate(cfg *Policy) error {
	ids := make(map[string]int) // id → index
	var errs []string

	for i, r := range cfg.Routines {
		if r.ID == "" {
			errs = append(errs, fmt.Sprintf("routines[%d]: id is required", i))
			continue
		}
		if prev, ok := ids[r.ID]; ok {
			errs = append(errs, fmt.Sprintf("duplicate id %q (first seen at routines[%d], again at routines[%d])", r.ID, prev, i))
		} else {
			ids[r.ID] = i
		}
		if strings.TrimSpace(r.Command) == "" {
			errs = append(errs, fmt.Sprintf("routine %s: command is required", r.ID))
		}
	}

	for _, r := range cfg.Routines {
		for _, dep := range r.DependsOn {
			if _, ok := ids[dep]; !ok {
				errs = append(errs, fmt.Sprintf("routine %s: depends on unknown routine %q", r.ID, dep))
			}
		}
	}
	validateNames("skip", cfg.Skip, ids, &errs)
	validateNames("ignore_dep_errors", cfg.IgnoreDepErrors, ids, &errs)

	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("schedule %q: %s", cfg.Schedule, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateNames(field string, names []string, ids map[string]int, errs *[]string) {
	for _, n := range names {
		if _, ok := ids[n]; !ok {
			*errs = append(*errs, fmt.Sprintf("%s: unknown routine %q", field, n))
		}
	}
}
