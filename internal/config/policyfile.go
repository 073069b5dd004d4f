package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrNoSection      = errors.New("line is not under a tag")
	ErrUnknownTag     = errors.New("not a valid tag")
	ErrMalformedLine  = errors.New("malformed line")
	ErrUnknownRoutine = errors.New("routine not declared under [id]")
)

// ParseError points at the policy file line that could not be parsed.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %q: %s", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// section is the tag the parser is currently under.
type section int

const (
	sectionNone section = iota
	sectionID
	sectionDependency
	sectionIgnoreDepError
	sectionSkip
)

var sectionTags = map[string]section{
	"id":              sectionID,
	"dependency":      sectionDependency,
	"dependencies":    sectionDependency,
	"ignoredeperror":  sectionIgnoreDepError,
	"ignoredeperrors": sectionIgnoreDepError,
	"skip":            sectionSkip,
}

type policyParser struct {
	cfg     *Policy
	current section
}

// lineHandlers holds one line handler per section.
var lineHandlers = map[section]func(p *policyParser, line string) error{
	sectionNone:           (*policyParser).noSection,
	sectionID:             (*policyParser).identifier,
	sectionDependency:     (*policyParser).dependency,
	sectionIgnoreDepError: (*policyParser).ignoreDepError,
	sectionSkip:           (*policyParser).skip,
}

// ParsePolicyFile reads the line-oriented policy format:
//
//	# comment
//	[id]
//	build: ./scripts/build.sh --fast
//	test: ./scripts/test.sh
//	[dependency]
//	test -> build
//	[ignoreDepErrors]
//	test
//	[skip]
//	build
//
// Routines must be declared under [id] before other sections refer to them.
func ParsePolicyFile(r io.Reader) (*Policy, error) {
	p := &policyParser{cfg: &Policy{}}
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var err error
		if tag, ok := parseTag(line); ok {
			err = p.changeSection(tag)
		} else {
			err = lineHandlers[p.current](p, line)
		}
		if err != nil {
			return nil, &ParseError{Line: n, Text: line, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return p.cfg, nil
}

func parseTag(line string) (string, bool) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(line[1 : len(line)-1])), true
}

func (p *policyParser) changeSection(tag string) error {
	s, ok := sectionTags[tag]
	if !ok {
		return fmt.Errorf("%w: [%s]", ErrUnknownTag, tag)
	}
	p.current = s
	return nil
}

func (p *policyParser) noSection(string) error {
	return ErrNoSection
}

func (p *policyParser) identifier(line string) error {
	name, routine, ok := strings.Cut(line, ":")
	name = strings.TrimSpace(name)
	argv := strings.Fields(routine)
	if !ok || name == "" || len(argv) == 0 {
		return fmt.Errorf("%w: want name:routine", ErrMalformedLine)
	}
	p.cfg.Routines = append(p.cfg.Routines, Routine{ID: name, Command: argv[0], Args: argv[1:]})
	return nil
}

func (p *policyParser) dependency(line string) error {
	name, list, ok := strings.Cut(line, "->")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("%w: want name->dep1,dep2", ErrMalformedLine)
	}
	var deps []string
	for _, d := range strings.Split(list, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			return fmt.Errorf("%w: empty dependency name", ErrMalformedLine)
		}
		if p.cfg.Routine(d) == nil {
			return fmt.Errorf("%w: %s", ErrUnknownRoutine, d)
		}
		deps = append(deps, d)
	}
	rt := p.cfg.Routine(name)
	if rt == nil {
		return fmt.Errorf("%w: %s", ErrUnknownRoutine, name)
	}
	rt.DependsOn = append(rt.DependsOn, deps...)
	return nil
}

func (p *policyParser) ignoreDepError(line string) error {
	if p.cfg.Routine(line) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownRoutine, line)
	}
	p.cfg.IgnoreDepErrors = append(p.cfg.IgnoreDepErrors, line)
	return nil
}

func (p *policyParser) skip(line string) error {
	if p.cfg.Routine(line) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownRoutine, line)
	}
	p.cfg.Skip = append(p.cfg.Skip, line)
	return nil
}
