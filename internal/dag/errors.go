package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateNode    = errors.New("duplicate routine")
	ErrUnknownNode      = errors.New("unknown routine")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrCyclicDependency = errors.New("cyclic dependency")
)

// GraphError describes a graph mutation or query failure.
// Kind is one of the sentinel errors above; match it with errors.Is.
type GraphError struct {
	Kind error
	Node string
	Msg  string
}

func (e *GraphError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func duplicate(name string) error {
	return &GraphError{Kind: ErrDuplicateNode, Node: name}
}

func unknown(name string) error {
	return &GraphError{Kind: ErrUnknownNode, Node: name}
}

func cycle(path []string) error {
	return &GraphError{Kind: ErrCyclicDependency, Node: path[0], Msg: strings.Join(path, " -> ")}
}
