package graph

import (
	"fmt"
	"strings"
)

// CycleError reports that the declared edges contain a cycle. Nodes lists
// every node left with unresolved upstreams when the topological sort
// stalled, which always includes the offending cycle.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected in graph involving nodes: %s", strings.Join(e.Nodes, ", "))
}

// UnknownNodeError reports an edge endpoint that references a node that was
// never added to the builder.
type UnknownNodeError struct {
	From string
	To   string
	// Missing is the endpoint name that does not exist.
	Missing string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("edge %s -> %s references unknown node %q", e.From, e.To, e.Missing)
}
