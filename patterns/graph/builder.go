package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sp4m-08/crop-chat-agent/providers/llm"
)

// Builder constructs a validated Graph[T] with a fluent API. Nodes and
// edges are declared incrementally; Build performs structural validation
// including cycle detection via Kahn's algorithm.
//
// The builder enforces:
//   - node names are unique and non-empty, executors non-nil
//   - edge endpoints reference existing nodes (UnknownNodeError)
//   - no self-loops or duplicate edges
//   - the graph is acyclic (CycleError)
//   - at least one terminal node (no outgoing edges) exists
//   - the entry node, when declared, exists and has no upstream edges
type Builder[T any] struct {
	defaultLLM llm.Provider
	config     *graphConfig

	nodes map[string]*node
	edges []*edge

	// nodeOrder preserves insertion order for deterministic scheduling
	// within a level.
	nodeOrder []string

	// entry is the declared entry node name, empty when unset.
	entry string

	// fallback is returned by Execute when the output field is never set.
	fallback T

	// buildErrors accumulates declaration errors, reported at Build.
	buildErrors []error
}

// NewBuilder creates a Builder for a Graph[T]. The defaultLLM is handed to
// every node that has no WithNodeLLM override; it may be nil for graphs
// whose nodes never call a model.
func NewBuilder[T any](defaultLLM llm.Provider, opts ...Option) *Builder[T] {
	config := &graphConfig{
		errorStrategy: ErrorStrategyFailFast,
	}
	for _, opt := range opts {
		opt(config)
	}

	return &Builder[T]{
		defaultLLM: defaultLLM,
		config:     config,
		nodes:      make(map[string]*node),
	}
}

// AddNode registers a processing node under a unique name.
func (builder *Builder[T]) AddNode(name string, executor NodeExecutor, opts ...NodeOption) *Builder[T] {
	if name == "" {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("node name must not be empty"))
		return builder
	}
	if executor == nil {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("executor must not be nil for node %q", name))
		return builder
	}
	if _, exists := builder.nodes[name]; exists {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("duplicate node name %q", name))
		return builder
	}

	graphNode := &node{
		name:     name,
		executor: executor,
	}
	for _, opt := range opts {
		opt(graphNode)
	}

	builder.nodes[name] = graphNode
	builder.nodeOrder = append(builder.nodeOrder, name)
	return builder
}

// AddEdge declares that from must complete before to may run.
func (builder *Builder[T]) AddEdge(from, to string, opts ...EdgeOption) *Builder[T] {
	if from == "" || to == "" {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("edge endpoints must not be empty (from=%q, to=%q)", from, to))
		return builder
	}
	if from == to {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("self-loop detected: node %q cannot depend on itself", from))
		return builder
	}

	graphEdge := &edge{from: from, to: to}
	for _, opt := range opts {
		opt(graphEdge)
	}
	builder.edges = append(builder.edges, graphEdge)
	return builder
}

// SetEntry declares the entry node. Build verifies the node exists and has
// no upstream edges. Declaring an entry is optional; without one the
// in-degree-zero frontier starts the run.
func (builder *Builder[T]) SetEntry(name string) *Builder[T] {
	builder.entry = name
	return builder
}

// Fallback sets the value Execute returns when the output field was never
// written during the run.
func (builder *Builder[T]) Fallback(value T) *Builder[T] {
	builder.fallback = value
	return builder
}

// Build validates the declaration and produces an executable Graph[T].
func (builder *Builder[T]) Build() (*Graph[T], error) {
	if len(builder.buildErrors) > 0 {
		return nil, fmt.Errorf("graph build errors: %w", errors.Join(builder.buildErrors...))
	}

	if len(builder.nodes) == 0 {
		return nil, fmt.Errorf("graph must contain at least one node")
	}

	if err := builder.validateEdges(); err != nil {
		return nil, err
	}

	inDegree, adjacency := builder.buildAdjacency()

	if err := builder.validateEntry(inDegree); err != nil {
		return nil, err
	}

	topologicalOrder, levels, err := kahnTopologicalSort(inDegree, adjacency, builder.nodeOrder)
	if err != nil {
		return nil, err
	}

	if err := builder.validateTerminal(adjacency); err != nil {
		return nil, err
	}

	builder.populateUpstreams()

	return &Graph[T]{
		defaultLLM:       builder.defaultLLM,
		nodes:            builder.nodes,
		edges:            builder.edges,
		levels:           levels,
		topologicalOrder: topologicalOrder,
		entry:            builder.entry,
		fallback:         builder.fallback,
		config:           builder.config,
	}, nil
}

// validateEdges checks endpoint existence and duplicate edges.
func (builder *Builder[T]) validateEdges() error {
	edgeSet := make(map[string]bool, len(builder.edges))

	for _, graphEdge := range builder.edges {
		if _, exists := builder.nodes[graphEdge.from]; !exists {
			return &UnknownNodeError{From: graphEdge.from, To: graphEdge.to, Missing: graphEdge.from}
		}
		if _, exists := builder.nodes[graphEdge.to]; !exists {
			return &UnknownNodeError{From: graphEdge.from, To: graphEdge.to, Missing: graphEdge.to}
		}

		edgeKey := graphEdge.from + "->" + graphEdge.to
		if edgeSet[edgeKey] {
			return fmt.Errorf("duplicate edge from %q to %q", graphEdge.from, graphEdge.to)
		}
		edgeSet[edgeKey] = true
	}

	return nil
}

// validateEntry checks the declared entry node is a root.
func (builder *Builder[T]) validateEntry(inDegree map[string]int) error {
	if builder.entry == "" {
		return nil
	}
	degree, exists := inDegree[builder.entry]
	if !exists {
		return fmt.Errorf("entry node %q does not exist in the graph", builder.entry)
	}
	if degree != 0 {
		return fmt.Errorf("entry node %q has upstream edges", builder.entry)
	}
	return nil
}

// validateTerminal checks at least one node has no outgoing edges.
func (builder *Builder[T]) validateTerminal(adjacency map[string][]string) error {
	for _, downstream := range adjacency {
		if len(downstream) == 0 {
			return nil
		}
	}
	return fmt.Errorf("graph has no terminal node")
}

// buildAdjacency constructs the in-degree map and adjacency list. Every
// node starts with in-degree 0.
func (builder *Builder[T]) buildAdjacency() (map[string]int, map[string][]string) {
	inDegree := make(map[string]int, len(builder.nodes))
	adjacency := make(map[string][]string, len(builder.nodes))

	for name := range builder.nodes {
		inDegree[name] = 0
		adjacency[name] = nil
	}
	for _, graphEdge := range builder.edges {
		adjacency[graphEdge.from] = append(adjacency[graphEdge.from], graphEdge.to)
		inDegree[graphEdge.to]++
	}

	return inDegree, adjacency
}

// populateUpstreams fills each node's upstream list from the edges.
func (builder *Builder[T]) populateUpstreams() {
	for _, graphEdge := range builder.edges {
		targetNode := builder.nodes[graphEdge.to]
		targetNode.upstreams = append(targetNode.upstreams, graphEdge.from)
	}
}

// kahnTopologicalSort runs Kahn's algorithm, detecting cycles and grouping
// nodes into topological levels. Within a level, nodes keep their
// declaration order so scheduling is deterministic.
func kahnTopologicalSort(inDegree map[string]int, adjacency map[string][]string, nodeOrder []string) ([]string, [][]string, error) {
	nodePosition := make(map[string]int, len(nodeOrder))
	for index, name := range nodeOrder {
		nodePosition[name] = index
	}

	currentLevel := make([]string, 0)
	for name, degree := range inDegree {
		if degree == 0 {
			currentLevel = append(currentLevel, name)
		}
	}
	sortByPosition(currentLevel, nodePosition)

	topologicalOrder := make([]string, 0, len(inDegree))
	levels := make([][]string, 0)
	processedCount := 0

	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		topologicalOrder = append(topologicalOrder, currentLevel...)
		processedCount += len(currentLevel)

		nextLevel := make([]string, 0)
		for _, name := range currentLevel {
			for _, neighbor := range adjacency[name] {
				inDegree[neighbor]--
				if inDegree[neighbor] == 0 {
					nextLevel = append(nextLevel, neighbor)
				}
			}
		}
		sortByPosition(nextLevel, nodePosition)
		currentLevel = nextLevel
	}

	if processedCount != len(inDegree) {
		cycleNodes := make([]string, 0)
		for name, degree := range inDegree {
			if degree > 0 {
				cycleNodes = append(cycleNodes, name)
			}
		}
		sort.Strings(cycleNodes)
		return nil, nil, &CycleError{Nodes: cycleNodes}
	}

	return topologicalOrder, levels, nil
}

func sortByPosition(names []string, nodePosition map[string]int) {
	sort.Slice(names, func(indexA, indexB int) bool {
		return nodePosition[names[indexA]] < nodePosition[names[indexB]]
	})
}
