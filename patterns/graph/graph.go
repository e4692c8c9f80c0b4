package graph

import (
	"context"
	"time"

	"github.com/sp4m-08/crop-chat-agent/providers/llm"
	"github.com/sp4m-08/crop-chat-agent/providers/observability"
)

// NodeStatus represents the lifecycle status of a node during a run.
type NodeStatus string

const (
	// NodePending indicates the node has not started execution yet.
	NodePending NodeStatus = "pending"

	// NodeRunning indicates the node is currently executing.
	NodeRunning NodeStatus = "running"

	// NodeCompleted indicates the node finished and its patch was merged.
	NodeCompleted NodeStatus = "completed"

	// NodeFailed indicates the node returned an error.
	NodeFailed NodeStatus = "failed"

	// NodeSkipped indicates the node did not run because an upstream failed
	// or all its incoming edge conditions evaluated to false.
	NodeSkipped NodeStatus = "skipped"
)

// ErrorStrategy defines how a run reacts when a node fails.
type ErrorStrategy string

const (
	// ErrorStrategyFailFast cancels the level and fails the run as soon as
	// any node fails. This is the default strategy.
	ErrorStrategyFailFast ErrorStrategy = "fail_fast"

	// ErrorStrategyContinueOnError lets sibling nodes finish when one
	// fails. Downstream dependents of the failed node are skipped.
	ErrorStrategyContinueOnError ErrorStrategy = "continue_on_error"
)

// NodeResult records the outcome of one node execution within a run.
type NodeResult struct {
	// Patch is the partial-state update the node produced. Nil on failure.
	Patch Patch

	// Err records the execution error, if the node failed.
	Err error

	// Duration is the wall-clock time the node took to execute.
	Duration time.Duration
}

// NodeInput is the data available to a node during execution.
type NodeInput struct {
	// State gives read access to the merged run state as of the moment all
	// of the node's upstreams completed.
	State *State

	// Params contains node-specific parameters set at construction time
	// via WithNodeParams.
	Params map[string]any

	// LLM is the text-generation provider for this node: the node-specific
	// override set via WithNodeLLM, or the graph default.
	LLM llm.Provider
}

// NodeExecutor is the interface every graph node implements. Execute reads
// its inputs from the run state and returns a patch naming the field(s) it
// produces. Returning an error marks the node failed; recoverable problems
// (a degraded provider, say) should instead be folded into the patch so the
// run can continue.
type NodeExecutor interface {
	Execute(ctx context.Context, input *NodeInput) (Patch, error)
}

// NodeExecutorFunc adapts an ordinary function to the NodeExecutor
// interface.
type NodeExecutorFunc func(ctx context.Context, input *NodeInput) (Patch, error)

// Execute calls the underlying function.
func (executorFunc NodeExecutorFunc) Execute(ctx context.Context, input *NodeInput) (Patch, error) {
	return executorFunc(ctx, input)
}

// EdgeCondition decides whether an edge is traversed. It runs after the
// source node completes, with the source's result and the current run
// state. A nil condition means the edge is always traversed; a node is
// skipped only if every incoming edge is conditional and false.
type EdgeCondition func(ctx context.Context, result *NodeResult, state *State) bool

// node is a single processing step, created internally by the Builder.
type node struct {
	name     string
	executor NodeExecutor

	// nodeLLM overrides the graph's default provider for this node.
	nodeLLM llm.Provider

	// params are node-specific parameters exposed via NodeInput.Params.
	params map[string]any

	// timeout bounds this node's execution. Zero means only the run-level
	// timeout applies.
	timeout time.Duration

	// upstreams lists the names of nodes that must complete before this
	// node may run. Populated during Build from the edges.
	upstreams []string
}

// edge is a directed dependency between two nodes.
type edge struct {
	from      string
	to        string
	condition EdgeCondition
}

// graphConfig holds graph-level configuration shared by Builder and Graph.
type graphConfig struct {
	// maxConcurrency limits nodes executing in parallel. Zero = unlimited.
	maxConcurrency int

	// executionTimeout bounds the whole run. Zero = no timeout.
	executionTimeout time.Duration

	// errorStrategy defaults to ErrorStrategyFailFast.
	errorStrategy ErrorStrategy

	// outputKey is the state field read as the run result. If empty, the
	// zero/fallback value is always returned.
	outputKey string

	// observer receives spans, metrics and logs for runs of this graph.
	// Nil disables observability unless one is found on the context.
	observer observability.Provider
}

// Graph is a validated, executable DAG of processing steps. It is generic
// over T, the type extracted from the output field after a run.
//
// A Graph is immutable after Build and safe for concurrent Execute calls:
// every run owns a private State, so concurrent runs never share mutable
// data.
type Graph[T any] struct {
	defaultLLM llm.Provider

	nodes map[string]*node
	edges []*edge

	// levels groups node names by topological level: level 0 nodes have no
	// upstreams, level N nodes depend only on earlier levels.
	levels [][]string

	topologicalOrder []string

	// entry is the declared entry node, empty when none was set.
	entry string

	// fallback is returned when the output field was never written.
	fallback T

	config *graphConfig
}

// Nodes returns the node names in topological order.
func (graph *Graph[T]) Nodes() []string {
	names := make([]string, len(graph.topologicalOrder))
	copy(names, graph.topologicalOrder)
	return names
}
