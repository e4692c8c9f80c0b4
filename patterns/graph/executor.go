package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sp4m-08/crop-chat-agent/core/parse"
)

// Report summarizes one completed (or failed) run.
type Report struct {
	// RunID uniquely identifies the run.
	RunID string

	// Trace is the final value of the trace field, one entry per node that
	// wrote one.
	Trace []string

	// Statuses maps every node to its terminal status for this run.
	Statuses map[string]NodeStatus

	// Durations maps executed nodes to their wall-clock duration.
	Durations map[string]time.Duration

	// NodeErrors maps failed nodes to their errors. Populated under both
	// error strategies; under fail_fast it holds the first failure.
	NodeErrors map[string]error

	// State is a snapshot of the final merged run state.
	State map[string]any
}

// Execute runs the graph once over a fresh State seeded with initial.
// The typed result is read from the configured output key; if the field
// was never written, the fallback value is returned.
//
// Execute is safe to call concurrently: every run owns its own State and
// resolves its observer per call, so a single compiled Graph can serve
// many simultaneous runs.
func (graph *Graph[T]) Execute(ctx context.Context, initial map[string]any) (T, *Report, error) {
	runID := uuid.NewString()
	observer := resolveObserver(ctx, graph.config.observer, runID)

	if graph.config.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, graph.config.executionTimeout)
		defer cancel()
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	state := newState(initial)

	runCtx, runSpan := observer.startRunSpan(runCtx, len(graph.nodes))

	runErr := graph.executeLevels(runCtx, cancelRun, state, observer)
	report := graph.buildReport(runID, state)

	endSpan(runSpan, runErr)

	if runErr != nil {
		return graph.fallback, report, runErr
	}
	return graph.extractOutput(state), report, nil
}

// executeLevels walks the topological levels in order, running each
// level's ready nodes concurrently. Returns the first node error under the
// fail_fast strategy, or the context error if the run was cancelled.
func (graph *Graph[T]) executeLevels(ctx context.Context, cancelRun context.CancelFunc, state *State, observer *runObserver) error {
	var limiter chan struct{}
	if graph.config.maxConcurrency > 0 {
		limiter = make(chan struct{}, graph.config.maxConcurrency)
	}

	for levelIndex, level := range graph.levels {
		if err := ctx.Err(); err != nil {
			return err
		}

		readyNodes := graph.filterReadyNodes(ctx, level, state, observer)
		if len(readyNodes) == 0 {
			continue
		}

		levelErr := graph.executeLevel(ctx, cancelRun, levelIndex, readyNodes, state, observer, limiter)
		if levelErr != nil && graph.config.errorStrategy == ErrorStrategyFailFast {
			return levelErr
		}
	}

	return ctx.Err()
}

// filterReadyNodes partitions a level into runnable nodes, marking the
// rest skipped. A node is runnable when every upstream completed and at
// least one incoming edge activates it.
func (graph *Graph[T]) filterReadyNodes(ctx context.Context, level []string, state *State, observer *runObserver) []*node {
	readyNodes := make([]*node, 0, len(level))

	for _, name := range level {
		graphNode := graph.nodes[name]

		if blockedBy, blocked := graph.blockedUpstream(graphNode, state); blocked {
			state.setNodeStatus(name, NodeSkipped)
			observer.recordSkip(ctx, name, fmt.Sprintf("upstream %q did not complete", blockedBy))
			continue
		}

		if !graph.edgeActivates(ctx, graphNode, state) {
			state.setNodeStatus(name, NodeSkipped)
			observer.recordSkip(ctx, name, "all incoming edge conditions false")
			continue
		}

		readyNodes = append(readyNodes, graphNode)
	}

	return readyNodes
}

// blockedUpstream reports whether any upstream of the node failed, was
// skipped, or never ran.
func (graph *Graph[T]) blockedUpstream(graphNode *node, state *State) (string, bool) {
	for _, upstream := range graphNode.upstreams {
		if state.nodeStatus(upstream) != NodeCompleted {
			return upstream, true
		}
	}
	return "", false
}

// edgeActivates evaluates the node's incoming edge conditions. A nil
// condition always activates; a node with no incoming edges is a root and
// always activates.
func (graph *Graph[T]) edgeActivates(ctx context.Context, graphNode *node, state *State) bool {
	hasIncoming := false
	for _, graphEdge := range graph.edges {
		if graphEdge.to != graphNode.name {
			continue
		}
		hasIncoming = true
		if graphEdge.condition == nil {
			return true
		}
		if graphEdge.condition(ctx, state.nodeResult(graphEdge.from), state) {
			return true
		}
	}
	return !hasIncoming
}

// executeLevel runs the given nodes concurrently, bounded by the limiter,
// and returns the first error any of them produced.
func (graph *Graph[T]) executeLevel(ctx context.Context, cancelRun context.CancelFunc, levelIndex int, readyNodes []*node, state *State, observer *runObserver, limiter chan struct{}) error {
	var waitGroup sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	for _, graphNode := range readyNodes {
		waitGroup.Add(1)

		go func(graphNode *node) {
			defer waitGroup.Done()

			if limiter != nil {
				select {
				case limiter <- struct{}{}:
					defer func() { <-limiter }()
				case <-ctx.Done():
					state.setNodeStatus(graphNode.name, NodeSkipped)
					return
				}
			}

			if err := graph.executeNode(ctx, levelIndex, graphNode, state, observer); err != nil {
				errOnce.Do(func() {
					firstErr = err
					if graph.config.errorStrategy == ErrorStrategyFailFast {
						cancelRun()
					}
				})
			}
		}(graphNode)
	}

	waitGroup.Wait()
	return firstErr
}

// executeNode runs a single node, merging its patch into the run state on
// success.
func (graph *Graph[T]) executeNode(ctx context.Context, levelIndex int, graphNode *node, state *State, observer *runObserver) error {
	if err := ctx.Err(); err != nil {
		state.setNodeStatus(graphNode.name, NodeSkipped)
		return err
	}

	state.setNodeStatus(graphNode.name, NodeRunning)

	nodeCtx := ctx
	if graphNode.timeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, graphNode.timeout)
		defer cancel()
	}

	nodeCtx, nodeSpan := observer.startNodeSpan(nodeCtx, graphNode.name, levelIndex)

	provider := graphNode.nodeLLM
	if provider == nil {
		provider = graph.defaultLLM
	}

	started := time.Now()
	patch, err := graphNode.executor.Execute(nodeCtx, &NodeInput{
		State:  state,
		Params: graphNode.params,
		LLM:    provider,
	})
	duration := time.Since(started)

	result := &NodeResult{Patch: patch, Err: err, Duration: duration}
	state.setNodeResult(graphNode.name, result)

	if err != nil {
		state.setNodeStatus(graphNode.name, NodeFailed)
		observer.recordNode(nodeCtx, graphNode.name, NodeFailed, duration)
		endSpan(nodeSpan, err)
		return fmt.Errorf("node %q failed: %w", graphNode.name, err)
	}

	state.apply(patch)
	state.setNodeStatus(graphNode.name, NodeCompleted)
	observer.recordNode(nodeCtx, graphNode.name, NodeCompleted, duration)
	endSpan(nodeSpan, nil)
	return nil
}

// buildReport snapshots the run's trace, statuses, durations and errors.
func (graph *Graph[T]) buildReport(runID string, state *State) *Report {
	statuses := state.allStatuses()
	durations := make(map[string]time.Duration)
	nodeErrors := make(map[string]error)

	for _, name := range graph.topologicalOrder {
		if _, known := statuses[name]; !known {
			statuses[name] = NodePending
		}
		result := state.nodeResult(name)
		if result == nil {
			continue
		}
		durations[name] = result.Duration
		if result.Err != nil {
			nodeErrors[name] = result.Err
		}
	}

	return &Report{
		RunID:      runID,
		Trace:      state.Trace(),
		Statuses:   statuses,
		Durations:  durations,
		NodeErrors: nodeErrors,
		State:      state.Snapshot(),
	}
}

// extractOutput reads the typed result from the output field. A string
// value that is not already a T goes through the lenient parser, so a node
// can write JSON text and the caller still gets a struct back.
func (graph *Graph[T]) extractOutput(state *State) T {
	if graph.config.outputKey == "" {
		return graph.fallback
	}

	raw, found := state.Value(graph.config.outputKey)
	if !found || raw == nil {
		return graph.fallback
	}

	if typed, ok := raw.(T); ok {
		return typed
	}

	if text, ok := raw.(string); ok {
		if parsed, err := parse.ParseStringAs[T](text); err == nil {
			return parsed
		}
	}

	return graph.fallback
}
