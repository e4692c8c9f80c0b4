package graph

import (
	"time"

	"github.com/sp4m-08/crop-chat-agent/providers/llm"
	"github.com/sp4m-08/crop-chat-agent/providers/observability"
)

// Option configures graph-level behavior at construction time.
type Option func(*graphConfig)

// WithMaxConcurrency limits how many nodes of a level execute in parallel.
// Values below 1 leave concurrency unlimited.
func WithMaxConcurrency(limit int) Option {
	return func(config *graphConfig) {
		if limit > 0 {
			config.maxConcurrency = limit
		}
	}
}

// WithExecutionTimeout bounds the wall-clock duration of a whole run. When
// the timeout elapses the run context is cancelled and Execute returns the
// context error.
func WithExecutionTimeout(timeout time.Duration) Option {
	return func(config *graphConfig) {
		if timeout > 0 {
			config.executionTimeout = timeout
		}
	}
}

// WithErrorStrategy selects how a run reacts to a failing node. The default
// is ErrorStrategyFailFast.
func WithErrorStrategy(strategy ErrorStrategy) Option {
	return func(config *graphConfig) {
		config.errorStrategy = strategy
	}
}

// WithOutputKey names the state field Execute extracts the typed result
// from. Without an output key Execute always returns the fallback value.
func WithOutputKey(key string) Option {
	return func(config *graphConfig) {
		config.outputKey = key
	}
}

// WithObserver attaches an observability provider to the graph. A provider
// found on the Execute context takes precedence for that run.
func WithObserver(observer observability.Provider) Option {
	return func(config *graphConfig) {
		config.observer = observer
	}
}

// NodeOption configures a single node at AddNode time.
type NodeOption func(*node)

// WithNodeLLM overrides the graph's default text-generation provider for
// this node.
func WithNodeLLM(provider llm.Provider) NodeOption {
	return func(graphNode *node) {
		graphNode.nodeLLM = provider
	}
}

// WithNodeParams attaches static parameters, exposed to the executor via
// NodeInput.Params.
func WithNodeParams(params map[string]any) NodeOption {
	return func(graphNode *node) {
		graphNode.params = params
	}
}

// WithNodeTimeout bounds this node's execution independently of the
// run-level timeout.
func WithNodeTimeout(timeout time.Duration) NodeOption {
	return func(graphNode *node) {
		if timeout > 0 {
			graphNode.timeout = timeout
		}
	}
}

// EdgeOption configures a single edge at AddEdge time.
type EdgeOption func(*edge)

// WithEdgeCondition makes the edge conditional. The condition runs after
// the source node completes; a false result means this edge does not
// activate its target.
func WithEdgeCondition(condition EdgeCondition) EdgeOption {
	return func(graphEdge *edge) {
		graphEdge.condition = condition
	}
}
