package graph

import (
	"context"
	"time"

	"github.com/sp4m-08/crop-chat-agent/providers/observability"
)

// Semantic attribute and metric names emitted by graph runs.
const (
	attrRunID     = "graph.run_id"
	attrNode      = "graph.node"
	attrLevel     = "graph.level"
	attrNodeCount = "graph.node_count"
	attrSkipWhy   = "graph.skip_reason"

	metricNodeDuration = "graph.node.duration_ms"
	metricNodeStatus   = "graph.node.status"
)

// runObserver is a nil-safe wrapper around the observability provider
// resolved for a single run. Every method is a no-op when no provider was
// configured, so the executor never branches on observability.
type runObserver struct {
	provider observability.Provider
	runID    string
}

// resolveObserver prefers a provider carried on the context over the one
// configured on the graph.
func resolveObserver(ctx context.Context, configured observability.Provider, runID string) *runObserver {
	if fromContext := observability.ObserverFromContext(ctx); fromContext != nil {
		return &runObserver{provider: fromContext, runID: runID}
	}
	return &runObserver{provider: configured, runID: runID}
}

func (observer *runObserver) startRunSpan(ctx context.Context, nodeCount int) (context.Context, observability.Span) {
	if observer.provider == nil {
		return ctx, nil
	}
	return observer.provider.StartSpan(ctx, "graph.execute",
		observability.String(attrRunID, observer.runID),
		observability.Int(attrNodeCount, nodeCount),
	)
}

func (observer *runObserver) startNodeSpan(ctx context.Context, nodeName string, level int) (context.Context, observability.Span) {
	if observer.provider == nil {
		return ctx, nil
	}
	return observer.provider.StartSpan(ctx, "graph.node",
		observability.String(attrRunID, observer.runID),
		observability.String(attrNode, nodeName),
		observability.Int(attrLevel, level),
	)
}

// endSpan closes a possibly-nil span with a status derived from err.
func endSpan(span observability.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, err.Error())
	} else {
		span.SetStatus(observability.StatusOK, "")
	}
	span.End()
}

// recordNode emits the per-node duration histogram and status counter.
func (observer *runObserver) recordNode(ctx context.Context, nodeName string, status NodeStatus, duration time.Duration) {
	if observer.provider == nil {
		return
	}
	attrs := []observability.Attribute{
		observability.String(attrNode, nodeName),
		observability.String("status", string(status)),
	}
	observer.provider.Histogram(metricNodeDuration).Record(ctx, float64(duration.Milliseconds()), attrs...)
	observer.provider.Counter(metricNodeStatus).Add(ctx, 1, attrs...)
}

// recordSkip logs why a node was skipped and counts it.
func (observer *runObserver) recordSkip(ctx context.Context, nodeName, reason string) {
	if observer.provider == nil {
		return
	}
	observer.provider.Debug(ctx, "node skipped",
		observability.String(attrRunID, observer.runID),
		observability.String(attrNode, nodeName),
		observability.String(attrSkipWhy, reason),
	)
	observer.provider.Counter(metricNodeStatus).Add(ctx, 1,
		observability.String(attrNode, nodeName),
		observability.String("status", string(NodeSkipped)),
		observability.String(attrSkipWhy, reason),
	)
}
